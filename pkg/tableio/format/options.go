// Licensed to the Apache Software Foundation (ASF) under one or more
// contributor license agreements.  See the NOTICE file distributed with
// this work for additional information regarding copyright ownership.
// The ASF licenses this file to You under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance with
// the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package format

import (
	"sort"
	"strconv"
	"strings"

	"github.com/apache/beam/tableio/internal/errors"
)

// Options is a bag of codec options keyed by option name, e.g. "header" or
// "infer_schema". Codecs never modify the bag.
type Options map[string]any

// Clone returns a shallow copy of o with extra merged over it.
func (o Options) Clone(extra Options) Options {
	out := make(Options, len(o)+len(extra))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// OptionReader reads typed values out of an Options bag while recording which
// keys were consumed and the first conversion error.
type OptionReader struct {
	opts Options
	used map[string]bool
	err  error
}

// Reader returns a reader over o.
func (o Options) Reader() *OptionReader {
	return &OptionReader{opts: o, used: make(map[string]bool)}
}

// Lookup returns the raw value of key and marks it consumed.
func (r *OptionReader) Lookup(key string) (any, bool) {
	r.used[key] = true
	v, ok := r.opts[key]
	return v, ok
}

func (r *OptionReader) fail(key string, v any, want string) {
	if r.err == nil {
		r.err = errors.Wrapf(errors.ErrUnsupportedOption, "option %v=%v is not %v", key, v, want)
	}
}

// Bool returns key as a bool. Accepts bool values, the strings understood by
// strconv.ParseBool, and the integers 0 and 1.
func (r *OptionReader) Bool(key string, def bool) bool {
	v, ok := r.Lookup(key)
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		if b, err := strconv.ParseBool(x); err == nil {
			return b
		}
	case int:
		if x == 0 || x == 1 {
			return x == 1
		}
	}
	r.fail(key, v, "a boolean")
	return def
}

// String returns key as a string.
func (r *OptionReader) String(key, def string) string {
	v, ok := r.Lookup(key)
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	r.fail(key, v, "a string")
	return def
}

// Int returns key as an int. Numeric strings are accepted.
func (r *OptionReader) Int(key string, def int) int {
	v, ok := r.Lookup(key)
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case string:
		if i, err := strconv.Atoi(x); err == nil {
			return i
		}
	}
	r.fail(key, v, "an integer")
	return def
}

// Fail records that v is not an acceptable value for key unless an error is
// already recorded. want describes the acceptable values.
func (r *OptionReader) Fail(key string, v any, want string) {
	r.fail(key, v, want)
}

// Done returns the first conversion error, or an error naming every key the
// codec did not consume.
func (r *OptionReader) Done(codec string) error {
	if r.err != nil {
		return errors.WithContextf(r.err, "%v options", codec)
	}
	var unknown []string
	for k := range r.opts {
		if !r.used[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errors.Wrapf(errors.ErrUnsupportedOption, "%v does not support option(s) %v", codec, strings.Join(unknown, ", "))
	}
	return nil
}

// Rune returns key as a single character, e.g. a field separator.
func (r *OptionReader) Rune(key string, def rune) rune {
	s := r.String(key, string(def))
	rs := []rune(s)
	if len(rs) != 1 {
		r.fail(key, s, "a single character")
		return def
	}
	return rs[0]
}
