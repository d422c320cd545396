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

package table

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/beam/tableio/internal/errors"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Cast converts v to the native representation of t: string, int64, float64,
// bool or time.Time. nil stays nil, and so does the empty string for
// non-string types.
func Cast(v any, t Type) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && s == "" && t != String {
		return nil, nil
	}
	switch t {
	case String:
		return castString(v)
	case Int64:
		return castInt64(v)
	case Float64:
		return castFloat64(v)
	case Bool:
		return castBool(v)
	case Timestamp:
		return castTimestamp(v)
	}
	return nil, errors.Errorf("cannot convert %v to %v", v, t)
}

func castString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	}
	return nil, errors.Errorf("cannot convert %v (%T) to %v", v, v, String)
}

func castInt64(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float32:
		return castInt64(float64(x))
	case float64:
		// float64(math.MaxInt64) rounds up to 1<<63, which int64 cannot hold.
		if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			return int64(x), nil
		}
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		s := strings.TrimSpace(x)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return castInt64(f)
		}
	}
	return nil, errors.Errorf("cannot convert %v (%T) to %v", v, v, Int64)
}

func castFloat64(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, nil
		}
	}
	return nil, errors.Errorf("cannot convert %v (%T) to %v", v, v, Float64)
}

func castBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case int:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			return b, nil
		}
	}
	return nil, errors.Errorf("cannot convert %v (%T) to %v", v, v, Bool)
}

func castTimestamp(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
	}
	return nil, errors.Errorf("cannot convert %v (%T) to %v", v, v, Timestamp)
}

// TypeOf returns the column type of a native value. ok is false for nil and
// for values that have no column type.
func TypeOf(v any) (t Type, ok bool) {
	switch v.(type) {
	case string, []byte:
		return String, true
	case int, int32, int64:
		return Int64, true
	case float32, float64:
		return Float64, true
	case bool:
		return Bool, true
	case time.Time:
		return Timestamp, true
	}
	return 0, false
}

// InferType returns the narrowest of Int64, Float64 and Bool that every
// non-empty text value parses as, and String otherwise. A column with no
// values is String.
func InferType(values []string) Type {
	candidates := []Type{Int64, Float64, Bool}
	seen := false
	for _, s := range values {
		if s == "" {
			continue
		}
		seen = true
		var keep []Type
		for _, t := range candidates {
			if _, err := Cast(s, t); err == nil {
				keep = append(keep, t)
			}
		}
		candidates = keep
		if len(candidates) == 0 {
			return String
		}
	}
	if !seen {
		return String
	}
	return candidates[0]
}
