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

// Package format defines the closed set of tabular file formats, the suffix
// table used to infer a format from a path, and the Codec contract each
// format implements.
package format

import (
	"context"
	"strings"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/apache/beam/tableio/pkg/table"
)

// Format is a tabular storage format.
type Format int

const (
	CSV Format = iota
	Parquet
	JSON
	Avro

	// NumFormats is the number of formats. Tables indexed by Format have this
	// length.
	NumFormats
)

var names = [NumFormats]string{
	CSV:     "csv",
	Parquet: "parquet",
	JSON:    "json",
	Avro:    "avro",
}

// String returns the format tag, e.g. "parquet". The tag is also the file
// extension used when listing a directory.
func (f Format) String() string {
	if f < 0 || f >= NumFormats {
		return "unknown"
	}
	return names[f]
}

// suffixEntry maps a, possibly compound, file suffix to its format.
type suffixEntry struct {
	suffix string
	format Format
}

// suffixes is the registered suffix table. The longest suffix a path ends
// with wins; ties go to the earlier entry.
var suffixes = []suffixEntry{
	{".csv", CSV},
	{".csv.gz", CSV},
	{".parquet", Parquet},
	{".json", JSON},
	{".json.gz", JSON},
	{".avro", Avro},
	{".avro.gz", Avro},
}

// Parse returns the format for a format tag such as "csv". The tag is case
// insensitive.
func Parse(tag string) (Format, error) {
	t := strings.ToLower(strings.TrimSpace(tag))
	for f, n := range names {
		if n == t {
			return Format(f), nil
		}
	}
	return 0, errors.Wrapf(errors.ErrUnsupportedFormat, "format hint %q is not one of %v", tag, names)
}

// FromSuffix returns the format of a compound suffix such as ".csv.gz".
func FromSuffix(suffix string) (Format, error) {
	s := strings.ToLower(suffix)
	best := -1
	for i, e := range suffixes {
		if strings.HasSuffix(s, e.suffix) && (best < 0 || len(e.suffix) > len(suffixes[best].suffix)) {
			best = i
		}
	}
	if best >= 0 {
		return suffixes[best].format, nil
	}
	return 0, errors.Wrapf(errors.ErrUnsupportedFormat, "suffix %q is not supported", suffix)
}

// Codec loads and saves one format. Implementations are stateless and safe for
// concurrent use.
type Codec interface {
	// Load reads the single file at path. The returned table carries a schema
	// only when sel is a structured schema.
	Load(ctx context.Context, fs filesystem.Interface, path string, sel table.Selection, opts Options) (*table.Table, error)
	// Save writes t to the single file at path, replacing any content.
	Save(ctx context.Context, fs filesystem.Interface, t *table.Table, path string, opts Options) error
	// ValidateSave reports the error Save would return for opts, before
	// anything is written or removed.
	ValidateSave(opts Options) error
}

// Appender is implemented by codecs that can add rows to an existing file.
// Appends reports whether a save with opts reads the file at the destination
// instead of replacing it, in which case the destination must not be cleared
// before Save.
type Appender interface {
	Appends(opts Options) bool
}
