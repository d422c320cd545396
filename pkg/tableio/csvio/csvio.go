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

// Package csvio reads and writes tables as delimited text. Files ending in
// ".gz" are gzip compressed.
package csvio

import (
	"context"
	"encoding/csv"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/fileio"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/apache/beam/tableio/pkg/log"
	"github.com/apache/beam/tableio/pkg/table"
	"github.com/apache/beam/tableio/pkg/tableio/format"
)

// Codec is the CSV codec.
//
// Load options:
//
//	header        true, "true", "True", 0 or "0" when the first row holds the
//	              column names; false, "false", "False", nil or "None" (the
//	              default) when it does not, in which case the selection
//	              names the columns.
//	infer_schema  convert columns to int64, float64 or bool when every value
//	              parses as one. The default reads text.
//	sep           field separator, default ','.
//
// Save options:
//
//	header        write the column names as the first row. Default false.
//	sep           field separator, default ','.
type Codec struct{}

type loadOptions struct {
	header      bool
	inferSchema bool
	sep         rune
}

func parseLoadOptions(opts format.Options) (loadOptions, error) {
	r := opts.Reader()
	lo := loadOptions{
		inferSchema: r.Bool("infer_schema", false),
		sep:         r.Rune("sep", ','),
	}
	if v, ok := r.Lookup("header"); ok {
		header, valid := parseHeader(v)
		if !valid {
			r.Fail("header", v, "one of true, false, 0 or None")
		}
		lo.header = header
	}
	return lo, r.Done("csv load")
}

// parseHeader accepts the spellings of "the first row is the header" (true or
// row number 0) and "there is no header".
func parseHeader(v any) (header, valid bool) {
	switch x := v.(type) {
	case nil:
		return false, true
	case bool:
		return x, true
	case int:
		return true, x == 0
	case int64:
		return true, x == 0
	case string:
		switch x {
		case "true", "True", "0":
			return true, true
		case "false", "False", "None":
			return false, true
		}
	}
	return false, false
}

type saveOptions struct {
	header bool
	sep    rune
}

func parseSaveOptions(opts format.Options) (saveOptions, error) {
	r := opts.Reader()
	so := saveOptions{
		header: r.Bool("header", false),
		sep:    r.Rune("sep", ','),
	}
	return so, r.Done("csv save")
}

// Load reads the CSV file at path. Empty fields load as nil.
func (Codec) Load(ctx context.Context, fs filesystem.Interface, path string, sel table.Selection, opts format.Options) (*table.Table, error) {
	lo, err := parseLoadOptions(opts)
	if err != nil {
		return nil, errors.WithContextf(err, "loading %v", path)
	}
	if !lo.header && sel.All() {
		return nil, errors.Wrapf(errors.ErrMissingColumns, "%v has no header row, columns must be given", path)
	}

	log.Infof(ctx, "Reading from %v", path)
	records, err := readRecords(ctx, fs, path, lo.sep)
	if err != nil {
		return nil, err
	}

	var columns []string
	if lo.header {
		if len(records) > 0 {
			columns, records = records[0], records[1:]
		}
	} else {
		columns = sel.Names()
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		if len(rec) != len(columns) {
			return nil, errors.Errorf("%v: row %d has %d fields, want %d for columns %v", path, i, len(rec), len(columns), columns)
		}
		row := make([]any, len(rec))
		for j, s := range rec {
			if s != "" {
				row[j] = s
			}
		}
		rows[i] = row
	}

	t := &table.Table{Columns: columns, Rows: rows}
	if lo.inferSchema {
		if err := infer(t, records); err != nil {
			return nil, errors.WithContextf(err, "loading %v", path)
		}
	}
	out, err := t.Project(sel)
	if err != nil {
		return nil, errors.WithContextf(err, "loading %v", path)
	}
	return out, nil
}

func readRecords(ctx context.Context, fs filesystem.Interface, path string, sep rune) ([][]string, error) {
	rc, err := fileio.Open(ctx, fs, path, fileio.CompressionAuto)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	cr := csv.NewReader(rc)
	cr.Comma = sep
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %v", path)
	}
	return records, nil
}

// infer converts each column of t to the narrowest type all of its values
// parse as.
func infer(t *table.Table, records [][]string) error {
	values := make([]string, len(records))
	for j := range t.Columns {
		for i, rec := range records {
			values[i] = rec[j]
		}
		typ := table.InferType(values)
		if typ == table.String {
			continue
		}
		for _, row := range t.Rows {
			v, err := table.Cast(row[j], typ)
			if err != nil {
				return errors.WithContextf(err, "column %v", t.Columns[j])
			}
			row[j] = v
		}
	}
	return nil
}

// Save writes t to path. No row index is written; nil values are empty
// fields.
func (Codec) Save(ctx context.Context, fs filesystem.Interface, t *table.Table, path string, opts format.Options) error {
	so, err := parseSaveOptions(opts)
	if err != nil {
		return errors.WithContextf(err, "saving %v", path)
	}

	log.Infof(ctx, "Writing to %v", path)
	wc, err := fileio.Create(ctx, fs, path, fileio.CompressionAuto)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(wc)
	cw.Comma = so.sep
	if err := writeRecords(cw, t, so.header); err != nil {
		wc.Close()
		return errors.WithContextf(err, "writing %v", path)
	}
	if err := wc.Close(); err != nil {
		return errors.Wrapf(err, "failed to write %v", path)
	}
	return nil
}

// ValidateSave checks the save options without touching any file.
func (Codec) ValidateSave(opts format.Options) error {
	_, err := parseSaveOptions(opts)
	return err
}

func writeRecords(cw *csv.Writer, t *table.Table, header bool) error {
	if header {
		if err := cw.Write(t.Columns); err != nil {
			return err
		}
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for j, v := range row {
			s, err := table.Cast(v, table.String)
			if err != nil {
				return err
			}
			rec[j], _ = s.(string)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
