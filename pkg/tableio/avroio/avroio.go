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

// Package avroio reads and writes tables as Avro object container files.
// Files ending in ".gz" are gzip compressed on top of the container's own
// block compression.
package avroio

import (
	"bufio"
	"context"
	"encoding/json"
	"sort"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/fileio"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/apache/beam/tableio/pkg/log"
	"github.com/apache/beam/tableio/pkg/table"
	"github.com/apache/beam/tableio/pkg/tableio/format"
	"github.com/linkedin/goavro/v2"
)

// Codec is the Avro codec.
//
// Load options:
//
//	process_record  a ProcessRecord applied to every record after union
//	                values are unwrapped. It may add, drop or rewrite fields.
//
// Save options:
//
//	schema           Avro record schema as JSON. Excludes columns.
//	columns          column names, a schema expression such as "a:str,b:long"
//	                 or a *table.Schema. The record has one nullable field
//	                 per column.
//	infer_schema     derive the record schema from the table when neither
//	                 schema nor columns is given. Default true; false is only
//	                 valid together with schema or columns.
//	append           keep the records of an existing file and write the table
//	                 after them, using the existing file's schema.
//	times_as_micros  write timestamps as timestamp-micros (the default) rather
//	                 than timestamp-millis.
//	codec            block compression: null, deflate or snappy (the default).
type Codec struct{}

// ProcessRecord transforms one decoded record.
type ProcessRecord func(map[string]any) (map[string]any, error)

// RecordName is the name of record schemas derived from a table.
const RecordName = "Record"

type loadOptions struct {
	process ProcessRecord
}

func parseLoadOptions(opts format.Options) (loadOptions, error) {
	r := opts.Reader()
	var lo loadOptions
	if v, ok := r.Lookup("process_record"); ok && v != nil {
		switch fn := v.(type) {
		case ProcessRecord:
			lo.process = fn
		case func(map[string]any) (map[string]any, error):
			lo.process = fn
		default:
			r.Fail("process_record", v, "a func(map[string]any) (map[string]any, error)")
		}
	}
	return lo, r.Done("avro load")
}

type saveOptions struct {
	schema      string
	names       []string
	fields      []table.Field
	inferSet    bool
	inferSchema bool
	append      bool
	micros      bool
	compression string
}

func parseSaveOptions(opts format.Options) (saveOptions, error) {
	r := opts.Reader()
	so := saveOptions{
		schema:      r.String("schema", ""),
		append:      r.Bool("append", false),
		micros:      r.Bool("times_as_micros", true),
		compression: r.String("codec", goavro.CompressionSnappyLabel),
	}
	if v, ok := r.Lookup("infer_schema"); ok && v != nil {
		so.inferSet = true
	}
	so.inferSchema = r.Bool("infer_schema", true)

	if v, ok := r.Lookup("columns"); ok && v != nil {
		switch x := v.(type) {
		case []string:
			so.names = x
		case string:
			s, err := table.ParseSchema(x)
			if err != nil {
				r.Fail("columns", v, "a schema expression")
				break
			}
			so.fields = s.Fields()
		case *table.Schema:
			so.fields = x.Fields()
		case table.Selection:
			if s := x.Schema(); s != nil {
				so.fields = s.Fields()
			} else {
				so.names = x.Names()
			}
		default:
			r.Fail("columns", v, "a list of names or a schema")
		}
	}

	switch so.compression {
	case goavro.CompressionNullLabel, goavro.CompressionDeflateLabel, goavro.CompressionSnappyLabel:
	default:
		r.Fail("codec", so.compression, "null, deflate or snappy")
	}
	if err := r.Done("avro save"); err != nil {
		return so, err
	}

	hasColumns := so.names != nil || so.fields != nil
	switch {
	case so.schema != "" && hasColumns:
		return so, errors.Wrapf(errors.ErrUnsupportedOption, "schema and columns are mutually exclusive")
	case so.schema != "" && so.inferSet && so.inferSchema:
		return so, errors.Wrapf(errors.ErrUnsupportedOption, "infer_schema must be false when schema is given")
	case so.schema == "" && !hasColumns && !so.inferSchema:
		return so, errors.Wrapf(errors.ErrUnsupportedOption, "infer_schema=false requires schema or columns")
	}
	return so, nil
}

// Appends reports whether opts ask Save to add to an existing file.
func (Codec) Appends(opts format.Options) bool {
	return opts.Reader().Bool("append", false)
}

// Load reads every record of the Avro file at path. Columns follow the field
// order of the file's schema; fields added by process_record come after them.
func (Codec) Load(ctx context.Context, fs filesystem.Interface, path string, sel table.Selection, opts format.Options) (*table.Table, error) {
	lo, err := parseLoadOptions(opts)
	if err != nil {
		return nil, errors.WithContextf(err, "loading %v", path)
	}

	log.Infof(ctx, "Reading from %v", path)
	schema, records, err := readFile(ctx, fs, path)
	if err != nil {
		return nil, err
	}
	fields, err := parseFields(schema)
	if err != nil {
		return nil, errors.WithContextf(err, "reading schema of %v", path)
	}

	decoded := make([]map[string]any, len(records))
	for i, r := range records {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, errors.Errorf("%v: record %d is %T, not a record", path, i, r)
		}
		rec := make(map[string]any, len(m))
		for _, f := range fields {
			if v, ok := m[f.name]; ok {
				rec[f.name] = f.unwrap(v)
			}
		}
		if lo.process != nil {
			if rec, err = lo.process(rec); err != nil {
				return nil, errors.Wrapf(err, "processing record %d of %v", i, path)
			}
		}
		decoded[i] = rec
	}

	columns := orderColumns(fields, decoded, lo.process != nil)
	rows := make([][]any, len(decoded))
	for i, rec := range decoded {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = normalize(rec[c])
		}
		rows[i] = row
	}

	t := &table.Table{Columns: columns, Rows: rows}
	out, err := t.Project(sel)
	if err != nil {
		return nil, errors.WithContextf(err, "loading %v", path)
	}
	return out, nil
}

// orderColumns returns the schema's field names followed by any other keys
// found in the records. When the records were rewritten, schema fields that no
// record carries are dropped.
func orderColumns(fields []field, records []map[string]any, processed bool) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, f := range fields {
		if processed && len(records) > 0 && !anyHas(records, f.name) {
			continue
		}
		seen[f.name] = true
		columns = append(columns, f.name)
	}
	for _, rec := range records {
		var extra []string
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		columns = append(columns, extra...)
	}
	return columns
}

func anyHas(records []map[string]any, key string) bool {
	for _, rec := range records {
		if _, ok := rec[key]; ok {
			return true
		}
	}
	return false
}

// normalize maps decoded Avro values onto table values.
func normalize(v any) any {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return v
		}
		return string(b)
	}
	return v
}

func readFile(ctx context.Context, fs filesystem.Interface, path string) (string, []any, error) {
	rc, err := fileio.Open(ctx, fs, path, fileio.CompressionAuto)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	ocfr, err := goavro.NewOCFReader(bufio.NewReader(rc))
	if err != nil {
		return "", nil, errors.Wrapf(err, "failed to read %v", path)
	}
	var records []any
	for ocfr.Scan() {
		rec, err := ocfr.Read()
		if err != nil {
			return "", nil, errors.Wrapf(err, "failed to read record %d of %v", len(records), path)
		}
		records = append(records, rec)
	}
	if err := ocfr.Err(); err != nil {
		return "", nil, errors.Wrapf(err, "failed to read %v", path)
	}
	return ocfr.Codec().Schema(), records, nil
}

// Save writes t to path as a single object container file.
func (Codec) Save(ctx context.Context, fs filesystem.Interface, t *table.Table, path string, opts format.Options) error {
	so, err := parseSaveOptions(opts)
	if err != nil {
		return errors.WithContextf(err, "saving %v", path)
	}

	var schema string
	var existing []any
	if so.append {
		exists, err := filesystem.Exists(ctx, fs, path)
		if err != nil {
			return errors.WithContextf(err, "checking %v", path)
		}
		if exists {
			log.Infof(ctx, "Appending to %v", path)
			if schema, existing, err = readFile(ctx, fs, path); err != nil {
				return err
			}
		}
	}
	if schema == "" {
		if schema, err = so.recordSchema(t); err != nil {
			return errors.WithContextf(err, "saving %v", path)
		}
	}

	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return errors.Wrapf(errors.ErrUnsupportedOption, "invalid schema for %v: %v", path, err)
	}
	fields, err := parseFields(schema)
	if err != nil {
		return errors.WithContextf(err, "saving %v", path)
	}
	records, err := encodeRows(t, fields)
	if err != nil {
		return errors.WithContextf(err, "saving %v", path)
	}

	log.Infof(ctx, "Writing to %v", path)
	wc, err := fileio.Create(ctx, fs, path, fileio.CompressionAuto)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(wc)
	if err := write(bw, codec, so.compression, existing, records); err != nil {
		wc.Close()
		return errors.WithContextf(err, "writing %v", path)
	}
	if err := bw.Flush(); err != nil {
		wc.Close()
		return errors.Wrapf(err, "failed to write %v", path)
	}
	if err := wc.Close(); err != nil {
		return errors.Wrapf(err, "failed to write %v", path)
	}
	return nil
}

// ValidateSave checks the save options, including a given schema, without
// touching any file.
func (Codec) ValidateSave(opts format.Options) error {
	so, err := parseSaveOptions(opts)
	if err != nil || so.schema == "" {
		return err
	}
	if _, err := goavro.NewCodec(so.schema); err != nil {
		return errors.Wrapf(errors.ErrUnsupportedOption, "invalid schema: %v", err)
	}
	_, err = parseFields(so.schema)
	return err
}

func write(w *bufio.Writer, codec *goavro.Codec, compression string, batches ...[]any) error {
	ocfw, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: compression,
	})
	if err != nil {
		return err
	}
	for _, b := range batches {
		if len(b) == 0 {
			continue
		}
		if err := ocfw.Append(b); err != nil {
			return err
		}
	}
	return nil
}

// encodeRows converts the rows of t to native Avro records of fields. Every
// field must be a column of t.
func encodeRows(t *table.Table, fields []field) ([]any, error) {
	idx := make([]int, len(fields))
	for i, f := range fields {
		idx[i] = t.ColumnIndex(f.name)
		if idx[i] < 0 {
			return nil, errors.Wrapf(errors.ErrMissingColumns, "schema field %v is not a column of %v", f.name, t.Columns)
		}
	}
	records := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]any, len(fields))
		for j, f := range fields {
			v, err := f.wrap(row[idx[j]])
			if err != nil {
				return nil, errors.WithContextf(err, "row %d", i)
			}
			rec[f.name] = v
		}
		records[i] = rec
	}
	return records, nil
}
