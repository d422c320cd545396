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

// Package jsonio reads and writes tables as JSON documents. Files ending in
// ".gz" are gzip compressed.
package jsonio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/fileio"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/apache/beam/tableio/pkg/log"
	"github.com/apache/beam/tableio/pkg/table"
	"github.com/apache/beam/tableio/pkg/tableio/format"
)

// Orientations of a JSON document.
const (
	// OrientRecords is an array of row objects: [{"a":1,"b":"x"}, ...].
	OrientRecords = "records"
	// OrientColumns is an object of columns keyed by row label:
	// {"a":{"0":1}, "b":{"0":"x"}}.
	OrientColumns = "columns"
)

// Codec is the JSON codec. JSON cannot project columns, so the whole document
// is read and the selection applied afterwards. Rows are renumbered from
// zero in document order.
//
// Options, for load and save:
//
//	orient  "records" or "columns". Unset, load detects the orientation from
//	        the first character of the document and save writes "records".
//	lines   one record object per line (JSON Lines). Excludes "columns".
type Codec struct{}

type options struct {
	orient string
	lines  bool
}

func parseOptions(opts format.Options, op string) (options, error) {
	r := opts.Reader()
	o := options{
		orient: r.String("orient", ""),
		lines:  r.Bool("lines", false),
	}
	switch {
	case o.orient != "" && o.orient != OrientRecords && o.orient != OrientColumns:
		r.Fail("orient", o.orient, "records or columns")
	case o.lines && o.orient == OrientColumns:
		r.Fail("lines", o.lines, "allowed with orient columns")
	}
	return o, r.Done("json " + op)
}

// Load reads the JSON document at path. Integral numbers load as int64,
// other numbers as float64 and nested objects or arrays as their JSON text.
func (Codec) Load(ctx context.Context, fs filesystem.Interface, path string, sel table.Selection, opts format.Options) (*table.Table, error) {
	o, err := parseOptions(opts, "load")
	if err != nil {
		return nil, errors.WithContextf(err, "loading %v", path)
	}

	log.Infof(ctx, "Reading from %v", path)
	rc, err := fileio.Open(ctx, fs, path, fileio.CompressionAuto)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	orient := o.orient
	if orient == "" && !o.lines {
		if orient, err = detectOrient(br); err != nil {
			return nil, errors.Wrapf(err, "failed to read %v", path)
		}
	}
	dec := json.NewDecoder(br)
	dec.UseNumber()
	b := newBuilder()
	switch {
	case o.lines:
		for dec.More() {
			if err := b.readRecord(dec); err != nil {
				return nil, errors.Wrapf(err, "failed to parse %v", path)
			}
		}
	case orient == OrientColumns:
		err = b.readColumns(dec)
	default:
		err = b.readRecords(dec)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %v", path)
	}

	out, err := b.table().Project(sel)
	if err != nil {
		return nil, errors.WithContextf(err, "loading %v", path)
	}
	return out, nil
}

// detectOrient peeks past leading white space: an object is the columns
// orientation, anything else is read as records.
func detectOrient(br *bufio.Reader) (string, error) {
	for {
		c, err := br.Peek(1)
		if err == io.EOF {
			return OrientRecords, nil
		}
		if err != nil {
			return "", err
		}
		switch c[0] {
		case ' ', '\t', '\r', '\n':
			br.Discard(1)
		case '{':
			return OrientColumns, nil
		default:
			return OrientRecords, nil
		}
	}
}

// builder collects cells keyed by column and row, keeping both in first-seen
// order.
type builder struct {
	columns []string
	colIdx  map[string]int
	rows    []map[int]any
	rowIdx  map[string]int
}

func newBuilder() *builder {
	return &builder{colIdx: make(map[string]int), rowIdx: make(map[string]int)}
}

func (b *builder) column(name string) int {
	j, ok := b.colIdx[name]
	if !ok {
		j = len(b.columns)
		b.colIdx[name] = j
		b.columns = append(b.columns, name)
	}
	return j
}

func (b *builder) row(label string) map[int]any {
	i, ok := b.rowIdx[label]
	if !ok {
		i = len(b.rows)
		b.rowIdx[label] = i
		b.rows = append(b.rows, make(map[int]any))
	}
	return b.rows[i]
}

func (b *builder) table() *table.Table {
	rows := make([][]any, len(b.rows))
	for i, cells := range b.rows {
		row := make([]any, len(b.columns))
		for j, v := range cells {
			row[j] = v
		}
		rows[i] = row
	}
	return &table.Table{Columns: b.columns, Rows: rows}
}

func (b *builder) readRecords(dec *json.Decoder) error {
	if err := expectDelim(dec, '['); err != nil {
		return err
	}
	for dec.More() {
		if err := b.readRecord(dec); err != nil {
			return err
		}
	}
	return expectDelim(dec, ']')
}

func (b *builder) readRecord(dec *json.Decoder) error {
	row := make(map[int]any)
	b.rows = append(b.rows, row)
	return readObject(dec, func(key string) error {
		v, err := readValue(dec)
		if err != nil {
			return err
		}
		row[b.column(key)] = v
		return nil
	})
}

func (b *builder) readColumns(dec *json.Decoder) error {
	return readObject(dec, func(col string) error {
		j := b.column(col)
		return readObject(dec, func(label string) error {
			v, err := readValue(dec)
			if err != nil {
				return err
			}
			b.row(label)[j] = v
			return nil
		})
	})
}

// readObject reads one object, calling fn for each key with the decoder
// positioned at the value.
func readObject(dec *json.Decoder, fn func(key string) error) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.Errorf("object key %v is not a string", tok)
		}
		if err := fn(key); err != nil {
			return errors.WithContextf(err, "key %q", key)
		}
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return errors.Errorf("found %v, want %v", tok, want)
	}
	return nil
}

func readValue(dec *json.Decoder) (any, error) {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	switch raw[0] {
	case 'n':
		return nil, nil
	case 't', 'f':
		var v bool
		err := json.Unmarshal(raw, &v)
		return v, err
	case '"':
		var v string
		err := json.Unmarshal(raw, &v)
		return v, err
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		return buf.String(), nil
	default:
		n := json.Number(raw)
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return n.Float64()
	}
}

// Save writes t to path with keys in column order. Nil values are written as
// null and timestamps as RFC 3339 strings.
func (Codec) Save(ctx context.Context, fs filesystem.Interface, t *table.Table, path string, opts format.Options) error {
	o, err := parseOptions(opts, "save")
	if err != nil {
		return errors.WithContextf(err, "saving %v", path)
	}

	log.Infof(ctx, "Writing to %v", path)
	wc, err := fileio.Create(ctx, fs, path, fileio.CompressionAuto)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(wc)
	switch {
	case o.lines:
		err = writeLines(w, t)
	case o.orient == OrientColumns:
		err = writeColumns(w, t)
	default:
		err = writeRecords(w, t)
	}
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		wc.Close()
		return errors.Wrapf(err, "failed to write %v", path)
	}
	if err := wc.Close(); err != nil {
		return errors.Wrapf(err, "failed to write %v", path)
	}
	return nil
}

// ValidateSave checks the save options without touching any file.
func (Codec) ValidateSave(opts format.Options) error {
	_, err := parseOptions(opts, "save")
	return err
}

func writeRecords(w *bufio.Writer, t *table.Table) error {
	w.WriteByte('[')
	for i, row := range t.Rows {
		if i > 0 {
			w.WriteByte(',')
		}
		if err := writeRecord(w, t.Columns, row); err != nil {
			return err
		}
	}
	_, err := w.WriteString("]\n")
	return err
}

func writeLines(w *bufio.Writer, t *table.Table) error {
	for _, row := range t.Rows {
		if err := writeRecord(w, t.Columns, row); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

func writeRecord(w *bufio.Writer, columns []string, row []any) error {
	w.WriteByte('{')
	for j, c := range columns {
		if j > 0 {
			w.WriteByte(',')
		}
		if err := writeMember(w, c, row[j]); err != nil {
			return err
		}
	}
	return w.WriteByte('}')
}

func writeColumns(w *bufio.Writer, t *table.Table) error {
	w.WriteByte('{')
	for j, c := range t.Columns {
		if j > 0 {
			w.WriteByte(',')
		}
		if err := writeKey(w, c); err != nil {
			return err
		}
		w.WriteByte('{')
		for i, row := range t.Rows {
			if i > 0 {
				w.WriteByte(',')
			}
			if err := writeMember(w, strconv.Itoa(i), row[j]); err != nil {
				return err
			}
		}
		w.WriteByte('}')
	}
	_, err := w.WriteString("}\n")
	return err
}

func writeMember(w io.Writer, key string, v any) error {
	if err := writeKey(w, key); err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errors.WithContextf(err, "column %v", key)
	}
	_, err = w.Write(b)
	return err
}

func writeKey(w io.Writer, key string) error {
	b, err := json.Marshal(key)
	if err != nil {
		return err
	}
	b = append(b, ':')
	_, err = w.Write(b)
	return err
}
