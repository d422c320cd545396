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
	"github.com/apache/beam/tableio/internal/errors"
)

// Table is an in-memory table. Rows hold native values (nil, string, int64,
// float64, bool or time.Time) positionally matching Columns. Schema is set
// when the column types were declared by the caller rather than taken from the
// data.
type Table struct {
	Columns []string
	Rows    [][]any
	Schema  *Schema
}

// New returns a table of the given rows. When schema is non-nil, columns may
// be nil (the schema's names are used), must otherwise equal the schema's
// names, and every value is cast to its declared type.
func New(columns []string, rows [][]any, schema *Schema) (*Table, error) {
	if schema != nil {
		if columns == nil {
			columns = schema.Names()
		}
		if !equalNames(columns, schema.Names()) {
			return nil, errors.Errorf("columns %v do not match schema %v", columns, schema)
		}
	}
	if rows == nil {
		rows = [][]any{}
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, errors.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
	}
	t := &Table{Columns: append([]string{}, columns...), Rows: rows, Schema: schema}
	if schema != nil {
		if err := t.cast(schema.Fields()); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) cast(fields []Field) error {
	for _, row := range t.Rows {
		for j, f := range fields {
			v, err := Cast(row[j], f.Type)
			if err != nil {
				return errors.WithContextf(err, "column %v", f.Name)
			}
			row[j] = v
		}
	}
	return nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Select returns a table with only the named columns, in the given order. The
// declared schema, if any, is narrowed accordingly.
func (t *Table) Select(names []string) (*Table, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		if idx[i] = t.ColumnIndex(n); idx[i] < 0 {
			return nil, errors.Wrapf(errors.ErrMissingColumns, "column %v not found in %v", n, t.Columns)
		}
	}
	rows := make([][]any, len(t.Rows))
	for r, row := range t.Rows {
		out := make([]any, len(idx))
		for i, j := range idx {
			out[i] = row[j]
		}
		rows[r] = out
	}
	var schema *Schema
	if t.Schema != nil {
		fields := make([]Field, len(names))
		for i, n := range names {
			fields[i], _ = t.Schema.Field(n)
		}
		schema = MustSchema(fields...)
	}
	return &Table{Columns: append([]string{}, names...), Rows: rows, Schema: schema}, nil
}

// Project applies a load selection: all columns pass through unchanged, a
// name list selects those columns, and a schema selects its columns, casts
// their values and attaches the schema.
func (t *Table) Project(sel Selection) (*Table, error) {
	if sel.All() {
		return t, nil
	}
	out, err := t.Select(sel.Names())
	if err != nil {
		return nil, err
	}
	if s := sel.Schema(); s != nil {
		if err := out.cast(s.Fields()); err != nil {
			return nil, err
		}
		out.Schema = s
	}
	return out, nil
}

// Fields returns the column types of the table: the declared schema when
// there is one, otherwise the type of the first non-nil value of each column,
// defaulting to String.
func (t *Table) Fields() []Field {
	if t.Schema != nil {
		return t.Schema.Fields()
	}
	fields := make([]Field, len(t.Columns))
	for j, c := range t.Columns {
		fields[j] = Field{Name: c, Type: String}
		for _, row := range t.Rows {
			if typ, ok := TypeOf(row[j]); ok {
				fields[j].Type = typ
				break
			}
		}
	}
	return fields
}

// Concat appends the rows of all tables in order. All tables must have the
// same set of columns; rows are reordered to the first table's column order.
// The result carries the schema of the last table.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return &Table{Rows: [][]any{}}, nil
	}
	first := tables[0]
	out := &Table{Columns: append([]string{}, first.Columns...), Rows: make([][]any, 0, first.NumRows())}
	for i, t := range tables {
		if equalNames(t.Columns, first.Columns) {
			out.Rows = append(out.Rows, t.Rows...)
		} else {
			if !sameSet(t.Columns, first.Columns) {
				return nil, errors.Errorf("cannot concatenate table %d with columns %v onto columns %v", i, t.Columns, first.Columns)
			}
			aligned, err := t.Select(first.Columns)
			if err != nil {
				return nil, err
			}
			out.Rows = append(out.Rows, aligned.Rows...)
		}
		out.Schema = t.Schema
	}
	if out.Schema != nil && !equalNames(out.Schema.Names(), out.Columns) {
		out.Schema = nil
	}
	return out, nil
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, n := range a {
		set[n] = true
	}
	for _, n := range b {
		if !set[n] {
			return false
		}
	}
	return true
}
