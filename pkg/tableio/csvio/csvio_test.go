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

package csvio

import (
	"context"
	"testing"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/apache/beam/tableio/pkg/io/filesystem/memfs"
	"github.com/apache/beam/tableio/pkg/table"
	"github.com/apache/beam/tableio/pkg/tableio/format"
	"github.com/google/go-cmp/cmp"
)

func newFS(t *testing.T) filesystem.Interface {
	t.Helper()
	t.Cleanup(memfs.Reset)
	return memfs.New(context.Background())
}

func TestLoad(t *testing.T) {
	const headed = "a,b,c\n1,x,2.5\n2,,3\n"
	const bare = "1,x\n2,\n"

	tests := []struct {
		name string
		data string
		sel  table.Selection
		opts format.Options
		want *table.Table
	}{
		{
			name: "header, all columns as text",
			data: headed,
			opts: format.Options{"header": true},
			want: &table.Table{
				Columns: []string{"a", "b", "c"},
				Rows:    [][]any{{"1", "x", "2.5"}, {"2", nil, "3"}},
			},
		},
		{
			name: "header as row number",
			data: headed,
			sel:  table.Columns("c", "a"),
			opts: format.Options{"header": 0},
			want: &table.Table{
				Columns: []string{"c", "a"},
				Rows:    [][]any{{"2.5", "1"}, {"3", "2"}},
			},
		},
		{
			name: "header string with inference",
			data: headed,
			opts: format.Options{"header": "True", "infer_schema": true},
			want: &table.Table{
				Columns: []string{"a", "b", "c"},
				Rows:    [][]any{{int64(1), "x", 2.5}, {int64(2), nil, 3.0}},
			},
		},
		{
			name: "no header assigns names positionally",
			data: bare,
			sel:  table.Columns("id", "name"),
			opts: format.Options{"header": false},
			want: &table.Table{
				Columns: []string{"id", "name"},
				Rows:    [][]any{{"1", "x"}, {"2", nil}},
			},
		},
		{
			name: "no header by default",
			data: bare,
			sel:  table.Columns("id", "name"),
			opts: format.Options{"header": "None"},
			want: &table.Table{
				Columns: []string{"id", "name"},
				Rows:    [][]any{{"1", "x"}, {"2", nil}},
			},
		},
		{
			name: "schema selection from superset",
			data: headed,
			sel:  table.SchemaColumns(table.MustSchema(table.Field{Name: "c", Type: table.Float64}, table.Field{Name: "a", Type: table.Int64})),
			opts: format.Options{"header": true},
			want: &table.Table{
				Columns: []string{"c", "a"},
				Rows:    [][]any{{2.5, int64(1)}, {3.0, int64(2)}},
				Schema:  table.MustSchema(table.Field{Name: "c", Type: table.Float64}, table.Field{Name: "a", Type: table.Int64}),
			},
		},
		{
			name: "separator",
			data: "a;b\n1;2\n",
			opts: format.Options{"header": true, "sep": ";"},
			want: &table.Table{
				Columns: []string{"a", "b"},
				Rows:    [][]any{{"1", "2"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			fs := newFS(t)
			memfs.Write("memfs://in.csv", []byte(tt.data))

			got, err := Codec{}.Load(ctx, fs, "memfs://in.csv", tt.sel, tt.opts)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if d := cmp.Diff(tt.want, got, cmp.Comparer((*table.Schema).Equal)); d != "" {
				t.Errorf("Load() diff (-want +got):\n%s", d)
			}
		})
	}
}

func TestLoad_errors(t *testing.T) {
	tests := []struct {
		name string
		sel  table.Selection
		opts format.Options
		want error
	}{
		{
			name: "headerless without columns",
			opts: format.Options{"header": false},
			want: errors.ErrMissingColumns,
		},
		{
			name: "header absent without columns",
			want: errors.ErrMissingColumns,
		},
		{
			name: "bad header value",
			sel:  table.Columns("a", "b"),
			opts: format.Options{"header": "yes"},
			want: errors.ErrUnsupportedOption,
		},
		{
			name: "header row number other than zero",
			opts: format.Options{"header": 1},
			want: errors.ErrUnsupportedOption,
		},
		{
			name: "unknown option",
			opts: format.Options{"header": true, "quoting": 3},
			want: errors.ErrUnsupportedOption,
		},
		{
			name: "missing selected column",
			sel:  table.Columns("a", "zz"),
			opts: format.Options{"header": true},
			want: errors.ErrMissingColumns,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			fs := newFS(t)
			memfs.Write("memfs://in.csv", []byte("a,b\n1,2\n"))

			_, err := Codec{}.Load(ctx, fs, "memfs://in.csv", tt.sel, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	src, err := table.New([]string{"a", "b", "c"}, [][]any{
		{int64(1), "x, y", true},
		{nil, "z", false},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts format.Options
		want string
	}{
		{name: "default has no header", want: "1,\"x, y\",true\n,z,false\n"},
		{name: "header", opts: format.Options{"header": true}, want: "a,b,c\n1,\"x, y\",true\n,z,false\n"},
		{name: "tab separated", opts: format.Options{"sep": "\t"}, want: "1\tx, y\ttrue\n\tz\tfalse\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFS(t)
			if err := (Codec{}).Save(ctx, fs, src, "memfs://out.csv", tt.opts); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := filesystem.Read(ctx, fs, "memfs://out.csv")
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("Save() wrote %q, want %q", got, tt.want)
			}
		})
	}

	fs := newFS(t)
	if err := (Codec{}).Save(ctx, fs, src, "memfs://out.csv", format.Options{"index": false}); !errors.Is(err, errors.ErrUnsupportedOption) {
		t.Errorf("Save(index) error = %v, want %v", err, errors.ErrUnsupportedOption)
	}
}

func TestRoundTrip_gzip(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t)
	src, err := table.New([]string{"a", "b"}, [][]any{{"1", "x"}, {"2", nil}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := (Codec{}).Save(ctx, fs, src, "memfs://out.csv.gz", nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Codec{}.Load(ctx, fs, "memfs://out.csv.gz", table.Columns("a", "b"), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d := cmp.Diff(src, got); d != "" {
		t.Errorf("round trip diff (-want +got):\n%s", d)
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		v             any
		header, valid bool
	}{
		{nil, false, true},
		{true, true, true},
		{false, false, true},
		{0, true, true},
		{int64(0), true, true},
		{"0", true, true},
		{"True", true, true},
		{"False", false, true},
		{"None", false, true},
		{2, true, false},
		{"no", false, false},
		{[]string{"a"}, false, false},
	}
	for _, tt := range tests {
		header, valid := parseHeader(tt.v)
		if valid != tt.valid || (valid && header != tt.header) {
			t.Errorf("parseHeader(%#v) = (%v, %v), want (%v, %v)", tt.v, header, valid, tt.header, tt.valid)
		}
	}
}
