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

package tableio

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	_ "github.com/apache/beam/tableio/pkg/io/filesystem/local"
	"github.com/apache/beam/tableio/pkg/io/filesystem/memfs"
	"github.com/apache/beam/tableio/pkg/table"
	"github.com/apache/beam/tableio/pkg/tableio/format"
	"github.com/google/go-cmp/cmp"
)

func resetMemFS(t *testing.T) {
	t.Helper()
	memfs.Reset()
	t.Cleanup(memfs.Reset)
}

var withHeader = WithOptions(format.Options{"header": true})

func TestCodecFor(t *testing.T) {
	for f := format.Format(0); f < format.NumFormats; f++ {
		if _, err := CodecFor(f); err != nil {
			t.Errorf("CodecFor(%v) failed: %v", f, err)
		}
	}
	if _, err := CodecFor(format.NumFormats); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("CodecFor(NumFormats) = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		paths []string
		opts  []LoadOption
		want  *table.Table
	}{
		{
			name:  "single file",
			files: map[string]string{"memfs://in/a.csv": "x,y\n1,2\n"},
			paths: []string{"memfs://in/a.csv"},
			opts:  []LoadOption{withHeader},
			want:  &table.Table{Columns: []string{"x", "y"}, Rows: [][]any{{"1", "2"}}},
		},
		{
			name: "glob in listing order",
			files: map[string]string{
				"memfs://in/b.csv": "x\nb\n",
				"memfs://in/a.csv": "x\na\n",
				"memfs://in/c.txt": "x\nc\n",
			},
			paths: []string{"memfs://in/*.csv"},
			opts:  []LoadOption{withHeader},
			want:  &table.Table{Columns: []string{"x"}, Rows: [][]any{{"a"}, {"b"}}},
		},
		{
			name: "directory filtered by format",
			files: map[string]string{
				"memfs://in/a.csv": "x\na\n",
				"memfs://in/b.csv": "x\nb\n",
				"memfs://in/c.txt": "x\nc\n",
			},
			paths: []string{"memfs://in"},
			opts:  []LoadOption{withHeader, WithFormat("csv")},
			want:  &table.Table{Columns: []string{"x"}, Rows: [][]any{{"a"}, {"b"}}},
		},
		{
			name: "paths in order with columns aligned to the first",
			files: map[string]string{
				"memfs://2.csv": "y,x\n2,b\n",
				"memfs://1.csv": "x,y\na,1\n",
			},
			paths: []string{"memfs://2.csv", "memfs://1.csv"},
			opts:  []LoadOption{withHeader},
			want:  &table.Table{Columns: []string{"y", "x"}, Rows: [][]any{{"2", "b"}, {"1", "a"}}},
		},
		{
			name: "glob under a directory with brackets",
			files: map[string]string{
				"memfs://d/run[1]/a.csv": "x\na\n",
				"memfs://d/run1/b.csv":   "x\nb\n",
			},
			paths: []string{"memfs://d/run[1]/*.csv"},
			opts:  []LoadOption{withHeader},
			want:  &table.Table{Columns: []string{"x"}, Rows: [][]any{{"a"}}},
		},
		{
			name:  "directory with braces",
			files: map[string]string{"memfs://d/in{x}/a.csv": "x\na\n"},
			paths: []string{"memfs://d/in{x}"},
			opts:  []LoadOption{withHeader, WithFormat("csv")},
			want:  &table.Table{Columns: []string{"x"}, Rows: [][]any{{"a"}}},
		},
		{
			name:  "hint overrides suffix",
			files: map[string]string{"memfs://data.txt": `[{"x":1}]`},
			paths: []string{"memfs://data.txt"},
			opts:  []LoadOption{WithFormat("json")},
			want:  &table.Table{Columns: []string{"x"}, Rows: [][]any{{int64(1)}}},
		},
		{
			name:  "headerless columns assigned positionally",
			files: map[string]string{"memfs://in.csv": "1,2\n3,4\n"},
			paths: []string{"memfs://in.csv"},
			opts:  []LoadOption{WithColumns(table.Columns("a", "b"))},
			want:  &table.Table{Columns: []string{"a", "b"}, Rows: [][]any{{"1", "2"}, {"3", "4"}}},
		},
		{
			name:  "schema selection",
			files: map[string]string{"memfs://in.csv": "a,b,c\n1,x,2020-01-02\n"},
			paths: []string{"memfs://in.csv"},
			opts: []LoadOption{withHeader, WithColumns(table.SchemaColumns(table.MustSchema(
				table.Field{Name: "c", Type: table.Timestamp},
				table.Field{Name: "a", Type: table.Float64},
			)))},
			want: &table.Table{
				Columns: []string{"c", "a"},
				Rows:    [][]any{{time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), 1.0}},
				Schema: table.MustSchema(
					table.Field{Name: "c", Type: table.Timestamp},
					table.Field{Name: "a", Type: table.Float64},
				),
			},
		},
		{
			name:  "no match is empty with the selected columns",
			paths: []string{"memfs://none/*.csv"},
			opts:  []LoadOption{WithColumns(table.Columns("a", "b"))},
			want:  &table.Table{Columns: []string{"a", "b"}, Rows: [][]any{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetMemFS(t)
			for k, v := range tt.files {
				memfs.Write(k, []byte(v))
			}
			got, err := Load(context.Background(), tt.paths, tt.opts...)
			if err != nil {
				t.Fatalf("Load(%v) failed: %v", tt.paths, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load(%v) mismatch (-want +got):\n%v", tt.paths, diff)
			}
		})
	}
}

func TestLoad_errors(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		opts  []LoadOption
		want  error
	}{
		{name: "unknown suffix", paths: []string{"memfs://a.xyz"}, want: ErrUnsupportedFormat},
		{name: "unknown hint", paths: []string{"memfs://a.csv"}, opts: []LoadOption{WithFormat("xml")}, want: ErrUnsupportedFormat},
		{name: "unknown scheme", paths: []string{"nope://bucket/a.csv"}, want: ErrInvalidPath},
		{name: "headerless without columns", paths: []string{"memfs://a.csv"}, want: ErrMissingColumns},
		{name: "missing column", paths: []string{"memfs://a.csv"}, opts: []LoadOption{withHeader, WithColumns(table.Columns("z"))}, want: ErrMissingColumns},
		{name: "unknown option", paths: []string{"memfs://a.csv"}, opts: []LoadOption{WithOptions(format.Options{"bogus": 1})}, want: ErrUnsupportedOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetMemFS(t)
			memfs.Write("memfs://a.csv", []byte("x\n1\n"))
			_, err := Load(context.Background(), tt.paths, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("Load(%v) = %v, want %v", tt.paths, err, tt.want)
			}
		})
	}
}

func TestLoad_mismatchedColumns(t *testing.T) {
	resetMemFS(t)
	memfs.Write("memfs://in/a.csv", []byte("x\n1\n"))
	memfs.Write("memfs://in/b.csv", []byte("y\n2\n"))
	if _, err := Load(context.Background(), []string{"memfs://in/*.csv"}, withHeader); err == nil {
		t.Error("Load() of files with different columns succeeded")
	}
}

func TestSave_modeError(t *testing.T) {
	resetMemFS(t)
	ctx := context.Background()
	memfs.Write("memfs://out.csv", []byte("old"))

	src := &table.Table{Columns: []string{"a"}, Rows: [][]any{{"new"}}}
	err := Save(ctx, src, "memfs://out.csv", WithMode(ModeError))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("Save() = %v, want ErrAlreadyExists", err)
	}
	got, err := filesystem.Read(ctx, memfs.New(ctx), "memfs://out.csv")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "old" {
		t.Errorf("Save() with ModeError changed the file to %q", got)
	}

	if err := Save(ctx, src, "memfs://new.csv", WithMode(ModeError)); err != nil {
		t.Errorf("Save() with ModeError to a new file failed: %v", err)
	}
}

func TestSave_badOptionKeepsDestination(t *testing.T) {
	tests := []struct {
		path string
		opts format.Options
	}{
		{path: "memfs://out.csv", opts: format.Options{"sepp": ";"}},
		{path: "memfs://out.csv", opts: format.Options{"header": "maybe"}},
		{path: "memfs://out.json", opts: format.Options{"orient": "index"}},
		{path: "memfs://out.parquet", opts: format.Options{"compression": "brotli"}},
		{path: "memfs://out.avro", opts: format.Options{"codec": "zstd"}},
		{path: "memfs://out.avro", opts: format.Options{"schema": `{"type":"record","name":"R","fields":[{"name":"a","type":"nope"}]}`}},
		{path: "memfs://out.avro", opts: format.Options{"schema": `"string"`}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resetMemFS(t)
			ctx := context.Background()
			memfs.Write(tt.path, []byte("old"))

			src := &table.Table{Columns: []string{"a"}, Rows: [][]any{{"new"}}}
			err := Save(ctx, src, tt.path, WithOptions(tt.opts))
			if !errors.Is(err, ErrUnsupportedOption) {
				t.Fatalf("Save(%v) = %v, want ErrUnsupportedOption", tt.opts, err)
			}
			if n := strings.Count(err.Error(), tt.path); n != 1 {
				t.Errorf("Save() error %q names the path %d times, want 1", err, n)
			}
			got, err := filesystem.Read(ctx, memfs.New(ctx), tt.path)
			if err != nil {
				t.Fatalf("Save() with a bad option removed the destination: %v", err)
			}
			if string(got) != "old" {
				t.Errorf("Save() with a bad option changed the file to %q", got)
			}
		})
	}
}

func TestLoad_errorNamesPathOnce(t *testing.T) {
	resetMemFS(t)
	memfs.Write("memfs://in.csv", []byte("a\n1\n"))
	_, err := Load(context.Background(), []string{"memfs://in.csv"}, WithOptions(format.Options{"sepp": ";"}))
	if !errors.Is(err, ErrUnsupportedOption) {
		t.Fatalf("Load() = %v, want ErrUnsupportedOption", err)
	}
	if n := strings.Count(err.Error(), "memfs://in.csv"); n != 1 {
		t.Errorf("Load() error %q names the path %d times, want 1", err, n)
	}
}

func TestSave_overwriteDirectory(t *testing.T) {
	resetMemFS(t)
	ctx := context.Background()
	fs := memfs.New(ctx)
	memfs.Write("memfs://out.csv/part-0.csv", []byte("a\n1\n"))
	memfs.Write("memfs://out.csv/part-1.csv", []byte("a\n2\n"))

	src := &table.Table{Columns: []string{"a"}, Rows: [][]any{{"x"}}}
	if err := Save(ctx, src, "memfs://out.csv", withHeader); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if ok, _ := filesystem.Exists(ctx, fs, "memfs://out.csv/part-0.csv"); ok {
		t.Error("Save() kept a file of the replaced directory")
	}
	got, err := filesystem.Read(ctx, fs, "memfs://out.csv")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a\nx\n" {
		t.Errorf("Save() wrote %q, want %q", got, "a\nx\n")
	}
}

func TestSave_errors(t *testing.T) {
	src := &table.Table{Columns: []string{"a"}, Rows: [][]any{{"x"}}}
	tests := []struct {
		name string
		path string
		opts []SaveOption
		want error
	}{
		{name: "glob", path: "memfs://out/*.csv", want: ErrInvalidPath},
		{name: "invalid mode", path: "memfs://out.csv", opts: []SaveOption{WithMode("append")}, want: ErrUnsupportedOption},
		{name: "unknown suffix", path: "memfs://out.xyz", want: ErrUnsupportedFormat},
		{name: "unknown option", path: "memfs://out.csv", opts: []SaveOption{WithOptions(format.Options{"bogus": 1})}, want: ErrUnsupportedOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetMemFS(t)
			if err := Save(context.Background(), src, tt.path, tt.opts...); !errors.Is(err, tt.want) {
				t.Errorf("Save(%v) = %v, want %v", tt.path, err, tt.want)
			}
		})
	}
}

func TestSave_avroAppend(t *testing.T) {
	resetMemFS(t)
	ctx := context.Background()
	appendOpt := WithOptions(format.Options{"append": true})
	for _, v := range []string{"a", "b"} {
		src := &table.Table{Columns: []string{"x"}, Rows: [][]any{{v}}}
		if err := Save(ctx, src, "memfs://out.avro", appendOpt); err != nil {
			t.Fatalf("Save(%v) failed: %v", v, err)
		}
	}
	got, err := Load(ctx, []string{"memfs://out.avro"})
	if err != nil {
		t.Fatal(err)
	}
	want := &table.Table{Columns: []string{"x"}, Rows: [][]any{{"a"}, {"b"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%v", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	schema := table.MustSchema(
		table.Field{Name: "id", Type: table.Int64},
		table.Field{Name: "name", Type: table.String},
		table.Field{Name: "score", Type: table.Float64},
		table.Field{Name: "ok", Type: table.Bool},
		table.Field{Name: "at", Type: table.Timestamp},
	)
	at := time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC)
	src, err := table.New(nil, [][]any{
		{int64(1), "a", 0.5, true, at},
		{int64(2), nil, 1.5, false, nil},
	}, schema)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	for _, name := range []string{"t.csv", "t.csv.gz", "t.parquet", "t.json", "t.json.gz", "t.avro", "t.avro.gz"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(dir, name)
			if err := Save(ctx, src, path); err != nil {
				t.Fatalf("Save(%v) failed: %v", path, err)
			}
			// CSV is written without a header; the schema names its columns.
			got, err := Load(ctx, []string{path}, WithColumns(table.SchemaColumns(schema)))
			if err != nil {
				t.Fatalf("Load(%v) failed: %v", path, err)
			}
			if diff := cmp.Diff(src, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%v", diff)
			}
		})
	}
}

func TestWithFileSystem(t *testing.T) {
	resetMemFS(t)
	ctx := context.Background()
	fs := memfs.New(ctx)
	src := &table.Table{Columns: []string{"a"}, Rows: [][]any{{int64(1)}}}
	// The path has no scheme; the given file system resolves it.
	if err := Save(ctx, src, "plain.json", WithFileSystem(fs)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	got, err := Load(ctx, []string{"plain.json"}, WithFileSystem(fs))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if diff := cmp.Diff(src, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%v", diff)
	}
}
