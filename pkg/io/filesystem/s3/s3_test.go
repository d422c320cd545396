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

package s3

import (
	"context"
	"io"
	"testing"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/google/go-cmp/cmp"
)

func newTestFS(ctx context.Context, t *testing.T) *fs {
	t.Helper()
	server := newServer(t)
	client := newClient(ctx, t, server.URL)
	createBucket(ctx, t, client, "bucket")
	for _, key := range []string{
		"a.csv",
		"b.csv",
		"c.json",
		"out/data.parquet/part-0.parquet",
		"out/data.parquet/part-1.parquet",
		"out/single.parquet",
	} {
		createObject(ctx, t, client, "bucket", key, []byte("content"))
	}
	return NewFromClient(client).(*fs)
}

func TestFS_List(t *testing.T) {
	tests := []struct {
		name    string
		glob    string
		want    []string
		wantErr bool
	}{
		{
			name: "exact key",
			glob: "s3://bucket/a.csv",
			want: []string{"s3://bucket/a.csv"},
		},
		{
			name: "wildcard",
			glob: "s3://bucket/*.csv",
			want: []string{"s3://bucket/a.csv", "s3://bucket/b.csv"},
		},
		{
			name: "implied directory",
			glob: "s3://bucket/out/*.parquet",
			want: []string{"s3://bucket/out/data.parquet", "s3://bucket/out/single.parquet"},
		},
		{
			name: "no matches",
			glob: "s3://bucket/*.avro",
		},
		{
			name:    "missing scheme",
			glob:    "bucket/a.csv",
			wantErr: true,
		},
		{
			name:    "missing bucket",
			glob:    "s3://other/a.csv",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newTestFS(ctx, t)
			got, err := f.List(ctx, tt.glob)
			if (err != nil) != tt.wantErr {
				t.Fatalf("List(%q) error = %v, wantErr %v", tt.glob, err, tt.wantErr)
			}
			if d := cmp.Diff(tt.want, got); d != "" {
				t.Errorf("List(%q) diff (-want +got):\n%s", tt.glob, d)
			}
		})
	}
}

func TestFS_ReadWrite(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(ctx, t)

	if err := filesystem.Write(ctx, f, "s3://bucket/new/x.json", []byte(`[{"a":1}]`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := filesystem.Read(ctx, f, "s3://bucket/new/x.json")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != `[{"a":1}]` {
		t.Errorf("Read() = %q, want %q", got, `[{"a":1}]`)
	}
	size, err := f.Size(ctx, "s3://bucket/new/x.json")
	if err != nil || size != 9 {
		t.Errorf("Size() = (%v, %v), want (9, nil)", size, err)
	}
	if _, err := f.OpenRead(ctx, "s3://bucket/missing.json"); !filesystem.IsNotExist(err) {
		t.Errorf("OpenRead(missing) error = %v, want not exist", err)
	}
	if _, err := f.Size(ctx, "s3://bucket/missing.json"); !filesystem.IsNotExist(err) {
		t.Errorf("Size(missing) error = %v, want not exist", err)
	}
	if _, err := f.OpenWrite(ctx, "s3://bucket"); !errors.Is(err, errors.ErrInvalidPath) {
		t.Errorf("OpenWrite(bucket) error = %v, want ErrInvalidPath", err)
	}
}

func TestFS_Directories(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(ctx, t)

	checks := []struct {
		path          string
		exists, isDir bool
	}{
		{"s3://bucket/a.csv", true, false},
		{"s3://bucket/out", true, true},
		{"s3://bucket/out/data.parquet", true, true},
		{"s3://bucket/nope", false, false},
	}
	for _, c := range checks {
		if got, err := f.Exists(ctx, c.path); err != nil || got != c.exists {
			t.Errorf("Exists(%q) = (%v, %v), want (%v, nil)", c.path, got, err, c.exists)
		}
		if got, err := f.IsDir(ctx, c.path); err != nil || got != c.isDir {
			t.Errorf("IsDir(%q) = (%v, %v), want (%v, nil)", c.path, got, err, c.isDir)
		}
	}

	if err := f.Remove(ctx, "s3://bucket/out/data.parquet"); err == nil {
		t.Error("Remove(directory) error = nil, want error")
	}
	if err := f.RemoveAll(ctx, "s3://bucket/out/data.parquet"); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}
	if ok, _ := f.Exists(ctx, "s3://bucket/out/data.parquet"); ok {
		t.Error("Exists() after RemoveAll = true, want false")
	}
	if ok, _ := f.Exists(ctx, "s3://bucket/out/single.parquet"); !ok {
		t.Error("RemoveAll removed a sibling object")
	}

	if err := f.Remove(ctx, "s3://bucket/a.csv"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if ok, _ := f.Exists(ctx, "s3://bucket/a.csv"); ok {
		t.Error("Exists() after Remove = true, want false")
	}
}

func TestWriter_Empty(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(ctx, t)

	w, err := f.OpenWrite(ctx, "s3://bucket/empty.csv")
	if err != nil {
		t.Fatalf("OpenWrite() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	r, err := f.OpenRead(ctx, "s3://bucket/empty.csv")
	if err != nil {
		t.Fatalf("OpenRead() error = %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if len(data) != 0 {
		t.Errorf("object = %q, want empty", data)
	}
}

func TestWriter_MissingBucket(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(ctx, t)

	w := newWriter(ctx, f.uploader, "other", "x.csv")
	w.Write([]byte("a,b\n"))
	if err := w.Close(); err == nil {
		t.Error("Close() error = nil, want error for missing bucket")
	}
	if objectExists(ctx, t, f.client, "other", "x.csv") {
		t.Error("object exists in missing bucket")
	}
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri         string
		bucket, key string
		wantErr     bool
	}{
		{uri: "s3://bucket/path/to/key.csv", bucket: "bucket", key: "path/to/key.csv"},
		{uri: "s3://bucket", bucket: "bucket"},
		{uri: "gs://bucket/key", wantErr: true},
		{uri: "s3:///key", wantErr: true},
		{uri: "s3://bucket/a?b/%41#c.csv", bucket: "bucket", key: "a?b/%41#c.csv"},
		{uri: `s3://bucket/run\[1\]/*.csv`, bucket: "bucket", key: `run\[1\]/*.csv`},
	}
	for _, tt := range tests {
		bucket, key, err := parseURI(tt.uri)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			continue
		}
		if bucket != tt.bucket || key != tt.key {
			t.Errorf("parseURI(%q) = (%q, %q), want (%q, %q)", tt.uri, bucket, key, tt.bucket, tt.key)
		}
	}
	if got := makeURI("bucket", "a/b"); got != "s3://bucket/a/b" {
		t.Errorf("makeURI() = %q", got)
	}
	for key, want := range map[string]string{"": "", "a": "a/", "a/": "a/"} {
		if got := dirPrefix(key); got != want {
			t.Errorf("dirPrefix(%q) = %q, want %q", key, got, want)
		}
	}
}
