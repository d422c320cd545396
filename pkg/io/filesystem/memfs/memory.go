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

// Package memfs contains an in-memory file system registered as "memfs".
// Directories are implied by the files stored under them, as in an object
// store. Intended for tests: all instances share one process-wide store.
package memfs

import (
	"bytes"
	"context"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
)

const prefix = "memfs://"

func init() {
	filesystem.Register("memfs", New)
}

// store maps slash-separated names, without the memfs:// prefix, to file
// contents.
type store struct {
	mu    sync.Mutex
	files map[string][]byte
}

var global = &store{files: make(map[string][]byte)}

// New returns a handle to the shared store.
func New(_ context.Context) filesystem.Interface {
	return global
}

// Write stores a copy of data under name, replacing any existing file.
func Write(name string, data []byte) {
	global.put(key(name), data)
}

// Reset removes every file.
func Reset() {
	global.mu.Lock()
	global.files = make(map[string][]byte)
	global.mu.Unlock()
}

// key strips the optional memfs:// prefix. Names always use '/'; a backslash
// escapes a glob metacharacter.
func key(name string) string {
	return strings.TrimPrefix(name, prefix)
}

func (s *store) get(k string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[k]
	return data, ok
}

func (s *store) put(k string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[k] = bytes.Clone(data)
}

// names returns the stored names in lexical order.
func (s *store) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]string, 0, len(s.files))
	for k := range s.files {
		ret = append(ret, k)
	}
	slices.Sort(ret)
	return ret
}

// under returns the stored names below directory k.
func (s *store) under(k string) []string {
	dir := strings.TrimSuffix(k, "/") + "/"
	var ret []string
	for _, name := range s.names() {
		if strings.HasPrefix(name, dir) {
			ret = append(ret, name)
		}
	}
	return ret
}

func (s *store) Close() error {
	return nil
}

// List returns the files and implied directories matching glob, in lexical
// order.
func (s *store) List(_ context.Context, glob string) ([]string, error) {
	matches, err := filesystem.MatchKeys(key(glob), s.names())
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)
	for i, m := range matches {
		matches[i] = prefix + m
	}
	return matches, nil
}

func (s *store) OpenRead(_ context.Context, filename string) (io.ReadCloser, error) {
	data, ok := s.get(key(filename))
	if !ok {
		return nil, &os.PathError{Op: "open", Path: filename, Err: os.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// OpenWrite buffers the file. It becomes visible when the writer is closed.
func (s *store) OpenWrite(_ context.Context, filename string) (io.WriteCloser, error) {
	return &writer{s: s, key: key(filename)}, nil
}

func (s *store) Size(_ context.Context, filename string) (int64, error) {
	data, ok := s.get(key(filename))
	if !ok {
		return -1, &os.PathError{Op: "stat", Path: filename, Err: os.ErrNotExist}
	}
	return int64(len(data)), nil
}

// Exists reports whether path is a stored file or an implied directory.
func (s *store) Exists(ctx context.Context, path string) (bool, error) {
	if _, ok := s.get(key(path)); ok {
		return true, nil
	}
	return s.IsDir(ctx, path)
}

// IsDir reports whether any file is stored under path.
func (s *store) IsDir(_ context.Context, path string) (bool, error) {
	return len(s.under(key(path))) > 0, nil
}

// Remove deletes one file. Directories are only removed by RemoveAll.
func (s *store) Remove(_ context.Context, filename string) error {
	k := key(filename)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[k]; !ok {
		return &os.PathError{Op: "remove", Path: filename, Err: os.ErrNotExist}
	}
	delete(s.files, k)
	return nil
}

// RemoveAll deletes the file at path and every file under it.
func (s *store) RemoveAll(_ context.Context, path string) error {
	k := key(path)
	doomed := append(s.under(k), k)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range doomed {
		delete(s.files, name)
	}
	return nil
}

// Compile time check for interface implementations.
var (
	_ filesystem.Remover     = (*store)(nil)
	_ filesystem.TreeRemover = (*store)(nil)
	_ filesystem.DirChecker  = (*store)(nil)
	_ filesystem.Exister     = (*store)(nil)
)

type writer struct {
	s      *store
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.Errorf("write to closed file %v%v", prefix, w.key)
	}
	return w.buf.Write(p)
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.s.put(w.key, w.buf.Bytes())
	return nil
}
