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

// Package local contains a local file implementation of the file system. It
// serves paths without a scheme as well as file:// URIs.
package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/bmatcuk/doublestar/v4"
)

func init() {
	filesystem.Register("default", New)
	filesystem.Register("file", New)
}

type fs struct{}

// New creates a new local filesystem.
func New(_ context.Context) filesystem.Interface {
	return &fs{}
}

// osPath strips a file:// scheme.
func osPath(path string) string {
	if p, ok := strings.CutPrefix(path, "file://"); ok {
		return filepath.FromSlash(p)
	}
	return path
}

func (f *fs) Close() error {
	return nil
}

// List expands glob, including "**" for any number of directories. Matches
// within a directory are in lexical order.
func (f *fs) List(_ context.Context, glob string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(osPath(glob))
	if err != nil {
		return nil, errors.Wrapf(err, "bad pattern %q", glob)
	}
	return matches, nil
}

func (f *fs) OpenRead(_ context.Context, filename string) (io.ReadCloser, error) {
	return os.Open(osPath(filename))
}

// OpenWrite writes to a temporary file next to filename, creating missing
// parent directories. Close renames it into place, so readers never observe
// a partial file.
func (f *fs) OpenWrite(_ context.Context, filename string) (io.WriteCloser, error) {
	name := osPath(filename)
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".*")
	if err != nil {
		return nil, err
	}
	return &renameWriter{File: tmp, target: name}, nil
}

type renameWriter struct {
	*os.File
	target string
}

func (w *renameWriter) Close() error {
	if err := w.File.Close(); err != nil {
		os.Remove(w.Name())
		return err
	}
	if err := os.Chmod(w.Name(), 0644); err != nil {
		os.Remove(w.Name())
		return err
	}
	if err := os.Rename(w.Name(), w.target); err != nil {
		os.Remove(w.Name())
		return errors.Wrapf(err, "committing %v", w.target)
	}
	return nil
}

func (f *fs) Size(_ context.Context, filename string) (int64, error) {
	info, err := os.Stat(osPath(filename))
	if err != nil {
		return -1, err
	}
	return info.Size(), nil
}

// Exists reports whether the file or directory exists.
func (f *fs) Exists(_ context.Context, path string) (bool, error) {
	if _, err := os.Stat(osPath(path)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsDir reports whether path is an existing directory.
func (f *fs) IsDir(_ context.Context, path string) (bool, error) {
	info, err := os.Stat(osPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// Remove deletes a file or an empty directory.
func (f *fs) Remove(_ context.Context, filename string) error {
	return os.Remove(osPath(filename))
}

// RemoveAll deletes path and everything under it.
func (f *fs) RemoveAll(_ context.Context, path string) error {
	return os.RemoveAll(osPath(path))
}

// Compile time check for interface implementations.
var (
	_ filesystem.Remover     = (*fs)(nil)
	_ filesystem.TreeRemover = (*fs)(nil)
	_ filesystem.DirChecker  = (*fs)(nil)
	_ filesystem.Exister     = (*fs)(nil)
)
