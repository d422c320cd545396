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

// Package filesystem contains an extensible file system abstraction. It allows
// local paths, object stores and the in-memory test store to be used
// uniformly by the tabular codecs.
//
// A backend implements Interface and may additionally implement the optional
// capabilities Remover, TreeRemover, DirChecker and Exister. The helpers in
// this package fall back to sensible behavior when a capability is absent.
package filesystem

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/apache/beam/tableio/internal/errors"
)

var (
	mu       sync.RWMutex
	registry = make(map[string]func(context.Context) Interface)
)

// Register registers a file system backend under the given scheme. For
// example, "s3" would be registered as an S3 file system and s3:// paths used
// transparently. Paths without a scheme use the "default" backend.
func Register(scheme string, fs func(context.Context) Interface) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registry[scheme]; ok {
		panic("scheme " + scheme + " already registered")
	}
	registry[scheme] = fs
}

// New returns a new Interface for the given file path's scheme.
func New(ctx context.Context, path string) (Interface, error) {
	scheme := Scheme(path)
	mu.RLock()
	mkfs, ok := registry[scheme]
	mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("file system scheme %v not registered for %v", scheme, path)
	}
	return mkfs(ctx), nil
}

// Interface is a file system abstraction that allows tabular codecs to use
// various underlying storage systems transparently.
type Interface interface {
	io.Closer

	// List expands a pattern to a list of filenames. Matching follows
	// filepath.Match: '*' and '?' do not cross a '/'.
	List(ctx context.Context, glob string) ([]string, error)

	// OpenRead opens a file for reading.
	OpenRead(ctx context.Context, filename string) (io.ReadCloser, error)
	// OpenWrite opens a file for writing. If the file already exist, it will be
	// overwritten.
	OpenWrite(ctx context.Context, filename string) (io.WriteCloser, error)

	// Size returns the size of a file in bytes.
	Size(ctx context.Context, filename string) (int64, error)
}

// Remover is an interface for removing a single file.
type Remover interface {
	Remove(ctx context.Context, filename string) error
}

// TreeRemover is an interface for removing a directory and everything under
// it.
type TreeRemover interface {
	RemoveAll(ctx context.Context, path string) error
}

// DirChecker is an interface for file systems that have, or emulate,
// directories.
type DirChecker interface {
	IsDir(ctx context.Context, path string) (bool, error)
}

// Exister is an interface for checking whether a file or directory exists
// without opening it.
type Exister interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// Scheme returns the registry scheme of path: the part before "://", or
// "default" when there is none.
func Scheme(path string) string {
	if index := strings.Index(path, "://"); index > 0 {
		return path[:index]
	}
	return "default"
}

