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

// Package fileio opens files on any registered file system, transparently
// handling compression.
package fileio

import (
	"context"
	"io"
	"strings"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/apache/beam/tableio/pkg/log"
	"github.com/klauspost/compress/gzip"
)

// Compression is the type of compression used to compress a file.
type Compression int

const (
	// CompressionAuto indicates that the compression type should be detected
	// from the file extension.
	CompressionAuto Compression = iota
	// CompressionGzip indicates that the file is compressed using gzip.
	CompressionGzip
	// CompressionUncompressed indicates that the file is not compressed.
	CompressionUncompressed
)

// CompressionFromExt detects the compression of a file based on its
// extension. Unrecognized extensions mean CompressionUncompressed.
func CompressionFromExt(path string) Compression {
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		return CompressionGzip
	}
	return CompressionUncompressed
}

func resolve(path string, comp Compression) Compression {
	if comp == CompressionAuto {
		return CompressionFromExt(path)
	}
	return comp
}

// Open opens path on fs for reading, decompressing as needed. It is the
// caller's responsibility to close the returned reader.
func Open(ctx context.Context, fs filesystem.Interface, path string, comp Compression) (io.ReadCloser, error) {
	rc, err := fs.OpenRead(ctx, path)
	if err != nil {
		return nil, err
	}

	switch resolve(path, comp) {
	case CompressionGzip:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, errors.Wrapf(err, "failed to open gzip stream %v", path)
		}
		return &gzipReader{zr: zr, rc: rc}, nil
	default:
		return rc, nil
	}
}

type gzipReader struct {
	zr *gzip.Reader
	rc io.ReadCloser
}

func (r *gzipReader) Read(p []byte) (int, error) {
	return r.zr.Read(p)
}

func (r *gzipReader) Close() error {
	if err := r.zr.Close(); err != nil {
		r.rc.Close()
		return err
	}
	return r.rc.Close()
}

// Create opens path on fs for writing, compressing as needed. The file is
// complete once Close returns without error.
func Create(ctx context.Context, fs filesystem.Interface, path string, comp Compression) (io.WriteCloser, error) {
	wc, err := fs.OpenWrite(ctx, path)
	if err != nil {
		return nil, err
	}

	switch resolve(path, comp) {
	case CompressionGzip:
		return &gzipWriter{zw: gzip.NewWriter(wc), wc: wc}, nil
	default:
		return wc, nil
	}
}

type gzipWriter struct {
	zw *gzip.Writer
	wc io.WriteCloser
}

func (w *gzipWriter) Write(p []byte) (int, error) {
	return w.zw.Write(p)
}

func (w *gzipWriter) Close() error {
	if err := w.zw.Close(); err != nil {
		w.wc.Close()
		return err
	}
	return w.wc.Close()
}

// ReadAll reads the entire file into memory, decompressing by extension.
func ReadAll(ctx context.Context, fs filesystem.Interface, path string) (data []byte, err error) {
	rc, err := Open(ctx, fs, path, CompressionAuto)
	if err != nil {
		return nil, err
	}

	defer func() {
		closeErr := rc.Close()
		if err != nil {
			if closeErr != nil {
				log.Errorf(ctx, "error closing reader: %v", closeErr)
			}
			return
		}
		err = closeErr
	}()

	return io.ReadAll(rc)
}

// WriteAll replaces the file with data, compressing by extension.
func WriteAll(ctx context.Context, fs filesystem.Interface, path string, data []byte) error {
	wc, err := Create(ctx, fs, path, CompressionAuto)
	if err != nil {
		return err
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}
