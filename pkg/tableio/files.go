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
	"strings"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/apache/beam/tableio/pkg/tableio/pathspec"
)

// FileIterator lazily expands path specs into specs of single files. It is
// single pass: once Next returns false it stays exhausted.
//
//	it := tableio.Files(ctx, fs, specs...)
//	for it.Next() {
//		use(it.Spec())
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type FileIterator struct {
	ctx  context.Context
	fs   filesystem.Interface
	work []pathspec.PathSpec // stack, next item last
	cur  pathspec.PathSpec
	err  error
}

// Files returns an iterator over the single files denoted by specs, in order.
// A glob yields its matches in listing order, expanding any match that is
// itself a directory. A directory yields its entries named "*.<format>". Any
// other spec is yielded unchanged.
func Files(ctx context.Context, fs filesystem.Interface, specs ...pathspec.PathSpec) *FileIterator {
	it := &FileIterator{ctx: ctx, fs: fs}
	it.push(specs)
	return it
}

// push adds specs so that specs[0] is visited next.
func (it *FileIterator) push(specs []pathspec.PathSpec) {
	for i := len(specs) - 1; i >= 0; i-- {
		it.work = append(it.work, specs[i])
	}
}

func (it *FileIterator) pop() pathspec.PathSpec {
	ps := it.work[len(it.work)-1]
	it.work = it.work[:len(it.work)-1]
	return ps
}

// Next advances to the next file. It returns false when the specs are
// exhausted or an error occurred.
func (it *FileIterator) Next() bool {
	for it.err == nil && len(it.work) > 0 {
		ps := it.pop()

		if ps.HasGlob() {
			specs, err := it.expandGlob(ps)
			if err != nil {
				it.fail(err)
				return false
			}
			it.push(specs)
			continue
		}

		dir, err := filesystem.IsDir(it.ctx, it.fs, ps.Path)
		if err != nil {
			it.fail(errors.WithContextf(err, "checking %v", ps.Path))
			return false
		}
		if dir {
			specs, err := it.expandDir(ps)
			if err != nil {
				it.fail(err)
				return false
			}
			it.push(specs)
			continue
		}

		it.cur = ps
		return true
	}
	return false
}

func (it *FileIterator) fail(err error) {
	it.err = err
	it.work = nil
}

func (it *FileIterator) expandGlob(ps pathspec.PathSpec) ([]pathspec.PathSpec, error) {
	matches, err := filesystem.Glob(it.ctx, it.fs, ps.Dir, ps.Glob)
	if err != nil {
		return nil, errors.WithContextf(err, "expanding %v", ps.Path)
	}
	nested := strings.ContainsAny(ps.Glob, `/\`)
	specs := make([]pathspec.PathSpec, 0, len(matches))
	for _, m := range matches {
		path := m
		if !nested {
			path = pathspec.JoinURI(ps.Dir, filesystem.Base(m))
		}
		spec, err := pathspec.Parse(path, ps.Hint())
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (it *FileIterator) expandDir(ps pathspec.PathSpec) ([]pathspec.PathSpec, error) {
	names, err := filesystem.FilterDir(it.ctx, it.fs, ps.Path, "*."+ps.Format.String())
	if err != nil {
		return nil, errors.WithContextf(err, "listing %v", ps.Path)
	}
	specs := make([]pathspec.PathSpec, 0, len(names))
	for _, name := range names {
		spec, err := pathspec.Parse(pathspec.JoinURI(ps.Path, name), ps.Format.String())
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Spec returns the current file. It is valid after Next returned true.
func (it *FileIterator) Spec() pathspec.PathSpec {
	return it.cur
}

// Err returns the error that stopped the iteration, if any.
func (it *FileIterator) Err() error {
	return it.err
}
