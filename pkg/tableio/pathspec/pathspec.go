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

// Package pathspec classifies path strings into a directory, an optional glob
// pattern and a tabular format.
package pathspec

import (
	"net/url"
	"strings"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/apache/beam/tableio/pkg/tableio/format"
)

// PathSpec is a parsed path. It is an immutable value.
type PathSpec struct {
	// Scheme is the URI scheme, e.g. "s3" or "memfs". Local paths, including
	// Windows drive paths, have the empty scheme.
	Scheme string
	// Dir is the part of the path before the glob segment. For literal paths
	// it is the whole path.
	Dir string
	// Glob is the glob pattern relative to Dir. Empty means the path is
	// literal and denotes at most one file.
	Glob string
	// Path is Dir joined with Glob, or the literal path.
	Path string
	// Format is the resolved format of the file(s).
	Format format.Format

	hint string
}

// Parse parses path. A non-empty hint must be a format tag and overrides the
// format inferred from the path's suffix.
func Parse(path, hint string) (PathSpec, error) {
	ps := PathSpec{Dir: path, Path: path, hint: hint}

	sep := -1
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '/' || c == '\\' {
			sep = i
			continue
		}
		if c == '*' || c == '?' {
			if sep >= 0 {
				ps.Dir, ps.Glob = path[:sep], path[sep+1:]
				if ps.Dir == "" || strings.HasSuffix(ps.Dir, ":/") {
					// Keep the root separator, e.g. "/*.csv" or "s3://b/*.csv".
					ps.Dir = path[:sep+1]
				}
			} else {
				ps.Dir, ps.Glob = "", path
			}
			ps.Path = JoinURI(ps.Dir, ps.Glob)
			break
		}
	}

	scheme, err := parseScheme(ps.Dir)
	if err != nil {
		return PathSpec{}, errors.Wrapf(errors.ErrInvalidPath, "cannot parse %q: %v", path, err)
	}
	ps.Scheme = scheme

	if hint != "" {
		f, err := format.Parse(hint)
		if err != nil {
			return PathSpec{}, errors.WithContextf(err, "path %v", path)
		}
		ps.Format = f
		return ps, nil
	}
	f, err := format.FromSuffix(compoundSuffix(ps.Path))
	if err != nil {
		return PathSpec{}, errors.WithContextf(err, "path %v", path)
	}
	ps.Format = f
	return ps, nil
}

// MustParse is Parse for paths known to be valid. It panics on error.
func MustParse(path, hint string) PathSpec {
	ps, err := Parse(path, hint)
	if err != nil {
		panic(err)
	}
	return ps
}

func parseScheme(path string) (string, error) {
	if !strings.Contains(path, "://") {
		return "", nil
	}
	u, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	if len(u.Scheme) == 1 {
		// Windows drive letter.
		return "", nil
	}
	return strings.ToLower(u.Scheme), nil
}

// compoundSuffix returns everything from the first dot of the last path
// element, ignoring leading dots, e.g. ".csv.gz" for "dir/part.csv.gz".
func compoundSuffix(path string) string {
	base := strings.TrimLeft(filesystem.Base(path), ".")
	if i := strings.Index(base, "."); i >= 0 {
		return base[i:]
	}
	return ""
}

// JoinURI appends name to the directory URI dir.
func JoinURI(dir, name string) string {
	return filesystem.Join(dir, name)
}

// Hint returns the format hint the spec was parsed with, if any.
func (ps PathSpec) Hint() string {
	return ps.hint
}

// HasGlob reports whether the spec may denote more than one file.
func (ps PathSpec) HasGlob() bool {
	return ps.Glob != ""
}

// AssertNoGlob returns ps if it is a literal path, and ErrInvalidPath
// otherwise.
func (ps PathSpec) AssertNoGlob() (PathSpec, error) {
	if ps.HasGlob() {
		return PathSpec{}, errors.Wrapf(errors.ErrInvalidPath, "glob pattern %q in %v where a single file is required", ps.Glob, ps.Path)
	}
	return ps, nil
}

func (ps PathSpec) String() string {
	return ps.Path
}
