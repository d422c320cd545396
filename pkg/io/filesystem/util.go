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

package filesystem

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/bmatcuk/doublestar/v4"
)

// Read fully reads the given file from the file system.
func Read(ctx context.Context, fs Interface, filename string) ([]byte, error) {
	r, err := fs.OpenRead(ctx, filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// Write writes the given content to the file system.
func Write(ctx context.Context, fs Interface, filename string, data []byte) error {
	w, err := fs.OpenWrite(ctx, filename)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Exists reports whether path names an existing file or directory.
func Exists(ctx context.Context, fs Interface, path string) (bool, error) {
	if e, ok := fs.(Exister); ok {
		return e.Exists(ctx, path)
	}
	if _, err := fs.Size(ctx, path); err == nil {
		return true, nil
	}
	return IsDir(ctx, fs, path)
}

// IsDir reports whether path names an existing directory. File systems
// without directories report false.
func IsDir(ctx context.Context, fs Interface, path string) (bool, error) {
	if d, ok := fs.(DirChecker); ok {
		return d.IsDir(ctx, path)
	}
	return false, nil
}

// Remove removes a single file.
func Remove(ctx context.Context, fs Interface, filename string) error {
	r, ok := fs.(Remover)
	if !ok {
		return errors.Errorf("file system %T does not support removing %v", fs, filename)
	}
	return r.Remove(ctx, filename)
}

// RemoveAll removes path and everything under it.
func RemoveAll(ctx context.Context, fs Interface, path string) error {
	r, ok := fs.(TreeRemover)
	if !ok {
		return errors.Errorf("file system %T does not support removing tree %v", fs, path)
	}
	return r.RemoveAll(ctx, path)
}

// Glob lists the entries of dir whose names match pattern. dir is literal:
// metacharacters in it are escaped. The returned paths are in the backend's
// listing order.
func Glob(ctx context.Context, fs Interface, dir, pattern string) ([]string, error) {
	return fs.List(ctx, Join(EscapeMeta(dir), pattern))
}

var metaEscaper = strings.NewReplacer("*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`, "{", `\{`, "}", `\}`)

// EscapeMeta escapes the glob metacharacters in path so that it matches only
// itself. Paths separated by backslashes are returned unchanged, as the
// backslash is their separator rather than an escape.
func EscapeMeta(path string) string {
	if !strings.Contains(path, "/") && strings.Contains(path, `\`) {
		return path
	}
	return metaEscaper.Replace(path)
}

// FilterDir returns the names of the entries of dir matching any of the
// patterns. Names are unique and in the backend's listing order.
func FilterDir(ctx context.Context, fs Interface, dir string, patterns ...string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	for _, p := range patterns {
		matches, err := Glob(ctx, fs, dir, p)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			name := Base(m)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// Join appends name to the directory URI dir. Directories written with
// backslashes keep using them.
func Join(dir, name string) string {
	switch {
	case dir == "":
		return name
	case strings.HasSuffix(dir, "/"), strings.HasSuffix(dir, `\`):
		return dir + name
	case !strings.Contains(dir, "/") && strings.Contains(dir, `\`):
		return dir + `\` + name
	default:
		return dir + "/" + name
	}
}

// Base returns the last element of a path or URI, ignoring trailing
// separators.
func Base(path string) string {
	path = strings.TrimRight(path, `/\`)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Match reports whether name matches the shell pattern. '*' and '?' do not
// match a '/'.
func Match(pattern, name string) (bool, error) {
	if !doublestar.ValidatePattern(pattern) {
		return false, errors.Wrapf(doublestar.ErrBadPattern, "invalid glob pattern %q", pattern)
	}
	ok, err := doublestar.Match(pattern, name)
	if err != nil {
		return false, errors.Wrapf(err, "invalid glob pattern %q", pattern)
	}
	return ok, nil
}

// GlobPrefix returns the literal prefix of a glob pattern, i.e. everything
// before the first metacharacter. Object stores list by this prefix and match
// the remainder client side.
func GlobPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?[{\\"); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// IsNotExist reports whether err says a file does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// MatchKeys matches pattern against flat object keys and the directories they
// imply: key "a/b/c" also offers "a/b" and "a". The result is unique and keeps
// the order of first match.
func MatchKeys(pattern string, keys []string) ([]string, error) {
	var ret []string
	seen := make(map[string]bool)
	for _, key := range keys {
		for name := key; name != ""; {
			ok, err := Match(pattern, name)
			if err != nil {
				return nil, err
			}
			if ok && !seen[name] {
				seen[name] = true
				ret = append(ret, name)
			}
			i := strings.LastIndex(name, "/")
			if i <= 0 {
				break
			}
			name = name[:i]
		}
	}
	return ret, nil
}
