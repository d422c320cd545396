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

// Package tableio loads and saves tables as CSV, Parquet, JSON or Avro files
// on any registered file system. Paths may be files, directories or glob
// patterns; the format is taken from an explicit hint or the path's suffix.
//
//	t, err := tableio.Load(ctx, []string{"s3://bucket/in/*.parquet"},
//		tableio.WithColumns(table.Columns("id", "name")))
//	...
//	err = tableio.Save(ctx, t, "out.csv.gz", tableio.WithMode(tableio.ModeError))
//
// File systems are resolved by scheme, so programs import the backends they
// need, e.g.
//
//	import _ "github.com/apache/beam/tableio/pkg/io/filesystem/local"
package tableio

import (
	"context"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/apache/beam/tableio/pkg/log"
	"github.com/apache/beam/tableio/pkg/table"
	"github.com/apache/beam/tableio/pkg/tableio/avroio"
	"github.com/apache/beam/tableio/pkg/tableio/csvio"
	"github.com/apache/beam/tableio/pkg/tableio/format"
	"github.com/apache/beam/tableio/pkg/tableio/jsonio"
	"github.com/apache/beam/tableio/pkg/tableio/parquetio"
	"github.com/apache/beam/tableio/pkg/tableio/pathspec"
)

// codecs is indexed by format. Every format has exactly one codec.
var codecs = [format.NumFormats]format.Codec{
	format.CSV:     csvio.Codec{},
	format.Parquet: parquetio.Codec{},
	format.JSON:    jsonio.Codec{},
	format.Avro:    avroio.Codec{},
}

// CodecFor returns the codec of f.
func CodecFor(f format.Format) (format.Codec, error) {
	if f < 0 || f >= format.NumFormats || codecs[f] == nil {
		return nil, errors.Wrapf(errors.ErrUnsupportedFormat, "no codec registered for format %v", f)
	}
	return codecs[f], nil
}

// Mode is the policy for saving onto an existing destination.
type Mode string

const (
	// ModeOverwrite replaces the destination.
	ModeOverwrite Mode = "overwrite"
	// ModeError fails with ErrAlreadyExists and leaves the destination as is.
	ModeError Mode = "error"
)

type loadConfig struct {
	hint string
	sel  table.Selection
	fs   filesystem.Interface
	opts format.Options
}

type saveConfig struct {
	hint string
	mode Mode
	fs   filesystem.Interface
	opts format.Options
}

// LoadOption configures Load.
type LoadOption interface {
	applyLoad(*loadConfig)
}

// SaveOption configures Save.
type SaveOption interface {
	applySave(*saveConfig)
}

// Option configures both Load and Save.
type Option interface {
	LoadOption
	SaveOption
}

type formatOption string

func (o formatOption) applyLoad(c *loadConfig) { c.hint = string(o) }
func (o formatOption) applySave(c *saveConfig) { c.hint = string(o) }

// WithFormat overrides the format inferred from the path suffix, e.g.
// WithFormat("parquet").
func WithFormat(hint string) Option {
	return formatOption(hint)
}

type fsOption struct{ fs filesystem.Interface }

func (o fsOption) applyLoad(c *loadConfig) { c.fs = o.fs }
func (o fsOption) applySave(c *saveConfig) { c.fs = o.fs }

// WithFileSystem uses fs instead of the file system registered for the
// path's scheme. The caller keeps ownership of fs.
func WithFileSystem(fs filesystem.Interface) Option {
	return fsOption{fs: fs}
}

type optionsOption format.Options

func (o optionsOption) applyLoad(c *loadConfig) { c.opts = c.opts.Clone(format.Options(o)) }
func (o optionsOption) applySave(c *saveConfig) { c.opts = c.opts.Clone(format.Options(o)) }

// WithOptions passes codec options such as "header" or "compression". Later
// options override earlier ones with the same key.
func WithOptions(opts format.Options) Option {
	return optionsOption(opts)
}

type columnsOption table.Selection

func (o columnsOption) applyLoad(c *loadConfig) { c.sel = table.Selection(o) }

// WithColumns restricts the loaded columns. A schema selection also casts the
// values and attaches the schema to the result.
func WithColumns(sel table.Selection) LoadOption {
	return columnsOption(sel)
}

type modeOption Mode

func (o modeOption) applySave(c *saveConfig) { c.mode = Mode(o) }

// WithMode sets the policy for an existing destination. The default is
// ModeOverwrite.
func WithMode(m Mode) SaveOption {
	return modeOption(m)
}

// Load reads every file denoted by paths and concatenates the rows in order.
// All files must have the same set of columns. The result carries the schema
// of the last file read, which is set only for a schema selection. When no
// file matches, the result is empty with the selected columns.
func Load(ctx context.Context, paths []string, opts ...LoadOption) (*table.Table, error) {
	cfg := loadConfig{}
	for _, o := range opts {
		o.applyLoad(&cfg)
	}

	specs := make([]pathspec.PathSpec, 0, len(paths))
	for _, p := range paths {
		ps, err := pathspec.Parse(p, cfg.hint)
		if err != nil {
			return nil, err
		}
		specs = append(specs, ps)
	}

	var parts []*table.Table
	for _, ps := range specs {
		fs, closeFS, err := resolveFS(ctx, cfg.fs, ps.Path)
		if err != nil {
			return nil, err
		}
		loaded, err := loadSpec(ctx, fs, ps, cfg)
		closeFS()
		if err != nil {
			return nil, err
		}
		parts = append(parts, loaded...)
	}

	if len(parts) == 0 {
		return table.New(cfg.sel.Names(), nil, cfg.sel.Schema())
	}
	out, err := table.Concat(parts...)
	if err != nil {
		return nil, errors.WithContextf(err, "loading %v", paths)
	}
	return out, nil
}

func loadSpec(ctx context.Context, fs filesystem.Interface, spec pathspec.PathSpec, cfg loadConfig) ([]*table.Table, error) {
	var parts []*table.Table
	it := Files(ctx, fs, spec)
	for it.Next() {
		ps, err := it.Spec().AssertNoGlob()
		if err != nil {
			return nil, err
		}
		codec, err := CodecFor(ps.Format)
		if err != nil {
			return nil, err
		}
		fctx := log.WithAttrs(ctx, "path", ps.Path, "format", ps.Format.String())
		t, err := codec.Load(fctx, fs, ps.Path, cfg.sel, cfg.opts)
		if err != nil {
			return nil, err
		}
		parts = append(parts, t)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return parts, nil
}

// Save writes t to the single file path. The codec options are checked before
// the destination is looked at. With ModeOverwrite an existing file
// or directory at path is removed first, unless the codec was asked to append
// to it. Removal is best effort and a failure to remove is logged, not
// returned.
func Save(ctx context.Context, t *table.Table, path string, opts ...SaveOption) error {
	cfg := saveConfig{mode: ModeOverwrite}
	for _, o := range opts {
		o.applySave(&cfg)
	}
	if cfg.mode != ModeOverwrite && cfg.mode != ModeError {
		return errors.Wrapf(errors.ErrUnsupportedOption, "mode %q for %v is not one of %q, %q", cfg.mode, path, ModeOverwrite, ModeError)
	}

	ps, err := pathspec.Parse(path, cfg.hint)
	if err != nil {
		return err
	}
	if ps, err = ps.AssertNoGlob(); err != nil {
		return err
	}
	codec, err := CodecFor(ps.Format)
	if err != nil {
		return err
	}
	if err := codec.ValidateSave(cfg.opts); err != nil {
		return errors.WithContextf(err, "saving %v", ps.Path)
	}

	fs, closeFS, err := resolveFS(ctx, cfg.fs, ps.Path)
	if err != nil {
		return err
	}
	defer closeFS()

	exists, err := filesystem.Exists(ctx, fs, ps.Path)
	if err != nil {
		return errors.WithContextf(err, "checking %v", ps.Path)
	}
	if exists {
		if cfg.mode == ModeError {
			return errors.Wrapf(errors.ErrAlreadyExists, "%v exists and mode is %q", ps.Path, cfg.mode)
		}
		if a, ok := codec.(format.Appender); !ok || !a.Appends(cfg.opts) {
			clearDestination(ctx, fs, ps.Path)
		}
	}

	ctx = log.WithAttrs(ctx, "path", ps.Path, "format", ps.Format.String(), "mode", string(cfg.mode))
	return codec.Save(ctx, fs, t, ps.Path, cfg.opts)
}

// clearDestination removes path as a file, then as a tree. If both fail the
// save goes ahead and the codec overwrites what it can.
func clearDestination(ctx context.Context, fs filesystem.Interface, path string) {
	err := filesystem.Remove(ctx, fs, path)
	if err == nil {
		return
	}
	if treeErr := filesystem.RemoveAll(ctx, fs, path); treeErr != nil {
		log.Warnf(ctx, "could not remove existing %v before overwriting: %v; %v", path, err, treeErr)
	}
}

// resolveFS returns fs if set, otherwise the registered file system for
// path along with a function that closes it.
func resolveFS(ctx context.Context, fs filesystem.Interface, path string) (filesystem.Interface, func(), error) {
	if fs != nil {
		return fs, func() {}, nil
	}
	fs, err := filesystem.New(ctx, path)
	if err != nil {
		return nil, nil, errors.Wrapf(errors.ErrInvalidPath, "no file system for %v: %v", path, err)
	}
	return fs, func() { fs.Close() }, nil
}
