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

// Package parquetio reads and writes tables as Parquet files.
package parquetio

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/fileio"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/apache/beam/tableio/pkg/log"
	"github.com/apache/beam/tableio/pkg/table"
	"github.com/apache/beam/tableio/pkg/tableio/format"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/schema"
	"github.com/xitongsys/parquet-go/types"
	"github.com/xitongsys/parquet-go/writer"
)

// parallelism is the number of goroutines parquet-go uses per file.
const parallelism = 4

// Codec is the Parquet codec. Loads read only the selected columns. Nested
// leaf columns are named by their dotted path.
//
// Save options:
//
//	compression     snappy (the default), gzip, zstd, lz4 or uncompressed.
//	row_group_size  target row group size in bytes.
type Codec struct{}

var codecs = map[string]parquet.CompressionCodec{
	"snappy":       parquet.CompressionCodec_SNAPPY,
	"gzip":         parquet.CompressionCodec_GZIP,
	"zstd":         parquet.CompressionCodec_ZSTD,
	"lz4":          parquet.CompressionCodec_LZ4,
	"uncompressed": parquet.CompressionCodec_UNCOMPRESSED,
}

type saveOptions struct {
	compression  parquet.CompressionCodec
	rowGroupSize int64
}

func parseSaveOptions(opts format.Options) (saveOptions, error) {
	r := opts.Reader()
	so := saveOptions{compression: parquet.CompressionCodec_SNAPPY}
	name := strings.ToLower(r.String("compression", "snappy"))
	if c, ok := codecs[name]; ok {
		so.compression = c
	} else {
		r.Fail("compression", name, "one of snappy, gzip, zstd, lz4 or uncompressed")
	}
	if n := r.Int("row_group_size", 0); n > 0 {
		so.rowGroupSize = int64(n)
	} else if n < 0 {
		r.Fail("row_group_size", n, "positive")
	}
	return so, r.Done("parquet save")
}

// column is a leaf column of a file schema.
type column struct {
	name   string // dotted path below the root
	exPath string // path as understood by the column reader
	elem   *parquet.SchemaElement
}

func columns(sh *schema.SchemaHandler) []column {
	cols := make([]column, 0, len(sh.ValueColumns))
	for _, in := range sh.ValueColumns {
		ex := sh.InPathToExPath[in]
		cols = append(cols, column{
			name:   strings.Join(common.StrToPath(ex)[1:], "."),
			exPath: ex,
			elem:   sh.SchemaElements[sh.MapIndex[in]],
		})
	}
	return cols
}

// Load reads the Parquet file at path.
func (Codec) Load(ctx context.Context, fs filesystem.Interface, path string, sel table.Selection, opts format.Options) (*table.Table, error) {
	if err := opts.Reader().Done("parquet load"); err != nil {
		return nil, errors.WithContextf(err, "loading %v", path)
	}

	log.Infof(ctx, "Reading from %v", path)
	data, err := fileio.ReadAll(ctx, fs, path)
	if err != nil {
		return nil, err
	}

	pr, err := reader.NewParquetColumnReader(buffer.NewBufferFileFromBytes(data), parallelism)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open parquet file %v", path)
	}
	defer pr.ReadStop()

	all := columns(pr.SchemaHandler)
	want := all
	if !sel.All() {
		byName := make(map[string]column, len(all))
		for _, c := range all {
			byName[c.name] = c
		}
		want = make([]column, 0, len(sel.Names()))
		for _, n := range sel.Names() {
			c, ok := byName[n]
			if !ok {
				return nil, errors.Wrapf(errors.ErrMissingColumns, "column %v not found in %v", n, path)
			}
			want = append(want, c)
		}
	}

	n := pr.GetNumRows()
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = make([]any, len(want))
	}
	names := make([]string, len(want))
	for j, c := range want {
		names[j] = c.name
		if n == 0 {
			continue
		}
		values, _, _, err := pr.ReadColumnByPath(c.exPath, n)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read column %v of %v", c.name, path)
		}
		if int64(len(values)) != n {
			return nil, errors.Errorf("column %v of %v is repeated, which is not supported", c.name, path)
		}
		for i, v := range values {
			rows[i][j] = fromParquet(v, c.elem)
		}
	}

	t := &table.Table{Columns: names, Rows: rows}
	if sel.Schema() == nil {
		return t, nil
	}
	out, err := t.Project(sel)
	if err != nil {
		return nil, errors.WithContextf(err, "loading %v", path)
	}
	return out, nil
}

// fromParquet converts a value returned by the column reader to its table
// representation.
func fromParquet(v any, elem *parquet.SchemaElement) any {
	if v == nil {
		return nil
	}
	lt := elem.GetLogicalType()
	switch x := v.(type) {
	case int32:
		switch {
		case elem.IsSetConvertedType() && elem.GetConvertedType() == parquet.ConvertedType_DATE,
			lt != nil && lt.IsSetDATE():
			return time.Unix(int64(x)*86400, 0).UTC()
		case elem.IsSetConvertedType() && elem.GetConvertedType() == parquet.ConvertedType_DECIMAL:
			return float64(x) / math.Pow10(int(elem.GetScale()))
		}
		return int64(x)
	case int64:
		if lt != nil && lt.IsSetTIMESTAMP() {
			unit := lt.GetTIMESTAMP().GetUnit()
			switch {
			case unit.IsSetMILLIS():
				return types.TIMESTAMP_MILLISToTime(x, true)
			case unit.IsSetNANOS():
				return types.TIMESTAMP_NANOSToTime(x, true)
			default:
				return types.TIMESTAMP_MICROSToTime(x, true)
			}
		}
		if elem.IsSetConvertedType() {
			switch elem.GetConvertedType() {
			case parquet.ConvertedType_TIMESTAMP_MILLIS:
				return types.TIMESTAMP_MILLISToTime(x, true)
			case parquet.ConvertedType_TIMESTAMP_MICROS:
				return types.TIMESTAMP_MICROSToTime(x, true)
			case parquet.ConvertedType_DECIMAL:
				return float64(x) / math.Pow10(int(elem.GetScale()))
			}
		}
		return x
	case float32:
		return float64(x)
	case string:
		if elem.GetType() == parquet.Type_INT96 {
			return types.INT96ToTime(x)
		}
		return x
	}
	return v
}

// Save writes t to path. Every column is OPTIONAL and typed by the table's
// fields.
func (Codec) Save(ctx context.Context, fs filesystem.Interface, t *table.Table, path string, opts format.Options) error {
	so, err := parseSaveOptions(opts)
	if err != nil {
		return errors.WithContextf(err, "saving %v", path)
	}
	fields := t.Fields()
	md, err := metadata(fields)
	if err != nil {
		return errors.WithContextf(err, "saving %v", path)
	}

	log.Infof(ctx, "Writing to %v", path)
	wc, err := fileio.Create(ctx, fs, path, fileio.CompressionAuto)
	if err != nil {
		return err
	}
	if err := write(wc, md, fields, t.Rows, so); err != nil {
		wc.Close()
		return errors.Wrapf(err, "failed to write %v", path)
	}
	if err := wc.Close(); err != nil {
		return errors.Wrapf(err, "failed to write %v", path)
	}
	return nil
}

// ValidateSave checks the save options without touching any file.
func (Codec) ValidateSave(opts format.Options) error {
	_, err := parseSaveOptions(opts)
	return err
}

func write(w io.Writer, md []string, fields []table.Field, rows [][]any, so saveOptions) error {
	pw, err := writer.NewCSVWriterFromWriter(md, w, parallelism)
	if err != nil {
		return err
	}
	pw.CompressionType = so.compression
	if so.rowGroupSize > 0 {
		pw.RowGroupSize = so.rowGroupSize
	}

	rec := make([]any, len(fields))
	for _, row := range rows {
		for j, f := range fields {
			if rec[j], err = toParquet(row[j], f.Type); err != nil {
				return errors.WithContextf(err, "column %v", f.Name)
			}
		}
		if err := pw.Write(rec); err != nil {
			return err
		}
		rec = make([]any, len(fields))
	}
	return pw.WriteStop()
}

// metadata returns the CSV writer schema of fields.
func metadata(fields []table.Field) ([]string, error) {
	md := make([]string, len(fields))
	for i, f := range fields {
		if strings.ContainsAny(f.Name, ",=") {
			return nil, errors.Errorf("column name %q cannot contain ',' or '='", f.Name)
		}
		var typ string
		switch f.Type {
		case table.Int64:
			typ = "type=INT64"
		case table.Float64:
			typ = "type=DOUBLE"
		case table.Bool:
			typ = "type=BOOLEAN"
		case table.Timestamp:
			typ = "type=INT64, convertedtype=TIMESTAMP_MICROS"
		default:
			typ = "type=BYTE_ARRAY, convertedtype=UTF8"
		}
		md[i] = fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", f.Name, typ)
	}
	return md, nil
}

// toParquet converts a table value to the physical value of a column of type
// t.
func toParquet(v any, t table.Type) (any, error) {
	v, err := table.Cast(v, t)
	if err != nil || v == nil {
		return nil, err
	}
	if ts, ok := v.(time.Time); ok {
		return types.TimeToTIMESTAMP_MICROS(ts, true), nil
	}
	return v, nil
}
