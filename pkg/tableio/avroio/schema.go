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

package avroio

import (
	"encoding/json"
	"math"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/table"
	"github.com/linkedin/goavro/v2"
)

// logicalTypes are the logical types goavro decodes to native Go values. Other
// logicalType annotations are ignored and the underlying type is used.
var logicalTypes = map[string]bool{
	"timestamp-millis": true,
	"timestamp-micros": true,
	"time-millis":      true,
	"time-micros":      true,
	"date":             true,
	"decimal":          true,
}

// field is one field of a record schema. branch is the goavro type name of
// the field's value, e.g. "string" or "long.timestamp-micros"; for a union it
// is the first non-null member.
type field struct {
	name     string
	branch   string
	union    bool
	nullable bool
}

// parseFields returns the fields of a record schema.
func parseFields(schema string) ([]field, error) {
	var rs struct {
		Type   any `json:"type"`
		Fields []struct {
			Name string          `json:"name"`
			Type json.RawMessage `json:"type"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(schema), &rs); err != nil {
		return nil, errors.Wrapf(errors.ErrUnsupportedOption, "schema is not valid JSON: %v", err)
	}
	if rs.Type != "record" {
		return nil, errors.Wrapf(errors.ErrUnsupportedOption, "schema type is %v, not record", rs.Type)
	}
	fields := make([]field, len(rs.Fields))
	for i, f := range rs.Fields {
		var t any
		if err := json.Unmarshal(f.Type, &t); err != nil {
			return nil, errors.Wrapf(errors.ErrUnsupportedOption, "field %v: %v", f.Name, err)
		}
		fields[i] = field{name: f.Name}
		members, ok := t.([]any)
		if !ok {
			fields[i].branch = typeName(t)
			fields[i].nullable = fields[i].branch == "null"
			continue
		}
		fields[i].union = true
		for _, m := range members {
			switch n := typeName(m); {
			case n == "null":
				fields[i].nullable = true
			case fields[i].branch == "":
				fields[i].branch = n
			}
		}
	}
	return fields, nil
}

// typeName returns the name goavro gives a type in union values.
func typeName(t any) string {
	switch x := t.(type) {
	case string:
		return x
	case map[string]any:
		typ, _ := x["type"].(string)
		switch typ {
		case "record", "enum", "fixed":
			name, _ := x["name"].(string)
			if ns, _ := x["namespace"].(string); ns != "" {
				return ns + "." + name
			}
			return name
		}
		if lt, _ := x["logicalType"].(string); logicalTypes[lt] {
			return typ + "." + lt
		}
		return typ
	}
	return ""
}

// unwrap returns the value of a decoded union.
func (f field) unwrap(v any) any {
	if !f.union {
		return v
	}
	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		for _, x := range m {
			return x
		}
	}
	return v
}

// wrap converts a table value to the native form goavro encodes for f.
func (f field) wrap(v any) (any, error) {
	if v == nil {
		if !f.nullable {
			return nil, errors.Errorf("field %v is not nullable", f.name)
		}
		return nil, nil
	}
	native, err := convert(v, f.branch)
	if err != nil {
		return nil, errors.WithContextf(err, "field %v", f.name)
	}
	if f.union {
		return goavro.Union(f.branch, native), nil
	}
	return native, nil
}

func convert(v any, branch string) (any, error) {
	switch branch {
	case "string":
		return table.Cast(v, table.String)
	case "bytes":
		s, err := table.Cast(v, table.String)
		if err != nil {
			return nil, err
		}
		return []byte(s.(string)), nil
	case "long":
		return table.Cast(v, table.Int64)
	case "int":
		x, err := table.Cast(v, table.Int64)
		if err != nil {
			return nil, err
		}
		i := x.(int64)
		if i < math.MinInt32 || i > math.MaxInt32 {
			return nil, errors.Errorf("%v is out of range for int", i)
		}
		return int32(i), nil
	case "double":
		return table.Cast(v, table.Float64)
	case "float":
		x, err := table.Cast(v, table.Float64)
		if err != nil {
			return nil, err
		}
		f := x.(float64)
		if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
			return nil, errors.Errorf("%v is out of range for float", f)
		}
		return float32(f), nil
	case "boolean":
		return table.Cast(v, table.Bool)
	case "long.timestamp-micros", "long.timestamp-millis", "int.date":
		return table.Cast(v, table.Timestamp)
	}
	return v, nil
}

// recordSchema returns the Avro schema Save writes t with when no existing
// file supplies one.
func (so saveOptions) recordSchema(t *table.Table) (string, error) {
	switch {
	case so.schema != "":
		return so.schema, nil
	case so.fields != nil:
		return tableSchema(so.fields, so.micros)
	case so.names != nil:
		all := t.Fields()
		fields := make([]table.Field, len(so.names))
		for i, n := range so.names {
			j := t.ColumnIndex(n)
			if j < 0 {
				return "", errors.Wrapf(errors.ErrMissingColumns, "column %v is not in %v", n, t.Columns)
			}
			fields[i] = all[j]
		}
		return tableSchema(fields, so.micros)
	}
	return tableSchema(t.Fields(), so.micros)
}

type recordField struct {
	Name string `json:"name"`
	Type []any  `json:"type"`
}

type record struct {
	Type   string        `json:"type"`
	Name   string        `json:"name"`
	Fields []recordField `json:"fields"`
}

// tableSchema returns a record schema with one nullable field per table
// field.
func tableSchema(fields []table.Field, micros bool) (string, error) {
	rec := record{Type: "record", Name: RecordName, Fields: make([]recordField, len(fields))}
	for i, f := range fields {
		var t any
		switch f.Type {
		case table.String:
			t = "string"
		case table.Int64:
			t = "long"
		case table.Float64:
			t = "double"
		case table.Bool:
			t = "boolean"
		case table.Timestamp:
			lt := "timestamp-micros"
			if !micros {
				lt = "timestamp-millis"
			}
			t = map[string]string{"type": "long", "logicalType": lt}
		default:
			return "", errors.Errorf("column %v has unsupported type %v", f.Name, f.Type)
		}
		rec.Fields[i] = recordField{Name: f.Name, Type: []any{"null", t}}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
