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

// Package table contains the in-memory tabular data the codecs produce and
// consume: a Table of rows, its optional declared Schema and the column
// Selection a caller may apply when loading.
package table

import (
	"fmt"
	"strings"

	"github.com/apache/beam/tableio/internal/errors"
)

// Type is the declared type of a column.
type Type int

const (
	String Type = iota + 1
	Int64
	Float64
	Bool
	Timestamp
)

var typeNames = map[Type]string{
	String:    "str",
	Int64:     "long",
	Float64:   "double",
	Bool:      "bool",
	Timestamp: "datetime",
}

var typeAliases = map[string]Type{
	"str":       String,
	"string":    String,
	"int":       Int64,
	"int32":     Int64,
	"int64":     Int64,
	"long":      Int64,
	"float":     Float64,
	"float32":   Float64,
	"float64":   Float64,
	"double":    Float64,
	"bool":      Bool,
	"boolean":   Bool,
	"datetime":  Timestamp,
	"timestamp": Timestamp,
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType parses a type name such as "str", "long" or "datetime".
func ParseType(name string) (Type, error) {
	if t, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t, nil
	}
	return 0, errors.Errorf("unknown column type %q", name)
}

// Field is a named, typed column.
type Field struct {
	Name string
	Type Type
}

// Schema is an ordered list of uniquely named fields. A Schema is immutable
// once constructed.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema returns a schema of the given fields. Names must be non-empty and
// unique.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{fields: make([]Field, len(fields)), index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if f.Name == "" {
			return nil, errors.Errorf("field %d has an empty name", i)
		}
		if _, ok := typeNames[f.Type]; !ok {
			return nil, errors.Errorf("field %v has invalid type %v", f.Name, f.Type)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, errors.Errorf("duplicate field %v", f.Name)
		}
		s.fields[i] = f
		s.index[f.Name] = i
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error. Intended for tests and
// package level variables.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseSchema parses a schema expression of comma separated name:type pairs,
// e.g. "a:str,b:long,c:double".
func ParseSchema(expr string) (*Schema, error) {
	var fields []Field
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typ, ok := strings.Cut(part, ":")
		if !ok {
			return nil, errors.Errorf("invalid schema expression %q: %q has no type", expr, part)
		}
		t, err := ParseType(typ)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid schema expression %q", expr)
		}
		fields = append(fields, Field{Name: strings.TrimSpace(name), Type: t})
	}
	if len(fields) == 0 {
		return nil, errors.Errorf("invalid schema expression %q: no fields", expr)
	}
	return NewSchema(fields...)
}

// Fields returns a copy of the schema's fields.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Names returns the field names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the field with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Equal reports whether both schemas have the same fields in the same order.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}

// String returns the schema expression, e.g. "a:str,b:long".
func (s *Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.Name + ":" + f.Type.String()
	}
	return strings.Join(parts, ",")
}
