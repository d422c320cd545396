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

package table

import "strings"

// Selection constrains the columns a load returns. The zero value selects every
// column the file has.
type Selection struct {
	set    bool
	names  []string
	schema *Schema
}

// Columns selects exactly the named columns, in the given order.
func Columns(names ...string) Selection {
	return Selection{set: true, names: append([]string{}, names...)}
}

// SchemaColumns selects the columns named by s. Loads with this selection cast
// values to the declared types and attach s to the result.
func SchemaColumns(s *Schema) Selection {
	if s == nil {
		return Selection{}
	}
	return Selection{set: true, names: s.Names(), schema: s}
}

// All reports whether the selection places no constraint on columns.
func (s Selection) All() bool {
	return !s.set
}

// Names returns the selected column names, or nil when all columns are
// selected.
func (s Selection) Names() []string {
	if !s.set {
		return nil
	}
	return append([]string{}, s.names...)
}

// Schema returns the structured schema of the selection, if any.
func (s Selection) Schema() *Schema {
	return s.schema
}

func (s Selection) String() string {
	switch {
	case !s.set:
		return "*"
	case s.schema != nil:
		return s.schema.String()
	default:
		return strings.Join(s.names, ",")
	}
}

