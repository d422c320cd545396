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

package cmd

import (
	"os"
	"strings"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/table"
	"github.com/apache/beam/tableio/pkg/tableio"
	"github.com/apache/beam/tableio/pkg/tableio/format"
	"gopkg.in/yaml.v3"
)

// codecOptions merges the options file with the --option flags. Values are
// typed as YAML scalars, so "header=true" passes a bool and "sep=;" a string.
func (s *settings) codecOptions() (format.Options, error) {
	opts := format.Options{}
	if s.optionsFile != "" {
		data, err := os.ReadFile(s.optionsFile)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return nil, errors.Wrapf(err, "failed to parse options file %v", s.optionsFile)
		}
	}
	for _, kv := range s.options {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, errors.Errorf("option %q is not of the form key=value", kv)
		}
		opts[k] = scalar(v)
	}
	return opts, nil
}

// scalar returns v decoded as a YAML scalar. Blank values and values that are
// not scalars stay text.
func scalar(v string) any {
	if strings.TrimSpace(v) == "" {
		return v
	}
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(v), &n); err != nil || len(n.Content) != 1 || n.Content[0].Kind != yaml.ScalarNode {
		return v
	}
	var out any
	if err := n.Content[0].Decode(&out); err != nil {
		return v
	}
	return out
}

// selection parses --columns.
func (s *settings) selection() (table.Selection, error) {
	if strings.TrimSpace(s.columns) == "" {
		return table.Selection{}, nil
	}
	if strings.Contains(s.columns, ":") {
		schema, err := table.ParseSchema(s.columns)
		if err != nil {
			return table.Selection{}, errors.WithContext(err, "parsing --columns")
		}
		return table.SchemaColumns(schema), nil
	}
	var names []string
	for _, n := range strings.Split(s.columns, ",") {
		names = append(names, strings.TrimSpace(n))
	}
	return table.Columns(names...), nil
}

func (s *settings) loadOptions() ([]tableio.LoadOption, error) {
	opts, err := s.codecOptions()
	if err != nil {
		return nil, err
	}
	sel, err := s.selection()
	if err != nil {
		return nil, err
	}
	ret := []tableio.LoadOption{tableio.WithOptions(opts), tableio.WithColumns(sel)}
	if s.format != "" {
		ret = append(ret, tableio.WithFormat(s.format))
	}
	return ret, nil
}
