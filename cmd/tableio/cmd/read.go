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
	"encoding/csv"
	"fmt"

	"github.com/apache/beam/tableio/pkg/table"
	"github.com/apache/beam/tableio/pkg/tableio"
	"github.com/spf13/cobra"
)

func newSchemaCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "schema PATH...",
		Short: "Print the columns and their types",
		Args:  cobra.MinimumNArgs(1),
		RunE:  s.schemaE,
	}
}

func newHeadCmd(s *settings) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "head PATH...",
		Short: "Print the first rows as CSV",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.headE(cmd, args, n)
		},
	}
	cmd.Flags().IntVarP(&n, "rows", "n", 10, "Number of rows to print. Negative prints all rows.")
	return cmd
}

func newCountCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "count PATH...",
		Short: "Print the number of rows",
		Args:  cobra.MinimumNArgs(1),
		RunE:  s.countE,
	}
}

func (s *settings) load(cmd *cobra.Command, paths []string) (*table.Table, error) {
	opts, err := s.loadOptions()
	if err != nil {
		return nil, err
	}
	return tableio.Load(cmd.Context(), paths, opts...)
}

func (s *settings) schemaE(cmd *cobra.Command, args []string) error {
	t, err := s.load(cmd, args)
	if err != nil {
		return err
	}
	for _, f := range t.Fields() {
		fmt.Fprintf(cmd.OutOrStdout(), "%v\t%v\n", f.Name, f.Type)
	}
	return nil
}

func (s *settings) headE(cmd *cobra.Command, args []string, n int) error {
	t, err := s.load(cmd, args)
	if err != nil {
		return err
	}
	rows := t.Rows
	if n >= 0 && n < len(rows) {
		rows = rows[:n]
	}

	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write(t.Columns); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, row := range rows {
		for j, v := range row {
			str, err := table.Cast(v, table.String)
			if err != nil {
				return err
			}
			rec[j], _ = str.(string)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (s *settings) countE(cmd *cobra.Command, args []string) error {
	t, err := s.load(cmd, args)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.NumRows())
	return nil
}
