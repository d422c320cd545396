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
	"fmt"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/apache/beam/tableio/pkg/tableio"
	"github.com/apache/beam/tableio/pkg/tableio/pathspec"
	"github.com/spf13/cobra"
)

func newFilesCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "files PATH...",
		Short: "List the files the paths resolve to, with their format",
		Args:  cobra.MinimumNArgs(1),
		RunE:  s.filesE,
	}
}

func (s *settings) filesE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	for _, arg := range args {
		ps, err := pathspec.Parse(arg, s.format)
		if err != nil {
			return err
		}
		fs, err := filesystem.New(ctx, ps.Path)
		if err != nil {
			return errors.Wrapf(tableio.ErrInvalidPath, "no file system for %v: %v", ps.Path, err)
		}

		it := tableio.Files(ctx, fs, ps)
		for it.Next() {
			fmt.Fprintf(cmd.OutOrStdout(), "%v\t%v\n", it.Spec().Path, it.Spec().Format)
		}
		err = it.Err()
		fs.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
