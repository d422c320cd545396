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

// Package cmd contains the tableio commands.
package cmd

import (
	"io"
	slogger "log/slog"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// settings holds the flags shared by all commands.
type settings struct {
	format      string
	columns     string
	options     []string
	optionsFile string
	logFormat   string
	verbose     bool
}

// NewRoot returns the tableio command with all subcommands attached.
func NewRoot() *cobra.Command {
	s := &settings{}
	root := &cobra.Command{
		Use:               "tableio",
		Short:             "tableio inspects CSV, Parquet, JSON and Avro files",
		SilenceUsage:      true,
		PersistentPreRunE: s.setupLogging,
	}

	f := root.PersistentFlags()
	f.StringVarP(&s.format, "format", "f", "", "File format: csv, parquet, json or avro. Inferred from the path suffix when unset.")
	f.StringVarP(&s.columns, "columns", "c", "", `Columns to load, as names ("id,name") or a schema ("id:long,name:str").`)
	f.StringArrayVarP(&s.options, "option", "o", nil, "Codec option as key=value. May be repeated.")
	f.StringVar(&s.optionsFile, "options-file", "", "YAML file of codec options. --option takes precedence.")
	f.StringVar(&s.logFormat, "log-format", "zap", "Log output: zap, text or json.")
	f.BoolVarP(&s.verbose, "verbose", "v", false, "Log debug messages.")

	root.AddCommand(newFilesCmd(s), newSchemaCmd(s), newHeadCmd(s), newCountCmd(s))
	return root
}

// setupLogging installs the logger selected by --log-format. Logs go to the
// command's error output.
func (s *settings) setupLogging(cmd *cobra.Command, _ []string) error {
	w := cmd.ErrOrStderr()
	switch s.logFormat {
	case "zap":
		log.SetLogger(log.NewZap(newZap(w, s.verbose)))
	case "text":
		min := log.SevInfo
		if s.verbose {
			min = log.SevDebug
		}
		log.SetLogger(log.NewStandard(w, min))
	case "json":
		level := slogger.LevelInfo
		if s.verbose {
			level = slogger.LevelDebug
		}
		h := slogger.NewJSONHandler(w, &slogger.HandlerOptions{Level: level})
		log.SetLogger(&log.Structural{Logger: slogger.New(h)})
	default:
		return errors.Errorf("unknown --log-format %q, want zap, text or json", s.logFormat)
	}
	return nil
}

func newZap(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
}
