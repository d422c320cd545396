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

package log

import (
	"context"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
)

// Standard writes one line per message through the standard Go logger, as
// "SEVERITY message key=value ...". Messages below MinSeverity are dropped.
// The zero value writes to stderr.
type Standard struct {
	MinSeverity Severity

	once sync.Once
	out  *stdlog.Logger
}

// NewStandard returns a Standard logger writing to w.
func NewStandard(w io.Writer, min Severity) *Standard {
	return &Standard{MinSeverity: min, out: newStdLogger(w)}
}

func newStdLogger(w io.Writer) *stdlog.Logger {
	return stdlog.New(w, "", stdlog.LstdFlags|stdlog.Lshortfile)
}

// Log formats the message and its context attributes on one line.
func (s *Standard) Log(ctx context.Context, sev Severity, calldepth int, msg string) {
	if sev < s.MinSeverity {
		return
	}
	s.once.Do(func() {
		if s.out == nil {
			s.out = newStdLogger(os.Stderr)
		}
	})

	var b strings.Builder
	b.WriteString(sev.String())
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, a := range Attrs(ctx) {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(a.Value)
	}
	s.out.Output(calldepth+1, b.String())
}
