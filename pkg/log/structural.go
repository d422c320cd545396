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
	slogger "log/slog"
)

// Structural routes messages to a slog logger, with the context attributes as
// string attributes. A nil Logger logs to the slog default.
type Structural struct {
	Logger *slogger.Logger
}

func slogLevel(sev Severity) slogger.Level {
	switch sev {
	case SevDebug:
		return slogger.LevelDebug
	case SevWarn:
		return slogger.LevelWarn
	case SevError:
		return slogger.LevelError
	default:
		return slogger.LevelInfo
	}
}

// Log logs the message at the slog level matching sev.
func (s *Structural) Log(ctx context.Context, sev Severity, _ int, msg string) {
	l := s.Logger
	if l == nil {
		l = slogger.Default()
	}
	attrs := Attrs(ctx)
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = slogger.String(a.Key, a.Value)
	}
	l.Log(ctx, slogLevel(sev), msg, args...)
}
