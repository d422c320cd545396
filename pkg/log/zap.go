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

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap routes messages to a zap logger, with the context attributes as string
// fields.
type Zap struct {
	z *zap.Logger
}

// NewZap returns a Logger backed by z. Caller information is computed from the
// call depth handed to Log.
func NewZap(z *zap.Logger) *Zap {
	return &Zap{z: z.WithOptions(zap.AddCaller())}
}

func zapLevel(sev Severity) zapcore.Level {
	switch sev {
	case SevDebug:
		return zapcore.DebugLevel
	case SevWarn:
		return zapcore.WarnLevel
	case SevError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Log logs the message at the zap level matching sev.
func (l *Zap) Log(ctx context.Context, sev Severity, calldepth int, msg string) {
	ce := l.z.WithOptions(zap.AddCallerSkip(calldepth)).Check(zapLevel(sev), msg)
	if ce == nil {
		return
	}
	attrs := Attrs(ctx)
	fields := make([]zap.Field, len(attrs))
	for i, a := range attrs {
		fields[i] = zap.String(a.Key, a.Value)
	}
	ce.Write(fields...)
}

// Sync flushes any buffered log entries.
func (l *Zap) Sync() error {
	return l.z.Sync()
}
