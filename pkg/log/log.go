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

// Package log contains a re-targetable context-aware logging system. Library
// code logs through the package functions; the binary decides where the
// messages go by installing a Logger. Key/value attributes attached to a
// context with WithAttrs are handed to the Logger along with each message.
package log

import (
	"context"
	"fmt"
)

// Severity is the severity of the log message.
type Severity int

const (
	SevUnspecified Severity = iota
	SevDebug
	SevInfo
	SevWarn
	SevError
)

var sevNames = [...]string{
	SevUnspecified: "UNSPECIFIED",
	SevDebug:       "DEBUG",
	SevInfo:        "INFO",
	SevWarn:        "WARN",
	SevError:       "ERROR",
}

// String returns the upper case name of the severity.
func (s Severity) String() string {
	if s < 0 || int(s) >= len(sevNames) {
		return sevNames[SevUnspecified]
	}
	return sevNames[s]
}

// Logger is a context-aware logging backend. Must be concurrency safe.
type Logger interface {
	// Log logs msg. calldepth is the number of frames between Log and the
	// code that logged. Backends read attributes with Attrs(ctx).
	Log(ctx context.Context, sev Severity, calldepth int, msg string)
}

var logger Logger = &Standard{}

// SetLogger sets the global Logger. Intended to be called during initialization
// only.
func SetLogger(l Logger) {
	if l == nil {
		panic("Logger cannot be nil")
	}
	logger = l
}

// Attr is a key/value pair logged with every message of a context.
type Attr struct {
	Key, Value string
}

type attrsKey struct{}

// WithAttrs returns a copy of ctx carrying the given key/value pairs after
// those already on ctx. A trailing key without a value is dropped.
//
//	ctx = log.WithAttrs(ctx, "path", "s3://bucket/a.parquet", "format", "parquet")
func WithAttrs(ctx context.Context, kv ...string) context.Context {
	prev := Attrs(ctx)
	attrs := make([]Attr, len(prev), len(prev)+len(kv)/2)
	copy(attrs, prev)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, Attr{Key: kv[i], Value: kv[i+1]})
	}
	return context.WithValue(ctx, attrsKey{}, attrs)
}

// Attrs returns the attributes of ctx, oldest first.
func Attrs(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(attrsKey{}).([]Attr)
	return attrs
}

// logf is called by the package functions only, so the logging code is
// always three frames above the Logger.
func logf(ctx context.Context, sev Severity, msg string) {
	logger.Log(ctx, sev, 3, msg)
}

// Debugf logs the fmt.Sprintf-formatted arguments with debug severity.
func Debugf(ctx context.Context, format string, v ...any) {
	logf(ctx, SevDebug, fmt.Sprintf(format, v...))
}

// Info logs the fmt.Sprint-formatted arguments with info severity.
func Info(ctx context.Context, v ...any) {
	logf(ctx, SevInfo, fmt.Sprint(v...))
}

// Infof logs the fmt.Sprintf-formatted arguments with info severity.
func Infof(ctx context.Context, format string, v ...any) {
	logf(ctx, SevInfo, fmt.Sprintf(format, v...))
}

// Warnf logs the fmt.Sprintf-formatted arguments with warn severity.
func Warnf(ctx context.Context, format string, v ...any) {
	logf(ctx, SevWarn, fmt.Sprintf(format, v...))
}

// Errorf logs the fmt.Sprintf-formatted arguments with error severity.
func Errorf(ctx context.Context, format string, v ...any) {
	logf(ctx, SevError, fmt.Sprintf(format, v...))
}
