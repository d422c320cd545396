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

// Package errors contains the error taxonomy of the tabular I/O layer and
// helpers for wrapping errors with the offending path or option.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned for a violated constraint wraps exactly one
// of these, so callers can test for them with Is.
var (
	// ErrUnsupportedFormat is returned for an unrecognized suffix or format hint.
	ErrUnsupportedFormat = New("unsupported format")
	// ErrInvalidPath is returned when a glob pattern is present where a single
	// file is required, or when a path cannot be parsed as a URI.
	ErrInvalidPath = New("invalid path")
	// ErrMissingColumns is returned when columns are required but absent, or
	// when a selected column does not exist in the file.
	ErrMissingColumns = New("missing columns")
	// ErrUnsupportedOption is returned for an invalid or conflicting option.
	ErrUnsupportedOption = New("unsupported option")
	// ErrAlreadyExists is returned when saving onto an existing destination
	// with mode "error".
	ErrAlreadyExists = New("already exists")
)

// New returns an error with the given message.
func New(message string) error {
	return stderrors.New(message)
}

// Errorf returns an error with a message formatted according to the format
// specifier.
func Errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Wrap returns a new error annotating err with a new message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &ioError{cause: err, msg: message}
}

// Wrapf returns a new error annotating err with a new message according to
// the format specifier.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &ioError{cause: err, msg: fmt.Sprintf(format, args...)}
}

// WithContext returns a new error adding additional context to err, such as
// the operation or file being processed.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return &ioError{cause: err, context: context}
}

// WithContextf returns a new error adding additional context to err according
// to the format specifier.
func WithContextf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &ioError{cause: err, context: fmt.Sprintf(format, args...)}
}

// ioError is one link in a chain of annotations. Contexts name what was being
// done, messages describe what went wrong. The cause is never nil.
type ioError struct {
	cause   error
	context string
	msg     string
}

// Error renders the chain outermost first on a single line, contexts in
// brackets, e.g. "[loading a.csv] columns must be set: missing columns".
func (e *ioError) Error() string {
	var parts []string
	var err error = e
	for err != nil {
		ie, ok := err.(*ioError)
		if !ok {
			parts = append(parts, err.Error())
			break
		}
		if ie.context != "" {
			parts = append(parts, "["+ie.context+"]")
		}
		if ie.msg != "" {
			parts = append(parts, ie.msg+":")
		}
		err = ie.cause
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the cause of this error.
func (e *ioError) Unwrap() error {
	return e.cause
}
