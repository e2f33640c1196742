// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"errors"
	"fmt"
)

// ErrReadTimeout is reported when the port returns no byte within its
// inter-character timeout.
var ErrReadTimeout = errors.New("serial read timeout")

// StreamError is an I/O failure on the telemetry channel.
type StreamError struct {
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("telemetry stream %s: %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// ParseError is a malformed telemetry line. Field is the zero-based index
// of the offending field, or -1 when the field count is wrong.
type ParseError struct {
	Line  string
	Field int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field < 0 {
		return fmt.Sprintf("telemetry parse %q: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("telemetry parse %q field %d: %v", e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func errFieldCount(n int) error {
	return fmt.Errorf("expected %d fields, got %d", Channels, n)
}
