// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import "io"

// LineTerminator ends every telemetry line sent by the microcontroller.
const LineTerminator = '\r'

// LineReader reads \r terminated lines one byte at a time. It never reads
// past the terminator, so nothing is buffered between calls.
type LineReader struct {
	r   io.Reader
	buf [1]byte
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: r}
}

// ReadByte reads exactly one byte. A zero-length read without error is the
// serial port's inter-character timeout and is reported as ErrReadTimeout.
func (lr *LineReader) ReadByte() (byte, error) {
	n, err := lr.r.Read(lr.buf[:])
	if n == 1 {
		return lr.buf[0], nil
	}
	if err == nil {
		err = ErrReadTimeout
	}
	return 0, &StreamError{Op: "read", Err: err}
}

// ReadLine returns the accumulated text up to and including the terminator.
func (lr *LineReader) ReadLine() (string, error) {
	var line []byte
	for {
		b, err := lr.ReadByte()
		if err != nil {
			return "", err
		}
		line = append(line, b)
		if b == LineTerminator {
			return string(line), nil
		}
	}
}

// Next reads and parses one telemetry line.
func (lr *LineReader) Next() (Reading, error) {
	line, err := lr.ReadLine()
	if err != nil {
		return Reading{}, err
	}
	return ParseReading(line)
}
