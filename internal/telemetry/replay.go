// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"bufio"
	"bytes"
	"io"
)

// ReplaySource yields readings from a recorded capture. Lines may end in
// '\r', '\n' or "\r\n"; blank lines are skipped. The end of the capture is
// reported as a *StreamError wrapping io.EOF, like a closed port.
type ReplaySource struct {
	sc    *bufio.Scanner
	lines int
}

func NewReplaySource(r io.Reader) *ReplaySource {
	sc := bufio.NewScanner(r)
	sc.Split(scanTelemetryLines)
	return &ReplaySource{sc: sc}
}

func (s *ReplaySource) Next() (Reading, error) {
	for s.sc.Scan() {
		line := s.sc.Text()
		if line == "" {
			continue
		}
		s.lines++
		return ParseReading(line)
	}
	err := s.sc.Err()
	if err == nil {
		err = io.EOF
	}
	return Reading{}, &StreamError{Op: "replay", Err: err}
}

// Lines returns the number of non-blank lines read so far.
func (s *ReplaySource) Lines() int { return s.lines }

func scanTelemetryLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
