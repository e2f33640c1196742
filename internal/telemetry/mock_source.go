// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"io"
	"math"
	"sync"
)

// Generator produces the i-th reading of a mock stream.
type Generator func(i int) Reading

// MockSource emulates the microcontroller end of the serial link: it
// answers the H/A/N handshake and then streams generated lines.
type MockSource struct {
	mu        sync.Mutex
	pending   []byte
	junk      []byte
	connected bool
	closed    bool
	gen       Generator
	emitted   int
	limit     int
}

// NewMockSource returns a source that streams gen's readings once the
// handshake completes. limit caps the number of lines (0 = unbounded).
// Each byte in junk answers one "H" probe before the source acknowledges.
func NewMockSource(gen Generator, limit int, junk ...byte) *MockSource {
	return &MockSource{gen: gen, limit: limit, junk: junk}
}

func (m *MockSource) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, io.ErrClosedPipe
	}
	for _, b := range p {
		switch b {
		case 'H':
			if len(m.junk) > 0 {
				m.pending = append(m.pending, m.junk[0])
				m.junk = m.junk[1:]
				continue
			}
			m.pending = append(m.pending, 'A')
		case 'N':
			m.pending = append(m.pending, '!')
			m.connected = true
		}
	}
	return len(p), nil
}

func (m *MockSource) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, io.ErrClosedPipe
	}
	if len(m.pending) == 0 && m.connected && (m.limit == 0 || m.emitted < m.limit) {
		m.pending = append(m.pending, m.gen(m.emitted).Format()...)
		m.emitted++
	}
	if len(m.pending) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.pending)
	m.pending = m.pending[n:]
	return n, nil
}

// Close makes every further Read and Write fail, unblocking the reader.
func (m *MockSource) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Connected reports whether the handshake has been acknowledged.
func (m *MockSource) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// DanceGenerator alternates idle stretches with oscillating "moves" of
// segment rows each, at sampleHz. The power channels drift slowly.
func DanceGenerator(segment int, sampleHz float64) Generator {
	return func(i int) Reading {
		t := float64(i) / sampleHz
		moving := (i/segment)%2 == 1
		var r Reading
		for ch := 0; ch < auxOffset; ch++ {
			if moving {
				r[ch] = 2 * math.Sin(2*math.Pi*(1.5+float64(ch)*0.2)*t)
			} else {
				r[ch] = 0.01 * math.Sin(float64(i+ch))
			}
		}
		r[auxOffset] = 5 + 0.05*math.Sin(t)
		r[auxOffset+1] = 0.4
		r[auxOffset+2] = r[auxOffset] * r[auxOffset+1]
		r[auxOffset+3] = r[auxOffset+2] * t
		return r
	}
}
