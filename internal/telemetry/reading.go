// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"strconv"
	"strings"
)

const (
	// Channels is the number of comma-separated fields in one telemetry line.
	Channels = 13
	// MovementChannels are the leading fields fed to the feature extractor.
	MovementChannels = 10
	// AuxChannels are the trailing power fields (voltage, current, power,
	// energy) used by the reporter. Voltage is also the last movement field.
	AuxChannels = 4
	auxOffset   = Channels - AuxChannels
)

// Reading is one parsed telemetry line, in wire order:
// acc1 xyz, acc2 xyz, gyro xyz, voltage, current, power, energy.
type Reading [Channels]float64

// Movement returns the first MovementChannels fields.
func (r Reading) Movement() [MovementChannels]float64 {
	var m [MovementChannels]float64
	copy(m[:], r[:MovementChannels])
	return m
}

// Aux returns the last AuxChannels fields.
func (r Reading) Aux() [AuxChannels]float64 {
	var a [AuxChannels]float64
	copy(a[:], r[auxOffset:])
	return a
}

// ParseReading parses a (possibly \r terminated) CSV line with exactly
// Channels numeric fields.
func ParseReading(line string) (Reading, error) {
	var r Reading

	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(fields) != Channels {
		return r, &ParseError{Line: line, Field: -1, Err: errFieldCount(len(fields))}
	}

	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return r, &ParseError{Line: line, Field: i, Err: err}
		}
		r[i] = v
	}
	return r, nil
}

// Format renders the reading as a wire line, \r included.
func (r Reading) Format() string {
	var b strings.Builder
	for i, v := range r {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	b.WriteByte(LineTerminator)
	return b.String()
}
