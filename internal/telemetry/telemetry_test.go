// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLineKeepsTerminator(t *testing.T) {
	lr := NewLineReader(strings.NewReader("1,2\rnext\r"))

	line, err := lr.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "1,2\r", line)

	line, err = lr.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "next\r", line)

	_, err = lr.ReadLine()
	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, io.EOF)
}

type zeroReader struct{}

func (zeroReader) Read([]byte) (int, error) { return 0, nil }

func TestReadLineTimeout(t *testing.T) {
	_, err := NewLineReader(zeroReader{}).ReadLine()
	assert.ErrorIs(t, err, ErrReadTimeout)
}

func TestParseReadingRoundTrip(t *testing.T) {
	want := Reading{0.1, -0.2, 9.81, 1e-3, 42, -7.5, 100.25, -0.0001, 3, 5.02, 0.41, 2.06, 1234.5}

	lr := NewLineReader(strings.NewReader(want.Format()))
	got, err := lr.Next()
	require.NoError(t, err)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12, "channel %d", i)
	}
}

func TestParseReadingTrimsFields(t *testing.T) {
	r, err := ParseReading(" 1, 2 ,3,4,5,6,7,8,9,10,11,12, 13\r")
	require.NoError(t, err)
	assert.Equal(t, 13.0, r[12])
	assert.Equal(t, [MovementChannels]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, r.Movement())
	assert.Equal(t, [AuxChannels]float64{10, 11, 12, 13}, r.Aux())
}

func TestParseReadingErrors(t *testing.T) {
	_, err := ParseReading("1,2,3\r")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, -1, pe.Field)

	_, err = ParseReading("1,2,3,4,5,x,7,8,9,10,11,12,13\r")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 5, pe.Field)
	assert.True(t, errors.As(err, &pe))
}

func TestMockSourceHandshakeAndStream(t *testing.T) {
	src := NewMockSource(func(i int) Reading { return Reading{float64(i)} }, 2, 'X')
	buf := make([]byte, 1)

	_, _ = src.Write([]byte("H"))
	_, err := src.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, byte('X'), buf[0])

	_, _ = src.Write([]byte("H"))
	_, _ = src.Read(buf)
	assert.Equal(t, byte('A'), buf[0])

	_, _ = src.Write([]byte("N"))
	_, _ = src.Read(buf)
	assert.True(t, src.Connected())

	lr := NewLineReader(src)
	r, err := lr.Next()
	require.NoError(t, err)
	assert.Equal(t, 0.0, r[0])
	r, err = lr.Next()
	require.NoError(t, err)
	assert.Equal(t, 1.0, r[0])

	_, err = lr.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMockSourceClose(t *testing.T) {
	src := NewMockSource(DanceGenerator(128, 50), 0)
	require.NoError(t, src.Close())
	_, err := src.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestReplaySource(t *testing.T) {
	var r Reading
	for i := range r {
		r[i] = float64(i)
	}
	capture := r.Format() + "\n" + r.Format() + "\r\n\n" + "1,2,3\n" + r.Format()[:len(r.Format())-1]

	src := NewReplaySource(strings.NewReader(capture))
	for i := 0; i < 2; i++ {
		got, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := src.Next()
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)

	got, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, r, got)
	assert.Equal(t, 4, src.Lines())

	_, err = src.Next()
	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, io.EOF)
}
