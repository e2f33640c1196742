// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/dance_edge/internal/report"
)

func litPixels(img *image1bit.VerticalLSB) int {
	n := 0
	for _, b := range img.Pix {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestRenderDetection(t *testing.T) {
	waiting := renderDetection(report.Envelope{}, false)
	move := renderDetection(report.Envelope{Label: "wipers", Voltage: 5, Current: 0.4, Power: 2, Energy: 12}, true)
	logout := renderDetection(report.Envelope{Label: "logout", Logout: true}, true)

	assert.Greater(t, litPixels(waiting), 0)
	assert.Greater(t, litPixels(move), litPixels(logout))
	assert.NotEqual(t, waiting.Pix, move.Pix)
	assert.Greater(t, litPixels(renderSplash()), 0)
}

type recordingBus struct {
	addrs []uint16
}

func (b *recordingBus) String() string                     { return "fake" }
func (b *recordingBus) SetSpeed(physic.Frequency) error    { return nil }
func (b *recordingBus) Tx(addr uint16, w, r []byte) error { b.addrs = append(b.addrs, addr); return nil }

func TestAddrBusRewritesAddress(t *testing.T) {
	inner := &recordingBus{}
	bus := &addrBus{Bus: inner, addr: 0x3D}
	require.NoError(t, bus.Tx(0x3C, []byte{0}, nil))
	assert.Equal(t, []uint16{0x3D}, inner.addrs)
}

func TestPrintRecord(t *testing.T) {
	var buf bytes.Buffer
	printRecord(&buf, "#chicken|5.0|0.4|2.0|12.5|")
	printRecord(&buf, "logout")
	printRecord(&buf, "#broken|")

	out := buf.String()
	assert.Contains(t, out, "[MOVE] chicken")
	assert.Contains(t, out, "P=  2.00")
	assert.Contains(t, out, "[LOGOUT] logout")
	assert.NotContains(t, out, "broken")
}

type eofPort struct {
	n   int
	err error
}

func (p *eofPort) Read([]byte) (int, error)    { return p.n, p.err }
func (p *eofPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *eofPort) Close() error                { return nil }

func TestTimeoutPortMapsEmptyEOF(t *testing.T) {
	n, err := (&timeoutPort{&eofPort{err: io.EOF}}).Read(make([]byte, 1))
	assert.Equal(t, 0, n)
	assert.NoError(t, err)

	boom := errors.New("input/output error")
	_, err = (&timeoutPort{&eofPort{err: boom}}).Read(make([]byte, 1))
	assert.ErrorIs(t, err, boom)
}

func TestStatusLEDNilIsNoop(t *testing.T) {
	var led *StatusLED
	assert.NoError(t, led.Set(true))
}

func TestMockConsole(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runMockConsole(context.Background(), demoConfig(t), 4, &buf))

	out := buf.String()
	assert.Contains(t, out, "SEG=   1  LABEL=IDLE")
	assert.Contains(t, out, "STATE=DETERMINING")
	assert.Contains(t, out, "  -> #wipers|")
	assert.Equal(t, 4, bytes.Count(buf.Bytes(), []byte("SEG=")))
}
