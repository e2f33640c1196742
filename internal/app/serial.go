// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io"

	serial "github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/dance_edge/internal/config"
)

// OpenSerial opens the microcontroller link 8N1. A read that sees no byte
// within the inter-character timeout returns zero bytes, which the line
// reader reports as telemetry.ErrReadTimeout.
func OpenSerial(cfg *config.Config) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              cfg.SerialPort,
		BaudRate:              uint(cfg.SerialBaudRate),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: uint(cfg.SerialReadTimeoutMs),
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", opts.PortName, err)
	}
	log.Printf("serial: port opened on %s at %d baud", opts.PortName, opts.BaudRate)
	return &timeoutPort{port}, nil
}

// timeoutPort maps the zero-byte EOF that the OS returns on a VTIME expiry
// back to an empty read.
type timeoutPort struct {
	io.ReadWriteCloser
}

func (p *timeoutPort) Read(b []byte) (int, error) {
	n, err := p.ReadWriteCloser.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}
