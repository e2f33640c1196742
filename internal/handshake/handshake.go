// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package handshake implements the byte-level connection exchange with the
// telemetry microcontroller:
//
//	edge -> "H"   (probe)
//	mcu  -> "A"   (ready; anything else means "probe again")
//	edge -> "N"   (acknowledge)
//	mcu  -> 1 byte
//
// No telemetry line is trusted before the exchange completes.
package handshake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/dance_edge/internal/logging"
	"github.com/relabs-tech/dance_edge/internal/telemetry"
)

const (
	probeByte = 'H'
	readyByte = 'A'
	ackByte   = 'N'
)

// ErrHandshakeExhausted is returned when RetryPolicy.MaxAttempts probes
// went unanswered.
var ErrHandshakeExhausted = errors.New("handshake: retry attempts exhausted")

// State of the handshake.
type State int

const (
	AwaitingAck State = iota
	Connected
)

func (s State) String() string {
	switch s {
	case AwaitingAck:
		return "AWAITING_ACK"
	case Connected:
		return "CONNECTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RetryPolicy controls how often the probe is resent.
// MaxAttempts 0 retries forever; Interval 0 resends immediately.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// Handshaker runs the exchange over an exclusively owned byte stream.
type Handshaker struct {
	rw     io.ReadWriter
	policy RetryPolicy
	state  State
	probes int
	logger *log.Entry
}

func New(rw io.ReadWriter, policy RetryPolicy) *Handshaker {
	return &Handshaker{
		rw:     rw,
		policy: policy,
		logger: logging.Component("handshake"),
	}
}

// State returns the current handshake state.
func (h *Handshaker) State() State { return h.state }

// Probes returns how many "H" probes have been sent.
func (h *Handshaker) Probes() int { return h.probes }

// Run probes until the source acknowledges. Read timeouts count as a
// non-ack, and a timeout on the byte after "N" still connects; other
// stream failures are returned as *telemetry.StreamError.
func (h *Handshaker) Run(ctx context.Context) error {
	if h.state == Connected {
		return nil
	}
	lr := telemetry.NewLineReader(h.rw)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if h.policy.MaxAttempts > 0 && h.probes >= h.policy.MaxAttempts {
			return fmt.Errorf("%w after %d probes", ErrHandshakeExhausted, h.probes)
		}

		if err := h.write(probeByte); err != nil {
			return err
		}
		h.probes++
		h.logger.Debugf("H sent (probe %d)", h.probes)

		resp, err := lr.ReadByte()
		switch {
		case errors.Is(err, telemetry.ErrReadTimeout):
			h.logger.Debug("no response to probe")
		case err != nil:
			return err
		case resp == readyByte:
			h.logger.Debug("A received, sending N")
			if err := h.write(ackByte); err != nil {
				return err
			}
			// The closing byte is consumed but not checked; a silent device
			// still counts as connected.
			_, err := lr.ReadByte()
			switch {
			case errors.Is(err, telemetry.ErrReadTimeout):
				h.logger.Debug("no byte after N")
			case err != nil:
				return err
			}
			h.state = Connected
			h.logger.Infof("connected after %d probe(s)", h.probes)
			return nil
		default:
			h.logger.Debugf("unexpected response %q, probing again", resp)
		}

		if h.policy.Interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(h.policy.Interval):
			}
		}
	}
}

func (h *Handshaker) write(b byte) error {
	if _, err := h.rw.Write([]byte{b}); err != nil {
		return &telemetry.StreamError{Op: "write", Err: err}
	}
	return nil
}
