// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transport delivers confirmed detections to the outside world.
package transport

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/dance_edge/internal/logging"
	"github.com/relabs-tech/dance_edge/internal/report"
)

// Sender delivers one event.
type Sender interface {
	Send(ctx context.Context, ev report.Event) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, ev report.Event) error

func (f SenderFunc) Send(ctx context.Context, ev report.Event) error { return f(ctx, ev) }

// LogSender writes records to the log. Used when no broker is configured.
type LogSender struct {
	logger *log.Entry
}

func NewLogSender() *LogSender {
	return &LogSender{logger: logging.Component("transport")}
}

func (s *LogSender) Send(_ context.Context, ev report.Event) error {
	s.logger.WithField("id", ev.ID).Infof("detection: %s", ev.Record())
	return nil
}

// Fanout sends to every sender, even after a failure, and joins the errors.
type Fanout []Sender

func (f Fanout) Send(ctx context.Context, ev report.Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
