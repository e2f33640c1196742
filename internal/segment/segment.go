// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package segment buffers telemetry readings into fixed-size windows.
package segment

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/dance_edge/internal/logging"
	"github.com/relabs-tech/dance_edge/internal/telemetry"
)

// DefaultSize is the number of readings per classification window.
const DefaultSize = 128

// Segment is a complete window of readings split into the movement block
// (feature input) and the aux block (power metrics). Both always hold
// exactly the collector's size rows.
type Segment struct {
	Movement [][telemetry.MovementChannels]float64
	Aux      [][telemetry.AuxChannels]float64
}

// Len returns the number of rows.
func (s Segment) Len() int { return len(s.Movement) }

// ParseErrorPolicy decides what happens to a segment when a line fails to parse.
type ParseErrorPolicy string

const (
	// FailOnParseError returns the parse error to the caller.
	FailOnParseError ParseErrorPolicy = "fail"
	// ResyncOnParseError drops the partial segment and starts a new one.
	ResyncOnParseError ParseErrorPolicy = "resync"
)

// Options configures a Collector.
type Options struct {
	Size    int
	Overlap int // rows of the previous segment that start the next one
	OnError ParseErrorPolicy
	// Dropped, when set, is called for each segment discarded by resync.
	Dropped func(err error)
}

// LineSource yields one parsed reading per call.
type LineSource interface {
	Next() (telemetry.Reading, error)
}

// Collector accumulates readings into segments.
type Collector struct {
	opts   Options
	tail   []telemetry.Reading
	logger *log.Entry
}

func NewCollector(opts Options) (*Collector, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("segment size must be positive, got %d", opts.Size)
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		return nil, fmt.Errorf("segment overlap must be in [0, %d), got %d", opts.Size, opts.Overlap)
	}
	switch opts.OnError {
	case "":
		opts.OnError = FailOnParseError
	case FailOnParseError, ResyncOnParseError:
	default:
		return nil, fmt.Errorf("unknown parse error policy %q", opts.OnError)
	}
	return &Collector{opts: opts, logger: logging.Component("segment")}, nil
}

// Collect reads until a full segment is available. Stream errors are always
// returned; parse errors follow the configured policy.
func (c *Collector) Collect(src LineSource) (Segment, error) {
	rows := make([]telemetry.Reading, 0, c.opts.Size)
	rows = append(rows, c.tail...)

	for len(rows) < c.opts.Size {
		r, err := src.Next()
		if err != nil {
			var pe *telemetry.ParseError
			if errors.As(err, &pe) && c.opts.OnError == ResyncOnParseError {
				c.logger.Warnf("dropping partial segment (%d rows): %v", len(rows), err)
				if c.opts.Dropped != nil {
					c.opts.Dropped(err)
				}
				rows = rows[:0]
				c.tail = nil
				continue
			}
			return Segment{}, err
		}
		rows = append(rows, r)
	}

	if c.opts.Overlap > 0 {
		c.tail = append([]telemetry.Reading(nil), rows[len(rows)-c.opts.Overlap:]...)
	}
	return split(rows), nil
}

func split(rows []telemetry.Reading) Segment {
	seg := Segment{
		Movement: make([][telemetry.MovementChannels]float64, len(rows)),
		Aux:      make([][telemetry.AuxChannels]float64, len(rows)),
	}
	for i, r := range rows {
		seg.Movement[i] = r.Movement()
		seg.Aux[i] = r.Aux()
	}
	return seg
}
