// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/dance_edge/internal/classifier"
	"github.com/relabs-tech/dance_edge/internal/logging"
	"github.com/relabs-tech/dance_edge/internal/metrics"
	"github.com/relabs-tech/dance_edge/internal/movestate"
	"github.com/relabs-tech/dance_edge/internal/report"
	"github.com/relabs-tech/dance_edge/internal/segment"
	"github.com/relabs-tech/dance_edge/internal/telemetry"
	"github.com/relabs-tech/dance_edge/internal/transport"
)

// Extractor computes the feature vector of a movement block.
type Extractor interface {
	Extract(movement [][telemetry.MovementChannels]float64) ([]float64, error)
}

// Predictor classifies a feature vector.
type Predictor interface {
	Predict(features []float64) (classifier.Prediction, error)
}

// StepResult describes one classified segment.
type StepResult struct {
	Prediction classifier.Prediction
	State      movestate.State
	Event      *report.Event // set on a confirmed detection
}

// Pipeline runs collect -> extract -> predict -> transition -> report on a
// single goroutine. It owns its line source.
type Pipeline struct {
	src       segment.LineSource
	collector *segment.Collector
	extractor Extractor
	predictor Predictor
	machine   *movestate.Machine
	sender    transport.Sender
	metrics   *metrics.Metrics

	// OnStep, when set, sees every classified segment.
	OnStep func(StepResult)
	// StopAtEOF ends Run cleanly when the source is exhausted (replay).
	StopAtEOF bool

	logger *log.Entry
}

// PipelineDeps are the collaborators of a Pipeline. Metrics may be nil.
type PipelineDeps struct {
	Source    segment.LineSource
	Segments  segment.Options
	Extractor Extractor
	Predictor Predictor
	Machine   *movestate.Machine
	Sender    transport.Sender
	Metrics   *metrics.Metrics
}

func NewPipeline(d PipelineDeps) (*Pipeline, error) {
	if d.Source == nil || d.Extractor == nil || d.Predictor == nil || d.Machine == nil || d.Sender == nil {
		return nil, fmt.Errorf("pipeline: missing dependency")
	}
	opts := d.Segments
	userDropped := opts.Dropped
	opts.Dropped = func(err error) {
		d.Metrics.SegmentDropped()
		if userDropped != nil {
			userDropped(err)
		}
	}
	col, err := segment.NewCollector(opts)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		src:       &countingSource{src: d.Source, metrics: d.Metrics},
		collector: col,
		extractor: d.Extractor,
		predictor: d.Predictor,
		machine:   d.Machine,
		sender:    d.Sender,
		metrics:   d.Metrics,
		logger:    logging.Component("pipeline"),
	}, nil
}

// Run processes segments until ctx is done or an error occurs. Cancelling
// ctx does not interrupt a blocked read; close the underlying port for that.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline: started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.Step(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if p.StopAtEOF && errors.Is(err, io.EOF) {
				p.logger.Info("pipeline: end of input")
				return nil
			}
			return err
		}
	}
}

// Step processes exactly one segment.
func (p *Pipeline) Step(ctx context.Context) (StepResult, error) {
	seg, err := p.collector.Collect(p.src)
	if err != nil {
		return StepResult{}, err
	}
	start := time.Now()

	features, err := p.extractor.Extract(seg.Movement)
	if err != nil {
		return StepResult{}, fmt.Errorf("feature extraction: %w", err)
	}
	pred, err := p.predictor.Predict(features)
	if err != nil {
		return StepResult{}, fmt.Errorf("classification: %w", err)
	}
	p.metrics.Prediction(pred.Label, pred.Confidence, time.Since(start).Seconds())

	emit := p.machine.Step(pred)
	res := StepResult{Prediction: pred, State: p.machine.State()}
	p.metrics.MoveState(int(res.State))
	p.logger.Debugf("prediction %s (%.3f) -> %s", pred.Label, pred.Confidence, res.State)

	if emit {
		ev, err := report.NewEvent(pred.Label, seg.Aux)
		if err != nil {
			return res, err
		}
		res.Event = &ev
		p.metrics.Detection(ev.Label)
		p.logger.Infof("detected %s (confidence %.3f): %s", ev.Label, pred.Confidence, ev.Record())
		if err := p.sender.Send(ctx, ev); err != nil {
			// delivery failures do not stop detection
			p.metrics.SendError()
			p.logger.Errorf("send %s: %v", ev.ID, err)
		}
	}

	if p.OnStep != nil {
		p.OnStep(res)
	}
	return res, nil
}

type countingSource struct {
	src     segment.LineSource
	metrics *metrics.Metrics
}

func (c *countingSource) Next() (telemetry.Reading, error) {
	r, err := c.src.Next()
	var pe *telemetry.ParseError
	if errors.As(err, &pe) {
		c.metrics.ParseError()
	}
	return r, err
}
