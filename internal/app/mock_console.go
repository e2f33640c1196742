// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/relabs-tech/dance_edge/internal/config"
	"github.com/relabs-tech/dance_edge/internal/handshake"
	"github.com/relabs-tech/dance_edge/internal/movestate"
	"github.com/relabs-tech/dance_edge/internal/report"
	"github.com/relabs-tech/dance_edge/internal/telemetry"
	"github.com/relabs-tech/dance_edge/internal/transport"
)

// RunMockConsole classifies a simulated wearable and prints every segment.
// No broker or serial port is needed. segments = 0 runs until ctx is done.
func RunMockConsole(ctx context.Context, cfg *config.Config, segments int) error {
	return runMockConsole(ctx, cfg, segments, os.Stdout)
}

func runMockConsole(ctx context.Context, cfg *config.Config, segments int, out io.Writer) error {
	ext, clf, err := LoadArtifacts(cfg)
	if err != nil {
		return err
	}

	src := telemetry.NewMockSource(telemetry.DanceGenerator(cfg.SegmentSize, cfg.SampleRateHz), segments*cfg.SegmentSize)
	stop := context.AfterFunc(ctx, func() { src.Close() })
	defer stop()

	if err := handshake.New(src, handshake.RetryPolicy{MaxAttempts: 3}).Run(ctx); err != nil {
		return err
	}

	p, err := NewPipeline(PipelineDeps{
		Source:    telemetry.NewLineReader(src),
		Segments:  segmentOptions(cfg),
		Extractor: ext,
		Predictor: clf,
		Machine:   movestate.NewMachine(cfg.ConfidenceThreshold),
		Sender: transport.SenderFunc(func(_ context.Context, ev report.Event) error {
			fmt.Fprintf(out, "  -> %s\n", ev.Record())
			return nil
		}),
	})
	if err != nil {
		return err
	}
	p.StopAtEOF = segments > 0

	n := 0
	p.OnStep = func(r StepResult) {
		n++
		fmt.Fprintf(out,
			"SEG=%4d  LABEL=%-10s  CONF=%5.3f  STATE=%s\n",
			n, r.Prediction.Label, r.Prediction.Confidence, r.State,
		)
	}
	return p.Run(ctx)
}
