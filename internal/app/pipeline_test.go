// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/dance_edge/internal/classifier"
	"github.com/relabs-tech/dance_edge/internal/config"
	"github.com/relabs-tech/dance_edge/internal/handshake"
	"github.com/relabs-tech/dance_edge/internal/metrics"
	"github.com/relabs-tech/dance_edge/internal/movestate"
	"github.com/relabs-tech/dance_edge/internal/report"
	"github.com/relabs-tech/dance_edge/internal/segment"
	"github.com/relabs-tech/dance_edge/internal/telemetry"
	"github.com/relabs-tech/dance_edge/internal/transport"
)

// scriptedPredictor returns its predictions in order.
type scriptedPredictor struct {
	preds []classifier.Prediction
	calls int
}

func (s *scriptedPredictor) Predict([]float64) (classifier.Prediction, error) {
	if s.calls >= len(s.preds) {
		return classifier.Prediction{}, errors.New("script exhausted")
	}
	p := s.preds[s.calls]
	s.calls++
	return p, nil
}

type meanExtractor struct{}

func (meanExtractor) Extract(m [][telemetry.MovementChannels]float64) ([]float64, error) {
	return []float64{float64(len(m))}, nil
}

type collectSender struct {
	events []report.Event
	err    error
}

func (c *collectSender) Send(_ context.Context, ev report.Event) error {
	c.events = append(c.events, ev)
	return c.err
}

func constantSource(lines int) *telemetry.ReplaySource {
	var b strings.Builder
	for i := 0; i < lines; i++ {
		var r telemetry.Reading
		for ch := range r {
			r[ch] = float64(ch)
		}
		b.WriteString(r.Format())
	}
	return telemetry.NewReplaySource(strings.NewReader(b.String()))
}

func counterValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestPipelineEmitsAfterIdleBaseline(t *testing.T) {
	sender := &collectSender{}
	pred := &scriptedPredictor{preds: []classifier.Prediction{
		{Label: "wipers", Confidence: 0.99},
		{Label: "IDLE", Confidence: 0.9},
		{Label: "chicken", Confidence: 0.5},
		{Label: "chicken", Confidence: 0.95},
	}}
	m := metrics.New()

	p, err := NewPipeline(PipelineDeps{
		Source:    constantSource(4 * 8),
		Segments:  segment.Options{Size: 8},
		Extractor: meanExtractor{},
		Predictor: pred,
		Machine:   movestate.NewMachine(movestate.DefaultThreshold),
		Sender:    sender,
		Metrics:   m,
	})
	require.NoError(t, err)

	var states []movestate.State
	p.OnStep = func(r StepResult) { states = append(states, r.State) }
	p.StopAtEOF = true

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []movestate.State{movestate.Idle, movestate.Determining, movestate.Determining, movestate.Idle}, states)

	require.Len(t, sender.events, 1)
	ev := sender.events[0]
	assert.Equal(t, "chicken", ev.Label)
	// aux channels are 9..12
	assert.Equal(t, "#chicken|9.0|10.0|11.0|12.0|", ev.Record())

	assert.Equal(t, 4.0, counterValue(t, m, "dance_edge_segments_total"))
	assert.Equal(t, 1.0, counterValue(t, m, "dance_edge_detections_total"))
}

func TestPipelineSendErrorIsNotFatal(t *testing.T) {
	sender := &collectSender{err: errors.New("broker down")}
	m := metrics.New()
	p, err := NewPipeline(PipelineDeps{
		Source:    constantSource(2 * 4),
		Segments:  segment.Options{Size: 4},
		Extractor: meanExtractor{},
		Predictor: &scriptedPredictor{preds: []classifier.Prediction{
			{Label: "IDLE", Confidence: 1},
			{Label: "logout", Confidence: 1},
		}},
		Machine: movestate.NewMachine(movestate.DefaultThreshold),
		Sender:  sender,
		Metrics: m,
	})
	require.NoError(t, err)
	p.StopAtEOF = true

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, sender.events, 1)
	assert.Equal(t, "logout", sender.events[0].Record())
	assert.Equal(t, 1.0, counterValue(t, m, "dance_edge_send_errors_total"))
}

func TestPipelineParseErrorPolicies(t *testing.T) {
	capture := func() io.Reader {
		var r telemetry.Reading
		good := r.Format()
		return strings.NewReader(good + "garbage\r" + strings.Repeat(good, 4))
	}

	newPipeline := func(policy segment.ParseErrorPolicy, m *metrics.Metrics) *Pipeline {
		p, err := NewPipeline(PipelineDeps{
			Source:    telemetry.NewReplaySource(capture()),
			Segments:  segment.Options{Size: 4, OnError: policy},
			Extractor: meanExtractor{},
			Predictor: &scriptedPredictor{preds: []classifier.Prediction{{Label: "IDLE", Confidence: 1}}},
			Machine:   movestate.NewMachine(movestate.DefaultThreshold),
			Sender:    &collectSender{},
			Metrics:   m,
		})
		require.NoError(t, err)
		p.StopAtEOF = true
		return p
	}

	m := metrics.New()
	err := newPipeline(segment.FailOnParseError, m).Run(context.Background())
	var pe *telemetry.ParseError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, 1.0, counterValue(t, m, "dance_edge_parse_errors_total"))

	m = metrics.New()
	require.NoError(t, newPipeline(segment.ResyncOnParseError, m).Run(context.Background()))
	assert.Equal(t, 1.0, counterValue(t, m, "dance_edge_segments_dropped_total"))
	assert.Equal(t, 1.0, counterValue(t, m, "dance_edge_segments_total"))
}

func TestPipelineStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err := NewPipeline(PipelineDeps{
		Source:    constantSource(8),
		Segments:  segment.Options{Size: 4},
		Extractor: meanExtractor{},
		Predictor: &scriptedPredictor{},
		Machine:   movestate.NewMachine(movestate.DefaultThreshold),
		Sender:    transport.NewLogSender(),
	})
	require.NoError(t, err)
	assert.ErrorIs(t, p.Run(ctx), context.Canceled)
}

func TestNewPipelineRequiresDeps(t *testing.T) {
	_, err := NewPipeline(PipelineDeps{})
	assert.Error(t, err)
}

func demoConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ModelPath = filepath.Join("..", "..", "models", "model.json")
	cfg.MinMaxScalerPath = filepath.Join("..", "..", "models", "min_max_scaler.json")
	cfg.StandardScalerPath = filepath.Join("..", "..", "models", "standard_scaler.json")
	cfg.LabelsPath = filepath.Join("..", "..", "models", "labels.yaml")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestLoadArtifacts(t *testing.T) {
	ext, clf, err := LoadArtifacts(demoConfig(t))
	require.NoError(t, err)
	assert.NotNil(t, ext)
	assert.Equal(t, 6, clf.Labels().Len())

	cfg := demoConfig(t)
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.json")
	_, _, err = LoadArtifacts(cfg)
	assert.Error(t, err)
}

func TestEndToEndOnSimulatedWearable(t *testing.T) {
	cfg := demoConfig(t)
	ext, clf, err := LoadArtifacts(cfg)
	require.NoError(t, err)

	src := telemetry.NewMockSource(telemetry.DanceGenerator(cfg.SegmentSize, cfg.SampleRateHz), 4*cfg.SegmentSize, 'x')
	hs := handshake.New(src, handshake.RetryPolicy{MaxAttempts: 5})
	require.NoError(t, hs.Run(context.Background()))
	assert.Equal(t, 2, hs.Probes())

	sender := &collectSender{}
	p, err := NewPipeline(PipelineDeps{
		Source:    telemetry.NewLineReader(src),
		Segments:  segmentOptions(cfg),
		Extractor: ext,
		Predictor: clf,
		Machine:   movestate.NewMachine(cfg.ConfidenceThreshold),
		Sender:    sender,
	})
	require.NoError(t, err)
	p.StopAtEOF = true

	var labels []string
	p.OnStep = func(r StepResult) { labels = append(labels, r.Prediction.Label) }
	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, []string{"IDLE", "wipers", "IDLE", "wipers"}, labels)
	require.Len(t, sender.events, 2)
	for _, ev := range sender.events {
		assert.Equal(t, "wipers", ev.Label)
		assert.InDelta(t, 5.0, ev.Voltage, 0.06)
		assert.Equal(t, 0.4, ev.Current)
	}
}

func TestRunReplay(t *testing.T) {
	cfg := demoConfig(t)
	gen := telemetry.DanceGenerator(cfg.SegmentSize, cfg.SampleRateHz)

	var b strings.Builder
	for i := 0; i < 2*cfg.SegmentSize+10; i++ {
		fmt.Fprintf(&b, "%s\n", strings.TrimSuffix(gen(i).Format(), "\r"))
	}
	path := filepath.Join(t.TempDir(), "capture.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	assert.NoError(t, RunReplay(context.Background(), cfg, path))
	assert.Error(t, RunReplay(context.Background(), cfg, filepath.Join(t.TempDir(), "none.csv")))
}
