// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/dance_edge/internal/config"
	"github.com/relabs-tech/dance_edge/internal/handshake"
	"github.com/relabs-tech/dance_edge/internal/metrics"
	"github.com/relabs-tech/dance_edge/internal/movestate"
	"github.com/relabs-tech/dance_edge/internal/segment"
	"github.com/relabs-tech/dance_edge/internal/telemetry"
	"github.com/relabs-tech/dance_edge/internal/transport"
)

// EdgeOptions selects the telemetry source for RunEdge.
type EdgeOptions struct {
	// Mock replaces the serial port with a simulated wearable.
	Mock bool
	// MockLines stops the simulated wearable after this many lines (0 = never).
	MockLines int
	// WebRoot is served at / by the web hub when set.
	WebRoot string
}

// RunEdge connects to the wearable and classifies its stream until ctx is
// cancelled or the stream fails.
func RunEdge(ctx context.Context, cfg *config.Config, opts EdgeOptions) error {
	ext, clf, err := LoadArtifacts(cfg)
	if err != nil {
		return err
	}

	var port io.ReadWriteCloser
	if opts.Mock {
		port = telemetry.NewMockSource(telemetry.DanceGenerator(cfg.SegmentSize, cfg.SampleRateHz), opts.MockLines, '?')
		log.Println("edge: using simulated wearable")
	} else {
		if port, err = OpenSerial(cfg); err != nil {
			return err
		}
	}

	// A blocked read only returns once the port is closed.
	var closeOnce sync.Once
	closePort := func() { closeOnce.Do(func() { port.Close() }) }
	defer closePort()
	stop := context.AfterFunc(ctx, closePort)
	defer stop()

	var led *StatusLED
	if cfg.StatusLEDPin != "" {
		if led, err = OpenStatusLED(cfg.StatusLEDPin); err != nil {
			log.Printf("edge: status LED disabled: %v", err)
			led = nil
		}
	}
	defer led.Set(false)

	m := metrics.New()
	hs := handshake.New(port, handshake.RetryPolicy{
		MaxAttempts: cfg.HandshakeMaxAttempts,
		Interval:    cfg.HandshakeRetryInterval(),
	})
	err = hs.Run(ctx)
	m.HandshakeProbes(hs.Probes())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("handshake: %w", err)
	}
	if err := led.Set(true); err != nil {
		log.Printf("edge: status LED: %v", err)
	}

	sender, hub, closeSender, err := buildSenders(cfg, m, opts.WebRoot)
	if err != nil {
		return err
	}
	defer closeSender()

	p, err := NewPipeline(PipelineDeps{
		Source:    telemetry.NewLineReader(port),
		Segments:  segmentOptions(cfg),
		Extractor: ext,
		Predictor: clf,
		Machine:   movestate.NewMachine(cfg.ConfidenceThreshold),
		Sender:    sender,
		Metrics:   m,
	})
	if err != nil {
		return err
	}
	p.StopAtEOF = opts.Mock && opts.MockLines > 0
	if hub != nil {
		p.OnStep = hub.Observe
		go func() {
			if err := RunWeb(ctx, cfg.WebServerPort, hub); err != nil {
				log.Errorf("web: %v", err)
			}
		}()
	}

	return p.Run(ctx)
}

// RunReplay classifies a recorded capture file offline.
func RunReplay(ctx context.Context, cfg *config.Config, path string) error {
	ext, clf, err := LoadArtifacts(cfg)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	p, err := NewPipeline(PipelineDeps{
		Source:    telemetry.NewReplaySource(f),
		Segments:  segmentOptions(cfg),
		Extractor: ext,
		Predictor: clf,
		Machine:   movestate.NewMachine(cfg.ConfidenceThreshold),
		Sender:    transport.NewLogSender(),
	})
	if err != nil {
		return err
	}
	p.StopAtEOF = true
	log.Printf("replay: classifying %s", path)
	return p.Run(ctx)
}

func segmentOptions(cfg *config.Config) segment.Options {
	return segment.Options{
		Size:    cfg.SegmentSize,
		Overlap: cfg.SegmentOverlap,
		OnError: segment.ParseErrorPolicy(cfg.SegmentOnParseError),
	}
}

// buildSenders assembles MQTT (or log) delivery plus the web hub.
func buildSenders(cfg *config.Config, m *metrics.Metrics, webRoot string) (transport.Sender, *Hub, func(), error) {
	var senders transport.Fanout
	closeFn := func() {}

	if cfg.MQTTEnabled {
		client, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDEdge)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn = func() { client.Disconnect(250) }
		senders = append(senders, transport.NewMQTTSender(client, cfg.TopicDetections, cfg.TopicDetectionsJSON))
	} else {
		senders = append(senders, transport.NewLogSender())
	}

	var hub *Hub
	if cfg.WebServerPort > 0 {
		hub = NewHub(m, webRoot)
		senders = append(senders, hub)
	}
	return senders, hub, closeFn, nil
}
