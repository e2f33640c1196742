// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes pipeline counters for Prometheus. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dance_edge"

type Metrics struct {
	registry *prometheus.Registry

	segments        prometheus.Counter
	parseErrors     prometheus.Counter
	droppedSegments prometheus.Counter
	handshakeProbes prometheus.Counter
	predictions     *prometheus.CounterVec // by label
	detections      *prometheus.CounterVec // by label
	sendErrors      prometheus.Counter
	moveState       prometheus.Gauge
	confidence      prometheus.Histogram
	segmentDuration prometheus.Histogram
}

// New creates the collectors on a private registry, alongside the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		segments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_total",
			Help:      "Segments collected and classified",
		}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Telemetry lines that failed to parse",
		}),
		droppedSegments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_dropped_total",
			Help:      "Partial segments discarded after a parse error",
		}),
		handshakeProbes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "probes_total",
			Help:      "Handshake probes sent to the microcontroller",
		}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Classifier predictions by label",
		}, []string{"label"}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Confirmed detections by label",
		}, []string{"label"}),
		sendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Detections that could not be delivered",
		}),
		moveState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "move_state",
			Help:      "Current move state (1=IDLE, 2=DETERMINING)",
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_confidence",
			Help:      "Confidence of the winning class",
			Buckets:   []float64{0.5, 0.7, 0.8, 0.9, 0.95, 0.99, 1},
		}),
		segmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segment_processing_seconds",
			Help:      "Time from a complete segment to a classified prediction",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.segments,
		m.parseErrors,
		m.droppedSegments,
		m.handshakeProbes,
		m.predictions,
		m.detections,
		m.sendErrors,
		m.moveState,
		m.confidence,
		m.segmentDuration,
	)
	m.moveState.Set(1)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) HandshakeProbes(n int) {
	if m == nil {
		return
	}
	m.handshakeProbes.Add(float64(n))
}

func (m *Metrics) ParseError() {
	if m == nil {
		return
	}
	m.parseErrors.Inc()
}

func (m *Metrics) SegmentDropped() {
	if m == nil {
		return
	}
	m.droppedSegments.Inc()
}

// Prediction records a classified segment.
func (m *Metrics) Prediction(label string, confidence, seconds float64) {
	if m == nil {
		return
	}
	m.segments.Inc()
	m.predictions.WithLabelValues(label).Inc()
	m.confidence.Observe(confidence)
	m.segmentDuration.Observe(seconds)
}

func (m *Metrics) Detection(label string) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues(label).Inc()
}

func (m *Metrics) SendError() {
	if m == nil {
		return
	}
	m.sendErrors.Inc()
}

func (m *Metrics) MoveState(state int) {
	if m == nil {
		return
	}
	m.moveState.Set(float64(state))
}
