// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.HandshakeProbes(3)
	m.ParseError()
	m.SegmentDropped()
	m.Prediction("IDLE", 0.8, 0.002)
	m.Prediction("wipers", 0.99, 0.002)
	m.Prediction("wipers", 0.97, 0.002)
	m.Detection("wipers")
	m.SendError()
	m.MoveState(2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.handshakeProbes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.parseErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.droppedSegments))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.segments))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.predictions.WithLabelValues("wipers")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.detections.WithLabelValues("wipers")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sendErrors))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.moveState))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.HandshakeProbes(1)
		m.ParseError()
		m.SegmentDropped()
		m.Prediction("IDLE", 1, 0)
		m.Detection("IDLE")
		m.SendError()
		m.MoveState(1)
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerServesText(t *testing.T) {
	m := New()
	m.Detection("chicken")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `dance_edge_detections_total{label="chicken"} 1`)
	assert.Contains(t, string(body), "dance_edge_move_state 1")
}
