// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/dance_edge/internal/config"
	"github.com/relabs-tech/dance_edge/internal/logging"
	"github.com/relabs-tech/dance_edge/internal/metrics"
	"github.com/relabs-tech/dance_edge/internal/movestate"
	"github.com/relabs-tech/dance_edge/internal/report"
	"github.com/relabs-tech/dance_edge/internal/transport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from other hosts on the venue LAN
	},
}

const writeWait = 2 * time.Second

// StateResponse is the body of /api/state.
type StateResponse struct {
	State          string           `json:"state"`
	LastLabel      string           `json:"last_label,omitempty"`
	LastConfidence float64          `json:"last_confidence,omitempty"`
	Segments       int              `json:"segments"`
	LastDetection  *report.Envelope `json:"last_detection,omitempty"`
}

// Hub keeps the latest pipeline state for HTTP clients and pushes each
// detection envelope to connected websockets.
type Hub struct {
	mu      sync.RWMutex
	state   StateResponse
	clients map[*websocket.Conn]struct{}
	metrics *metrics.Metrics
	webRoot string
	logger  *log.Entry
}

func NewHub(m *metrics.Metrics, webRoot string) *Hub {
	return &Hub{
		state:   StateResponse{State: movestate.Idle.String()},
		clients: make(map[*websocket.Conn]struct{}),
		metrics: m,
		webRoot: webRoot,
		logger:  logging.Component("web"),
	}
}

// Observe records a classified segment. Used as Pipeline.OnStep.
func (h *Hub) Observe(res StepResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.State = res.State.String()
	h.state.LastLabel = res.Prediction.Label
	h.state.LastConfidence = res.Prediction.Confidence
	h.state.Segments++
}

// Send broadcasts ev to every websocket client. Clients that fail the
// write are dropped; that is not an error for the caller.
func (h *Hub) Send(_ context.Context, ev report.Event) error {
	env := ev.Envelope()
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("web: marshal envelope: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.LastDetection = &env
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debugf("dropping client %s: %v", conn.RemoteAddr(), err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
	return nil
}

// ClientCount returns the number of connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler serves /api/state, /ws, /metrics and, when configured, static
// files from the web root.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", h.handleState)
	mux.HandleFunc("/ws", h.handleWS)
	mux.Handle("/metrics", h.metrics.Handler())
	if h.webRoot != "" {
		mux.Handle("/", http.FileServer(http.Dir(h.webRoot)))
	}
	return mux
}

func (h *Hub) handleState(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	snapshot := h.state
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.logger.Errorf("json encode error: %v", err)
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	last := h.state.LastDetection
	if last != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(last)
	}
	h.mu.Unlock()
	h.logger.Infof("websocket client connected from %s", conn.RemoteAddr())

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warnf("websocket error: %v", err)
			}
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// RunWeb serves the hub on port until ctx is cancelled.
func RunWeb(ctx context.Context, port int, hub *Hub) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		hub.logger.Infof("web server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// RunWebSubscriber serves the hub from a separate process, fed by the
// edge's envelope topic instead of a local pipeline.
func RunWebSubscriber(ctx context.Context, cfg *config.Config, webRoot string) error {
	client, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	hub := NewHub(metrics.New(), webRoot)
	token := client.Subscribe(cfg.TopicDetectionsJSON, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var env report.Envelope
		if err := json.Unmarshal(msg.Payload(), &env); err != nil {
			hub.logger.Errorf("MQTT payload unmarshal error: %v", err)
			return
		}
		_ = hub.Send(ctx, env.Event())
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	hub.logger.Infof("subscribed to MQTT topic %s", cfg.TopicDetectionsJSON)

	return RunWeb(ctx, cfg.WebServerPort, hub)
}
