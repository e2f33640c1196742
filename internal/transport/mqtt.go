// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/dance_edge/internal/logging"
	"github.com/relabs-tech/dance_edge/internal/report"
)

// Publisher is the subset of mqtt.Client used for sending.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSender publishes the record text and its JSON envelope.
type MQTTSender struct {
	client      Publisher
	recordTopic string
	jsonTopic   string
	timeout     time.Duration
	logger      *log.Entry
}

// NewMQTTSender publishes records on recordTopic (QoS 1) and the envelope
// on jsonTopic (QoS 1, retained). An empty jsonTopic skips the envelope.
func NewMQTTSender(client Publisher, recordTopic, jsonTopic string) *MQTTSender {
	return &MQTTSender{
		client:      client,
		recordTopic: recordTopic,
		jsonTopic:   jsonTopic,
		timeout:     5 * time.Second,
		logger:      logging.Component("mqtt"),
	}
}

func (s *MQTTSender) Send(ctx context.Context, ev report.Event) error {
	if err := s.publish(ctx, s.recordTopic, false, ev.Record()); err != nil {
		return err
	}
	if s.jsonTopic == "" {
		return nil
	}
	payload, err := json.Marshal(ev.Envelope())
	if err != nil {
		return fmt.Errorf("mqtt: marshal envelope: %w", err)
	}
	return s.publish(ctx, s.jsonTopic, true, payload)
}

func (s *MQTTSender) publish(ctx context.Context, topic string, retained bool, payload interface{}) error {
	token := s.client.Publish(topic, 1, retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.timeout):
		return fmt.Errorf("mqtt: publish to %s timed out after %s", topic, s.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish to %s: %w", topic, err)
	}
	s.logger.Debugf("published to %s", topic)
	return nil
}

// Connect dials the broker the way every binary here does.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", broker, err)
	}
	log.Printf("mqtt: connected to broker at %s as %s", broker, clientID)
	return client, nil
}
