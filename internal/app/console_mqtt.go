// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/dance_edge/internal/config"
	"github.com/relabs-tech/dance_edge/internal/report"
	"github.com/relabs-tech/dance_edge/internal/transport"
)

// RunConsoleMQTT prints every detection record published by the edge.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config) error {
	client, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	token := client.Subscribe(cfg.TopicDetections, 1, func(_ mqtt.Client, msg mqtt.Message) {
		printRecord(os.Stdout, string(msg.Payload()))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicDetections)

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

func printRecord(w io.Writer, record string) {
	ev, err := report.ParseRecord(record)
	if err != nil {
		log.Printf("console: %v", err)
		return
	}
	if ev.Logout {
		fmt.Fprintf(w, "[LOGOUT] %s\n", ev.Label)
		return
	}
	fmt.Fprintf(w,
		"[MOVE] %-10s V=%6.2f  I=%6.2f  P=%6.2f  E=%8.2f\n",
		ev.Label, ev.Voltage, ev.Current, ev.Power, ev.Energy,
	)
}
