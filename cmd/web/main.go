// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/dance_edge/internal/app"
	"github.com/relabs-tech/dance_edge/internal/config"
	"github.com/relabs-tech/dance_edge/internal/logging"
)

func main() {
	webRoot := flag.String("web-root", "", "directory served at /")
	flag.Parse()

	log.Println("starting dance-edge web server (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal("dance_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	if err := logging.Setup(cfg.LogLevel, nil); err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.RunWebSubscriber(ctx, cfg, *webRoot); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
