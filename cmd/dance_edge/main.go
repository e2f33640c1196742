// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/relabs-tech/dance_edge/internal/app"
	"github.com/relabs-tech/dance_edge/internal/config"
	"github.com/relabs-tech/dance_edge/internal/logging"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "dance_edge",
		Short:        "Classify dance moves from a wearable's telemetry stream",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "dance_config.txt", "KEY=VALUE configuration file")
	root.PersistentFlags().String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	root.PersistentFlags().Int("web-port", 0, "override WEB_SERVER_PORT")
	root.PersistentFlags().String("serial-port", "", "override SERIAL_PORT")
	if err := v.BindPFlags(root.PersistentFlags()); err != nil {
		log.Fatalf("failed to bind flags: %v", err)
	}

	var mock bool
	var mockLines int
	var webRoot string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Handshake with the wearable and classify its stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return app.RunEdge(cmd.Context(), cfg, app.EdgeOptions{
				Mock:      mock,
				MockLines: mockLines,
				WebRoot:   webRoot,
			})
		},
	}
	runCmd.Flags().BoolVar(&mock, "mock", false, "use a simulated wearable instead of the serial port")
	runCmd.Flags().IntVar(&mockLines, "mock-lines", 0, "stop the simulated wearable after this many lines (0 = never)")
	runCmd.Flags().StringVar(&webRoot, "web-root", "", "directory served at / by the web server")

	replayCmd := &cobra.Command{
		Use:   "replay <capture>",
		Short: "Classify a recorded telemetry capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return app.RunReplay(cmd.Context(), cfg, args[0])
		},
	}

	root.AddCommand(runCmd, replayCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Println("dance_edge: stopped")
			return
		}
		log.WithError(xerrors.New(err)).Error("dance_edge: fatal")
		cancel()
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag / DANCE_* overrides.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	if err := config.InitGlobal(v.GetString("config")); err != nil {
		return nil, err
	}
	cfg := config.Get()

	if v.IsSet("log-level") && v.GetString("log-level") != "" {
		cfg.LogLevel = v.GetString("log-level")
	}
	if v.IsSet("web-port") {
		cfg.WebServerPort = v.GetInt("web-port")
	}
	if v.IsSet("serial-port") && v.GetString("serial-port") != "" {
		cfg.SerialPort = v.GetString("serial-port")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logging.Setup(cfg.LogLevel, nil); err != nil {
		return nil, err
	}
	log.Printf("dance_edge %s: config loaded from %s", version, v.GetString("config"))
	return cfg, nil
}
