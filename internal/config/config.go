// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// Serial link to the wearable's microcontroller
	SerialPort          string
	SerialBaudRate      int
	SerialReadTimeoutMs int // inter-character timeout; a silent line reads as a timeout

	// Handshake
	HandshakeMaxAttempts     int // 0 = keep probing forever
	HandshakeRetryIntervalMs int

	// Segmentation
	SegmentSize         int
	SegmentOverlap      int
	SegmentOnParseError string // "fail" or "resync"

	// Preprocessing
	SampleRateHz     float64
	SavGolWindow     int
	SavGolPolyOrder  int
	HighPassCutoffHz float64
	HighPassCorners  int

	// Classification
	ConfidenceThreshold float64
	ModelPath           string
	MinMaxScalerPath    string
	StandardScalerPath  string
	LabelsPath          string // optional YAML label table

	// MQTT
	MQTTEnabled         bool
	MQTTBroker          string
	MQTTClientIDEdge    string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string
	MQTTClientIDWeb     string

	// Topics
	TopicDetections     string
	TopicDetectionsJSON string

	// Web Server (0 disables)
	WebServerPort int

	// Logging
	LogLevel string

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int    // milliseconds
	StatusLEDPin          string // optional GPIO name, lit while connected
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal() and Get().
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the values the shipped model was trained and deployed with.
func Default() *Config {
	return &Config{
		SerialPort:               "/dev/ttyACM0",
		SerialBaudRate:           115200,
		SerialReadTimeoutMs:      3000,
		HandshakeMaxAttempts:     0,
		HandshakeRetryIntervalMs: 0,
		SegmentSize:              128,
		SegmentOverlap:           0,
		SegmentOnParseError:      "fail",
		SampleRateHz:             50,
		SavGolWindow:             3,
		SavGolPolyOrder:          2,
		HighPassCutoffHz:         3,
		HighPassCorners:          4,
		ConfidenceThreshold:      0.95,
		ModelPath:                "models/model.json",
		MinMaxScalerPath:         "models/min_max_scaler.json",
		StandardScalerPath:       "models/standard_scaler.json",
		MQTTEnabled:              false,
		MQTTBroker:               "tcp://localhost:1883",
		MQTTClientIDEdge:         "dance-edge",
		MQTTClientIDConsole:      "dance-console",
		MQTTClientIDDisplay:      "dance-display",
		MQTTClientIDWeb:          "dance-web",
		TopicDetections:          "dance/detections",
		TopicDetectionsJSON:      "dance/detections/json",
		WebServerPort:            8080,
		LogLevel:                 "info",
		DisplayI2CAddr:           0x3C,
		DisplayUpdateInterval:    500,
	}
}

// Load reads the configuration file on top of Default().
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.Set(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Set assigns one KEY=VALUE pair. Command-line overrides go through here too.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value)
	case "SERIAL_READ_TIMEOUT_MS":
		c.SerialReadTimeoutMs, err = parseInt(key, value)

	// Handshake
	case "HANDSHAKE_MAX_ATTEMPTS":
		c.HandshakeMaxAttempts, err = parseInt(key, value)
	case "HANDSHAKE_RETRY_INTERVAL_MS":
		c.HandshakeRetryIntervalMs, err = parseInt(key, value)

	// Segmentation
	case "SEGMENT_SIZE":
		c.SegmentSize, err = parseInt(key, value)
	case "SEGMENT_OVERLAP":
		c.SegmentOverlap, err = parseInt(key, value)
	case "SEGMENT_ON_PARSE_ERROR":
		if value != "fail" && value != "resync" {
			return fmt.Errorf("SEGMENT_ON_PARSE_ERROR must be fail or resync, got %q", value)
		}
		c.SegmentOnParseError = value

	// Preprocessing
	case "SAMPLE_RATE_HZ":
		c.SampleRateHz, err = parseFloat(key, value)
	case "SAVGOL_WINDOW":
		c.SavGolWindow, err = parseInt(key, value)
	case "SAVGOL_POLYORDER":
		c.SavGolPolyOrder, err = parseInt(key, value)
	case "HIGHPASS_CUTOFF_HZ":
		c.HighPassCutoffHz, err = parseFloat(key, value)
	case "HIGHPASS_CORNERS":
		c.HighPassCorners, err = parseInt(key, value)

	// Classification
	case "CONFIDENCE_THRESHOLD":
		c.ConfidenceThreshold, err = parseFloat(key, value)
	case "MODEL_PATH":
		c.ModelPath = value
	case "MIN_MAX_SCALER_PATH":
		c.MinMaxScalerPath = value
	case "STANDARD_SCALER_PATH":
		c.StandardScalerPath = value
	case "LABELS_PATH":
		c.LabelsPath = value

	// MQTT
	case "MQTT_ENABLED":
		c.MQTTEnabled, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_ENABLED %q: %w", value, err)
		}
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_EDGE":
		c.MQTTClientIDEdge = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_DETECTIONS":
		c.TopicDetections = value
	case "TOPIC_DETECTIONS_JSON":
		c.TopicDetectionsJSON = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = value

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value)
	case "STATUS_LED_PIN":
		c.StatusLEDPin = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// Validate checks ranges that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	if c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required")
	}
	if c.SerialBaudRate <= 0 {
		return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", c.SerialBaudRate)
	}
	// termios VTIME counts tenths of a second in one byte
	if c.SerialReadTimeoutMs < 100 || c.SerialReadTimeoutMs > 25500 {
		return fmt.Errorf("SERIAL_READ_TIMEOUT_MS must be 100-25500, got %d", c.SerialReadTimeoutMs)
	}
	if c.HandshakeMaxAttempts < 0 {
		return fmt.Errorf("HANDSHAKE_MAX_ATTEMPTS must be >= 0, got %d", c.HandshakeMaxAttempts)
	}
	if c.HandshakeRetryIntervalMs < 0 {
		return fmt.Errorf("HANDSHAKE_RETRY_INTERVAL_MS must be >= 0, got %d", c.HandshakeRetryIntervalMs)
	}
	if c.SegmentSize <= 0 {
		return fmt.Errorf("SEGMENT_SIZE must be positive, got %d", c.SegmentSize)
	}
	if c.SegmentOverlap < 0 || c.SegmentOverlap >= c.SegmentSize {
		return fmt.Errorf("SEGMENT_OVERLAP must be in [0, %d), got %d", c.SegmentSize, c.SegmentOverlap)
	}
	if c.SavGolWindow > c.SegmentSize {
		return fmt.Errorf("SAVGOL_WINDOW %d exceeds SEGMENT_SIZE %d", c.SavGolWindow, c.SegmentSize)
	}
	if c.SampleRateHz <= 0 {
		return fmt.Errorf("SAMPLE_RATE_HZ must be positive, got %v", c.SampleRateHz)
	}
	if c.HighPassCutoffHz <= 0 || c.HighPassCutoffHz >= c.SampleRateHz/2 {
		return fmt.Errorf("HIGHPASS_CUTOFF_HZ must be in (0, %v), got %v", c.SampleRateHz/2, c.HighPassCutoffHz)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be in [0, 1], got %v", c.ConfidenceThreshold)
	}
	if c.ModelPath == "" || c.MinMaxScalerPath == "" || c.StandardScalerPath == "" {
		return fmt.Errorf("MODEL_PATH, MIN_MAX_SCALER_PATH and STANDARD_SCALER_PATH are required")
	}
	if c.MQTTEnabled && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required when MQTT_ENABLED=true")
	}
	if c.MQTTEnabled && c.TopicDetections == "" {
		return fmt.Errorf("TOPIC_DETECTIONS is required when MQTT_ENABLED=true")
	}
	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", c.WebServerPort)
	}
	return nil
}

func (c *Config) SerialReadTimeout() time.Duration {
	return time.Duration(c.SerialReadTimeoutMs) * time.Millisecond
}

func (c *Config) HandshakeRetryInterval() time.Duration {
	return time.Duration(c.HandshakeRetryIntervalMs) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
