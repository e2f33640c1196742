// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/dance_edge/internal/config"
	"github.com/relabs-tech/dance_edge/internal/report"
	"github.com/relabs-tech/dance_edge/internal/transport"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// DisplayData holds the latest detection for display
type DisplayData struct {
	mu   sync.RWMutex
	last report.Envelope
	have bool
}

func (d *DisplayData) set(env report.Envelope) {
	d.mu.Lock()
	d.last = env
	d.have = true
	d.mu.Unlock()
}

func (d *DisplayData) get() (report.Envelope, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last, d.have
}

// addrBus sends every transaction to a fixed address, so the driver's
// default 0x3C can be overridden.
type addrBus struct {
	i2c.Bus
	addr uint16
}

func (b *addrBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

// RunDisplay shows the last detection on an SSD1306 OLED.
func RunDisplay(ctx context.Context, cfg *config.Config) error {
	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(&addrBus{Bus: bus, addr: cfg.DisplayI2CAddr}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	client, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	// The envelope topic is retained, so the last move shows up right away.
	token := client.Subscribe(cfg.TopicDetectionsJSON, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var env report.Envelope
		if err := json.Unmarshal(msg.Payload(), &env); err != nil {
			log.Printf("display: detection unmarshal error: %v", err)
			return
		}
		data.set(env)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicDetectionsJSON)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return dev.Halt()
		case <-ticker.C:
		}
		env, have := data.get()
		if err := dev.Draw(dev.Bounds(), renderDetection(env, have), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func renderDetection(env report.Envelope, have bool) *image1bit.VerticalLSB {
	img, drawer := newFrame()

	switch {
	case !have:
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString("Dance move")
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString("Waiting...")
	case env.Logout:
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString("Logged out")
	default:
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawString(strings.ToUpper(env.Label))

		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString(fmt.Sprintf("V:%5.2f I:%5.2f", env.Voltage, env.Current))

		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString(fmt.Sprintf("P: %7.2f", env.Power))

		drawer.Dot = fixed.P(0, 52)
		drawer.DrawString(fmt.Sprintf("E: %7.2f", env.Energy))
	}
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newFrame()

	drawer.Dot = fixed.P(20, 26)
	drawer.DrawString("Dance Edge")

	drawer.Dot = fixed.P(10, 43)
	drawer.DrawString("Waiting for")

	drawer.Dot = fixed.P(30, 56)
	drawer.DrawString("moves")
	return img
}
