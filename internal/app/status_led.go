// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// StatusLED is lit while the wearable is connected. A nil *StatusLED is a
// no-op, for hosts without GPIO.
type StatusLED struct {
	pin gpio.PinIO
}

// OpenStatusLED drives the named GPIO (e.g. "GPIO17") low.
func OpenStatusLED(name string) (*StatusLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("unknown GPIO pin %q", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to set %s as output: %w", name, err)
	}
	return &StatusLED{pin: pin}, nil
}

func (l *StatusLED) Set(on bool) error {
	if l == nil {
		return nil
	}
	return l.pin.Out(gpio.Level(on))
}
