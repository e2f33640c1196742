// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package features

import (
	"fmt"
	"math"
)

// biquad is one second-order section, normalised so a0 = 1.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// HighPass is a causal Butterworth high-pass filter built from cascaded
// sections (bilinear transform, prewarped at the corner frequency).
type HighPass struct {
	sections []biquad
}

// NewHighPass designs a filter with the given corner (Hz), sample rate (Hz)
// and order ("corners").
func NewHighPass(cornerHz, sampleHz float64, corners int) (*HighPass, error) {
	nyquist := sampleHz / 2
	if cornerHz <= 0 || cornerHz >= nyquist {
		return nil, &ConfigError{Param: "highpass corner", Reason: fmt.Sprintf("%.3g Hz outside (0, %.3g) Hz", cornerHz, nyquist)}
	}
	if corners < 1 {
		return nil, &ConfigError{Param: "highpass corners", Reason: fmt.Sprintf("must be >= 1, got %d", corners)}
	}

	w0 := 2 * math.Pi * cornerHz / sampleHz
	cosW, sinW := math.Cos(w0), math.Sin(w0)

	hp := &HighPass{}
	for k := 0; k < corners/2; k++ {
		q := 1 / (2 * math.Sin(math.Pi*float64(2*k+1)/float64(2*corners)))
		alpha := sinW / (2 * q)
		a0 := 1 + alpha
		hp.sections = append(hp.sections, biquad{
			b0: (1 + cosW) / 2 / a0,
			b1: -(1 + cosW) / a0,
			b2: (1 + cosW) / 2 / a0,
			a1: -2 * cosW / a0,
			a2: (1 - alpha) / a0,
		})
	}
	if corners%2 == 1 {
		k := math.Tan(w0 / 2)
		hp.sections = append(hp.sections, biquad{
			b0: 1 / (1 + k),
			b1: -1 / (1 + k),
			a1: (k - 1) / (k + 1),
		})
	}
	return hp, nil
}

// Filter returns the filtered copy of x, starting from a zero state.
func (h *HighPass) Filter(x []float64) []float64 {
	y := append([]float64(nil), x...)
	for _, s := range h.sections {
		var z1, z2 float64
		for i, in := range y {
			out := s.b0*in + z1
			z1 = s.b1*in - s.a1*out + z2
			z2 = s.b2*in - s.a2*out
			y[i] = out
		}
	}
	return y
}
