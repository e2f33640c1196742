// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package features

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SavitzkyGolay is a local polynomial smoothing filter. Edges are handled
// by fitting the polynomial to the first/last window and evaluating it
// (scipy's mode="interp").
type SavitzkyGolay struct {
	window int
	order  int
	// pinv maps a window of samples to polynomial coefficients,
	// (order+1) x window, centred on the middle sample.
	pinv *mat.Dense
}

func NewSavitzkyGolay(window, order int) (*SavitzkyGolay, error) {
	if window <= 0 || window%2 == 0 {
		return nil, &ConfigError{Param: "savgol window", Reason: fmt.Sprintf("must be a positive odd number, got %d", window)}
	}
	if order < 0 || order >= window {
		return nil, &ConfigError{Param: "savgol order", Reason: fmt.Sprintf("must be in [0, %d), got %d", window, order)}
	}

	half := window / 2
	vander := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		t := float64(i - half)
		p := 1.0
		for k := 0; k <= order; k++ {
			vander.Set(i, k, p)
			p *= t
		}
	}
	eye := mat.NewDense(window, window, nil)
	for i := 0; i < window; i++ {
		eye.Set(i, i, 1)
	}

	var pinv mat.Dense
	if err := pinv.Solve(vander, eye); err != nil {
		return nil, fmt.Errorf("savgol least squares: %w", err)
	}
	return &SavitzkyGolay{window: window, order: order, pinv: &pinv}, nil
}

// Smooth returns the filtered copy of x. The window must fit in x.
func (s *SavitzkyGolay) Smooth(x []float64) ([]float64, error) {
	n := len(x)
	if s.window > n {
		return nil, &ConfigError{Param: "savgol window", Reason: fmt.Sprintf("window %d larger than %d samples", s.window, n)}
	}
	half := s.window / 2
	out := make([]float64, n)

	for i := half; i < n-half; i++ {
		var acc float64
		for j := 0; j < s.window; j++ {
			acc += s.pinv.At(0, j) * x[i-half+j]
		}
		out[i] = acc
	}

	head := s.fit(x[:s.window])
	tail := s.fit(x[n-s.window:])
	for i := 0; i < half; i++ {
		out[i] = eval(head, float64(i-half))
		out[n-1-i] = eval(tail, float64(half-i))
	}
	return out, nil
}

func (s *SavitzkyGolay) fit(w []float64) []float64 {
	coef := make([]float64, s.order+1)
	for k := range coef {
		for j, v := range w {
			coef[k] += s.pinv.At(k, j) * v
		}
	}
	return coef
}

func eval(coef []float64, t float64) float64 {
	var y float64
	for k := len(coef) - 1; k >= 0; k-- {
		y = y*t + coef[k]
	}
	return y
}
