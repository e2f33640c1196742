// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package features

import (
	"encoding/json"
	"fmt"
	"os"
)

// Transformer is a pretrained, read-only vector transform.
type Transformer interface {
	Transform(x []float64) ([]float64, error)
	Width() int
}

// MinMaxScaler maps each feature with x*Scale + Min (scikit-learn's
// fitted scale_ and min_ attributes).
type MinMaxScaler struct {
	Scale []float64 `json:"scale"`
	Min   []float64 `json:"min"`
}

// Width is 0 when Scale and Min disagree in length.
func (m *MinMaxScaler) Width() int {
	if len(m.Scale) != len(m.Min) {
		return 0
	}
	return len(m.Scale)
}

func (m *MinMaxScaler) Transform(x []float64) ([]float64, error) {
	if w := m.Width(); w == 0 || len(x) != w {
		return nil, fmt.Errorf("min-max scaler: %w: want %d, got %d", ErrWidthMismatch, w, len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v*m.Scale[i] + m.Min[i]
	}
	return out, nil
}

// StandardScaler maps each feature with (x - Mean) / Scale. A zero scale
// (constant feature during fitting) is treated as 1.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Width is 0 when Mean and Scale disagree in length.
func (s *StandardScaler) Width() int {
	if len(s.Mean) != len(s.Scale) {
		return 0
	}
	return len(s.Mean)
}

func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if w := s.Width(); w == 0 || len(x) != w {
		return nil, fmt.Errorf("standard scaler: %w: want %d, got %d", ErrWidthMismatch, w, len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out, nil
}

// LoadMinMaxScaler reads a MinMaxScaler from a JSON artifact.
func LoadMinMaxScaler(path string) (*MinMaxScaler, error) {
	var m MinMaxScaler
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	if m.Width() == 0 {
		return nil, fmt.Errorf("min-max scaler %s: scale/min lengths %d/%d", path, len(m.Scale), len(m.Min))
	}
	return &m, nil
}

// LoadStandardScaler reads a StandardScaler from a JSON artifact.
func LoadStandardScaler(path string) (*StandardScaler, error) {
	var s StandardScaler
	if err := readJSON(path, &s); err != nil {
		return nil, err
	}
	if s.Width() == 0 {
		return nil, fmt.Errorf("standard scaler %s: mean/scale lengths %d/%d", path, len(s.Mean), len(s.Scale))
	}
	return &s, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unable to parse %s: %w", path, err)
	}
	return nil
}
