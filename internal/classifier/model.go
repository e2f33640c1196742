// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
)

// Model maps a feature vector to per-class scores.
type Model interface {
	Predict(features []float64) ([]float64, error)
	InputWidth() int
	OutputWidth() int
}

// Activation names accepted in model files.
const (
	ActivationLinear  = "linear"
	ActivationReLU    = "relu"
	ActivationTanh    = "tanh"
	ActivationSigmoid = "sigmoid"
	ActivationSoftmax = "softmax"
)

// LayerSpec is the on-disk form of a dense layer. Weights are stored
// input-major (Keras kernel layout): Weights[i][j] connects input i to
// output j.
type LayerSpec struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

type dense struct {
	w   *mat.Dense // inputs x outputs
	b   *mat.VecDense
	act string
}

// MLP is a feed-forward network of dense layers.
type MLP struct {
	layers []dense
}

// NewMLP validates layer shapes and activations.
func NewMLP(specs []LayerSpec) (*MLP, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("model: no layers")
	}
	m := &MLP{}
	prev := 0
	for i, s := range specs {
		rows := len(s.Weights)
		if rows == 0 || len(s.Weights[0]) == 0 {
			return nil, fmt.Errorf("model: layer %d has empty weights", i)
		}
		cols := len(s.Weights[0])
		if i > 0 && rows != prev {
			return nil, fmt.Errorf("model: layer %d expects %d inputs, previous layer has %d outputs", i, rows, prev)
		}
		if len(s.Bias) != cols {
			return nil, fmt.Errorf("model: layer %d bias has %d entries, want %d", i, len(s.Bias), cols)
		}
		switch s.Activation {
		case "", ActivationLinear, ActivationReLU, ActivationTanh, ActivationSigmoid, ActivationSoftmax:
		default:
			return nil, fmt.Errorf("model: layer %d: unknown activation %q", i, s.Activation)
		}

		flat := make([]float64, 0, rows*cols)
		for r, row := range s.Weights {
			if len(row) != cols {
				return nil, fmt.Errorf("model: layer %d row %d has %d weights, want %d", i, r, len(row), cols)
			}
			flat = append(flat, row...)
		}
		m.layers = append(m.layers, dense{
			w:   mat.NewDense(rows, cols, flat),
			b:   mat.NewVecDense(cols, append([]float64(nil), s.Bias...)),
			act: s.Activation,
		})
		prev = cols
	}
	return m, nil
}

// LoadMLP reads a model file of the form {"layers": [...]}.
func LoadMLP(path string) (*MLP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	var file struct {
		Layers []LayerSpec `json:"layers"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse model file %s: %w", path, err)
	}
	return NewMLP(file.Layers)
}

func (m *MLP) InputWidth() int {
	r, _ := m.layers[0].w.Dims()
	return r
}

func (m *MLP) OutputWidth() int {
	_, c := m.layers[len(m.layers)-1].w.Dims()
	return c
}

func (m *MLP) Predict(features []float64) ([]float64, error) {
	if len(features) != m.InputWidth() {
		return nil, fmt.Errorf("model: %w: want %d, got %d", ErrInputWidth, m.InputWidth(), len(features))
	}
	x := mat.NewVecDense(len(features), append([]float64(nil), features...))
	for _, l := range m.layers {
		_, cols := l.w.Dims()
		y := mat.NewVecDense(cols, nil)
		y.MulVec(l.w.T(), x)
		y.AddVec(y, l.b)
		activate(l.act, y.RawVector().Data)
		x = y
	}
	return append([]float64(nil), x.RawVector().Data...), nil
}

func activate(name string, v []float64) {
	switch name {
	case ActivationReLU:
		for i := range v {
			v[i] = math.Max(0, v[i])
		}
	case ActivationTanh:
		for i := range v {
			v[i] = math.Tanh(v[i])
		}
	case ActivationSigmoid:
		for i := range v {
			v[i] = 1 / (1 + math.Exp(-v[i]))
		}
	case ActivationSoftmax:
		peak := math.Inf(-1)
		for _, x := range v {
			peak = math.Max(peak, x)
		}
		var sum float64
		for i := range v {
			v[i] = math.Exp(v[i] - peak)
			sum += v[i]
		}
		for i := range v {
			v[i] /= sum
		}
	}
}
