// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package classifier

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedModel struct {
	in     int
	scores []float64
}

func (f fixedModel) Predict(x []float64) ([]float64, error) { return f.scores, nil }
func (f fixedModel) InputWidth() int                         { return f.in }
func (f fixedModel) OutputWidth() int                        { return len(f.scores) }

func TestDefaultLabels(t *testing.T) {
	l := DefaultLabels()
	require.Equal(t, 6, l.Len())

	name, ok := l.Name(0)
	assert.True(t, ok)
	assert.Equal(t, IdleLabel, name)

	code, ok := l.Code("chicken")
	assert.True(t, ok)
	assert.Equal(t, 3, code)

	_, ok = l.Name(6)
	assert.False(t, ok)
	_, ok = l.Code("moonwalk")
	assert.False(t, ok)
}

func TestExtendedLabels(t *testing.T) {
	l := ExtendedLabels()
	assert.Equal(t, 12, l.Len())
	code, ok := l.Code(LogoutLabel)
	assert.True(t, ok)
	assert.Equal(t, 11, code)
}

func TestNewLabelsValidation(t *testing.T) {
	tests := []struct {
		name    string
		entries []Label
	}{
		{"empty", nil},
		{"gap", []Label{{0, IdleLabel}, {2, "wipers"}}},
		{"duplicate code", []Label{{0, IdleLabel}, {0, "wipers"}}},
		{"duplicate name", []Label{{0, IdleLabel}, {1, IdleLabel}}},
		{"empty name", []Label{{0, IdleLabel}, {1, ""}}},
		{"no idle", []Label{{0, "wipers"}, {1, "chicken"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLabels(tt.entries)
			assert.Error(t, err)
		})
	}
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- code: 0
  name: IDLE
- code: 1
  name: wipers
- code: 2
  name: logout
`), 0o644))

	l, err := LoadLabels(path)
	require.NoError(t, err)
	name, _ := l.Name(2)
	assert.Equal(t, LogoutLabel, name)
}

func TestPredictArgmax(t *testing.T) {
	c, err := New(fixedModel{in: 3, scores: []float64{0.1, 0.05, 0.6, 0.1, 0.1, 0.05}}, DefaultLabels())
	require.NoError(t, err)

	p, err := c.Predict([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Code)
	assert.Equal(t, "number7", p.Label)
	assert.Equal(t, 0.6, p.Confidence)
}

func TestPredictTieGoesToLowestCode(t *testing.T) {
	c, err := New(fixedModel{in: 1, scores: []float64{0.1, 0.4, 0.1, 0.4, 0, 0}}, DefaultLabels())
	require.NoError(t, err)

	p, err := c.Predict([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, "wipers", p.Label)
}

func TestPredictWidthMismatch(t *testing.T) {
	c, err := New(fixedModel{in: 60, scores: make([]float64, 6)}, DefaultLabels())
	require.NoError(t, err)

	_, err = c.Predict(make([]float64, 59))
	assert.ErrorIs(t, err, ErrInputWidth)
}

func TestNewRejectsLabelMismatch(t *testing.T) {
	_, err := New(fixedModel{in: 1, scores: make([]float64, 5)}, DefaultLabels())
	assert.ErrorIs(t, err, ErrLabelMismatch)
}

func TestMLPForward(t *testing.T) {
	m, err := NewMLP([]LayerSpec{
		{Weights: [][]float64{{1, -1}, {2, 0}}, Bias: []float64{0, 1}, Activation: ActivationReLU},
		{Weights: [][]float64{{1, 0}, {0, 1}}, Bias: []float64{0, 0}, Activation: ActivationSoftmax},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.InputWidth())
	assert.Equal(t, 2, m.OutputWidth())

	// hidden = relu([1*1+2*1, -1*1+0*1+1]) = [3, 0]
	out, err := m.Predict([]float64{1, 1})
	require.NoError(t, err)
	e := math.Exp(3)
	assert.InDelta(t, e/(e+1), out[0], 1e-12)
	assert.InDelta(t, 1/(e+1), out[1], 1e-12)

	_, err = m.Predict([]float64{1})
	assert.ErrorIs(t, err, ErrInputWidth)
}

func TestNewMLPValidation(t *testing.T) {
	_, err := NewMLP(nil)
	assert.Error(t, err)

	_, err = NewMLP([]LayerSpec{{Weights: [][]float64{{1}}, Bias: []float64{0, 0}}})
	assert.Error(t, err)

	_, err = NewMLP([]LayerSpec{{Weights: [][]float64{{1}}, Bias: []float64{0}, Activation: "gelu"}})
	assert.Error(t, err)

	_, err = NewMLP([]LayerSpec{
		{Weights: [][]float64{{1, 1}}, Bias: []float64{0, 0}},
		{Weights: [][]float64{{1}}, Bias: []float64{0}},
	})
	assert.Error(t, err)
}

func TestLoadMLP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"layers":[{"weights":[[0.5],[0.5]],"bias":[1],"activation":"linear"}]}`), 0o644))

	m, err := LoadMLP(path)
	require.NoError(t, err)
	out, err := m.Predict([]float64{2, 4})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, out[0], 1e-12)
}
