// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package features turns a segment's movement block into the fixed-width
// feature vector the classifier was trained on:
//
//	smooth (Savitzky-Golay) -> high-pass -> min-max scale
//	-> per-channel mean, variance, max, min, max-min, MAD
//	-> standard scale
//
// The order of statistics and channels must match training exactly.
package features

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/relabs-tech/dance_edge/internal/telemetry"
)

const (
	// StatsPerChannel is the number of summary statistics per channel.
	StatsPerChannel = 6
	// Width of the feature vector.
	Width = StatsPerChannel * telemetry.MovementChannels

	// madNormalizer makes the median absolute deviation a consistent
	// estimator of the standard deviation for normal data.
	madNormalizer = 0.6744897501960817
)

// Config holds the preprocessing parameters.
type Config struct {
	SampleRateHz     float64
	HighPassCornerHz float64
	HighPassCorners  int
	SavGolWindow     int
	SavGolOrder      int
}

// DefaultConfig returns the parameters the shipped model was trained with.
func DefaultConfig() Config {
	return Config{
		SampleRateHz:     50,
		HighPassCornerHz: 3,
		HighPassCorners:  4,
		SavGolWindow:     3,
		SavGolOrder:      2,
	}
}

// Extractor is safe for sequential reuse; it holds no per-segment state.
type Extractor struct {
	smoother *SavitzkyGolay
	highPass *HighPass
	minMax   Transformer
	standard Transformer
}

func NewExtractor(cfg Config, minMax, standard Transformer) (*Extractor, error) {
	sg, err := NewSavitzkyGolay(cfg.SavGolWindow, cfg.SavGolOrder)
	if err != nil {
		return nil, err
	}
	hp, err := NewHighPass(cfg.HighPassCornerHz, cfg.SampleRateHz, cfg.HighPassCorners)
	if err != nil {
		return nil, err
	}
	if minMax.Width() != telemetry.MovementChannels {
		return nil, fmt.Errorf("min-max scaler: %w: want %d, got %d", ErrWidthMismatch, telemetry.MovementChannels, minMax.Width())
	}
	if standard.Width() != Width {
		return nil, fmt.Errorf("standard scaler: %w: want %d, got %d", ErrWidthMismatch, Width, standard.Width())
	}
	return &Extractor{smoother: sg, highPass: hp, minMax: minMax, standard: standard}, nil
}

// Extract computes the standardized feature vector of a movement block.
func (e *Extractor) Extract(movement [][telemetry.MovementChannels]float64) ([]float64, error) {
	n := len(movement)
	if n == 0 {
		return nil, &ConfigError{Param: "segment", Reason: "no samples"}
	}

	var cols [telemetry.MovementChannels][]float64
	for ch := range cols {
		col := make([]float64, n)
		for i, row := range movement {
			col[i] = row[ch]
		}
		smoothed, err := e.smoother.Smooth(col)
		if err != nil {
			return nil, err
		}
		cols[ch] = e.highPass.Filter(smoothed)
	}

	row := make([]float64, telemetry.MovementChannels)
	for i := 0; i < n; i++ {
		for ch := range cols {
			row[ch] = cols[ch][i]
		}
		scaled, err := e.minMax.Transform(row)
		if err != nil {
			return nil, err
		}
		for ch := range cols {
			cols[ch][i] = scaled[ch]
		}
	}

	vec := make([]float64, Width)
	for ch, col := range cols {
		s, err := summarize(col)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		for k, v := range s {
			vec[k*telemetry.MovementChannels+ch] = v
		}
	}
	return e.standard.Transform(vec)
}

// summarize returns mean, variance, max, min, max-min and MAD of one channel.
func summarize(col []float64) ([StatsPerChannel]float64, error) {
	var out [StatsPerChannel]float64
	data := stats.Float64Data(col)

	mean, err := stats.Mean(data)
	if err != nil {
		return out, err
	}
	variance, err := stats.PopulationVariance(data)
	if err != nil {
		return out, err
	}
	hi, err := stats.Max(data)
	if err != nil {
		return out, err
	}
	lo, err := stats.Min(data)
	if err != nil {
		return out, err
	}
	mad, err := stats.MedianAbsoluteDeviation(data)
	if err != nil {
		return out, err
	}

	out = [StatsPerChannel]float64{mean, variance, hi, lo, hi - lo, mad / madNormalizer}
	return out, nil
}
