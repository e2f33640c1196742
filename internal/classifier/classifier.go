// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package classifier wraps a pretrained model and its label table.
package classifier

import (
	"errors"
	"fmt"
)

var (
	// ErrInputWidth is wrapped when a feature vector does not match the model.
	ErrInputWidth = errors.New("input width mismatch")
	// ErrLabelMismatch is returned when model outputs and labels disagree.
	ErrLabelMismatch = errors.New("model outputs do not match label table")
)

// Prediction is the most likely class for one segment.
type Prediction struct {
	Code       int
	Label      string
	Confidence float64
}

// Classifier picks the arg-max class of a Model.
type Classifier struct {
	model  Model
	labels *Labels
}

func New(model Model, labels *Labels) (*Classifier, error) {
	if model.OutputWidth() != labels.Len() {
		return nil, fmt.Errorf("%w: %d outputs, %d labels", ErrLabelMismatch, model.OutputWidth(), labels.Len())
	}
	return &Classifier{model: model, labels: labels}, nil
}

func (c *Classifier) Labels() *Labels { return c.labels }

// Predict classifies a feature vector. Ties go to the lowest code.
func (c *Classifier) Predict(features []float64) (Prediction, error) {
	if len(features) != c.model.InputWidth() {
		return Prediction{}, fmt.Errorf("classifier: %w: want %d, got %d", ErrInputWidth, c.model.InputWidth(), len(features))
	}
	scores, err := c.model.Predict(features)
	if err != nil {
		return Prediction{}, err
	}
	if len(scores) != c.labels.Len() {
		return Prediction{}, fmt.Errorf("%w: got %d scores", ErrLabelMismatch, len(scores))
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	name, _ := c.labels.Name(best)
	return Prediction{Code: best, Label: name, Confidence: scores[best]}, nil
}
