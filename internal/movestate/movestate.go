// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package movestate gates detections: a move is only confirmed after an
// idle segment has been seen, and only when the classifier is confident.
package movestate

import (
	"sync"

	"github.com/relabs-tech/dance_edge/internal/classifier"
)

// DefaultThreshold is the minimum confidence for a confirmed move.
const DefaultThreshold = 0.95

type State int

const (
	Idle        State = 1
	Determining State = 2
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Determining:
		return "DETERMINING"
	default:
		return "UNKNOWN"
	}
}

// Transition returns the next state and whether p is a confirmed detection.
//
//	IDLE        + IDLE prediction                  -> DETERMINING
//	DETERMINING + move with confidence >= threshold -> IDLE, emit
//
// Every other combination keeps the state and emits nothing.
func Transition(s State, p classifier.Prediction, threshold float64) (State, bool) {
	switch {
	case s == Idle && p.Label == classifier.IdleLabel:
		return Determining, false
	case s == Determining && p.Label != classifier.IdleLabel && p.Confidence >= threshold:
		return Idle, true
	default:
		return s, false
	}
}

// Machine holds the current state. The pipeline drives it from one
// goroutine; the mutex only covers readers such as the web hub.
type Machine struct {
	mu        sync.RWMutex
	state     State
	threshold float64
}

func NewMachine(threshold float64) *Machine {
	return &Machine{state: Idle, threshold: threshold}
}

// Step applies one prediction and reports whether it was confirmed.
func (m *Machine) Step(p classifier.Prediction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, emit := Transition(m.state, p, m.threshold)
	m.state = next
	return emit
}

func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}
