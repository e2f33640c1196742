// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package classifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// IdleLabel is the rest class; it never produces a report.
	IdleLabel = "IDLE"
	// LogoutLabel ends a dancer's session and is reported without telemetry.
	LogoutLabel = "logout"
)

// Label is one class of the trained model.
type Label struct {
	Code int    `yaml:"code"`
	Name string `yaml:"name"`
}

// Labels is a bidirectional code<->name table. Codes are 0..n-1 and match
// the model's output indices.
type Labels struct {
	names  []string
	byName map[string]int
}

// DefaultLabels returns the six classes the shipped model was trained on.
func DefaultLabels() *Labels {
	l, _ := NewLabels([]Label{
		{Code: 0, Name: IdleLabel},
		{Code: 1, Name: "wipers"},
		{Code: 2, Name: "number7"},
		{Code: 3, Name: "chicken"},
		{Code: 4, Name: "sidestep"},
		{Code: 5, Name: "turnclap"},
	})
	return l
}

// ExtendedLabels returns the twelve-class table used by models trained with
// the additional moves and the logout gesture.
func ExtendedLabels() *Labels {
	l, _ := NewLabels([]Label{
		{Code: 0, Name: IdleLabel},
		{Code: 1, Name: "wipers"},
		{Code: 2, Name: "number7"},
		{Code: 3, Name: "chicken"},
		{Code: 4, Name: "sidestep"},
		{Code: 5, Name: "turnclap"},
		{Code: 6, Name: "numbersix"},
		{Code: 7, Name: "salute"},
		{Code: 8, Name: "mermaid"},
		{Code: 9, Name: "swing"},
		{Code: 10, Name: "cowboy"},
		{Code: 11, Name: LogoutLabel},
	})
	return l
}

// NewLabels builds a table. Codes must be exactly 0..len-1, names unique
// and non-empty, and code 0 must be IDLE.
func NewLabels(entries []Label) (*Labels, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("labels: empty table")
	}
	l := &Labels{
		names:  make([]string, len(entries)),
		byName: make(map[string]int, len(entries)),
	}
	seen := make([]bool, len(entries))
	for _, e := range entries {
		if e.Code < 0 || e.Code >= len(entries) {
			return nil, fmt.Errorf("labels: code %d out of range 0..%d", e.Code, len(entries)-1)
		}
		if seen[e.Code] {
			return nil, fmt.Errorf("labels: duplicate code %d", e.Code)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("labels: empty name for code %d", e.Code)
		}
		if _, dup := l.byName[e.Name]; dup {
			return nil, fmt.Errorf("labels: duplicate name %q", e.Name)
		}
		seen[e.Code] = true
		l.names[e.Code] = e.Name
		l.byName[e.Name] = e.Code
	}
	if l.names[0] != IdleLabel {
		return nil, fmt.Errorf("labels: code 0 must be %s, got %q", IdleLabel, l.names[0])
	}
	return l, nil
}

// LoadLabels reads a YAML list of {code, name} entries.
func LoadLabels(path string) (*Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	var entries []Label
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unable to parse labels file %s: %w", path, err)
	}
	return NewLabels(entries)
}

func (l *Labels) Len() int { return len(l.names) }

// Name returns the label for code.
func (l *Labels) Name(code int) (string, bool) {
	if code < 0 || code >= len(l.names) {
		return "", false
	}
	return l.names[code], true
}

// Code returns the code for name.
func (l *Labels) Code(name string) (int, bool) {
	c, ok := l.byName[name]
	return c, ok
}
