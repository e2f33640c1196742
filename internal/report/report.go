// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package report turns a confirmed detection into the record sent to the
// game server:
//
//	#<label>|<voltage>|<current>|<power>|<energy>|
//
// or the bare label for logout.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"github.com/relabs-tech/dance_edge/internal/classifier"
	"github.com/relabs-tech/dance_edge/internal/telemetry"
)

const (
	recordPrefix = "#"
	fieldSep     = "|"
)

// Event is a confirmed detection. Power metrics are segment means rounded
// to two decimals; they are zero for logout.
type Event struct {
	ID         string
	Label      string
	Voltage    float64
	Current    float64
	Power      float64
	Energy     float64
	DetectedAt time.Time
	Logout     bool
}

// Envelope is the JSON form published alongside the record.
type Envelope struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Voltage    float64   `json:"voltage"`
	Current    float64   `json:"current"`
	Power      float64   `json:"power"`
	Energy     float64   `json:"energy"`
	Record     string    `json:"record"`
	DetectedAt time.Time `json:"detected_at"`
	Logout     bool      `json:"logout"`
}

// NewEvent builds the event for label from a segment's aux block.
func NewEvent(label string, aux [][telemetry.AuxChannels]float64) (Event, error) {
	ev := Event{
		ID:         uuid.NewString(),
		Label:      label,
		DetectedAt: time.Now().UTC(),
	}
	if label == classifier.LogoutLabel {
		ev.Logout = true
		return ev, nil
	}
	if len(aux) == 0 {
		return Event{}, fmt.Errorf("report: no aux samples for %s", label)
	}

	var means [telemetry.AuxChannels]float64
	col := make(stats.Float64Data, len(aux))
	for ch := range means {
		for i, row := range aux {
			col[i] = row[ch]
		}
		m, err := stats.Mean(col)
		if err != nil {
			return Event{}, fmt.Errorf("report: aux channel %d: %w", ch, err)
		}
		means[ch] = round2(m)
	}
	ev.Voltage, ev.Current, ev.Power, ev.Energy = means[0], means[1], means[2], means[3]
	return ev, nil
}

// Record renders the wire record.
func (e Event) Record() string {
	if e.Logout {
		return e.Label
	}
	var b strings.Builder
	b.WriteString(recordPrefix)
	b.WriteString(e.Label)
	b.WriteString(fieldSep)
	for _, v := range []float64{e.Voltage, e.Current, e.Power, e.Energy} {
		b.WriteString(formatFloat(v))
		b.WriteString(fieldSep)
	}
	return b.String()
}

func (e Event) Envelope() Envelope {
	return Envelope{
		ID:         e.ID,
		Label:      e.Label,
		Voltage:    e.Voltage,
		Current:    e.Current,
		Power:      e.Power,
		Energy:     e.Energy,
		Record:     e.Record(),
		DetectedAt: e.DetectedAt,
		Logout:     e.Logout,
	}
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Envelope())
}

// Event converts a decoded envelope back into an Event.
func (env Envelope) Event() Event {
	return Event{
		ID:         env.ID,
		Label:      env.Label,
		Voltage:    env.Voltage,
		Current:    env.Current,
		Power:      env.Power,
		Energy:     env.Energy,
		DetectedAt: env.DetectedAt,
		Logout:     env.Logout,
	}
}

// ParseRecord decodes a wire record. A record without the '#' prefix is a
// logout. ID and DetectedAt are not part of the record and stay empty.
func ParseRecord(s string) (Event, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Event{}, fmt.Errorf("report: empty record")
	}
	if !strings.HasPrefix(s, recordPrefix) {
		return Event{Label: s, Logout: true}, nil
	}

	fields := strings.Split(strings.TrimPrefix(s, recordPrefix), fieldSep)
	// trailing separator leaves an empty last field
	if len(fields) != 6 || fields[5] != "" || fields[0] == "" {
		return Event{}, fmt.Errorf("report: malformed record %q", s)
	}
	var vals [telemetry.AuxChannels]float64
	for i := range vals {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return Event{}, fmt.Errorf("report: field %d of %q: %w", i+1, s, err)
		}
		vals[i] = v
	}
	return Event{
		Label:   fields[0],
		Voltage: vals[0],
		Current: vals[1],
		Power:   vals[2],
		Energy:  vals[3],
	}, nil
}

// round2 rounds to two decimals on the exact binary value, half to even.
func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// formatFloat writes the shortest representation that always shows a
// decimal point, e.g. 5 -> "5.0", 3.14 -> "3.14".
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.Abs(v) >= 1e16:
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
