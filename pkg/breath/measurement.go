/*
GroovTube Core
Copyright (c) 2026 The GroovTube Core Contributors.
SPDX-License-Identifier: GPL-3.0-or-later

This file is part of GroovTube Core.

GroovTube Core is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GroovTube Core is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GroovTube Core.  If not, see <http://www.gnu.org/licenses/>.
*/

package breath

import (
	"time"
)

// Meta describes a measurement run as entered by the operator.
type Meta struct {
	Name        string      `json:"name"`
	Date        string      `json:"date"`
	Diameter    string      `json:"diameter"`
	ActiveTypes ActiveTypes `json:"active_types"`
}

// TypeSummary aggregates the actions of one type. Means are zero when Count
// is zero.
type TypeSummary struct {
	Count        int     `json:"count"`
	MeanDuration float64 `json:"mean_duration_s"`
	MeanPeak     float64 `json:"mean_peak"`
}

type Summary struct {
	Expiration  TypeSummary `json:"expiration"`
	Inspiration TypeSummary `json:"inspiration"`
}

// Measurement records the actions of one run.
type Measurement struct {
	started time.Time
	stopped time.Time
	seg     *Segmenter
	meta    Meta
	actions []Action
}

// NewMeasurement starts a run at start. An empty date defaults to the start
// day.
func NewMeasurement(meta Meta, threshold float64, start time.Time) *Measurement {
	if meta.Date == "" {
		meta.Date = start.Format(time.DateOnly)
	}
	return &Measurement{
		meta:    meta,
		seg:     NewSegmenter(threshold, meta.ActiveTypes),
		started: start,
	}
}

// Add feeds one sample and returns the action it closed, if any.
func (m *Measurement) Add(v float64, ts time.Time) (Action, bool) {
	if !m.stopped.IsZero() {
		return Action{}, false
	}
	a, ok := m.seg.Feed(v, ts)
	if ok {
		m.actions = append(m.actions, a)
	}
	return a, ok
}

// Stop ends the run, closing any open action at ts.
func (m *Measurement) Stop(ts time.Time) (Action, bool) {
	if !m.stopped.IsZero() {
		return Action{}, false
	}
	m.stopped = ts
	a, ok := m.seg.Stop(ts)
	if ok {
		m.actions = append(m.actions, a)
	}
	return a, ok
}

func (m *Measurement) Meta() Meta {
	return m.meta
}

func (m *Measurement) Stopped() bool {
	return !m.stopped.IsZero()
}

// Actions returns a copy of the closed actions in order.
func (m *Measurement) Actions() []Action {
	out := make([]Action, len(m.actions))
	copy(out, m.actions)
	return out
}

// Summary computes counts and means per type.
func (m *Measurement) Summary() Summary {
	return Summarize(m.actions)
}

// Report snapshots the run under id.
func (m *Measurement) Report(id string) Report {
	return Report{
		ID:        id,
		Meta:      m.meta,
		StartedAt: m.started,
		StoppedAt: m.stopped,
		Actions:   m.Actions(),
		Summary:   m.Summary(),
	}
}

func Summarize(actions []Action) Summary {
	var s Summary
	var expDur, expPeak, insDur, insPeak float64
	for _, a := range actions {
		switch a.Type {
		case Expiration:
			s.Expiration.Count++
			expDur += a.DurationSeconds
			expPeak += a.Peak
		case Inspiration:
			s.Inspiration.Count++
			insDur += a.DurationSeconds
			insPeak += a.Peak
		case None:
		}
	}
	if n := float64(s.Expiration.Count); n > 0 {
		s.Expiration.MeanDuration = expDur / n
		s.Expiration.MeanPeak = expPeak / n
	}
	if n := float64(s.Inspiration.Count); n > 0 {
		s.Inspiration.MeanDuration = insDur / n
		s.Inspiration.MeanPeak = insPeak / n
	}
	return s
}
