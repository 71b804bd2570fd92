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

// Package breath segments the continuous breath signal into discrete
// inspiration and expiration actions.
package breath

import (
	"fmt"
	"strings"
	"time"
)

// DefaultNeutralThreshold is the half-width of the neutral band around zero.
const DefaultNeutralThreshold = 0.025

// ActionType classifies a sample or an action.
type ActionType int

const (
	None ActionType = iota
	Expiration
	Inspiration
)

func (t ActionType) String() string {
	switch t {
	case Expiration:
		return "expiration"
	case Inspiration:
		return "inspiration"
	default:
		return "none"
	}
}

func (t ActionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ActionType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "expiration":
		*t = Expiration
	case "inspiration":
		*t = Inspiration
	case "none":
		*t = None
	default:
		return fmt.Errorf("unknown action type %q", b)
	}
	return nil
}

// ActiveTypes selects which directions a measurement run detects.
type ActiveTypes int

const (
	Both ActiveTypes = iota
	ExpirationOnly
	InspirationOnly
)

// ParseActiveTypes accepts the English names and the Dutch names used by the
// web panel ("expiratie", "inspiratie", "beide").
func ParseActiveTypes(s string) (ActiveTypes, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both", "beide":
		return Both, nil
	case "expiration", "expiratie":
		return ExpirationOnly, nil
	case "inspiration", "inspiratie":
		return InspirationOnly, nil
	default:
		return Both, fmt.Errorf("unknown measurement type %q", s)
	}
}

func (a ActiveTypes) String() string {
	switch a {
	case ExpirationOnly:
		return "expiration"
	case InspirationOnly:
		return "inspiration"
	default:
		return "both"
	}
}

func (a ActiveTypes) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *ActiveTypes) UnmarshalText(b []byte) error {
	v, err := ParseActiveTypes(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (a ActiveTypes) allows(t ActionType) bool {
	switch a {
	case ExpirationOnly:
		return t == Expiration
	case InspirationOnly:
		return t == Inspiration
	default:
		return true
	}
}

// Action is one completed breath. Peak is signed: the most positive value for
// an expiration, the most negative for an inspiration.
type Action struct {
	Start           time.Time  `json:"start"`
	Type            ActionType `json:"type"`
	Peak            float64    `json:"peak"`
	DurationSeconds float64    `json:"duration_s"`
}

// Segmenter holds at most one open action. It is not safe for concurrent use.
type Segmenter struct {
	open      Action
	threshold float64
	active    ActiveTypes
	isOpen    bool
}

func NewSegmenter(threshold float64, active ActiveTypes) *Segmenter {
	if threshold <= 0 {
		threshold = DefaultNeutralThreshold
	}
	return &Segmenter{
		threshold: threshold,
		active:    active,
	}
}

// Classify maps a value to a type. The threshold itself is neutral, and so is
// NaN since it compares false against both bounds.
func (s *Segmenter) Classify(v float64) ActionType {
	t := None
	switch {
	case v > s.threshold:
		t = Expiration
	case v < -s.threshold:
		t = Inspiration
	}
	if t != None && !s.active.allows(t) {
		return None
	}
	return t
}

// Feed processes one sample. When the classification differs from the open
// action, that action is closed at ts and returned.
func (s *Segmenter) Feed(v float64, ts time.Time) (Action, bool) {
	t := s.Classify(v)

	if s.isOpen && s.open.Type == t {
		if t == Expiration {
			s.open.Peak = max(s.open.Peak, v)
		} else {
			s.open.Peak = min(s.open.Peak, v)
		}
		return Action{}, false
	}

	closed, ok := s.close(ts)

	if t != None {
		s.open = Action{Type: t, Start: ts, Peak: v}
		s.isOpen = true
	}

	return closed, ok
}

// Stop force-closes the open action, if any, at ts.
func (s *Segmenter) Stop(ts time.Time) (Action, bool) {
	return s.close(ts)
}

// Current returns the open action without closing it.
func (s *Segmenter) Current() (Action, bool) {
	return s.open, s.isOpen
}

func (s *Segmenter) close(ts time.Time) (Action, bool) {
	if !s.isOpen {
		return Action{}, false
	}
	a := s.open
	a.DurationSeconds = ts.Sub(a.Start).Seconds()
	s.open = Action{}
	s.isOpen = false
	return a, true
}
