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

// Package status derives the three-state device indicator from connection
// state and breath sample recency.
package status

import (
	"fmt"
	"time"
)

const (
	// ActiveWindow is how recent the last sample must be for ActiveData.
	ActiveWindow = 2000 * time.Millisecond
	// PollInterval is how often the mode is recomputed while connected.
	PollInterval = 500 * time.Millisecond
)

type Mode int

const (
	Disconnected Mode = iota
	AdapterConnected
	ActiveData
)

func (m Mode) String() string {
	switch m {
	case AdapterConnected:
		return "adapter"
	case ActiveData:
		return "active"
	default:
		return "disconnected"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "disconnected":
		*m = Disconnected
	case "adapter":
		*m = AdapterConnected
	case "active":
		*m = ActiveData
	default:
		return fmt.Errorf("unknown status mode %q", b)
	}
	return nil
}

// Compute uses the default active window. A zero lastSample means no sample
// has been seen on this connection.
func Compute(connected bool, lastSample, now time.Time) Mode {
	return ComputeWindow(connected, lastSample, now, ActiveWindow)
}

// ComputeWindow is Compute with an explicit active window. The window end
// is inclusive.
func ComputeWindow(connected bool, lastSample, now time.Time, window time.Duration) Mode {
	if !connected {
		return Disconnected
	}
	if !lastSample.IsZero() && now.Sub(lastSample) <= window {
		return ActiveData
	}
	return AdapterConnected
}
