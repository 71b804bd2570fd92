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

package protocol

import "time"

// Event is a decoded inbound line.
type Event interface {
	event()
}

// BreathSample is one reading of the breath sensor. Value is NaN when the
// payload could not be parsed.
type BreathSample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Snapshot is a full settings payload pushed by the device.
type Snapshot struct {
	Settings map[string]any `json:"settings"`
}

// Ack acknowledges the previous command. It carries no correlation.
type Ack struct{}

// DeviceError is an ERROR line reported by the firmware.
type DeviceError struct {
	Message string `json:"message"`
}

// PEPProgress reports repetitions reached in PEP training mode.
type PEPProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// PEPReward asks the host to play a reward, e.g. Action "PLAY_MP3" with the
// file name as Argument.
type PEPReward struct {
	Action   string `json:"action"`
	Argument string `json:"argument"`
}

// Export is the reply to an EXPORT command. It is informational only.
type Export struct {
	Settings map[string]any `json:"settings"`
}

// DeviceMeasurements is the firmware's own running measurement summary.
// Extremes are nil until the device has seen a breath in that direction.
type DeviceMeasurements struct {
	MaxExhale     *float64 `json:"max_exhale"`
	MinInhale     *float64 `json:"min_inhale"`
	LongestExhale float64  `json:"longest_exhale"`
	LongestInhale float64  `json:"longest_inhale"`
}

func (BreathSample) event()       {}
func (Snapshot) event()           {}
func (Ack) event()                {}
func (DeviceError) event()        {}
func (PEPProgress) event()        {}
func (PEPReward) event()          {}
func (Export) event()             {}
func (DeviceMeasurements) event() {}
