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

// Package settings holds the host-side mirror of the device settings and the
// backup file format used to export and import them.
package settings

import (
	"maps"
	"slices"
)

// Well-known keys. The map is otherwise opaque; only view code interprets it.
const (
	KeyBlowGPIOThreshold   = "blow_gpio_threshold"
	KeyInhaleGPIOThreshold = "inhale_gpio_threshold"
	KeyBlowThreshold       = "blow_threshold"
	KeyInhaleThreshold     = "inhale_threshold"
	KeyGPIODuration        = "gpio_duration"
	KeyDeadzone            = "deadzone"
	KeyJoystickInhaleMax   = "joystick_inhale_max"
	KeyJoystickExhaleMax   = "joystick_exhale_max"
	KeyLEDSingleColor      = "led_single_color"
	KeyPEPStartColor       = "pep_start_color"
	KeyPEPSuccessColor     = "pep_success_color"
	KeyJoystickModeEnabled = "joystick_mode_enabled"
	KeyGPIOModeEnabled     = "gpio_mode_enabled"
	KeyPEPModeEnabled      = "pep_mode_enabled"
)

// ColorKeys lists keys whose values are RGB triplets.
var ColorKeys = []string{KeyLEDSingleColor, KeyPEPStartColor, KeyPEPSuccessColor}

// Values maps setting keys to JSON-compatible values: float64, string, bool,
// or a colour triplet.
type Values map[string]any

// Clone returns a deep copy, so callers can hand the cache to observers
// without sharing nested slices.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = cloneValue(val)
	}
	return out
}

// Overlay writes every key of src into v, replacing whole values. Nested
// structures are replaced, never merged. It returns the keys written, sorted.
func (v Values) Overlay(src map[string]any) []string {
	for k, val := range src {
		v[k] = cloneValue(val)
	}
	return slices.Sorted(maps.Keys(src))
}

// Keys returns the keys in sorted order.
func (v Values) Keys() []string {
	return slices.Sorted(maps.Keys(v))
}

// Float returns a numeric setting.
func (v Values) Float(key string) (float64, bool) {
	switch n := v[key].(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Bool returns a boolean setting.
func (v Values) Bool(key string) (value, ok bool) {
	value, ok = v[key].(bool)
	return value, ok
}

func cloneValue(val any) any {
	switch x := val.(type) {
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, inner := range x {
			out[k] = cloneValue(inner)
		}
		return out
	case []int:
		return slices.Clone(x)
	case []float64:
		return slices.Clone(x)
	default:
		return val
	}
}
