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

package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlay_ReplacesOnlyPresentKeys(t *testing.T) {
	t.Parallel()

	v := Values{"deadzone": 0.1, "gpio_duration": 100.0, "control_mode": "joystick"}

	keys := v.Overlay(map[string]any{"deadzone": 0.2, "other_key": 5.0})

	assert.Equal(t, []string{"deadzone", "other_key"}, keys)
	assert.Equal(t, Values{
		"deadzone":      0.2,
		"gpio_duration": 100.0,
		"control_mode":  "joystick",
		"other_key":     5.0,
	}, v)
}

func TestOverlay_ReplacesNestedValuesWhole(t *testing.T) {
	t.Parallel()

	v := Values{"led_single_color": []any{255.0, 0.0, 0.0}}
	v.Overlay(map[string]any{"led_single_color": []any{0.0, 255.0}})

	assert.Equal(t, []any{0.0, 255.0}, v["led_single_color"])
}

func TestOverlay_Idempotent(t *testing.T) {
	t.Parallel()

	snapshot := map[string]any{"deadzone": 0.2, "led_single_color": []any{1.0, 2.0, 3.0}}
	v := Values{"deadzone": 0.1}

	v.Overlay(snapshot)
	once := v.Clone()
	v.Overlay(snapshot)

	assert.Equal(t, once, v)
}

func TestClone_DoesNotAlias(t *testing.T) {
	t.Parallel()

	v := Values{"led_single_color": []any{255.0, 0.0, 0.0}}
	c := v.Clone()

	nested, ok := c["led_single_color"].([]any)
	require.True(t, ok)
	nested[0] = 1.0

	assert.Equal(t, []any{255.0, 0.0, 0.0}, v["led_single_color"])
}

func TestAccessors(t *testing.T) {
	t.Parallel()

	v := Values{
		"deadzone":          0.25,
		"gpio_duration":     100,
		"gpio_mode_enabled": true,
		"control_mode":      "buttons",
		"led_single_color":  []any{255.0, 128.0, 0.0},
	}

	f, ok := v.Float("deadzone")
	assert.True(t, ok)
	assert.InDelta(t, 0.25, f, 1e-12)

	f, ok = v.Float("gpio_duration")
	assert.True(t, ok)
	assert.InDelta(t, 100.0, f, 1e-12)

	_, ok = v.Float("control_mode")
	assert.False(t, ok)

	b, ok := v.Bool("gpio_mode_enabled")
	assert.True(t, ok)
	assert.True(t, b)

	c, ok := v.Color("led_single_color")
	assert.True(t, ok)
	assert.Equal(t, Color{255, 128, 0}, c)

	_, ok = v.Color("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"control_mode", "deadzone", "gpio_duration", "gpio_mode_enabled", "led_single_color"}, v.Keys())
}

func TestParseColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   any
		name    string
		want    Color
		wantErr bool
	}{
		{name: "json list", input: []any{255.0, 0.0, 10.0}, want: Color{255, 0, 10}},
		{name: "int slice", input: []int{1, 2, 3}, want: Color{1, 2, 3}},
		{name: "too short", input: []any{1.0, 2.0}, wantErr: true},
		{name: "too long", input: []any{1.0, 2.0, 3.0, 4.0}, wantErr: true},
		{name: "out of range", input: []any{256.0, 0.0, 0.0}, wantErr: true},
		{name: "negative", input: []any{-1.0, 0.0, 0.0}, wantErr: true},
		{name: "fraction", input: []any{1.5, 0.0, 0.0}, wantErr: true},
		{name: "string component", input: []any{"ff", 0.0, 0.0}, wantErr: true},
		{name: "hex string", input: "#ff0000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseColor(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
