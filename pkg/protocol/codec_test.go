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

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 24, 10, 0, 0, 0, time.UTC)

func TestEncodeCommands(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "GET:settings", EncodeGetSettings())
	assert.Equal(t, "GET:measurements", EncodeGetMeasurements())
	assert.Equal(t, "EXPORT", EncodeExport())
	assert.Equal(t, "SET:measure:true", EncodeSetMeasure(true))
	assert.Equal(t, "SET:measure:false", EncodeSetMeasure(false))
}

func TestEncodeSetSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		values   map[string]any
		name     string
		expected string
	}{
		{
			name:     "single float",
			values:   map[string]any{"deadzone": 0.1},
			expected: `SET:settings::{"deadzone":0.1}`,
		},
		{
			name:     "sorted keys",
			values:   map[string]any{"gpio_duration": 100, "blow_gpio_threshold": 0.7},
			expected: `SET:settings::{"blow_gpio_threshold":0.7,"gpio_duration":100}`,
		},
		{
			name:     "colour triplet",
			values:   map[string]any{"led_single_color": []int{255, 0, 12}},
			expected: `SET:settings::{"led_single_color":[255,0,12]}`,
		},
		{
			name:     "bool and string",
			values:   map[string]any{"gpio_mode_enabled": true, "control_mode": "joystick"},
			expected: `SET:settings::{"control_mode":"joystick","gpio_mode_enabled":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := EncodeSetSettings(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEncodeSetSettings_Errors(t *testing.T) {
	t.Parallel()

	_, err := EncodeSetSettings(map[string]any{})
	require.ErrorIs(t, err, ErrEmptyUpdate)

	_, err = EncodeSetSettings(map[string]any{"deadzone": math.NaN()})
	require.Error(t, err)
}

func TestDecode_BreathData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		line  string
		value float64
		isNaN bool
	}{
		{name: "positive", line: "BREATH_DATA:0.42", value: 0.42},
		{name: "negative", line: "BREATH_DATA:-0.125", value: -0.125},
		{name: "exponent", line: "BREATH_DATA:1e-05", value: 1e-05},
		{name: "trailing garbage", line: "BREATH_DATA:0.5abc", value: 0.5},
		{name: "extra segment", line: "BREATH_DATA:0.3:9", value: 0.3},
		{name: "leading space", line: "BREATH_DATA: 0.2", value: 0.2},
		{name: "empty", line: "BREATH_DATA:", isNaN: true},
		{name: "garbage", line: "BREATH_DATA:abc", isNaN: true},
		{name: "python nan", line: "BREATH_DATA:nan", isNaN: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev, err := Decode(tt.line, testNow)
			require.NoError(t, err)
			sample, ok := ev.(BreathSample)
			require.True(t, ok, "expected BreathSample, got %T", ev)
			assert.Equal(t, testNow, sample.Timestamp)
			if tt.isNaN {
				assert.True(t, math.IsNaN(sample.Value))
			} else {
				assert.InDelta(t, tt.value, sample.Value, 1e-12)
			}
		})
	}
}

func TestDecode_Settings(t *testing.T) {
	t.Parallel()

	ev, err := Decode(`SETTINGS::{"deadzone":0.2,"other_key":5,"led_single_color":[255,0,0]}`, testNow)
	require.NoError(t, err)

	snap, ok := ev.(Snapshot)
	require.True(t, ok)
	assert.InDelta(t, 0.2, snap.Settings["deadzone"], 1e-12)
	assert.InDelta(t, 5.0, snap.Settings["other_key"], 1e-12)
	assert.Equal(t, []any{255.0, 0.0, 0.0}, snap.Settings["led_single_color"])
}

func TestDecode_SettingsMalformed(t *testing.T) {
	t.Parallel()

	for _, line := range []string{
		"SETTINGS::{broken",
		"SETTINGS::",
		"SETTINGS::[1,2,3]",
		"SETTINGS::null",
	} {
		ev, err := Decode(line, testNow)
		assert.Nil(t, ev, line)
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr, line)
		assert.Equal(t, line, decodeErr.Line)
	}
}

func TestDecode_AckAndError(t *testing.T) {
	t.Parallel()

	ev, err := Decode("OK", testNow)
	require.NoError(t, err)
	assert.Equal(t, Ack{}, ev)

	ev, err = Decode("ERROR:JSON error: syntax", testNow)
	require.NoError(t, err)
	assert.Equal(t, DeviceError{Message: "JSON error: syntax"}, ev)

	ev, err = Decode("ERROR", testNow)
	require.NoError(t, err)
	assert.Equal(t, DeviceError{Message: ""}, ev)
}

func TestDecode_VendorLines(t *testing.T) {
	t.Parallel()

	ev, err := Decode("PEP VOORTGANG: 3/5 herhalingen gehaald", testNow)
	require.NoError(t, err)
	assert.Equal(t, PEPProgress{Current: 3, Total: 5}, ev)

	ev, err = Decode("PEP_REWARD:PLAY_MP3::muziek/applaus.mp3", testNow)
	require.NoError(t, err)
	assert.Equal(t, PEPReward{Action: "PLAY_MP3", Argument: "muziek/applaus.mp3"}, ev)

	_, err = Decode("PEP VOORTGANG: lots", testNow)
	require.Error(t, err)
}

func TestDecode_ExportAndMeasurements(t *testing.T) {
	t.Parallel()

	ev, err := Decode(`EXPORT::{"deadzone":0.02}`, testNow)
	require.NoError(t, err)
	exp, ok := ev.(Export)
	require.True(t, ok)
	assert.InDelta(t, 0.02, exp.Settings["deadzone"], 1e-12)

	ev, err = Decode(`MEASUREMENTS::{"max_exhale":0.8,"min_inhale":null,"longest_exhale":2.5,"longest_inhale":0}`, testNow)
	require.NoError(t, err)
	m, ok := ev.(DeviceMeasurements)
	require.True(t, ok)
	require.NotNil(t, m.MaxExhale)
	assert.InDelta(t, 0.8, *m.MaxExhale, 1e-12)
	assert.Nil(t, m.MinInhale)
	assert.InDelta(t, 2.5, m.LongestExhale, 1e-12)
}

func TestDecode_PrefixOrder(t *testing.T) {
	t.Parallel()

	// SETTINGS:: must win over anything that merely contains "OK"
	ev, err := Decode(`SETTINGS::{"OK":true}`, testNow)
	require.NoError(t, err)
	assert.IsType(t, Snapshot{}, ev)

	ev, err = Decode("OKAY", testNow)
	require.NoError(t, err)
	assert.Equal(t, Ack{}, ev)
}

func TestDecode_Ignored(t *testing.T) {
	t.Parallel()

	for _, line := range []string{"", "hello", "GroovTube XAC Gamepad starting...", "settings::{}"} {
		ev, err := Decode(line, testNow)
		assert.NoError(t, err, line)
		assert.Nil(t, ev, line)
	}
}
