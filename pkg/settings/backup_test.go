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
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImport_Valid(t *testing.T) {
	t.Parallel()

	v, err := ParseImport([]byte(`  {"deadzone": 0.05, "led_single_color": [0, 255, 0]}  `))
	require.NoError(t, err)
	assert.InDelta(t, 0.05, v["deadzone"], 1e-12)
}

func TestParseImport_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{name: "empty", input: "", reason: "backup is empty"},
		{name: "whitespace", input: " \n\t", reason: "backup is empty"},
		{name: "not json", input: "{deadzone", reason: "backup is not valid JSON"},
		{name: "array", input: "[1,2]", reason: "backup does not contain a settings object"},
		{name: "null", input: "null", reason: "backup does not contain a settings object"},
		{name: "number", input: "42", reason: "backup does not contain a settings object"},
		{name: "no keys", input: "{}", reason: "backup contains no settings"},
		{name: "bad colour", input: `{"led_single_color":[300,0,0]}`, reason: "setting led_single_color is not a valid colour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := ParseImport([]byte(tt.input))
			assert.Nil(t, v)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.reason, vErr.Reason)
		})
	}
}

func TestBackupFileName(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 24, 15, 4, 0, 0, time.UTC)

	assert.Equal(t, "groovtube_backup_2025-06-24.json", BackupFileName("", now))
	assert.Equal(t, "groovtube_backup_2025-06-24.json", BackupFileName("   ", now))
	assert.Equal(t, "Jan_s_tube_2025-06-24.json", BackupFileName("Jan's tube", now))
	assert.Equal(t, "ward-3_2025-06-24.json", BackupFileName("ward-3", now))
}

func TestWriteAndReadBackup(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	now := time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC)
	values := Values{
		"deadzone":         0.02,
		"control_mode":     "joystick",
		"led_single_color": []any{255.0, 0.0, 0.0},
	}

	path, err := WriteBackup(fs, "/backups", "morning", values, now)
	require.NoError(t, err)
	assert.Equal(t, "/backups/morning_2025-06-24.json", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"control_mode\": \"joystick\"")

	loaded, err := ReadBackup(fs, path)
	require.NoError(t, err)
	assert.Equal(t, values, loaded)
}

func TestReadBackup_Missing(t *testing.T) {
	t.Parallel()

	_, err := ReadBackup(afero.NewMemMapFs(), "/nope.json")
	require.Error(t, err)
	var vErr *ValidationError
	assert.NotErrorAs(t, err, &vErr)
}
