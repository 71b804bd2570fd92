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

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDir = "/home/user/.config/groovtube"

func writeConfig(t *testing.T, fs afero.Fs, body string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(testDir, 0o750))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, CfgFile), []byte(body), 0o600))
}

func boolPtr(b bool) *bool {
	return &b
}

func TestNewConfig_WritesDefaults(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()

	cfg, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)

	exists, err := afero.Exists(fs, filepath.Join(testDir, CfgFile))
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Equal(t, DefaultBaudRate, cfg.BaudRate())
	assert.Equal(t, 2000*time.Millisecond, cfg.GraceDelay())
	assert.Equal(t, 500*time.Millisecond, cfg.StatusPoll())
	assert.Equal(t, 2000*time.Millisecond, cfg.ActiveWindow())
	assert.InDelta(t, 0.025, cfg.NeutralThreshold(), 1e-12)
	assert.Equal(t, "both", cfg.DefaultActiveTypes())
	assert.True(t, cfg.AutoDetect())
	assert.True(t, cfg.ReportsEnabled())
	assert.Equal(t, "127.0.0.1:7650", cfg.APIListen())
	assert.InDelta(t, DefaultSampleRate, cfg.SampleRate(), 1e-12)
	assert.Empty(t, cfg.MQTTPublishers())
	assert.True(t, cfg.RewardsEnabled())
	assert.Empty(t, cfg.RewardsMediaDir())
	assert.Empty(t, cfg.ErrorReportingDSN())
}

func TestNewConfig_LoadsFile(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	writeConfig(t, fs, `
config_schema = 1
debug_logging = true

[device]
port = "/dev/ttyACM1"
auto_detect = false
grace_delay_ms = 3000

[measurement]
neutral_threshold = 0.05
active_types = "inspiration"
reports_enabled = false

[service]
api_port = 8000
allowed_origins = ["http://localhost:3000"]
sample_rate = 10.0

[rewards]
enabled = false
media_dir = "/srv/groovtube/media"

[[publishers.mqtt]]
broker = "localhost:1883"
topic = "groovtube/events"
filter = ["breath.action"]
`)

	cfg, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)

	assert.True(t, cfg.DebugLogging())
	assert.Equal(t, "/dev/ttyACM1", cfg.DevicePort())
	assert.False(t, cfg.AutoDetect())
	assert.Equal(t, 3*time.Second, cfg.GraceDelay())
	assert.Equal(t, 500*time.Millisecond, cfg.StatusPoll(), "unset keys keep defaults")
	assert.InDelta(t, 0.05, cfg.NeutralThreshold(), 1e-12)
	assert.Equal(t, "inspiration", cfg.DefaultActiveTypes())
	assert.False(t, cfg.ReportsEnabled())
	assert.Equal(t, 8000, cfg.APIPort())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins())
	assert.InDelta(t, 10.0, cfg.SampleRate(), 1e-12)
	assert.False(t, cfg.RewardsEnabled())
	assert.Equal(t, "/srv/groovtube/media", cfg.RewardsMediaDir())

	pubs := cfg.MQTTPublishers()
	require.Len(t, pubs, 1)
	assert.Equal(t, "groovtube/events", pubs[0].Topic)
	assert.True(t, pubs[0].IsEnabled())
}

func TestNewConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "schema", body: "config_schema = 2\n"},
		{name: "baud rate", body: "config_schema = 1\n[device]\nbaud_rate = 1234\n"},
		{name: "active types", body: "config_schema = 1\n[measurement]\nactive_types = \"sideways\"\n"},
		{name: "threshold", body: "config_schema = 1\n[measurement]\nneutral_threshold = 2.0\n"},
		{name: "mqtt broker", body: "config_schema = 1\n[[publishers.mqtt]]\ntopic = \"x\"\n"},
		{name: "dsn", body: "config_schema = 1\n[service]\nerror_reporting_dsn = \"not a url\"\n"},
		{name: "toml", body: "config_schema = [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs := afero.NewMemMapFs()
			writeConfig(t, fs, tt.body)

			_, err := NewConfig(fs, testDir, BaseDefaults)
			require.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()

	cfg, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)

	cfg.SetDevicePort("COM4")
	cfg.SetAPIPort(9000)
	cfg.SetDebugLogging(true)
	require.NoError(t, cfg.Save())

	reloaded, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, "COM4", reloaded.DevicePort())
	assert.Equal(t, 9000, reloaded.APIPort())
	assert.True(t, reloaded.DebugLogging())
}

func TestMQTTPublisher_IsEnabled(t *testing.T) {
	t.Parallel()

	assert.True(t, MQTTPublisher{}.IsEnabled())
	assert.True(t, MQTTPublisher{Enabled: boolPtr(true)}.IsEnabled())
	assert.False(t, MQTTPublisher{Enabled: boolPtr(false)}.IsEnabled())
}

//nolint:paralleltest // modifies environment
func TestNewConfig_EnvOverride(t *testing.T) {
	fs := afero.NewMemMapFs()
	t.Setenv(CfgEnv, "/etc/groovtube/custom.toml")

	cfg, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, "/etc/groovtube/custom.toml", cfg.Path())

	exists, err := afero.Exists(fs, "/etc/groovtube/custom.toml")
	require.NoError(t, err)
	assert.True(t, exists)
}
