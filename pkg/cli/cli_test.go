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

package cli

import (
	"bytes"
	"context"
	"flag"
	"testing"
	"time"

	"github.com/GroovTube/groovtube-core/pkg/session"
	"github.com/GroovTube/groovtube-core/pkg/settings"
	"github.com/GroovTube/groovtube-core/pkg/testing/mocks"
	"github.com/GroovTube/groovtube-core/pkg/transport"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

func TestSetupFlags(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("groovtube", flag.ContinueOnError)
	f := SetupFlags(fs)
	require.NoError(t, fs.Parse([]string{"-port", "/dev/ttyACM0", "-daemon"}))

	assert.Equal(t, "/dev/ttyACM0", *f.Port)
	assert.True(t, *f.Daemon)
	assert.False(t, *f.ListPorts)
	assert.Empty(t, *f.Backup)
}

func TestPrintPorts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := PrintPorts(&buf, func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyS0"},
			{Name: "/dev/ttyACM0", IsUSB: true, VID: "239a", PID: "80f4", Product: "GroovTube"},
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t,
		"* /dev/ttyACM0  [239a:80f4] GroovTube\n"+
			"  /dev/ttyS0\n",
		buf.String())

	buf.Reset()
	require.NoError(t, PrintPorts(&buf, func() ([]*enumerator.PortDetails, error) { return nil, nil }))
	assert.Equal(t, "no serial ports found\n", buf.String())
}

func newDevice(t *testing.T, port *mocks.MockSerialPort, clock clockwork.Clock) *session.Session {
	t.Helper()
	s := session.New(session.Options{
		Clock:      clock,
		GraceDelay: time.Millisecond,
		Transport: transport.Options{
			Factory: func(string, *serial.Mode) (transport.Port, error) { return port, nil },
		},
	})
	t.Cleanup(s.Close)
	return s
}

func TestBackupDevice(t *testing.T) {
	t.Parallel()

	port := mocks.NewMockSerialPort()
	port.FeedLines(`SETTINGS::{"deadzone":0.1,"control_mode":"joystick"}`)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 24, 10, 0, 0, 0, time.UTC))
	dev := newDevice(t, port, clock)
	fs := afero.NewMemMapFs()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	path, err := BackupDevice(ctx, dev, fs, clock, "/dev/ttyACM0", "/backups", "praktijk")
	require.NoError(t, err)
	assert.Equal(t, "/backups/praktijk_2025-06-24.json", path)

	values, err := settings.ReadBackup(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "joystick", values["control_mode"])
	assert.Equal(t, session.Disconnected, dev.State())
}

func TestBackupDevice_NoSnapshot(t *testing.T) {
	t.Parallel()

	port := mocks.NewMockSerialPort()
	clock := clockwork.NewFakeClock()
	dev := newDevice(t, port, clock)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := BackupDevice(ctx, dev, afero.NewMemMapFs(), clock, "/dev/ttyACM0", "/backups", "")
	require.ErrorIs(t, err, ErrNoSnapshot)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRestoreDevice(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/b.json", []byte(`{"gpio_duration":120,"deadzone":0.05}`), 0o600))

	port := mocks.NewMockSerialPort()
	dev := newDevice(t, port, clockwork.NewRealClock())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, RestoreDevice(ctx, dev, fs, "/dev/ttyACM0", "/b.json"))
	assert.Equal(t, []string{
		"GET:settings",
		`SET:settings::{"deadzone":0.05}`,
		`SET:settings::{"gpio_duration":120}`,
	}, port.WrittenLines())
	assert.False(t, dev.Unsaved())
}

func TestRestoreDevice_InvalidBackup(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/b.json", []byte(`[1,2]`), 0o600))
	dev := newDevice(t, mocks.NewMockSerialPort(), clockwork.NewFakeClock())

	err := RestoreDevice(context.Background(), dev, fs, "/dev/ttyACM0", "/b.json")
	var valErr *settings.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, session.Disconnected, dev.State())
}
