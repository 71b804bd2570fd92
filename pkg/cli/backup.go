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
	"context"
	"errors"
	"fmt"

	"github.com/GroovTube/groovtube-core/pkg/session"
	"github.com/GroovTube/groovtube-core/pkg/settings"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var ErrNoSnapshot = errors.New("device did not report its settings")

// Device is the part of the session the backup commands use.
type Device interface {
	Connect(path string) error
	Disconnect() error
	Subscribe(o session.Observer) func()
	Settings() settings.Values
	ApplySettings(values settings.Values) error
}

// BackupDevice connects, waits for the settings snapshot and writes it to
// dir. It returns the path of the written file.
func BackupDevice(
	ctx context.Context,
	dev Device,
	fs afero.Fs,
	clock clockwork.Clock,
	port, dir, name string,
) (string, error) {
	snapshot := make(chan struct{}, 1)
	unsub := dev.Subscribe(session.Observer{
		SettingsChanged: func(settings.Values) {
			select {
			case snapshot <- struct{}{}:
			default:
			}
		},
	})
	defer unsub()

	if err := dev.Connect(port); err != nil {
		return "", err
	}
	defer func() {
		if err := dev.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("failed to disconnect after backup")
		}
	}()

	select {
	case <-snapshot:
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrNoSnapshot, ctx.Err())
	}

	return settings.WriteBackup(fs, dir, name, dev.Settings(), clock.Now())
}

// RestoreDevice writes a backup file to the device and waits until the
// session reports the settings saved.
func RestoreDevice(ctx context.Context, dev Device, fs afero.Fs, port, path string) error {
	values, err := settings.ReadBackup(fs, path)
	if err != nil {
		return err
	}

	saved := make(chan struct{}, 1)
	unsub := dev.Subscribe(session.Observer{
		SaveStateChanged: func(st session.SaveState) {
			if st != session.Saved && st != session.Settled {
				return
			}
			select {
			case saved <- struct{}{}:
			default:
			}
		},
	})
	defer unsub()

	if err := dev.Connect(port); err != nil {
		return err
	}
	if err := dev.ApplySettings(values); err != nil {
		if dErr := dev.Disconnect(); dErr != nil && !errors.Is(dErr, session.ErrNotConnected) {
			log.Warn().Err(dErr).Msg("failed to disconnect after restore error")
		}
		return err
	}
	if err := dev.Disconnect(); err != nil {
		return err
	}

	select {
	case <-saved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
