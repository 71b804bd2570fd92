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

package session

import (
	"github.com/GroovTube/groovtube-core/pkg/protocol"
	"github.com/GroovTube/groovtube-core/pkg/settings"
	"github.com/rs/zerolog/log"
)

// UpdateSetting writes one key optimistically to the cache and sends it to
// the device. A snapshot arriving afterwards overrides the local value.
func (s *Session) UpdateSetting(key string, value any) error {
	return s.UpdateSettings(map[string]any{key: value})
}

// UpdateSettings writes several keys in a single SET command.
func (s *Session) UpdateSettings(values map[string]any) error {
	line, err := protocol.EncodeSetSettings(values)
	if err != nil {
		return err
	}

	s.mu.Lock()
	conn, err := s.currentLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.cache.Overlay(values)
	s.unsaved = true
	s.queueLocked(settingsChanged(s.cache.Clone()))
	s.mu.Unlock()

	s.flush()
	return s.send(conn, line)
}

// ImportSettings applies a backup payload. Each key is sent in its own SET
// command, in key order. An invalid payload leaves the cache untouched.
func (s *Session) ImportSettings(payload []byte) error {
	values, err := settings.ParseImport(payload)
	if err != nil {
		return err
	}
	return s.ApplySettings(values)
}

// ApplySettings is ImportSettings for already-validated values.
func (s *Session) ApplySettings(values settings.Values) error {
	lines := make([]string, 0, len(values))
	for _, key := range values.Keys() {
		line, err := protocol.EncodeSetSettings(map[string]any{key: values[key]})
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}

	s.mu.Lock()
	conn, err := s.currentLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.cache.Overlay(values)
	if len(lines) > 0 {
		s.unsaved = true
	}
	s.queueLocked(settingsChanged(s.cache.Clone()))
	s.mu.Unlock()

	log.Info().Int("keys", len(lines)).Msg("importing settings")
	s.flush()

	for _, line := range lines {
		if err := s.send(conn, line); err != nil {
			return err
		}
	}
	return nil
}

// RefreshSettings asks the device for a fresh snapshot.
func (s *Session) RefreshSettings() error {
	return s.command(protocol.EncodeGetSettings())
}

// RequestDeviceMeasurements asks the firmware for its own measurement
// summary. The reply arrives as a DeviceEvent.
func (s *Session) RequestDeviceMeasurements() error {
	return s.command(protocol.EncodeGetMeasurements())
}

// RequestExport asks the firmware to dump its settings. The reply arrives as
// a DeviceEvent.
func (s *Session) RequestExport() error {
	return s.command(protocol.EncodeExport())
}

func (s *Session) command(line string) error {
	s.mu.Lock()
	conn, err := s.currentLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.send(conn, line)
}
