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
	"github.com/GroovTube/groovtube-core/pkg/breath"
	"github.com/GroovTube/groovtube-core/pkg/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StartMeasurement begins segmenting the breath signal into actions. Only
// one run may be active, and only while connected.
func (s *Session) StartMeasurement(meta breath.Meta) error {
	s.mu.Lock()
	conn, err := s.currentLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.measurement != nil {
		s.mu.Unlock()
		return ErrMeasurementRunning
	}
	s.measurement = breath.NewMeasurement(meta, s.opts.NeutralThreshold, s.clock.Now())
	s.mu.Unlock()

	log.Info().Str("name", meta.Name).Stringer("types", meta.ActiveTypes).Msg("measurement started")
	return s.send(conn, protocol.EncodeSetMeasure(true))
}

// StopMeasurement ends the run, force-closing any open action, and returns
// its report. Observers receive the report too.
func (s *Session) StopMeasurement() (breath.Report, error) {
	s.mu.Lock()
	if s.measurement == nil {
		s.mu.Unlock()
		return breath.Report{}, ErrNoMeasurement
	}
	report, notices := s.stopMeasurementLocked()
	s.queueLocked(notices...)
	conn, connErr := s.currentLocked()
	s.mu.Unlock()

	s.flush()

	if connErr == nil {
		if err := s.send(conn, protocol.EncodeSetMeasure(false)); err != nil {
			log.Warn().Err(err).Msg("failed to stop device measurement")
		}
	}
	return report, nil
}

// finishMeasurementLocked stops a running measurement because the
// connection is ending.
func (s *Session) finishMeasurementLocked() []notice {
	if s.measurement == nil {
		return nil
	}
	_, notices := s.stopMeasurementLocked()
	return notices
}

func (s *Session) stopMeasurementLocked() (breath.Report, []notice) {
	m := s.measurement
	s.measurement = nil

	var notices []notice
	if a, ok := m.Stop(s.clock.Now()); ok {
		notices = append(notices, actionClosed(a))
	}
	report := m.Report(uuid.NewString())
	notices = append(notices, measurementFinished(report))

	log.Info().
		Str("id", report.ID).
		Int("actions", len(report.Actions)).
		Msg("measurement finished")
	return report, notices
}
