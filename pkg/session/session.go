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

// Package session owns one device connection at a time: the transport, the
// host-side settings cache, the save grace timer, the status poller and any
// running measurement. The view layer talks to the device only through a
// Session and learns about changes through Observers.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GroovTube/groovtube-core/pkg/breath"
	"github.com/GroovTube/groovtube-core/pkg/helpers/syncutil"
	"github.com/GroovTube/groovtube-core/pkg/protocol"
	"github.com/GroovTube/groovtube-core/pkg/settings"
	"github.com/GroovTube/groovtube-core/pkg/status"
	"github.com/GroovTube/groovtube-core/pkg/transport"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const DefaultGraceDelay = 2000 * time.Millisecond

type Options struct {
	Clock            clockwork.Clock
	Transport        transport.Options
	GraceDelay       time.Duration
	StatusPoll       time.Duration
	ActiveWindow     time.Duration
	NeutralThreshold float64
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.GraceDelay <= 0 {
		o.GraceDelay = DefaultGraceDelay
	}
	if o.StatusPoll <= 0 {
		o.StatusPoll = status.PollInterval
	}
	if o.ActiveWindow <= 0 {
		o.ActiveWindow = status.ActiveWindow
	}
	if o.NeutralThreshold <= 0 {
		o.NeutralThreshold = breath.DefaultNeutralThreshold
	}
	return o
}

// connection is the per-connect lifetime. Timers and goroutines started for
// a connection check its generation before touching session state.
type connection struct {
	ch     *transport.Channel
	ticker clockwork.Ticker
	done   chan struct{}
	gen    uint64
}

// Info is a point-in-time view of the session.
type Info struct {
	LastSample time.Time   `json:"last_sample,omitzero"`
	Path       string      `json:"path,omitempty"`
	State      State       `json:"state"`
	Mode       status.Mode `json:"mode"`
	SaveState  SaveState   `json:"save_state"`
	Unsaved    bool        `json:"unsaved"`
	Measuring  bool        `json:"measuring"`
}

// Session is one device connection at a time plus the state that outlives
// it: the settings cache and the pending save. It is safe for concurrent use.
type Session struct {
	clock       clockwork.Clock
	conn        *connection
	graceTimer  clockwork.Timer
	lastSample  time.Time
	cache       settings.Values
	measurement *breath.Measurement
	path        string
	observers   []subscriber
	pending     []notice
	opts        Options
	wg          sync.WaitGroup
	gen         uint64
	graceGen    uint64
	nextObsID   uint64
	state       State
	mode        status.Mode
	saveState   SaveState
	mu          syncutil.Mutex   // protects everything above except observers
	obsMu       syncutil.RWMutex // protects observers and nextObsID
	unsaved     bool
	dispatching bool
}

// New returns a disconnected session. Options left zero take defaults.
func New(opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		opts:  opts,
		clock: opts.Clock,
		cache: settings.Values{},
	}
}

// Connect opens the device at path and requests a settings snapshot.
func (s *Session) Connect(path string) error {
	s.mu.Lock()
	if s.state != Disconnected {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = Connecting
	s.gen++
	gen := s.gen
	s.queueLocked(stateChanged(Connecting))
	s.mu.Unlock()
	s.flush()

	log.Info().Str("path", path).Msg("connecting to device")
	ch, err := transport.Open(path, s.opts.Transport)
	if err != nil {
		s.mu.Lock()
		s.state = Disconnected
		s.queueLocked(stateChanged(Disconnected), connectionError(err))
		s.mu.Unlock()
		log.Error().Err(err).Msg("failed to connect to device")
		s.flush()
		return fmt.Errorf("failed to open device: %w", err)
	}

	conn := &connection{
		ch:     ch,
		gen:    gen,
		done:   make(chan struct{}),
		ticker: s.clock.NewTicker(s.opts.StatusPoll),
	}

	s.mu.Lock()
	s.conn = conn
	s.path = path
	s.state = Connected
	s.unsaved = false
	s.lastSample = time.Time{}
	s.mode = status.AdapterConnected
	// a new connection supersedes a pending save from the previous one
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	s.graceGen++
	s.saveState = SaveIdle
	s.wg.Add(2)
	go s.readLoop(conn)
	go s.pollStatus(conn)
	s.queueLocked(stateChanged(Connected), statusChanged(status.AdapterConnected))
	s.mu.Unlock()
	s.flush()

	return s.send(conn, protocol.EncodeGetSettings())
}

// Disconnect closes the session at the user's request. With unsaved edits
// the save state moves to Saving and, after the grace delay, to Saved.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state != Connected || s.conn == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	s.state = Closing
	conn := s.conn
	s.stopConnLocked(conn)
	s.queueLocked(stateChanged(Closing))
	s.queueLocked(s.finishMeasurementLocked()...)
	unsaved := s.unsaved
	if unsaved {
		s.saveState = Saving
		s.queueLocked(saveStateChanged(Saving))
	} else {
		s.saveState = Settled
	}
	s.mu.Unlock()
	s.flush()

	conn.ch.Close()

	s.mu.Lock()
	s.conn = nil
	s.state = Disconnected
	s.mode = status.Disconnected
	if unsaved {
		s.graceGen++
		token := s.graceGen
		s.graceTimer = s.clock.AfterFunc(s.opts.GraceDelay, func() {
			s.finishSave(token)
		})
	}
	s.queueLocked(stateChanged(Disconnected), statusChanged(status.Disconnected))
	if !unsaved {
		s.queueLocked(saveStateChanged(Settled))
	}
	s.mu.Unlock()

	log.Info().Bool("unsaved", unsaved).Msg("disconnected from device")
	s.flush()
	return nil
}

// Close disconnects if needed, cancels the grace timer and waits for the
// connection goroutines to exit. It must not be called from an observer.
func (s *Session) Close() {
	if err := s.Disconnect(); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Warn().Err(err).Msg("error disconnecting on close")
	}

	s.mu.Lock()
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	s.graceGen++
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Session) finishSave(token uint64) {
	s.mu.Lock()
	if token != s.graceGen {
		s.mu.Unlock()
		return
	}
	s.graceTimer = nil
	s.unsaved = false
	s.saveState = Saved
	s.queueLocked(saveStateChanged(Saved))
	s.mu.Unlock()

	log.Info().Msg("settings saved on device")
	s.flush()
}

// stopConnLocked ends the connection's background work. The caller closes
// the channel outside the lock.
func (s *Session) stopConnLocked(conn *connection) {
	conn.ticker.Stop()
	close(conn.done)
}

// connectionLost handles a transport failure the user did not ask for. The
// grace delay does not apply.
func (s *Session) connectionLost(conn *connection, cause error) {
	s.mu.Lock()
	if s.conn != conn || s.state != Connected {
		s.mu.Unlock()
		return
	}
	s.stopConnLocked(conn)
	s.queueLocked(s.finishMeasurementLocked()...)
	s.conn = nil
	s.state = Disconnected
	s.mode = status.Disconnected
	s.queueLocked(
		stateChanged(Disconnected),
		statusChanged(status.Disconnected),
		connectionError(fmt.Errorf("%w: %w", ErrConnectionLost, cause)),
	)
	s.mu.Unlock()

	conn.ch.Close()

	log.Error().Err(cause).Str("path", conn.ch.Path()).Msg("device connection lost")
	s.flush()
}

// send writes one line. A write failure ends the connection.
func (s *Session) send(conn *connection, line string) error {
	if err := conn.ch.WriteLine(line); err != nil {
		s.connectionLost(conn, err)
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	return nil
}

// currentLocked returns the open connection, or ErrNotConnected.
func (s *Session) currentLocked() (*connection, error) {
	if s.state != Connected || s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn, nil
}

func (s *Session) readLoop(conn *connection) {
	defer s.wg.Done()
	for line, err := range conn.ch.Lines() {
		if err != nil {
			s.connectionLost(conn, err)
			return
		}
		s.handleLine(conn, line)
	}
}

func (s *Session) pollStatus(conn *connection) {
	defer s.wg.Done()
	for {
		select {
		case <-conn.done:
			return
		case <-conn.ticker.Chan():
			s.refreshStatus(conn)
		}
	}
}

func (s *Session) refreshStatus(conn *connection) {
	s.mu.Lock()
	if s.conn != conn || s.state != Connected {
		s.mu.Unlock()
		return
	}
	if n, changed := s.recomputeModeLocked(); changed {
		s.queueLocked(n)
	}
	s.mu.Unlock()
	s.flush()
}

func (s *Session) recomputeModeLocked() (notice, bool) {
	mode := status.ComputeWindow(true, s.lastSample, s.clock.Now(), s.opts.ActiveWindow)
	if mode == s.mode {
		return nil, false
	}
	log.Debug().Stringer("from", s.mode).Stringer("to", mode).Msg("status changed")
	s.mode = mode
	return statusChanged(mode), true
}

func (s *Session) handleLine(conn *connection, line string) {
	ev, err := protocol.Decode(line, s.clock.Now())
	if err != nil {
		log.Debug().Err(err).Msg("dropping malformed device line")
		return
	}
	if ev == nil {
		if line != "" {
			log.Debug().Str("line", line).Msg("ignoring device line")
		}
		return
	}

	switch e := ev.(type) {
	case protocol.BreathSample:
		s.handleSample(conn, e)
	case protocol.Snapshot:
		s.handleSnapshot(conn, e)
	case protocol.Ack:
		log.Debug().Msg("device acknowledged")
		s.emit(deviceEvent(e))
	case protocol.DeviceError:
		log.Warn().Str("message", e.Message).Msg("device reported an error")
		s.emit(deviceEvent(e))
	default:
		s.emit(deviceEvent(e))
	}
}

func (s *Session) handleSample(conn *connection, sample protocol.BreathSample) {
	s.mu.Lock()
	if s.conn != conn || s.state != Connected {
		s.mu.Unlock()
		return
	}
	// NaN samples still count as traffic from the device
	s.lastSample = sample.Timestamp
	s.queueLocked(breathSample(sample))
	if n, changed := s.recomputeModeLocked(); changed {
		s.queueLocked(n)
	}
	if s.measurement != nil {
		if a, ok := s.measurement.Add(sample.Value, sample.Timestamp); ok {
			s.queueLocked(actionClosed(a))
		}
	}
	s.mu.Unlock()
	s.flush()
}

func (s *Session) handleSnapshot(conn *connection, snap protocol.Snapshot) {
	s.mu.Lock()
	if s.conn != conn || s.state != Connected {
		s.mu.Unlock()
		return
	}
	keys := s.cache.Overlay(snap.Settings)
	s.queueLocked(settingsChanged(s.cache.Clone()))
	s.mu.Unlock()

	log.Debug().Strs("keys", keys).Msg("settings snapshot applied")
	s.flush()
}

// Settings returns a copy of the settings cache.
func (s *Session) Settings() settings.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Clone()
}

// Unsaved reports whether local edits were sent since the session connected
// and have not yet been through a save grace delay.
func (s *Session) Unsaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsaved
}

// State is the connection lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode is the status shown to the user, as last computed by the aggregator.
func (s *Session) Mode() status.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Info returns a consistent snapshot of the session for status displays.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		State:      s.state,
		Mode:       s.mode,
		SaveState:  s.saveState,
		Unsaved:    s.unsaved,
		Measuring:  s.measurement != nil,
		LastSample: s.lastSample,
	}
	if s.conn != nil {
		info.Path = s.path
	}
	return info
}
