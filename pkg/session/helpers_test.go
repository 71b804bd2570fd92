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
	"testing"
	"time"

	"github.com/GroovTube/groovtube-core/pkg/breath"
	"github.com/GroovTube/groovtube-core/pkg/helpers/syncutil"
	"github.com/GroovTube/groovtube-core/pkg/protocol"
	"github.com/GroovTube/groovtube-core/pkg/settings"
	"github.com/GroovTube/groovtube-core/pkg/status"
	"github.com/GroovTube/groovtube-core/pkg/testing/mocks"
	"github.com/GroovTube/groovtube-core/pkg/transport"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

type recorder struct {
	settings     []settings.Values
	samples      []protocol.BreathSample
	actions      []breath.Action
	modes        []status.Mode
	errs         []error
	states       []State
	saveStates   []SaveState
	deviceEvents []protocol.Event
	reports      []breath.Report
	mu           syncutil.Mutex
}

func (r *recorder) observer() Observer {
	return Observer{
		SettingsChanged: func(v settings.Values) {
			r.mu.Lock()
			r.settings = append(r.settings, v)
			r.mu.Unlock()
		},
		BreathSample: func(s protocol.BreathSample) {
			r.mu.Lock()
			r.samples = append(r.samples, s)
			r.mu.Unlock()
		},
		BreathActionClosed: func(a breath.Action) {
			r.mu.Lock()
			r.actions = append(r.actions, a)
			r.mu.Unlock()
		},
		StatusChanged: func(m status.Mode) {
			r.mu.Lock()
			r.modes = append(r.modes, m)
			r.mu.Unlock()
		},
		ConnectionError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
		StateChanged: func(st State) {
			r.mu.Lock()
			r.states = append(r.states, st)
			r.mu.Unlock()
		},
		SaveStateChanged: func(st SaveState) {
			r.mu.Lock()
			r.saveStates = append(r.saveStates, st)
			r.mu.Unlock()
		},
		DeviceEvent: func(ev protocol.Event) {
			r.mu.Lock()
			r.deviceEvents = append(r.deviceEvents, ev)
			r.mu.Unlock()
		},
		MeasurementFinished: func(rep breath.Report) {
			r.mu.Lock()
			r.reports = append(r.reports, rep)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) sampleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func (r *recorder) saveStateLog() []SaveState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SaveState, len(r.saveStates))
	copy(out, r.saveStates)
	return out
}

func (r *recorder) connErrors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

func (r *recorder) lastMode() (status.Mode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.modes) == 0 {
		return status.Disconnected, false
	}
	return r.modes[len(r.modes)-1], true
}

type harness struct {
	session *Session
	port    *mocks.MockSerialPort
	clock   *clockwork.FakeClock
	rec     *recorder
}

var testStart = time.Date(2025, 6, 24, 10, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		port:  mocks.NewMockSerialPort(),
		clock: clockwork.NewFakeClockAt(testStart),
		rec:   &recorder{},
	}
	// connects happen on the test goroutine; a closed port is replaced as if
	// the device had been plugged in again
	factory := func(_ string, _ *serial.Mode) (transport.Port, error) {
		if h.port.IsClosed() {
			h.port = mocks.NewMockSerialPort()
		}
		return h.port, nil
	}
	h.session = New(Options{
		Clock:     h.clock,
		Transport: transport.Options{Factory: factory},
	})
	h.session.Subscribe(h.rec.observer())
	t.Cleanup(h.session.Close)

	return h
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, h.session.Connect("/dev/ttyACM0"))
}

// feedSample sends one breath line and waits until the session handled it,
// so the sample is stamped with the current fake time.
func (h *harness) feedSample(t *testing.T, value string) {
	t.Helper()
	before := h.rec.sampleCount()
	h.port.FeedLines(protocol.PrefixBreathData + value)
	require.Eventually(t, func() bool {
		return h.rec.sampleCount() > before
	}, waitFor, tick)
}
