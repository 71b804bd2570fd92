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
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/GroovTube/groovtube-core/pkg/settings"
	"github.com/GroovTube/groovtube-core/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gate blocks the first matching callback until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) hold() {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
}

func TestDispatch_DisconnectAfterSlowPollStaysDisconnected(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	var armed atomic.Bool
	g := newGate()
	h.session.Subscribe(Observer{
		StatusChanged: func(m status.Mode) {
			if armed.Load() && m == status.AdapterConnected {
				g.hold()
			}
		},
	})
	rec := &recorder{}
	h.session.Subscribe(rec.observer())

	h.connect(t)
	h.feedSample(t, "0.5")
	require.Equal(t, status.ActiveData, h.session.Mode())

	armed.Store(true)
	for range 5 {
		h.clock.Advance(status.PollInterval)
	}
	<-g.entered

	// the poller is stuck delivering its notice; Disconnect must not wait
	require.NoError(t, h.session.Disconnect())
	assert.Equal(t, status.Disconnected, h.session.Mode())
	close(g.release)

	require.Eventually(t, func() bool {
		return slices.Contains(rec.saveStateLog(), Settled)
	}, waitFor, tick)

	rec.mu.Lock()
	modes := append([]status.Mode(nil), rec.modes...)
	rec.mu.Unlock()
	assert.Equal(t, []status.Mode{
		status.AdapterConnected,
		status.ActiveData,
		status.AdapterConnected,
		status.Disconnected,
	}, modes)
}

func TestDispatch_SnapshotDuringSlowEditWins(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	g := newGate()
	h.session.Subscribe(Observer{
		SettingsChanged: func(v settings.Values) {
			if v[settings.KeyDeadzone] == 0.1 {
				g.hold()
			}
		},
	})
	rec := &recorder{}
	h.session.Subscribe(rec.observer())

	h.connect(t)

	updated := make(chan error, 1)
	go func() { updated <- h.session.UpdateSetting(settings.KeyDeadzone, 0.1) }()
	<-g.entered

	h.port.FeedLines(`SETTINGS::{"deadzone":0.2,"other_key":5}`)
	require.Eventually(t, func() bool {
		return h.session.Settings()[settings.KeyDeadzone] == 0.2
	}, waitFor, tick)

	close(g.release)
	require.NoError(t, <-updated)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.settings, 2)
	assert.InDelta(t, 0.1, rec.settings[0][settings.KeyDeadzone], 1e-12)
	assert.InDelta(t, 0.2, rec.settings[1][settings.KeyDeadzone], 1e-12)
	assert.InDelta(t, 5.0, rec.settings[1]["other_key"], 1e-12)
}

func TestDispatch_ReentrantCallbackDoesNotDeadlock(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	var once sync.Once
	h.session.Subscribe(Observer{
		StateChanged: func(st State) {
			if st == Connected {
				once.Do(func() {
					assert.NoError(t, h.session.UpdateSetting(settings.KeyDeadzone, 0.3))
				})
			}
		},
	})

	h.connect(t)
	require.Eventually(t, func() bool {
		h.rec.mu.Lock()
		defer h.rec.mu.Unlock()
		return len(h.rec.settings) == 1
	}, waitFor, tick)
	assert.True(t, h.session.Unsaved())
}
