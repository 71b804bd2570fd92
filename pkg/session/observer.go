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
	"github.com/GroovTube/groovtube-core/pkg/settings"
	"github.com/GroovTube/groovtube-core/pkg/status"
)

// Observer receives session events. Any field may be nil. Events arrive in
// the order of the state changes that caused them, outside the session lock,
// so callbacks may call back into the session. A callback may run on a
// goroutine other than the one that made the change.
type Observer struct {
	SettingsChanged     func(settings.Values)
	BreathSample        func(protocol.BreathSample)
	BreathActionClosed  func(breath.Action)
	StatusChanged       func(status.Mode)
	ConnectionError     func(error)
	StateChanged        func(State)
	SaveStateChanged    func(SaveState)
	DeviceEvent         func(protocol.Event)
	MeasurementFinished func(breath.Report)
}

type subscriber struct {
	obs Observer
	id  uint64
}

// notice delivers one event to one observer.
type notice func(o *Observer)

// Subscribe registers o and returns a function that removes it. Observers
// are notified in registration order.
func (s *Session) Subscribe(o Observer) func() {
	s.obsMu.Lock()
	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, subscriber{id: id, obs: o})
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, sub := range s.observers {
			if sub.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// queueLocked appends notices in the order the state changes that produced
// them were made. Call with s.mu held, then flush after unlocking.
func (s *Session) queueLocked(notices ...notice) {
	s.pending = append(s.pending, notices...)
}

// emit queues notices and delivers them.
func (s *Session) emit(notices ...notice) {
	if len(notices) == 0 {
		return
	}
	s.mu.Lock()
	s.queueLocked(notices...)
	s.mu.Unlock()
	s.flush()
}

// flush delivers queued notices in FIFO order. One goroutine delivers at a
// time; a caller that finds delivery in progress leaves its notices to the
// goroutine already delivering, which drains the queue before returning.
func (s *Session) flush() {
	s.mu.Lock()
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.dispatching = false
			s.mu.Unlock()
			panic(r)
		}
	}()
	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()
		s.deliver(batch)
		s.mu.Lock()
	}
	s.dispatching = false
	s.mu.Unlock()
}

func (s *Session) deliver(notices []notice) {
	s.obsMu.RLock()
	subs := s.observers
	s.obsMu.RUnlock()

	for _, n := range notices {
		for i := range subs {
			n(&subs[i].obs)
		}
	}
}

func settingsChanged(v settings.Values) notice {
	return func(o *Observer) {
		if o.SettingsChanged != nil {
			o.SettingsChanged(v.Clone())
		}
	}
}

func breathSample(sample protocol.BreathSample) notice {
	return func(o *Observer) {
		if o.BreathSample != nil {
			o.BreathSample(sample)
		}
	}
}

func actionClosed(a breath.Action) notice {
	return func(o *Observer) {
		if o.BreathActionClosed != nil {
			o.BreathActionClosed(a)
		}
	}
}

func statusChanged(m status.Mode) notice {
	return func(o *Observer) {
		if o.StatusChanged != nil {
			o.StatusChanged(m)
		}
	}
}

func connectionError(err error) notice {
	return func(o *Observer) {
		if o.ConnectionError != nil {
			o.ConnectionError(err)
		}
	}
}

func stateChanged(st State) notice {
	return func(o *Observer) {
		if o.StateChanged != nil {
			o.StateChanged(st)
		}
	}
}

func saveStateChanged(st SaveState) notice {
	return func(o *Observer) {
		if o.SaveStateChanged != nil {
			o.SaveStateChanged(st)
		}
	}
}

func deviceEvent(ev protocol.Event) notice {
	return func(o *Observer) {
		if o.DeviceEvent != nil {
			o.DeviceEvent(ev)
		}
	}
}

func measurementFinished(r breath.Report) notice {
	return func(o *Observer) {
		if o.MeasurementFinished != nil {
			o.MeasurementFinished(r)
		}
	}
}
