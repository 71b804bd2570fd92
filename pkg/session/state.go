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

// State is the connection lifecycle of a session.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	default:
		return "disconnected"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SaveState reports what happened to unsaved edits on a user disconnect.
// The firmware persists settings on its own once the port is released, so
// the host only waits out a grace delay before calling them saved.
type SaveState int

const (
	SaveIdle SaveState = iota
	// Saving means the port was closed with unsaved edits and the grace
	// delay is running.
	Saving
	// Saved means the grace delay elapsed.
	Saved
	// Settled means there was nothing to save.
	Settled
)

func (s SaveState) String() string {
	switch s {
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	case Settled:
		return "settled"
	default:
		return "idle"
	}
}

func (s SaveState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
