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

package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDevice is returned by Open when no port path was given.
	ErrNoDevice = errors.New("no serial device selected")
	// ErrClosed is returned by reads once the channel has been closed locally.
	ErrClosed = errors.New("transport closed")
)

// ConnectionError reports a failure to acquire the port. It is surfaced to
// the user and never retried automatically.
type ConnectionError struct {
	Err  error
	Path string
}

func (e *ConnectionError) Error() string {
	if e.Path == "" {
		return "connection failed: " + e.Err.Error()
	}
	return fmt.Sprintf("connection to %s failed: %v", e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IOError reports a read or write failure on an open channel.
type IOError struct {
	Err error
	Op  string
}

func (e *IOError) Error() string {
	return fmt.Sprintf("serial %s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
