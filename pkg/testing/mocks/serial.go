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

package mocks

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/GroovTube/groovtube-core/pkg/helpers/syncutil"
)

// MockSerialPort is an in-memory serial port. Inbound bytes are queued with
// Feed and handed to Read in arrival order; everything written is recorded.
type MockSerialPort struct {
	ReadError  error
	WriteError error
	CloseError error
	TimeoutErr error
	ReadFunc   func(p []byte) (n int, err error)
	incoming   chan []byte
	pending    []byte
	written    bytes.Buffer
	closeCount int
	closed     bool
	mu         syncutil.RWMutex // protects written, closed, closeCount, ReadError, WriteError
}

func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{
		incoming: make(chan []byte, 256),
	}
}

// Feed queues raw bytes for the reader. Chunk boundaries are preserved so
// tests can split lines across reads.
func (m *MockSerialPort) Feed(data string) {
	m.incoming <- []byte(data)
}

// FeedLines queues each line with a trailing newline as its own chunk.
func (m *MockSerialPort) FeedLines(lines ...string) {
	for _, l := range lines {
		m.Feed(l + "\n")
	}
}

// FailReads makes every following Read return err, simulating a cable pull.
func (m *MockSerialPort) FailReads(err error) {
	m.mu.Lock()
	m.ReadError = err
	m.mu.Unlock()
}

func (m *MockSerialPort) Read(p []byte) (int, error) {
	m.mu.RLock()
	closed := m.closed
	readErr := m.ReadError
	m.mu.RUnlock()

	if closed {
		return 0, errors.New("port closed")
	}

	if m.ReadFunc != nil {
		return m.ReadFunc(p)
	}

	if readErr != nil {
		return 0, readErr
	}

	if len(m.pending) == 0 {
		select {
		case chunk := <-m.incoming:
			m.pending = chunk
		case <-time.After(10 * time.Millisecond):
			// behaves like a serial read timeout
			return 0, nil
		}
	}

	n := copy(p, m.pending)
	m.pending = m.pending[n:]
	return n, nil
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, errors.New("port closed")
	}
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	return m.written.Write(p)
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closeCount++
	return m.CloseError
}

func (m *MockSerialPort) SetReadTimeout(_ time.Duration) error {
	return m.TimeoutErr
}

// IsClosed returns true if the port has been closed.
func (m *MockSerialPort) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// CloseCount returns how many times Close was called.
func (m *MockSerialPort) CloseCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closeCount
}

// Written returns every byte written so far.
func (m *MockSerialPort) Written() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.written.String()
}

// WrittenLines returns the complete lines written so far.
func (m *MockSerialPort) WrittenLines() []string {
	out := m.Written()
	if out == "" {
		return nil
	}
	lines := strings.Split(out, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
