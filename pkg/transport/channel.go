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

// Package transport frames a serial byte stream into newline-delimited text
// lines for the GroovTube line protocol.
package transport

import (
	"bytes"
	"errors"
	"io"
	"iter"
	"strings"
	"sync/atomic"
	"time"

	"github.com/GroovTube/groovtube-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

const (
	readChunkSize = 1024
	// MaxLineLength caps an unterminated fragment. Longer input is noise,
	// usually a baud rate mismatch, and is dropped up to the next newline.
	MaxLineLength = 64 * 1024
)

// Channel is a half-duplex line channel over one open port. Reads must come
// from a single goroutine; writes and Close are safe from any goroutine.
type Channel struct {
	port     Port
	path     string
	buf      []byte
	mu       syncutil.Mutex // protects writer
	writer   bool
	overflow bool // dropping bytes until the next newline
	closed   atomic.Bool
}

// Open acquires exclusive access to the port at path.
func Open(path string, opts Options) (*Channel, error) {
	if path == "" {
		return nil, &ConnectionError{Err: ErrNoDevice}
	}

	factory := opts.Factory
	if factory == nil {
		factory = DefaultPortFactory
	}

	port, err := factory(path, opts.mode())
	if err != nil {
		return nil, &ConnectionError{Path: path, Err: err}
	}

	timeout := opts.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		if closeErr := port.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Msg("failed to close port after handshake failure")
		}
		return nil, &ConnectionError{Path: path, Err: err}
	}

	log.Info().Str("path", path).Int("baud", opts.mode().BaudRate).Msg("serial port opened")

	return &Channel{
		port:   port,
		path:   path,
		writer: true,
	}, nil
}

// Path returns the device path the channel was opened on.
func (c *Channel) Path() string {
	return c.path
}

// ReadLine blocks until a complete line is available and returns it with
// surrounding whitespace trimmed. An unterminated trailing fragment stays
// buffered for the next call, up to MaxLineLength. Returns ErrClosed after
// Close.
func (c *Channel) ReadLine() (string, error) {
	chunk := make([]byte, readChunkSize)
	for {
		if i := bytes.IndexByte(c.buf, '\n'); i >= 0 {
			line := string(c.buf[:i])
			c.buf = c.buf[i+1:]
			if c.overflow {
				c.overflow = false
				continue
			}
			return strings.TrimSpace(line), nil
		}

		if c.closed.Load() {
			return "", ErrClosed
		}

		n, err := c.port.Read(chunk)
		if err != nil {
			if c.closed.Load() {
				return "", ErrClosed
			}
			return "", &IOError{Op: "read", Err: err}
		}
		if n == 0 {
			// read timeout, poll the closed flag again
			continue
		}
		c.buf = append(c.buf, chunk[:n]...)
		if len(c.buf) > MaxLineLength && bytes.IndexByte(c.buf, '\n') < 0 {
			if !c.overflow {
				log.Warn().
					Str("path", c.path).
					Int("bytes", len(c.buf)).
					Msg("discarding oversized line from device")
			}
			c.buf = nil
			c.overflow = true
		}
	}
}

// Lines yields lines until the channel is closed or a read fails. A local
// close ends the sequence without an error; any other failure is yielded once.
func (c *Channel) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			line, err := c.ReadLine()
			if err != nil {
				if !errors.Is(err, ErrClosed) {
					yield("", err)
				}
				return
			}
			if !yield(line, nil) {
				return
			}
		}
	}
}

// WriteLine writes text followed by a newline. Writing after the writer has
// been released is logged and dropped, since a send can race a disconnect.
func (c *Channel) WriteLine(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.writer {
		log.Warn().Str("line", text).Msg("no writer held, dropping outbound line")
		return nil
	}

	data := []byte(text + "\n")
	for len(data) > 0 {
		n, err := c.port.Write(data)
		if err != nil {
			return &IOError{Op: "write", Err: err}
		}
		if n == 0 {
			return &IOError{Op: "write", Err: io.ErrShortWrite}
		}
		data = data[n:]
	}

	log.Debug().Str("line", text).Msg("sent line")
	return nil
}

// Close cancels pending reads, releases the writer and closes the port.
// Errors are swallowed because the device may already have reset.
func (c *Channel) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	c.writer = false
	c.mu.Unlock()

	start := time.Now()
	if err := c.port.Close(); err != nil {
		log.Debug().Err(err).Str("path", c.path).Msg("ignoring error closing serial port")
	}
	log.Info().Str("path", c.path).Dur("took", time.Since(start)).Msg("serial port closed")
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	return c.closed.Load()
}
