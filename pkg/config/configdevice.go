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

package config

import "time"

const (
	DefaultBaudRate     = 115200
	DefaultGraceDelay   = 2000 * time.Millisecond
	DefaultStatusPoll   = 500 * time.Millisecond
	DefaultActiveWindow = 2000 * time.Millisecond
)

// Device timings are in milliseconds; zero means the default.
type Device struct {
	AutoDetect     *bool  `toml:"auto_detect,omitempty"`
	Port           string `toml:"port,omitempty"`
	BaudRate       int    `toml:"baud_rate,omitempty" validate:"omitempty,oneof=9600 19200 38400 57600 115200 230400"`
	GraceDelayMS   int    `toml:"grace_delay_ms,omitempty" validate:"gte=0,lte=60000"`
	StatusPollMS   int    `toml:"status_poll_ms,omitempty" validate:"gte=0,lte=10000"`
	ActiveWindowMS int    `toml:"active_window_ms,omitempty" validate:"gte=0,lte=60000"`
}

func (c *Instance) DevicePort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.Port
}

func (c *Instance) SetDevicePort(port string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Device.Port = port
}

func (c *Instance) AutoDetect() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Device.AutoDetect == nil {
		return true
	}
	return *c.vals.Device.AutoDetect
}

func (c *Instance) BaudRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Device.BaudRate == 0 {
		return DefaultBaudRate
	}
	return c.vals.Device.BaudRate
}

func (c *Instance) GraceDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return msOr(c.vals.Device.GraceDelayMS, DefaultGraceDelay)
}

func (c *Instance) StatusPoll() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return msOr(c.vals.Device.StatusPollMS, DefaultStatusPoll)
}

func (c *Instance) ActiveWindow() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return msOr(c.vals.Device.ActiveWindowMS, DefaultActiveWindow)
}

func msOr(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
