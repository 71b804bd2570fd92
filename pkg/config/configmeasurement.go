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

const DefaultNeutralThreshold = 0.025

type Measurement struct {
	ReportsEnabled   *bool   `toml:"reports_enabled,omitempty"`
	ActiveTypes      string  `toml:"active_types,omitempty" validate:"omitempty,oneof=both expiration inspiration"`
	NeutralThreshold float64 `toml:"neutral_threshold,omitempty" validate:"gte=0,lt=1"`
}

func (c *Instance) NeutralThreshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Measurement.NeutralThreshold == 0 {
		return DefaultNeutralThreshold
	}
	return c.vals.Measurement.NeutralThreshold
}

// DefaultActiveTypes is used when a measurement is started without a type.
func (c *Instance) DefaultActiveTypes() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Measurement.ActiveTypes
}

func (c *Instance) ReportsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Measurement.ReportsEnabled == nil {
		return true
	}
	return *c.vals.Measurement.ReportsEnabled
}
