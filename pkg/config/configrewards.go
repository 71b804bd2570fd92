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

// Rewards controls playback of the sounds the device requests when a PEP
// exercise goal is reached.
type Rewards struct {
	Enabled  *bool  `toml:"enabled,omitempty"`
	MediaDir string `toml:"media_dir,omitempty"`
}

func (c *Instance) RewardsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Rewards.Enabled == nil {
		return true
	}
	return *c.vals.Rewards.Enabled
}

// RewardsMediaDir is empty unless configured; callers fall back to a
// directory under the data dir.
func (c *Instance) RewardsMediaDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Rewards.MediaDir
}
