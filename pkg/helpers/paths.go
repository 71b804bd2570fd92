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

package helpers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/GroovTube/groovtube-core/pkg/config"
	"github.com/adrg/xdg"
)

// Dirs are the per-user directories the service writes to.
type Dirs struct {
	Config  string
	Data    string
	Logs    string
	Backups string
}

// DefaultDirs resolves XDG base directories (or their platform
// equivalents). Backups go to the user's documents folder so they are easy
// to find when moving settings between machines.
func DefaultDirs() Dirs {
	data := filepath.Join(xdg.DataHome, config.AppName)
	docs := xdg.UserDirs.Documents
	if docs == "" {
		docs = xdg.Home
	}
	return Dirs{
		Config:  filepath.Join(xdg.ConfigHome, config.AppName),
		Data:    data,
		Logs:    filepath.Join(xdg.StateHome, config.AppName),
		Backups: filepath.Join(docs, "GroovTube"),
	}
}

// EnsureDirectories creates every directory in d except Backups, which is
// only created when a backup is written.
func EnsureDirectories(d Dirs) error {
	for _, dir := range []struct{ name, path string }{
		{"config", d.Config},
		{"data", d.Data},
		{"log", d.Logs},
	} {
		if err := os.MkdirAll(dir.path, 0o750); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", dir.name, err)
		}
	}
	return nil
}
