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

// Package cli holds the flag handling and process setup shared by the
// groovtube commands.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/GroovTube/groovtube-core/pkg/config"
	"github.com/GroovTube/groovtube-core/pkg/helpers"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

type Flags struct {
	Version   *bool
	ListPorts *bool
	Port      *string
	Daemon    *bool
	Backup    *string
	Restore   *string
}

// SetupFlags defines the command line flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		ListPorts: fs.Bool(
			"list-ports",
			false,
			"list serial ports, likely GroovTube adapters first, and exit",
		),
		Port: fs.String(
			"port",
			"",
			"serial port to connect to at startup",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"run in the foreground and log to stderr",
		),
		Backup: fs.String(
			"backup",
			"",
			"save the device settings to a backup file with this name and exit",
		),
		Restore: fs.String(
			"restore",
			"",
			"write the settings in this backup file to the device and exit",
		),
	}
}

// LoadEnv reads .env files from the working directory and the config
// directory. Variables already set in the environment win.
func LoadEnv(configDir string) error {
	for _, p := range []string{".env", filepath.Join(configDir, ".env")} {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Setup creates the directories, starts logging and loads the config.
//
//nolint:gocritic // config struct copied for immutability
func Setup(dirs helpers.Dirs, defaults config.Values, writers []io.Writer) (*config.Instance, error) {
	if err := helpers.EnsureDirectories(dirs); err != nil {
		return nil, err
	}

	if err := LoadEnv(dirs.Config); err != nil {
		return nil, err
	}

	if err := helpers.InitLogging(dirs.Logs, false, writers); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	cfg, err := config.NewConfig(afero.NewOsFs(), dirs.Config, defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.DebugLogging() {
		if err := helpers.InitLogging(dirs.Logs, true, writers); err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
	}

	log.Info().Str("config", cfg.Path()).Msg("config loaded")
	return cfg, nil
}

// PrintPorts writes one line per serial port.
func PrintPorts(w io.Writer, list helpers.PortLister) error {
	ports, err := helpers.ListSerialPorts(list)
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		_, err = fmt.Fprintln(w, "no serial ports found")
		return err
	}
	for _, p := range ports {
		mark := " "
		if p.GroovTube() {
			mark = "*"
		}
		line := fmt.Sprintf("%s %s", mark, p.Name)
		if p.IsUSB {
			line += fmt.Sprintf("  [%s:%s] %s", p.VID, p.PID, p.Product)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
