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
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	d := Dirs{
		Config:  filepath.Join(root, "config", "nested"),
		Data:    filepath.Join(root, "data"),
		Logs:    filepath.Join(root, "logs"),
		Backups: filepath.Join(root, "backups"),
	}
	require.NoError(t, EnsureDirectories(d))

	for _, dir := range []string{d.Config, d.Data, d.Logs} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	_, err := os.Stat(d.Backups)
	assert.True(t, os.IsNotExist(err), "backups are created on demand")
}

func TestEnsureDirectories_Invalid(t *testing.T) {
	t.Parallel()

	err := EnsureDirectories(Dirs{Config: "/proc/invalid\x00path"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config directory")
}

//nolint:paralleltest // modifies the global logger
func TestInitLogging(t *testing.T) {
	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	require.NoError(t, InitLogging(filepath.Join(t.TempDir(), "logs"), true, []io.Writer{&buf}))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	log.Debug().Msg("debug line")
	assert.Contains(t, buf.String(), "debug line")

	buf.Reset()
	require.NoError(t, InitLogging(filepath.Join(t.TempDir(), "logs"), false, []io.Writer{&buf}))
	log.Debug().Msg("hidden line")
	assert.NotContains(t, buf.String(), "hidden line")
}
