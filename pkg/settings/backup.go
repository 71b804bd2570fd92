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

package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const DefaultBackupName = "groovtube_backup"

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// ValidationError reports an import payload that cannot be applied. The
// reason is meant to be shown to the user as is.
type ValidationError struct {
	Err    error
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid settings backup: %s: %v", e.Reason, e.Err)
	}
	return "invalid settings backup: " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ParseImport validates a backup or pasted JSON payload.
func ParseImport(data []byte) (Values, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &ValidationError{Reason: "backup is empty"}
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Reason: "backup is not valid JSON", Err: err}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{Reason: "backup does not contain a settings object"}
	}
	if len(obj) == 0 {
		return nil, &ValidationError{Reason: "backup contains no settings"}
	}

	for _, key := range ColorKeys {
		val, present := obj[key]
		if !present {
			continue
		}
		if _, err := ParseColor(val); err != nil {
			return nil, &ValidationError{Reason: "setting " + key + " is not a valid colour", Err: err}
		}
	}

	return Values(obj), nil
}

// BackupFileName builds "<name>_<YYYY-MM-DD>.json" with unsafe characters
// replaced by underscores.
func BackupFileName(name string, now time.Time) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultBackupName
	}
	name = unsafeNameRe.ReplaceAllString(name, "_")
	return fmt.Sprintf("%s_%s.json", name, now.Format(time.DateOnly))
}

// MarshalBackup renders values as indented JSON.
func MarshalBackup(values Values) ([]byte, error) {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings backup: %w", err)
	}
	return data, nil
}

// WriteBackup saves values into dir and returns the written path.
func WriteBackup(fs afero.Fs, dir, name string, values Values, now time.Time) (string, error) {
	data, err := MarshalBackup(values)
	if err != nil {
		return "", err
	}

	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(dir, BackupFileName(name, now))
	if err := afero.WriteFile(fs, path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write settings backup: %w", err)
	}
	return path, nil
}

// ReadBackup loads and validates a backup file.
func ReadBackup(fs afero.Fs, path string) (Values, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings backup: %w", err)
	}
	return ParseImport(data)
}
