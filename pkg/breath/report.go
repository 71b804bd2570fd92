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

package breath

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
)

// Report is a finished measurement as stored and exported.
type Report struct {
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`
	ID        string    `json:"id"`
	Meta      Meta      `json:"meta"`
	Actions   []Action  `json:"actions"`
	Summary   Summary   `json:"summary"`
}

type csvRow struct {
	Number   int    `csv:"#"`
	Type     string `csv:"type"`
	Peak     string `csv:"peak"`
	Duration string `csv:"duration_s"`
}

var unsafeFileRe = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// WriteCSV writes one row per action: number, type, peak (3 decimals) and
// duration in seconds (2 decimals).
func (r *Report) WriteCSV(w io.Writer) error {
	rows := make([]*csvRow, 0, len(r.Actions))
	for i, a := range r.Actions {
		rows = append(rows, &csvRow{
			Number:   i + 1,
			Type:     a.Type.String(),
			Peak:     strconv.FormatFloat(a.Peak, 'f', 3, 64),
			Duration: strconv.FormatFloat(a.DurationSeconds, 'f', 2, 64),
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write report csv: %w", err)
	}
	return nil
}

// FileName returns "<name>_<date>_<HHMM>_<type>.csv" for an export at t.
func (r *Report) FileName(t time.Time) string {
	name := r.Meta.Name
	if name == "" {
		name = "unknown"
	}
	date := r.Meta.Date
	if date == "" {
		date = t.Format(time.DateOnly)
	}
	return fmt.Sprintf("%s_%s_%s_%s.csv",
		unsafeFileRe.ReplaceAllString(name, "_"),
		unsafeFileRe.ReplaceAllString(date, "_"),
		t.Format("1504"),
		r.Meta.ActiveTypes.String(),
	)
}
