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
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasurement_RecordsAndSummarizes(t *testing.T) {
	t.Parallel()

	m := NewMeasurement(Meta{Name: "Sam", Diameter: "3mm"}, DefaultNeutralThreshold, at(0))
	assert.Equal(t, "2025-06-24", m.Meta().Date, "date defaults to the start day")

	samples := []float64{0, 0.2, 0.4, 0, -0.3, -0.1, 0, 0.6, 0.6}
	for i, v := range samples {
		m.Add(v, at(i*100))
	}
	last, ok := m.Stop(at(1000))
	require.True(t, ok)
	assert.Equal(t, Expiration, last.Type)

	actions := m.Actions()
	require.Len(t, actions, 3)

	s := m.Summary()
	assert.Equal(t, 2, s.Expiration.Count)
	assert.Equal(t, 1, s.Inspiration.Count)
	// expirations: peak 0.4 over 0.2s, peak 0.6 over 0.3s
	assert.InDelta(t, 0.25, s.Expiration.MeanDuration, 1e-9)
	assert.InDelta(t, 0.5, s.Expiration.MeanPeak, 1e-9)
	assert.InDelta(t, 0.2, s.Inspiration.MeanDuration, 1e-9)
	assert.InDelta(t, -0.3, s.Inspiration.MeanPeak, 1e-9)
}

func TestMeasurement_IgnoresSamplesAfterStop(t *testing.T) {
	t.Parallel()

	m := NewMeasurement(Meta{}, DefaultNeutralThreshold, at(0))
	m.Stop(at(10))
	assert.True(t, m.Stopped())

	_, ok := m.Add(0.9, at(20))
	assert.False(t, ok)
	_, ok = m.Stop(at(30))
	assert.False(t, ok)
	assert.Empty(t, m.Actions())
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestReport_CSV(t *testing.T) {
	t.Parallel()

	m := NewMeasurement(Meta{Name: "Sam", Date: "2025-06-24", ActiveTypes: Both}, DefaultNeutralThreshold, at(0))
	for i, v := range []float64{0.05, 0.08, 0, -0.05, 0} {
		m.Add(v, at(i*100))
	}
	m.Stop(at(500))

	r := m.Report("r1")
	assert.Equal(t, "r1", r.ID)
	assert.Equal(t, at(0), r.StartedAt)
	assert.Equal(t, at(500), r.StoppedAt)

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))
	assert.Equal(t,
		"#,type,peak,duration_s\n"+
			"1,expiration,0.080,0.20\n"+
			"2,inspiration,-0.050,0.10\n",
		buf.String())
}

func TestReport_FileName(t *testing.T) {
	t.Parallel()

	r := Report{Meta: Meta{Name: "Sam de Vries", Date: "2025-06-24", ActiveTypes: ExpirationOnly}}
	export := time.Date(2025, 6, 24, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, "Sam_de_Vries_2025-06-24_1405_expiration.csv", r.FileName(export))

	anon := Report{}
	assert.Equal(t, "unknown_2025-06-24_1405_both.csv", anon.FileName(export))
}
