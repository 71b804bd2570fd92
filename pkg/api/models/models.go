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

package models

import (
	"encoding/json"
	"time"

	"github.com/GroovTube/groovtube-core/pkg/breath"
	"github.com/GroovTube/groovtube-core/pkg/session"
	"github.com/GroovTube/groovtube-core/pkg/status"
)

const (
	NotificationSettingsChanged    = "settings.changed"
	NotificationSettingsSave       = "settings.save"
	NotificationBreathSample       = "breath.sample"
	NotificationBreathAction       = "breath.action"
	NotificationStatusChanged      = "status.changed"
	NotificationConnectionState    = "connection.state"
	NotificationConnectionError    = "connection.error"
	NotificationDeviceError        = "device.error"
	NotificationDevicePEPProgress  = "device.pep.progress"
	NotificationDevicePEPReward    = "device.pep.reward"
	NotificationDeviceMeasurements = "device.measurements"
	NotificationDeviceExport       = "device.export"
	NotificationMeasurementReport  = "measurement.report"
)

type Notification struct {
	Method string
	Params json.RawMessage
}

// EventObject is the frame pushed to websocket clients.
type EventObject struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type ErrorObject struct {
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// Request bodies.

type ConnectParams struct {
	Port string `json:"port" validate:"omitempty,max=256"`
}

type MeasurementStartParams struct {
	Name        string `json:"name" validate:"max=128"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Diameter    string `json:"diameter" validate:"max=32"`
	ActiveTypes string `json:"active_types" validate:"omitempty,activetypes"`
}

type ExportParams struct {
	Name string `json:"name" validate:"max=128"`
}

// Responses and notification payloads.

type StatusResponse struct {
	LastSample *time.Time        `json:"last_sample,omitempty"`
	Port       string            `json:"port,omitempty"`
	State      session.State     `json:"state"`
	Mode       status.Mode       `json:"mode"`
	SaveState  session.SaveState `json:"save_state"`
	Unsaved    bool              `json:"unsaved"`
	Measuring  bool              `json:"measuring"`
}

type PortResponse struct {
	Name      string `json:"name"`
	VID       string `json:"vid,omitempty"`
	PID       string `json:"pid,omitempty"`
	Product   string `json:"product,omitempty"`
	GroovTube bool   `json:"groovtube"`
}

type ReportSummaryResponse struct {
	StartedAt time.Time      `json:"started_at"`
	ID        string         `json:"id"`
	Meta      breath.Meta    `json:"meta"`
	Summary   breath.Summary `json:"summary"`
}

type ConnectionErrorPayload struct {
	Error string `json:"error"`
}

type StatePayload struct {
	State session.State `json:"state"`
}

type ModePayload struct {
	Mode status.Mode `json:"mode"`
}

type SaveStatePayload struct {
	SaveState session.SaveState `json:"save_state"`
}

type SamplePayload struct {
	Timestamp time.Time `json:"timestamp"`
	// Value is nil for unparseable samples.
	Value *float64 `json:"value"`
}
