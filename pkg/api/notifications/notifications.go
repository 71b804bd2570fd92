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

// Package notifications builds the events pushed to API clients and MQTT.
package notifications

import (
	"encoding/json"
	"math"

	"github.com/GroovTube/groovtube-core/pkg/api/models"
	"github.com/GroovTube/groovtube-core/pkg/breath"
	"github.com/GroovTube/groovtube-core/pkg/protocol"
	"github.com/GroovTube/groovtube-core/pkg/session"
	"github.com/GroovTube/groovtube-core/pkg/settings"
	"github.com/GroovTube/groovtube-core/pkg/status"
	"github.com/rs/zerolog/log"
)

// sendNotification never blocks. The session calls these from its read loop,
// and a slow consumer must not stall the device.
func sendNotification(ns chan<- models.Notification, method string, payload any) {
	var params json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("failed to marshal notification")
			return
		}
		params = data
	}

	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification channel full, dropping notification")
	}
}

func SettingsChanged(ns chan<- models.Notification, values settings.Values) {
	sendNotification(ns, models.NotificationSettingsChanged, values)
}

func SaveStateChanged(ns chan<- models.Notification, st session.SaveState) {
	sendNotification(ns, models.NotificationSettingsSave, models.SaveStatePayload{SaveState: st})
}

func BreathSample(ns chan<- models.Notification, sample protocol.BreathSample) {
	payload := models.SamplePayload{Timestamp: sample.Timestamp}
	if !math.IsNaN(sample.Value) && !math.IsInf(sample.Value, 0) {
		v := sample.Value
		payload.Value = &v
	}
	sendNotification(ns, models.NotificationBreathSample, payload)
}

func BreathAction(ns chan<- models.Notification, a breath.Action) {
	sendNotification(ns, models.NotificationBreathAction, a)
}

func StatusChanged(ns chan<- models.Notification, mode status.Mode) {
	sendNotification(ns, models.NotificationStatusChanged, models.ModePayload{Mode: mode})
}

func ConnectionState(ns chan<- models.Notification, st session.State) {
	sendNotification(ns, models.NotificationConnectionState, models.StatePayload{State: st})
}

func ConnectionError(ns chan<- models.Notification, err error) {
	sendNotification(ns, models.NotificationConnectionError, models.ConnectionErrorPayload{Error: err.Error()})
}

func MeasurementReport(ns chan<- models.Notification, r *breath.Report) {
	sendNotification(ns, models.NotificationMeasurementReport, models.ReportSummaryResponse{
		ID:        r.ID,
		StartedAt: r.StartedAt,
		Meta:      r.Meta,
		Summary:   r.Summary,
	})
}

// DeviceEvent forwards firmware lines that have no dedicated observer.
// Acks are not forwarded.
func DeviceEvent(ns chan<- models.Notification, ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.DeviceError:
		sendNotification(ns, models.NotificationDeviceError, e)
	case protocol.PEPProgress:
		sendNotification(ns, models.NotificationDevicePEPProgress, e)
	case protocol.PEPReward:
		sendNotification(ns, models.NotificationDevicePEPReward, e)
	case protocol.DeviceMeasurements:
		sendNotification(ns, models.NotificationDeviceMeasurements, e)
	case protocol.Export:
		sendNotification(ns, models.NotificationDeviceExport, e)
	}
}
