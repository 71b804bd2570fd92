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

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/GroovTube/groovtube-core/pkg/api/models"
	"github.com/GroovTube/groovtube-core/pkg/api/validation"
	"github.com/GroovTube/groovtube-core/pkg/breath"
	"github.com/GroovTube/groovtube-core/pkg/database/reportdb"
	"github.com/GroovTube/groovtube-core/pkg/helpers"
	"github.com/GroovTube/groovtube-core/pkg/session"
	"github.com/GroovTube/groovtube-core/pkg/settings"
	"github.com/GroovTube/groovtube-core/pkg/transport"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

var ErrReportsDisabled = errors.New("report storage is disabled")

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("writing response")
	}
}

func statusFor(err error) int {
	var valErr *validation.Error
	var importErr *settings.ValidationError
	var connErr *transport.ConnectionError
	switch {
	case errors.As(err, &valErr),
		errors.As(err, &importErr),
		errors.Is(err, validation.ErrMissingParams),
		errors.Is(err, validation.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, reportdb.ErrNotFound),
		errors.Is(err, helpers.ErrNoGroovTube),
		errors.Is(err, ErrReportsDisabled):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotConnected),
		errors.Is(err, session.ErrAlreadyConnected),
		errors.Is(err, session.ErrMeasurementRunning),
		errors.Is(err, session.ErrNoMeasurement):
		return http.StatusConflict
	case errors.As(err, &connErr), errors.Is(err, transport.ErrNoDevice):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	obj := models.ErrorObject{Message: err.Error()}

	var valErr *validation.Error
	if errors.As(err, &valErr) {
		obj.Fields = valErr.Messages()
	}

	evt := log.Debug()
	if code >= http.StatusInternalServerError {
		evt = log.Error()
	}
	evt.Err(err).Str("path", r.URL.Path).Int("status", code).Msg("api request failed")

	writeJSON(w, code, obj)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, validation.ErrInvalidParams
	}
	return data, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	info := s.env.Device.Info()
	resp := models.StatusResponse{
		Port:      info.Path,
		State:     info.State,
		Mode:      info.Mode,
		SaveState: info.SaveState,
		Unsaved:   info.Unsaved,
		Measuring: info.Measuring,
	}
	if !info.LastSample.IsZero() {
		resp.LastSample = &info.LastSample
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolvePort picks the request port, then the configured one, then an
// auto-detected adapter.
func (s *Server) resolvePort(requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if p := s.env.Config.DevicePort(); p != "" {
		return p, nil
	}
	if !s.env.Config.AutoDetect() {
		return "", transport.ErrNoDevice
	}
	return helpers.DetectGroovTube(s.env.ListPorts)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var params models.ConnectParams
	if len(body) > 0 {
		if err := validation.ValidateAndUnmarshal(body, &params); err != nil {
			writeError(w, r, err)
			return
		}
	}

	port, err := s.resolvePort(params.Port)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.env.Device.Connect(port); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.env.Device.Disconnect(); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	ports, err := helpers.ListSerialPorts(s.env.ListPorts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]models.PortResponse, 0, len(ports))
	for _, p := range ports {
		resp = append(resp, models.PortResponse{
			Name:      p.Name,
			VID:       p.VID,
			PID:       p.PID,
			Product:   p.Product,
			GroovTube: p.GroovTube(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.env.Device.Settings())
}

func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var values map[string]any
	if err := json.Unmarshal(body, &values); err != nil || len(values) == 0 {
		writeError(w, r, validation.ErrInvalidParams)
		return
	}
	if err := s.env.Device.UpdateSettings(values); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.env.Device.Settings())
}

func (s *Server) handleImportSettings(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.env.Device.ImportSettings(body); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.env.Device.Settings())
}

func (s *Server) handleExportSettings(w http.ResponseWriter, r *http.Request) {
	params := models.ExportParams{Name: r.URL.Query().Get("name")}
	if err := validation.DefaultValidator.Validate(&params); err != nil {
		writeError(w, r, err)
		return
	}

	data, err := settings.MarshalBackup(s.env.Device.Settings())
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := settings.BackupFileName(params.Name, s.env.Clock.Now())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("writing settings backup")
	}
}

func (s *Server) handleDeviceMeasurements(w http.ResponseWriter, r *http.Request) {
	if err := s.env.Device.RequestDeviceMeasurements(); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleDeviceExport(w http.ResponseWriter, r *http.Request) {
	if err := s.env.Device.RequestExport(); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleMeasurementStart(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	params := models.MeasurementStartParams{
		ActiveTypes: s.env.Config.DefaultActiveTypes(),
	}
	if len(body) > 0 {
		if err := validation.ValidateAndUnmarshal(body, &params); err != nil {
			writeError(w, r, err)
			return
		}
	}

	active, err := breath.ParseActiveTypes(params.ActiveTypes)
	if err != nil {
		writeError(w, r, validation.ErrInvalidParams)
		return
	}

	meta := breath.Meta{
		Name:        params.Name,
		Date:        params.Date,
		Diameter:    params.Diameter,
		ActiveTypes: active,
	}
	if err := s.env.Device.StartMeasurement(meta); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleMeasurementStop(w http.ResponseWriter, r *http.Request) {
	report, err := s.env.Device.StopMeasurement()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) reports() (ReportStore, error) {
	if s.env.Reports == nil {
		return nil, ErrReportsDisabled
	}
	return s.env.Reports, nil
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	store, err := s.reports()
	if err != nil {
		writeError(w, r, err)
		return
	}
	reports, err := store.List()
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]models.ReportSummaryResponse, 0, len(reports))
	for i := range reports {
		resp = append(resp, models.ReportSummaryResponse{
			StartedAt: reports[i].StartedAt,
			ID:        reports[i].ID,
			Meta:      reports[i].Meta,
			Summary:   reports[i].Summary,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getReport(r *http.Request) (breath.Report, error) {
	store, err := s.reports()
	if err != nil {
		return breath.Report{}, err
	}
	return store.Get(chi.URLParam(r, "id"))
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.getReport(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	report, err := s.getReport(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName(s.env.Clock.Now())+`"`)
	if err := report.WriteCSV(w); err != nil {
		log.Error().Err(err).Str("id", report.ID).Msg("writing report csv")
	}
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	store, err := s.reports()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
