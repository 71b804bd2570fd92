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

// Package api is the HTTP and websocket face of the service. Every route is
// a thin adapter over the session; device state only changes through it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/GroovTube/groovtube-core/pkg/api/middleware"
	"github.com/GroovTube/groovtube-core/pkg/api/models"
	"github.com/GroovTube/groovtube-core/pkg/breath"
	"github.com/GroovTube/groovtube-core/pkg/config"
	"github.com/GroovTube/groovtube-core/pkg/helpers"
	"github.com/GroovTube/groovtube-core/pkg/session"
	"github.com/GroovTube/groovtube-core/pkg/settings"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	RequestTimeout  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
	maxBodyBytes    = 1 << 20
)

// Device is the subset of *session.Session the API drives.
type Device interface {
	Connect(path string) error
	Disconnect() error
	Settings() settings.Values
	UpdateSettings(values map[string]any) error
	ImportSettings(payload []byte) error
	StartMeasurement(meta breath.Meta) error
	StopMeasurement() (breath.Report, error)
	RequestDeviceMeasurements() error
	RequestExport() error
	Info() session.Info
}

// ReportStore is the read side of the report database.
type ReportStore interface {
	List() ([]breath.Report, error)
	Get(id string) (breath.Report, error)
	Delete(id string) error
}

type Env struct {
	Config *config.Instance
	Device Device
	// Reports is nil when report storage is disabled.
	Reports ReportStore
	Clock   clockwork.Clock
	// ListPorts defaults to the system serial enumerator.
	ListPorts helpers.PortLister
}

type Server struct {
	env    Env
	ws     *melody.Melody
	router chi.Router
	ipRate *middleware.IPRateLimiter
}

func NewServer(env Env) *Server {
	if env.Clock == nil {
		env.Clock = clockwork.NewRealClock()
	}

	s := &Server{
		env:    env,
		ws:     melody.New(),
		ipRate: middleware.NewIPRateLimiter(middleware.RequestsPerMinute, middleware.BurstSize),
	}

	s.ws.Upgrader.CheckOrigin = func(_ *http.Request) bool { return true }
	s.ws.HandleMessage(handleWSMessage)
	s.ws.HandleConnect(func(ms *melody.Session) {
		log.Debug().Str("remote", ms.Request.RemoteAddr).Msg("websocket client connected")
	})

	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.NoCache)
	r.Use(middleware.HTTPIPFilterMiddleware(middleware.NewIPFilter(s.env.Config.AllowedIPs())))
	r.Use(middleware.HTTPRateLimitMiddleware(s.ipRate))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.env.Config.AllowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/api/events", func(w http.ResponseWriter, r *http.Request) {
		if err := s.ws.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(RequestTimeout))

		r.Get("/api/status", s.handleStatus)
		r.Post("/api/connect", s.handleConnect)
		r.Post("/api/disconnect", s.handleDisconnect)
		r.Get("/api/ports", s.handlePorts)

		r.Get("/api/settings", s.handleGetSettings)
		r.Patch("/api/settings", s.handlePatchSettings)
		r.Post("/api/settings/import", s.handleImportSettings)
		r.Get("/api/settings/export", s.handleExportSettings)

		r.Post("/api/device/measurements", s.handleDeviceMeasurements)
		r.Post("/api/device/export", s.handleDeviceExport)

		r.Post("/api/measurement/start", s.handleMeasurementStart)
		r.Post("/api/measurement/stop", s.handleMeasurementStop)

		r.Get("/api/reports", s.handleListReports)
		r.Get("/api/reports/{id}", s.handleGetReport)
		r.Get("/api/reports/{id}/csv", s.handleReportCSV)
		r.Delete("/api/reports/{id}", s.handleDeleteReport)
	})

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func handleWSMessage(ms *melody.Session, msg []byte) {
	// heartbeat only; commands go through the HTTP routes
	if string(msg) == "ping" {
		if err := ms.Write([]byte("pong")); err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}
	log.Debug().Int("len", len(msg)).Msg("ignoring websocket message")
}

// Broadcast pushes notifications to every websocket client until ctx ends or
// the channel closes. Breath samples are thinned to the configured rate.
func (s *Server) Broadcast(ctx context.Context, notifications <-chan models.Notification) {
	samples := rate.NewLimiter(rate.Limit(s.env.Config.SampleRate()), 1)

	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}
			if notif.Method == models.NotificationBreathSample && !samples.Allow() {
				continue
			}

			data, err := json.Marshal(models.EventObject{
				Method: notif.Method,
				Params: notif.Params,
			})
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification")
				continue
			}
			if err := s.ws.Broadcast(data); err != nil && !errors.Is(err, melody.ErrClosed) {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

// Start serves on the configured listen address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context, notifications <-chan models.Notification) error {
	s.ipRate.StartCleanup(ctx)
	go s.Broadcast(ctx, notifications)

	addr := s.env.Config.APIListen()
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("api server listening")

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.ws.Close(); err != nil && !errors.Is(err, melody.ErrClosed) {
		log.Warn().Err(err).Msg("closing websocket hub")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	log.Info().Msg("api server stopped")
	return nil
}
