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

// Package service wires the device session to its consumers: the HTTP API,
// MQTT publishers, mDNS discovery, reward sounds and the report store.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/GroovTube/groovtube-core/pkg/api"
	"github.com/GroovTube/groovtube-core/pkg/api/models"
	"github.com/GroovTube/groovtube-core/pkg/api/notifications"
	"github.com/GroovTube/groovtube-core/pkg/audio"
	"github.com/GroovTube/groovtube-core/pkg/breath"
	"github.com/GroovTube/groovtube-core/pkg/config"
	"github.com/GroovTube/groovtube-core/pkg/database/reportdb"
	"github.com/GroovTube/groovtube-core/pkg/helpers"
	"github.com/GroovTube/groovtube-core/pkg/protocol"
	"github.com/GroovTube/groovtube-core/pkg/service/broker"
	"github.com/GroovTube/groovtube-core/pkg/service/discovery"
	"github.com/GroovTube/groovtube-core/pkg/service/publishers"
	"github.com/GroovTube/groovtube-core/pkg/session"
	"github.com/GroovTube/groovtube-core/pkg/settings"
	"github.com/GroovTube/groovtube-core/pkg/status"
	"github.com/GroovTube/groovtube-core/pkg/transport"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	notificationBuffer = 256
	subscriberBuffer   = 100
	reportQueueSize    = 8
	mediaDirName       = "media"
	// extra time allowed past the grace delay when stopping with unsaved edits
	saveWaitSlack = time.Second
)

type Options struct {
	Clock clockwork.Clock
	// PortFactory overrides how serial ports are opened.
	PortFactory transport.PortFactory
	// ListPorts overrides serial port enumeration.
	ListPorts helpers.PortLister
	// Port is connected at startup when set, ahead of the configured port.
	Port    string
	DataDir string
	// Player overrides reward sound output.
	Player audio.Player
	// DisableAPI skips the HTTP server and discovery.
	DisableAPI bool
}

// Service is a running instance. Stop it with Stop.
type Service struct {
	Session  *session.Session
	cfg      *config.Instance
	clock    clockwork.Clock
	broker   *broker.Broker
	reports  *reportdb.Database
	rewards  *audio.Rewards
	pubs     []*publishers.MQTTPublisher
	disc     *discovery.Service
	cancel   context.CancelFunc
	group    *errgroup.Group
	saveDone chan struct{}
	done     chan struct{}
	unsub    func()
}

// notificationObserver turns session events into notifications on ns.
func notificationObserver(ns chan<- models.Notification) session.Observer {
	return session.Observer{
		SettingsChanged: func(v settings.Values) { notifications.SettingsChanged(ns, v) },
		BreathSample:    func(s protocol.BreathSample) { notifications.BreathSample(ns, s) },
		BreathActionClosed: func(a breath.Action) {
			notifications.BreathAction(ns, a)
		},
		StatusChanged:    func(m status.Mode) { notifications.StatusChanged(ns, m) },
		ConnectionError:  func(err error) { notifications.ConnectionError(ns, err) },
		StateChanged:     func(st session.State) { notifications.ConnectionState(ns, st) },
		SaveStateChanged: func(st session.SaveState) { notifications.SaveStateChanged(ns, st) },
		DeviceEvent:      func(ev protocol.Event) { notifications.DeviceEvent(ns, ev) },
		MeasurementFinished: func(r breath.Report) {
			notifications.MeasurementReport(ns, &r)
		},
	}
}

func sessionOptions(cfg *config.Instance, opts Options) session.Options {
	return session.Options{
		Clock: opts.Clock,
		Transport: transport.Options{
			Factory:  opts.PortFactory,
			BaudRate: cfg.BaudRate(),
		},
		GraceDelay:       cfg.GraceDelay(),
		StatusPoll:       cfg.StatusPoll(),
		ActiveWindow:     cfg.ActiveWindow(),
		NeutralThreshold: cfg.NeutralThreshold(),
	}
}

// Start builds and runs every component. Failing to open the device at
// startup is logged, not returned; the user can connect later.
func Start(cfg *config.Instance, opts Options) (*Service, error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	ns := make(chan models.Notification, notificationBuffer)
	notifBroker := broker.NewBroker(gctx, ns)
	notifBroker.Start()

	svc := &Service{
		Session:  session.New(sessionOptions(cfg, opts)),
		cfg:      cfg,
		clock:    opts.Clock,
		broker:   notifBroker,
		cancel:   cancel,
		group:    g,
		saveDone: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	reportQueue := make(chan breath.Report, reportQueueSize)
	if cfg.ReportsEnabled() && opts.DataDir != "" {
		db, err := reportdb.Open(filepath.Join(opts.DataDir, reportdb.DBFile))
		if err != nil {
			cancel()
			<-notifBroker.Done()
			return nil, fmt.Errorf("failed to open report database: %w", err)
		}
		svc.reports = db
		g.Go(func() error {
			svc.storeReports(gctx, reportQueue)
			return nil
		})
	}

	svc.rewards = newRewards(cfg, opts)

	obs := notificationObserver(ns)
	obs.DeviceEvent = func(ev protocol.Event) {
		notifications.DeviceEvent(ns, ev)
		if svc.rewards != nil {
			svc.rewards.Handle(ev)
		}
	}
	obs.SaveStateChanged = func(st session.SaveState) {
		notifications.SaveStateChanged(ns, st)
		if st == session.Saved || st == session.Settled {
			select {
			case svc.saveDone <- struct{}{}:
			default:
			}
		}
	}
	obs.MeasurementFinished = func(r breath.Report) {
		notifications.MeasurementReport(ns, &r)
		if svc.reports == nil {
			return
		}
		select {
		case reportQueue <- r:
		default:
			log.Error().Str("id", r.ID).Msg("report queue full, measurement report not stored")
		}
	}
	svc.unsub = svc.Session.Subscribe(obs)

	for _, p := range publishers.FromConfig(cfg) {
		ch, id := notifBroker.Subscribe(subscriberBuffer, p.Methods()...)
		if err := p.Start(ch); err != nil {
			log.Error().Err(err).Msg("failed to start MQTT publisher")
			notifBroker.Unsubscribe(id)
			continue
		}
		svc.pubs = append(svc.pubs, p)
	}

	if !opts.DisableAPI {
		var reports api.ReportStore
		if svc.reports != nil {
			reports = svc.reports
		}
		server := api.NewServer(api.Env{
			Config:    cfg,
			Device:    svc.Session,
			Reports:   reports,
			Clock:     opts.Clock,
			ListPorts: opts.ListPorts,
		})
		apiNotifications, _ := notifBroker.Subscribe(subscriberBuffer)
		g.Go(func() error {
			return server.Start(gctx, apiNotifications)
		})

		svc.disc = discovery.New(cfg, func() string { return svc.Session.Info().Path })
		if err := svc.disc.Start(); err != nil {
			log.Error().Err(err).Msg("mDNS discovery failed to start, continuing without it")
		}
	}

	go func() {
		if err := g.Wait(); err != nil {
			log.Error().Err(err).Msg("service component failed")
		}
		close(svc.done)
	}()

	svc.connectAtStartup(opts)
	return svc, nil
}

func newRewards(cfg *config.Instance, opts Options) *audio.Rewards {
	if !cfg.RewardsEnabled() {
		return nil
	}
	dir := cfg.RewardsMediaDir()
	if dir == "" {
		if opts.DataDir == "" {
			return nil
		}
		dir = filepath.Join(opts.DataDir, mediaDirName)
	}
	player := opts.Player
	if player == nil {
		player = audio.NewMalgoPlayer()
	}
	log.Debug().Str("dir", dir).Msg("reward sounds enabled")
	return audio.NewRewards(player, dir)
}

func (s *Service) connectAtStartup(opts Options) {
	port := opts.Port
	if port == "" {
		port = s.cfg.DevicePort()
	}
	if port == "" && s.cfg.AutoDetect() {
		detected, err := helpers.DetectGroovTube(opts.ListPorts)
		if err != nil {
			log.Info().Err(err).Msg("no adapter detected at startup")
			return
		}
		port = detected
	}
	if port == "" {
		return
	}
	if err := s.Session.Connect(port); err != nil {
		log.Error().Err(err).Str("port", port).Msg("failed to connect at startup")
	}
}

func (s *Service) storeReports(ctx context.Context, queue <-chan breath.Report) {
	for {
		select {
		case <-ctx.Done():
			// the session is closed before shutdown, so the queue is final
			for {
				select {
				case r := <-queue:
					s.storeReport(&r)
				default:
					return
				}
			}
		case r := <-queue:
			s.storeReport(&r)
		}
	}
}

func (s *Service) storeReport(r *breath.Report) {
	if err := s.reports.Put(r); err != nil {
		log.Error().Err(err).Str("id", r.ID).Msg("failed to store measurement report")
		return
	}
	log.Info().Str("id", r.ID).Int("actions", len(r.Actions)).Msg("stored measurement report")
}

// Done is closed once every service goroutine has exited.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Stop disconnects the device, waits out the save grace period when there
// are unsaved edits, then shuts everything down.
func (s *Service) Stop() error {
	select {
	case <-s.saveDone:
	default:
	}

	err := s.Session.Disconnect()
	if errors.Is(err, session.ErrNotConnected) {
		err = nil
	}

	// also covers a user disconnect made before Stop whose grace save is
	// still running
	if s.Session.Info().SaveState == session.Saving {
		log.Info().Msg("waiting for device to save settings")
		select {
		case <-s.saveDone:
		case <-s.clock.After(s.cfg.GraceDelay() + saveWaitSlack):
			log.Warn().Msg("timed out waiting for settings save")
		}
	}

	s.unsub()
	s.Session.Close()

	if s.disc != nil {
		s.disc.Stop()
	}
	if s.rewards != nil {
		s.rewards.Stop()
	}
	for _, p := range s.pubs {
		p.Stop()
	}

	s.cancel()
	<-s.done
	<-s.broker.Done()

	if s.reports != nil {
		if closeErr := s.reports.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}

	log.Info().Msg("service stopped")
	return err
}
