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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GroovTube/groovtube-core/internal/telemetry"
	"github.com/GroovTube/groovtube-core/pkg/cli"
	"github.com/GroovTube/groovtube-core/pkg/config"
	"github.com/GroovTube/groovtube-core/pkg/helpers"
	"github.com/GroovTube/groovtube-core/pkg/service"
	"github.com/GroovTube/groovtube-core/pkg/session"
	"github.com/GroovTube/groovtube-core/pkg/transport"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"go.bug.st/serial/enumerator"
)

const commandTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func resolvePort(cfg *config.Instance, flagPort string) (string, error) {
	if flagPort != "" {
		return flagPort, nil
	}
	if p := cfg.DevicePort(); p != "" {
		return p, nil
	}
	return helpers.DetectGroovTube(enumerator.GetDetailedPortsList)
}

func runCommand(cfg *config.Instance, dirs helpers.Dirs, flags *cli.Flags) error {
	port, err := resolvePort(cfg, *flags.Port)
	if err != nil {
		return err
	}

	sess := session.New(session.Options{
		GraceDelay: cfg.GraceDelay(),
		Transport:  transport.Options{BaudRate: cfg.BaudRate()},
	})
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if *flags.Backup != "" {
		path, err := cli.BackupDevice(ctx, sess, afero.NewOsFs(), clockwork.NewRealClock(), port, dirs.Backups, *flags.Backup)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		_, _ = fmt.Printf("Settings saved to %s\n", path)
		return nil
	}

	if err := cli.RestoreDevice(ctx, sess, afero.NewOsFs(), port, *flags.Restore); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	_, _ = fmt.Println("Settings restored")
	return nil
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)
	flag.Parse()

	if *flags.Version {
		_, _ = fmt.Printf("GroovTube Core v%s\n", config.AppVersion)
		return nil
	}
	if *flags.ListPorts {
		return cli.PrintPorts(os.Stdout, enumerator.GetDetailedPortsList)
	}

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{os.Stderr}
	}

	dirs := helpers.DefaultDirs()
	cfg, err := cli.Setup(dirs, config.BaseDefaults, logWriters)
	if err != nil {
		return err
	}

	if err := telemetry.Init(cfg.ErrorReportingDSN(), config.AppVersion); err != nil {
		log.Warn().Err(err).Msg("error reporting not started")
	}
	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	if *flags.Backup != "" || *flags.Restore != "" {
		return runCommand(cfg, dirs, flags)
	}

	svc, err := service.Start(cfg, service.Options{
		Port:    *flags.Port,
		DataDir: dirs.Data,
	})
	if err != nil {
		log.Error().Err(err).Msg("error starting service")
		return fmt.Errorf("error starting service: %w", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	log.Info().Str("api", cfg.APIListen()).Msg("groovtube core running")
	if !*flags.Daemon {
		_, _ = fmt.Printf("GroovTube Core listening on http://%s (Ctrl+C to quit)\n", cfg.APIListen())
	}

	var stopErr error
	select {
	case sig := <-sigs:
		log.Info().Stringer("signal", sig).Msg("shutting down")
		stopErr = svc.Stop()
	case <-svc.Done():
		stopErr = errors.Join(errors.New("service exited unexpectedly"), svc.Stop())
	}
	if stopErr != nil {
		log.Error().Err(stopErr).Msg("error stopping service")
	}
	return stopErr
}
