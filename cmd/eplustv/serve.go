// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chasut/eplustv-ah4c/internal/api"
	"github.com/chasut/eplustv-ah4c/internal/epg"
	"github.com/chasut/eplustv-ah4c/internal/guide"
	"github.com/chasut/eplustv-ah4c/internal/ingest"
	"github.com/chasut/eplustv-ah4c/internal/jobs"
	xlog "github.com/chasut/eplustv-ah4c/internal/log"
	"github.com/chasut/eplustv-ah4c/internal/store"
	"github.com/chasut/eplustv-ah4c/internal/telemetry"
	"github.com/chasut/eplustv-ah4c/internal/version"
	"github.com/chasut/eplustv-ah4c/internal/watchapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon: periodic ingest, compile, and the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := xlog.WithComponent("daemon")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		tp, err := telemetry.NewProvider(ctx, telemetry.Config{
			Enabled:        cfg.OTelEnabled,
			ServiceName:    "eplustv",
			ServiceVersion: version.Version,
			Endpoint:       cfg.OTelEndpoint,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("telemetry shutdown")
			}
		}()

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		runner := jobs.NewRunner(jobs.Deps{
			Store:   st,
			DataDir: cfg.DataDir,
			Branding: epg.Branding{
				Brand:        cfg.Brand,
				ChannelSlug:  jobs.Slugify(cfg.Brand),
				Generator:    "eplustv-ah4c",
				GeneratorURL: "https://github.com/chasut/eplustv-ah4c",
			},
			DeeplinkBase: cfg.DeeplinkBase,
			Options: guide.Options{
				Lookahead:     cfg.Lookahead,
				Grace:         cfg.Grace,
				StandbyBlock:  cfg.StandbyBlock,
				MaxStandby:    cfg.MaxStandby,
				EndedDuration: cfg.EndedDuration,
			},
			// serve mode always replaces artifacts so clients never see a
			// stale grid after the window empties
			WriteEmpty: true,
		})

		sched := &jobs.Scheduler{
			Runner:          runner,
			CompileInterval: cfg.CompileInterval,
			WatchPath:       cfg.DBPath,
		}

		if cfg.API.Key != "" {
			client := watchapi.New(cfg.API, cfg.RateLimitRPS, "eplustv-ah4c/"+version.Version)
			sched.Fetch = func(ctx context.Context) error {
				_, err := ingest.Run(ctx, ingest.Deps{
					Client:    client,
					Store:     st,
					Days:      cfg.FetchDays,
					Package:   cfg.API.Package,
					Retention: cfg.Retention,
				})
				return err
			}
			sched.FetchInterval = cfg.FetchInterval

			// seed the store before the first compile
			if err := sched.Fetch(ctx); err != nil {
				logger.Warn().Err(err).Str("event", "daemon.seed_failed").Msg("initial fetch failed, serving stored schedule")
			}
		} else {
			logger.Info().Str("event", "daemon.fetch_disabled").Msg("no API key configured, compiling stored schedule only")
		}

		api.SetTrustedProxies(cfg.TrustedProxies)
		srv := api.New(cfg, runner, st)

		errCh := make(chan error, 2)
		go func() { errCh <- srv.Start() }()
		go func() { errCh <- sched.Run(ctx) }()

		logger.Info().
			Str("event", "daemon.started").
			Str("listen", cfg.Listen).
			Str(xlog.FieldPath, cfg.DataDir).
			Msg("daemon running")

		select {
		case <-ctx.Done():
			logger.Info().Str("event", "daemon.stopping").Msg("shutdown signal received")
		case err := <-errCh:
			if err != nil {
				stop()
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
