// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chasut/eplustv-ah4c/internal/epg"
	"github.com/chasut/eplustv-ah4c/internal/guide"
	"github.com/chasut/eplustv-ah4c/internal/jobs"
	xlog "github.com/chasut/eplustv-ah4c/internal/log"
	"github.com/chasut/eplustv-ah4c/internal/store"
)

var guideCmd = &cobra.Command{
	Use:   "guide [store-path]",
	Short: "Compile the playlist and guide once from the stored schedule",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			cfg.DBPath = args[0]
		}

		// a one-shot compile against a missing store is an operator error
		if _, err := os.Stat(cfg.DBPath); err != nil {
			return fmt.Errorf("event store %s: %w", cfg.DBPath, err)
		}

		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		status, err := jobs.Refresh(cmd.Context(), jobs.Deps{
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
		})
		if err != nil {
			return err
		}

		logger := xlog.WithComponent("cli")
		if !status.Wrote {
			logger.Info().Str("event", "guide.empty").Msg("window is empty, no artifacts written")
			return nil
		}
		logger.Info().
			Str("event", "guide.written").
			Int(xlog.FieldChannels, status.Channels).
			Int(xlog.FieldSegments, status.Segments).
			Str(xlog.FieldPath, cfg.DataDir).
			Msg("artifacts written")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(guideCmd)
}
