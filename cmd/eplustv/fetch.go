// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chasut/eplustv-ah4c/internal/ingest"
	"github.com/chasut/eplustv-ah4c/internal/store"
	"github.com/chasut/eplustv-ah4c/internal/version"
	"github.com/chasut/eplustv-ah4c/internal/watchapi"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the schedule once and upsert it into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		client := watchapi.New(cfg.API, cfg.RateLimitRPS, "eplustv-ah4c/"+version.Version)
		summary, err := ingest.Run(cmd.Context(), ingest.Deps{
			Client:    client,
			Store:     st,
			Days:      cfg.FetchDays,
			Package:   cfg.API.Package,
			Retention: cfg.Retention,
		})
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		live, err := st.CountLive(cmd.Context(), now)
		if err != nil {
			return err
		}
		upcoming, err := st.CountUpcoming(cmd.Context(), now, 72*time.Hour)
		if err != nil {
			return err
		}

		out := struct {
			DB string `json:"db"`
			*ingest.Summary
			LiveNow  int `json:"live_now"`
			Window72 int `json:"upcoming_72h"`
		}{cfg.DBPath, summary, live, upcoming}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
