// SPDX-License-Identifier: MIT

// Package ingest runs the fetch-normalize-upsert pipeline against the event
// store, one calendar day per upstream request.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chasut/eplustv-ah4c/internal/log"
	"github.com/chasut/eplustv-ah4c/internal/metrics"
	"github.com/chasut/eplustv-ah4c/internal/store"
	"github.com/chasut/eplustv-ah4c/internal/watchapi"
	"golang.org/x/sync/errgroup"
)

// Client is the slice of the watch API this pipeline needs.
type Client interface {
	Airings(ctx context.Context, day string) ([]watchapi.Airing, error)
}

// Deps wires one ingest run.
type Deps struct {
	Client    Client
	Store     *store.Store
	Days      int           // consecutive calendar days to fetch, starting today
	Package   string        // keep only airings in this package; empty keeps all
	Retention time.Duration // prune events that stopped more than this ago; 0 disables
	Now       func() time.Time
}

// Summary reports the outcome of one ingest run.
type Summary struct {
	DaysOK     int   `json:"days_ok"`
	DaysFailed int   `json:"days_failed"`
	Seen       int   `json:"airings_seen"`
	Dropped    int   `json:"airings_dropped"`
	Stored     int   `json:"rows_stored"`
	Pruned     int64 `json:"rows_pruned"`
}

// Run fetches the configured day range, normalizes and filters the airings,
// and upserts them in one transaction. Individual failed days are logged and
// skipped; the run fails only when every day failed.
func Run(ctx context.Context, deps Deps) (*Summary, error) {
	logger := log.WithComponentFromContext(ctx, "ingest")

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	days := deps.Days
	if days < 1 {
		days = 1
	}

	logger.Info().Str("event", "ingest.start").Int("days", days).Msg("starting ingest")

	var (
		mu      sync.Mutex
		events  []store.Event
		summary Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)

	today := now().UTC()
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, i).Format("2006-01-02")
		g.Go(func() error {
			airings, err := deps.Client.Airings(gctx, day)
			if err != nil {
				logger.Warn().Err(err).Str("event", "ingest.day_failed").Str(log.FieldDay, day).Msg("day fetch failed")
				metrics.RecordFetchDay("failure")
				mu.Lock()
				summary.DaysFailed++
				mu.Unlock()
				return nil // tolerated; the run fails only when all days fail
			}
			metrics.RecordFetchDay("success")

			var dayEvents []store.Event
			dropped := 0
			for _, a := range airings {
				if !hasPackage(a, deps.Package) {
					continue
				}
				ev, ok := Normalize(a)
				if !ok {
					dropped++
					continue
				}
				dayEvents = append(dayEvents, ev)
			}

			logger.Debug().
				Str("event", "ingest.day_done").
				Str(log.FieldDay, day).
				Int("airings", len(airings)).
				Int("kept", len(dayEvents)).
				Int("dropped", dropped).
				Msg("day fetched")

			mu.Lock()
			summary.DaysOK++
			summary.Seen += len(airings)
			summary.Dropped += dropped
			events = append(events, dayEvents...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if summary.DaysOK == 0 {
		return nil, fmt.Errorf("all %d schedule days failed to fetch", days)
	}

	stored, err := deps.Store.UpsertEvents(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("store events: %w", err)
	}
	summary.Stored = stored
	metrics.RecordEventsStored(stored)

	if deps.Retention > 0 {
		pruned, err := deps.Store.PruneEndedBefore(ctx, now().Add(-deps.Retention))
		if err != nil {
			return nil, fmt.Errorf("prune events: %w", err)
		}
		summary.Pruned = pruned
	}

	logger.Info().
		Str("event", "ingest.success").
		Int("days_ok", summary.DaysOK).
		Int("days_failed", summary.DaysFailed).
		Int("stored", summary.Stored).
		Int64("pruned", summary.Pruned).
		Msg("ingest completed")
	return &summary, nil
}
