// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xlog "github.com/chasut/eplustv-ah4c/internal/log"
)

// Scheduler drives periodic refreshes in serve mode: a compile ticker, an
// optional fetch ticker, and an optional fsnotify watcher on the store file
// so externally written schedules get recompiled promptly. Triggers coalesce
// behind the Runner's mutex.
type Scheduler struct {
	Runner *Runner

	CompileInterval time.Duration
	FetchInterval   time.Duration

	// Fetch runs the ingest stage before a compile on the fetch tick;
	// nil disables the fetch ticker.
	Fetch func(ctx context.Context) error

	// WatchPath is the store file to watch for external writes; empty
	// disables the watcher.
	WatchPath string

	// Debounce delays watcher-triggered compiles so bursts of writes
	// collapse into one run. Defaults to 2s.
	Debounce time.Duration
}

// Run blocks until ctx is done. Individual refresh failures are logged and
// the loop continues.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := xlog.WithComponentFromContext(ctx, "scheduler")

	compileInterval := s.CompileInterval
	if compileInterval <= 0 {
		compileInterval = 5 * time.Minute
	}
	debounce := s.Debounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	compileTicker := time.NewTicker(compileInterval)
	defer compileTicker.Stop()

	var fetchCh <-chan time.Time
	if s.Fetch != nil && s.FetchInterval > 0 {
		fetchTicker := time.NewTicker(s.FetchInterval)
		defer fetchTicker.Stop()
		fetchCh = fetchTicker.C
	}

	var watchCh chan fsnotify.Event
	if s.WatchPath != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			logger.Warn().Err(err).Str("event", "scheduler.watch_unavailable").Msg("store watcher disabled")
		} else {
			defer func() { _ = watcher.Close() }()
			// watch the directory: sqlite replaces/creates -wal siblings
			if err := watcher.Add(filepath.Dir(s.WatchPath)); err != nil {
				logger.Warn().Err(err).Str("event", "scheduler.watch_failed").Str(xlog.FieldPath, s.WatchPath).Msg("store watcher disabled")
			} else {
				watchCh = make(chan fsnotify.Event, 1)
				go s.forwardStoreEvents(ctx, watcher, watchCh)
			}
		}
	}

	// debounce timer for watcher triggers, stopped until the first event
	pending := time.NewTimer(0)
	if !pending.Stop() {
		<-pending.C
	}
	defer pending.Stop()

	s.runOnce(ctx, logger, "startup")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-fetchCh:
			if err := s.Fetch(ctx); err != nil {
				logger.Error().Err(err).Str("event", "scheduler.fetch_failed").Msg("scheduled fetch failed")
				continue
			}
			s.runOnce(ctx, logger, "fetch")
		case <-compileTicker.C:
			s.runOnce(ctx, logger, "ticker")
		case <-watchCh:
			pending.Reset(debounce)
		case <-pending.C:
			s.runOnce(ctx, logger, "watcher")
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, logger zerolog.Logger, trigger string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.Runner.Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "scheduler.refresh_failed").Str("trigger", trigger).Msg("refresh failed")
	}
}

// forwardStoreEvents filters raw directory notifications down to writes that
// touch the store file (or its WAL sibling) and forwards at most one pending
// signal.
func (s *Scheduler) forwardStoreEvents(ctx context.Context, watcher *fsnotify.Watcher, out chan<- fsnotify.Event) {
	base := filepath.Base(s.WatchPath)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(ev.Name)
			if name != base && !strings.HasPrefix(name, base+"-") {
				continue
			}
			select {
			case out <- ev:
			default: // a signal is already pending
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l := xlog.WithComponent("scheduler")
			l.Warn().Err(err).Str("event", "scheduler.watch_error").Msg("store watcher error")
		}
	}
}
