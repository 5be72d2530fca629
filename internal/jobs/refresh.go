// SPDX-License-Identifier: MIT

// Package jobs orchestrates the refresh cycle: read the event window,
// compile the guide, and atomically replace both output artifacts.
package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chasut/eplustv-ah4c/internal/epg"
	"github.com/chasut/eplustv-ah4c/internal/guide"
	xlog "github.com/chasut/eplustv-ah4c/internal/log"
	"github.com/chasut/eplustv-ah4c/internal/metrics"
	"github.com/chasut/eplustv-ah4c/internal/playlist"
	"github.com/chasut/eplustv-ah4c/internal/store"
	"github.com/chasut/eplustv-ah4c/internal/telemetry"
	"github.com/google/uuid"
)

const (
	PlaylistFile = "playlist.m3u"
	GuideFile    = "guide.xml"
)

// Status represents the outcome of the most recent refresh run.
type Status struct {
	LastRun  time.Time `json:"last_run"`
	Channels int       `json:"channels"`
	Segments int       `json:"segments"`
	Events   int       `json:"events"`
	Skipped  int       `json:"skipped"`
	Wrote    bool      `json:"wrote"`
	Error    string    `json:"error,omitempty"`
}

// Deps wires one refresh run.
type Deps struct {
	Store        *store.Store
	DataDir      string
	Branding     epg.Branding
	DeeplinkBase string
	Options      guide.Options

	// WriteEmpty controls the empty-window policy: serve mode writes
	// header-only artifacts so consumers never read a stale grid, the
	// one-shot CLI writes nothing.
	WriteEmpty bool

	// Ingest, when set, runs before the compile stage.
	Ingest func(ctx context.Context) error

	// Now allows tests to pin the clock; defaults to time.Now.
	Now func() time.Time
}

// Refresh performs one full cycle. Either both artifacts are atomically
// replaced or neither is.
func Refresh(ctx context.Context, deps Deps) (*Status, error) {
	ctx = xlog.ContextWithRunID(ctx, uuid.NewString())
	logger := xlog.WithComponentFromContext(ctx, "jobs")
	tracer := telemetry.Tracer("jobs")

	started := time.Now()
	defer func() { metrics.RecordRefreshDuration(time.Since(started).Seconds()) }()

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	logger.Info().Str("event", "refresh.start").Msg("starting refresh")

	if deps.Ingest != nil {
		ingestCtx, span := tracer.Start(ctx, "refresh.ingest")
		err := deps.Ingest(ingestCtx)
		span.End()
		if err != nil {
			metrics.RecordRefreshFailure("ingest")
			return nil, fmt.Errorf("ingest: %w", err)
		}
	}

	at := now().UTC()
	stopAfter, startUpTo := deps.Options.SelectionBounds(at)

	windowCtx, span := tracer.Start(ctx, "refresh.window")
	events, badRows, err := deps.Store.Window(windowCtx, stopAfter, startUpTo)
	span.End()
	if err != nil {
		metrics.RecordRefreshFailure("window")
		return nil, fmt.Errorf("read event window: %w", err)
	}

	_, span = tracer.Start(ctx, "refresh.compile")
	res := guide.Compile(events, at, deps.Options)
	span.End()

	for _, id := range res.Skipped {
		logger.Warn().
			Str("event", "refresh.event_skipped").
			Str(xlog.FieldEventID, id).
			Msg("event excluded for bad interval")
	}
	skipped := badRows + len(res.Skipped)
	metrics.RecordCompile(len(res.Channels), res.Segments(), skipped)

	status := &Status{
		LastRun:  at,
		Channels: len(res.Channels),
		Segments: res.Segments(),
		Events:   len(events),
		Skipped:  skipped,
	}

	if len(res.Channels) == 0 && !deps.WriteEmpty {
		logger.Info().Str("event", "refresh.empty_window").Msg("no channels in window, artifacts left untouched")
		return status, nil
	}

	items := playlist.FromChannels(res.Channels, deps.Branding, deps.DeeplinkBase)
	tv := epg.Build(res.Channels, deps.Branding)

	m3uData, xmltvData, err := renderArtifacts(items, tv)
	if err != nil {
		metrics.RecordRefreshFailure("render")
		return nil, err
	}

	if err := os.MkdirAll(deps.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	writeCtx, span := tracer.Start(ctx, "refresh.write")
	defer span.End()

	// Both artifacts are staged as pending files before either target is
	// replaced, so any failure up to the first rename leaves the previous
	// pair intact.
	playlistPending, err := stageArtifact(writeCtx, filepath.Join(deps.DataDir, PlaylistFile), m3uData)
	if err != nil {
		metrics.RecordRefreshFailure("write_m3u")
		return nil, fmt.Errorf("stage playlist: %w", err)
	}
	defer cleanupPending(writeCtx, playlistPending)

	guidePending, err := stageArtifact(writeCtx, filepath.Join(deps.DataDir, GuideFile), xmltvData)
	if err != nil {
		metrics.RecordRefreshFailure("write_xmltv")
		return nil, fmt.Errorf("stage guide: %w", err)
	}
	defer cleanupPending(writeCtx, guidePending)

	if err := playlistPending.CloseAtomicallyReplace(); err != nil {
		metrics.RecordRefreshFailure("write_m3u")
		return nil, fmt.Errorf("replace playlist: %w", err)
	}
	metrics.RecordArtifactWrite("playlist")

	if err := guidePending.CloseAtomicallyReplace(); err != nil {
		metrics.RecordRefreshFailure("write_xmltv")
		return nil, fmt.Errorf("replace guide: %w", err)
	}
	metrics.RecordArtifactWrite("guide")

	status.Wrote = true
	logger.Info().
		Str("event", "refresh.success").
		Int(xlog.FieldChannels, status.Channels).
		Int(xlog.FieldSegments, status.Segments).
		Int(xlog.FieldSkipped, status.Skipped).
		Msg("refresh completed")
	return status, nil
}

// Runner serializes refresh runs and keeps the last status. Overlapping
// triggers (ticker, watcher, API) coalesce behind the mutex.
type Runner struct {
	mu   sync.Mutex
	deps Deps

	statusMu sync.RWMutex
	status   Status
}

func NewRunner(deps Deps) *Runner {
	return &Runner{deps: deps}
}

// Run executes one refresh; concurrent calls queue behind the mutex.
func (r *Runner) Run(ctx context.Context) (*Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, err := Refresh(ctx, r.deps)
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	if err != nil {
		r.status.Error = err.Error()
		return nil, err
	}
	r.status = *status
	return status, nil
}

// Status returns a copy of the last run's status.
func (r *Runner) Status() Status {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}
