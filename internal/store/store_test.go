// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "schedule.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestOpenAppliesConnectionPragmas(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, s.db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var foreignKeys int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}

func TestUpsertThenWindowRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := mustTime(t, "2026-03-14T12:00:00Z")
	events := []Event{
		{ID: "b2", Title: "Later Game", Sport: "Basketball", League: "NBA", Start: now.Add(2 * time.Hour), Stop: now.Add(4 * time.Hour)},
		{ID: "a1", Title: "Early Game", Sport: "Hockey", League: "NHL", Start: now.Add(time.Hour), Stop: now.Add(3 * time.Hour)},
	}

	n, err := s.UpsertEvents(ctx, events)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, skipped, err := s.Window(ctx, now, now.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, got, 2)

	// ordered by start
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "b2", got[1].ID)
	assert.True(t, got[0].Start.Equal(now.Add(time.Hour)))
	assert.Equal(t, "NHL", got[0].League)
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := mustTime(t, "2026-03-14T12:00:00Z")

	ev := Event{ID: "x", Title: "First Title", Start: now, Stop: now.Add(time.Hour)}
	_, err := s.UpsertEvents(ctx, []Event{ev})
	require.NoError(t, err)

	ev.Title = "Updated Title"
	_, err = s.UpsertEvents(ctx, []Event{ev})
	require.NoError(t, err)

	got, _, err := s.Window(ctx, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Updated Title", got[0].Title)
}

func TestWindowBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := mustTime(t, "2026-03-14T12:00:00Z")

	_, err := s.UpsertEvents(ctx, []Event{
		{ID: "past", Start: now.Add(-4 * time.Hour), Stop: now.Add(-3 * time.Hour)},
		{ID: "grace", Start: now.Add(-2 * time.Hour), Stop: now.Add(-30 * time.Minute)},
		{ID: "live", Start: now.Add(-time.Hour), Stop: now.Add(time.Hour)},
		{ID: "soon", Start: now.Add(2 * time.Hour), Stop: now.Add(3 * time.Hour)},
		{ID: "far", Start: now.Add(9 * time.Hour), Stop: now.Add(10 * time.Hour)},
	})
	require.NoError(t, err)

	// grace 65m, lookahead 6h
	got, _, err := s.Window(ctx, now.Add(-65*time.Minute), now.Add(6*time.Hour))
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, ev := range got {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"grace", "live", "soon"}, ids)
}

func TestWindowSkipsMalformedRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := mustTime(t, "2026-03-14T12:00:00Z")

	_, err := s.UpsertEvents(ctx, []Event{
		{ID: "ok", Start: now.Add(time.Hour), Stop: now.Add(2 * time.Hour)},
	})
	require.NoError(t, err)

	// Corrupt a row under the store's feet; readers must skip it, not fail.
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO events (id, title, subtitle, sport, league, event_type, start_utc, stop_utc, created_at, updated_at)
	VALUES ('bad', '', '', '', '', '', 'not-a-time', 'zzz', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	got, skipped, err := s.Window(ctx, now, now.Add(6*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
	assert.Equal(t, 1, skipped)
}

func TestCountsAndPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := mustTime(t, "2026-03-14T12:00:00Z")

	_, err := s.UpsertEvents(ctx, []Event{
		{ID: "old", Start: now.Add(-48 * time.Hour), Stop: now.Add(-47 * time.Hour)},
		{ID: "live", Start: now.Add(-time.Hour), Stop: now.Add(time.Hour)},
		{ID: "up", Start: now.Add(3 * time.Hour), Stop: now.Add(4 * time.Hour)},
	})
	require.NoError(t, err)

	live, err := s.CountLive(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, live)

	up, err := s.CountUpcoming(ctx, now, 6*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, up)

	pruned, err := s.PruneEndedBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	live, err = s.CountLive(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, live)
}

func TestUpsertSkipsEmptyID(t *testing.T) {
	s := newTestStore(t)
	now := mustTime(t, "2026-03-14T12:00:00Z")

	n, err := s.UpsertEvents(context.Background(), []Event{
		{ID: "", Start: now, Stop: now.Add(time.Hour)},
		{ID: "keep", Start: now, Stop: now.Add(time.Hour)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
