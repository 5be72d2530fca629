// SPDX-License-Identifier: MIT

// Package store provides SQLite persistence for the event schedule.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chasut/eplustv-ah4c/internal/log"
	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// Event is one scheduled airing as persisted in the events table.
type Event struct {
	ID        string
	Title     string
	Subtitle  string
	Sport     string
	League    string
	EventType string
	Start     time.Time
	Stop      time.Time
}

// Store wraps the SQLite schedule database.
type Store struct {
	db *sql.DB
}

// Open initializes the schedule store at dbPath and runs migrations.
// WAL mode + busy_timeout avoid "database locked" errors when the
// ingest and compile paths interleave. The pragmas ride in the DSN so
// they apply to every connection in the pool.
func Open(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		subtitle TEXT NOT NULL DEFAULT '',
		sport TEXT NOT NULL DEFAULT '',
		league TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL DEFAULT '',
		start_utc TEXT NOT NULL,
		stop_utc TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_utc);
	CREATE INDEX IF NOT EXISTS idx_events_stop ON events(stop_utc);
	`

	_, err := s.db.Exec(schema)
	return err
}

// timeFormat is RFC3339 pinned to UTC seconds, so lexicographic order on the
// column equals chronological order.
const timeFormat = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// UpsertEvents inserts or updates the given events in one transaction.
// Returns the number of rows written.
func (s *Store) UpsertEvents(ctx context.Context, events []Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO events (id, title, subtitle, sport, league, event_type, start_utc, stop_utc, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		subtitle = excluded.subtitle,
		sport = excluded.sport,
		league = excluded.league,
		event_type = excluded.event_type,
		start_utc = excluded.start_utc,
		stop_utc = excluded.stop_utc,
		updated_at = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := formatTime(time.Now())
	written := 0
	for _, ev := range events {
		if ev.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			ev.ID, ev.Title, ev.Subtitle, ev.Sport, ev.League, ev.EventType,
			formatTime(ev.Start), formatTime(ev.Stop), now, now,
		); err != nil {
			return 0, fmt.Errorf("upsert event %s: %w", ev.ID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return written, nil
}

// Window returns all events with stop_utc > stopAfter and start_utc <= startUpTo,
// ordered by (start_utc, title, id). Rows with unparseable timestamps are
// skipped and counted, never fatal.
func (s *Store) Window(ctx context.Context, stopAfter, startUpTo time.Time) ([]Event, int, error) {
	logger := log.WithComponentFromContext(ctx, "store")

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, title, subtitle, sport, league, event_type, start_utc, stop_utc
	FROM events
	WHERE stop_utc > ? AND start_utc <= ?
	ORDER BY start_utc ASC, title ASC, id ASC`,
		formatTime(stopAfter), formatTime(startUpTo))
	if err != nil {
		return nil, 0, fmt.Errorf("query window: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Event
	skipped := 0
	for rows.Next() {
		var ev Event
		var startRaw, stopRaw string
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Subtitle, &ev.Sport, &ev.League, &ev.EventType, &startRaw, &stopRaw); err != nil {
			return nil, skipped, fmt.Errorf("scan event row: %w", err)
		}
		start, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			logger.Warn().Str("event", "store.row_skipped").Str(log.FieldEventID, ev.ID).Str("start_utc", startRaw).Msg("unparseable start timestamp")
			skipped++
			continue
		}
		stop, err := time.Parse(time.RFC3339, stopRaw)
		if err != nil {
			logger.Warn().Str("event", "store.row_skipped").Str(log.FieldEventID, ev.ID).Str("stop_utc", stopRaw).Msg("unparseable stop timestamp")
			skipped++
			continue
		}
		ev.Start = start.UTC()
		ev.Stop = stop.UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, skipped, fmt.Errorf("iterate window rows: %w", err)
	}
	return out, skipped, nil
}

// CountLive returns the number of events whose interval contains now.
func (s *Store) CountLive(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE start_utc <= ? AND stop_utc > ?`,
		formatTime(now), formatTime(now)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count live events: %w", err)
	}
	return n, nil
}

// CountUpcoming returns the number of events starting within (now, now+horizon].
func (s *Store) CountUpcoming(ctx context.Context, now time.Time, horizon time.Duration) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE start_utc > ? AND start_utc <= ?`,
		formatTime(now), formatTime(now.Add(horizon))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count upcoming events: %w", err)
	}
	return n, nil
}

// PruneEndedBefore deletes events whose stop is older than cutoff and returns
// the number of deleted rows.
func (s *Store) PruneEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE stop_utc < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return n, nil
}
