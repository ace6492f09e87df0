// Package indexdb keeps a small local history of connection sessions in
// sqlite: when the console connected, why it lost the stream, how many
// events applied. Purely diagnostic; the sim state itself is never
// persisted because only the server's snapshot is authoritative.
package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqStart reqKind = iota + 1
	reqEnd
)

type req struct {
	kind  reqKind
	start SessionStart
	end   SessionEnd
}

// SessionStart is recorded after a snapshot has seeded the state.
type SessionStart struct {
	SessionID    string
	StartedAt    time.Time
	SnapshotTick uint64
}

// SessionEnd is recorded when the stream dies, goes stale, or the
// console shuts down.
type SessionEnd struct {
	SessionID     string
	EndedAt       time.Time
	Reason        string // "transport", "stale", "teardown"
	LastTick      uint64
	EventsApplied uint64
	EventsDropped uint64
	MeasuredRate  float64
}

// SessionRow is the stored form, for queries and tests.
type SessionRow struct {
	SessionID     string
	StartedAt     string
	SnapshotTick  uint64
	EndedAt       string
	Reason        string
	LastTick      uint64
	EventsApplied uint64
	EventsDropped uint64
	MeasuredRate  float64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 1024),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL is plenty
	// for a diagnostic index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		session_id     TEXT PRIMARY KEY,
		started_at     TEXT NOT NULL,
		snapshot_tick  INTEGER NOT NULL,
		ended_at       TEXT NOT NULL DEFAULT '',
		reason         TEXT NOT NULL DEFAULT '',
		last_tick      INTEGER NOT NULL DEFAULT 0,
		events_applied INTEGER NOT NULL DEFAULT 0,
		events_dropped INTEGER NOT NULL DEFAULT 0,
		measured_rate  REAL NOT NULL DEFAULT 0
	);`)
	return err
}

// RecordStart is asynchronous; a full queue drops the record rather
// than stalling the stream loop.
func (s *SQLiteIndex) RecordStart(start SessionStart) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqStart, start: start}:
	default:
	}
}

func (s *SQLiteIndex) RecordEnd(end SessionEnd) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqEnd, end: end}:
	default:
	}
}

func (s *SQLiteIndex) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqStart:
			_, _ = s.db.Exec(
				`INSERT OR REPLACE INTO sessions (session_id, started_at, snapshot_tick) VALUES (?, ?, ?);`,
				r.start.SessionID,
				r.start.StartedAt.UTC().Format(time.RFC3339Nano),
				r.start.SnapshotTick,
			)
		case reqEnd:
			_, _ = s.db.Exec(
				`UPDATE sessions SET ended_at=?, reason=?, last_tick=?, events_applied=?, events_dropped=?, measured_rate=? WHERE session_id=?;`,
				r.end.EndedAt.UTC().Format(time.RFC3339Nano),
				r.end.Reason,
				r.end.LastTick,
				r.end.EventsApplied,
				r.end.EventsDropped,
				r.end.MeasuredRate,
				r.end.SessionID,
			)
		}
	}
}

// Sessions returns the most recent sessions, newest first.
func (s *SQLiteIndex) Sessions(limit int) ([]SessionRow, error) {
	rows, err := s.db.Query(
		`SELECT session_id, started_at, snapshot_tick, ended_at, reason, last_tick, events_applied, events_dropped, measured_rate
		 FROM sessions ORDER BY started_at DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		if err := rows.Scan(&r.SessionID, &r.StartedAt, &r.SnapshotTick, &r.EndedAt, &r.Reason, &r.LastTick, &r.EventsApplied, &r.EventsDropped, &r.MeasuredRate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close drains pending writes before closing the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
