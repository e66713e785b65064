// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KasthuriRaja-M/Study-Planner-App/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for planner data. It implements the key-value
// persistence port used by the timer and the task list.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps read-modify-write cycles on the kv table ordered.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS phases (
			id INTEGER PRIMARY KEY,
			phase TEXT NOT NULL,
			long_break INTEGER NOT NULL,
			duration_sec INTEGER NOT NULL,
			ended_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_phases_ended_at ON phases(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value stored under key and whether it exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(timeLayout))
	return err
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// InsertPhase stores a completed timer phase.
func (s *Store) InsertPhase(ctx context.Context, rec model.PhaseRecord) (int64, error) {
	longBreak := 0
	if rec.LongBreak {
		longBreak = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO phases (phase, long_break, duration_sec, ended_at) VALUES (?, ?, ?, ?)`,
		rec.Phase,
		longBreak,
		rec.DurationSec,
		rec.EndedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListPhases returns completed phases ordered by end time, filtered by cfg.
func (s *Store) ListPhases(ctx context.Context, cfg model.StatsConfig) ([]model.PhaseRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	query := fmt.Sprintf(`SELECT id, phase, long_break, duration_sec, ended_at
		FROM phases
		WHERE %s
		ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var phases []model.PhaseRecord
	for rows.Next() {
		var rec model.PhaseRecord
		var longBreak int
		var endedAt string
		if err := rows.Scan(&rec.ID, &rec.Phase, &longBreak, &rec.DurationSec, &endedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		rec.LongBreak = longBreak != 0
		rec.EndedAt = parsed
		phases = append(phases, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return phases, nil
}
