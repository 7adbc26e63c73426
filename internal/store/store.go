// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package store persists evaluation sessions in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/relabs-tech/eog_controller/internal/evaluation"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when no session has the requested id.
var ErrNotFound = errors.New("session not found")

// Store wraps SQLite access for evaluation sessions.
type Store struct {
	db *sql.DB
}

// SessionRow is the listing view of a stored session.
type SessionRow struct {
	ID             string
	StartedAt      time.Time
	EndedAt        time.Time
	Space          string
	Alignment      string
	Matched        uint64
	UnmatchedTruth uint64
	Commands       uint64
	MacroPrecision evaluation.Ratio
	MacroRecall    evaluation.Ratio
}

// Open opens or creates the database and applies migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			space TEXT NOT NULL,
			alignment TEXT NOT NULL,
			matched INTEGER NOT NULL,
			unmatched_truth INTEGER NOT NULL,
			commands INTEGER NOT NULL,
			summary TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_class_metrics (
			session_id TEXT NOT NULL,
			label TEXT NOT NULL,
			tp INTEGER NOT NULL,
			fp INTEGER NOT NULL,
			tn INTEGER NOT NULL,
			fn INTEGER NOT NULL,
			PRIMARY KEY (session_id, label)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSession stores a closed session with its per-class counts. Saving the
// same session id again replaces the earlier copy.
func (s *Store) SaveSession(ctx context.Context, sum evaluation.Summary) (err error) {
	blob, err := json.Marshal(sum)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM session_class_metrics WHERE session_id = ?`, sum.SessionID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, started_at, ended_at, space, alignment, matched, unmatched_truth, commands, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.SessionID,
		sum.StartedAt.UTC().Format(time.RFC3339Nano),
		sum.EndedAt.UTC().Format(time.RFC3339Nano),
		string(sum.Space),
		string(sum.Alignment),
		int64(sum.Matched),
		int64(sum.UnmatchedTruth),
		int64(sum.Commands),
		string(blob),
	); err != nil {
		return err
	}

	if len(sum.Classes) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO session_class_metrics (session_id, label, tp, fp, tn, fn) VALUES (?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer stmt.Close()
		for _, c := range sum.Classes {
			if _, err = stmt.ExecContext(ctx, sum.SessionID, c.Label,
				int64(c.Counts.TP), int64(c.Counts.FP), int64(c.Counts.TN), int64(c.Counts.FN)); err != nil {
				return err
			}
		}
	}

	err = tx.Commit()
	return err
}

// ListSessions returns the newest sessions first. limit <= 0 lists everything.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	query := `SELECT id, started_at, ended_at, space, alignment, matched, unmatched_truth, commands, summary
		FROM sessions ORDER BY ended_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var (
			row                          SessionRow
			startedAt, endedAt, blob     string
			matched, unmatched, commands int64
		)
		if err := rows.Scan(&row.ID, &startedAt, &endedAt, &row.Space, &row.Alignment, &matched, &unmatched, &commands, &blob); err != nil {
			return nil, err
		}
		if row.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if row.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		row.Matched, row.UnmatchedTruth, row.Commands = uint64(matched), uint64(unmatched), uint64(commands)

		var sum evaluation.Summary
		if err := json.Unmarshal([]byte(blob), &sum); err != nil {
			return nil, fmt.Errorf("session %s: %w", row.ID, err)
		}
		row.MacroPrecision = sum.Macro.Precision
		row.MacroRecall = sum.Macro.Sensitivity
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetSession loads the full summary of a session. A unique id prefix is accepted.
func (s *Store) GetSession(ctx context.Context, id string) (evaluation.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT summary FROM sessions WHERE id LIKE ? LIMIT 2`,
		strings.ReplaceAll(id, "%", "")+"%")
	if err != nil {
		return evaluation.Summary{}, err
	}
	defer rows.Close()

	var blobs []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return evaluation.Summary{}, err
		}
		blobs = append(blobs, b)
	}
	if err := rows.Err(); err != nil {
		return evaluation.Summary{}, err
	}
	switch len(blobs) {
	case 0:
		return evaluation.Summary{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 2:
		return evaluation.Summary{}, fmt.Errorf("session id prefix %q is ambiguous", id)
	}

	var sum evaluation.Summary
	if err := json.Unmarshal([]byte(blobs[0]), &sum); err != nil {
		return evaluation.Summary{}, err
	}
	return sum, nil
}

// ClassTotals sums the per-class counts over every stored session of a space.
func (s *Store) ClassTotals(ctx context.Context, space string) (map[string]evaluation.Counts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT m.label, SUM(m.tp), SUM(m.fp), SUM(m.tn), SUM(m.fn)
		FROM session_class_metrics m
		JOIN sessions s ON s.id = m.session_id
		WHERE s.space = ?
		GROUP BY m.label`, space)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]evaluation.Counts{}
	for rows.Next() {
		var label string
		var tp, fp, tn, fn int64
		if err := rows.Scan(&label, &tp, &fp, &tn, &fn); err != nil {
			return nil, err
		}
		out[label] = evaluation.Counts{TP: uint64(tp), FP: uint64(fp), TN: uint64(tn), FN: uint64(fn)}
	}
	return out, rows.Err()
}
