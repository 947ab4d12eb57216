// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package usage records per-request API usage in a local SQLite database
// shared by all agents.
package usage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS requests (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    agent_id    TEXT NOT NULL,
    model       TEXT NOT NULL,
    streamed    INTEGER NOT NULL,
    attempts    INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    chars_in    INTEGER NOT NULL,
    chars_out   INTEGER NOT NULL,
    success     INTEGER NOT NULL,
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_agent ON requests(agent_id);
CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
`

// Record is one logged API request.
type Record struct {
	AgentID   string
	Model     string
	Streamed  bool
	Attempts  int
	Duration  time.Duration
	CharsIn   int
	CharsOut  int
	Success   bool
	CreatedAt time.Time
}

// Summary aggregates usage for one agent.
type Summary struct {
	Requests  int
	Failures  int
	CharsIn   int
	CharsOut  int
	TotalTime time.Duration
}

// =============================================================================
// LOG
// =============================================================================

// Log is the append-only request log. A nil *Log is valid and drops all
// writes, so callers never need to guard against a failed open.
type Log struct {
	db *sql.DB
}

// Open creates or opens the usage database at path.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create usage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure usage database: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize usage schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Close releases the database handle.
func (l *Log) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Add appends one request record. Errors are returned for logging but a
// failed insert never affects the conversation.
func (l *Log) Add(rec Record) error {
	if l == nil || l.db == nil {
		return nil
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := l.db.Exec(
		`INSERT INTO requests (agent_id, model, streamed, attempts, duration_ms, chars_in, chars_out, success, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AgentID, rec.Model, boolToInt(rec.Streamed), rec.Attempts,
		rec.Duration.Milliseconds(), rec.CharsIn, rec.CharsOut,
		boolToInt(rec.Success), rec.CreatedAt.Format(time.RFC3339),
	)
	return err
}

// Summarize aggregates all records for an agent.
func (l *Log) Summarize(agentID string) (Summary, error) {
	var s Summary
	if l == nil || l.db == nil {
		return s, nil
	}

	var totalMs int64
	err := l.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(chars_in), 0),
		        COALESCE(SUM(chars_out), 0),
		        COALESCE(SUM(duration_ms), 0)
		 FROM requests WHERE agent_id = ?`,
		agentID,
	).Scan(&s.Requests, &s.Failures, &s.CharsIn, &s.CharsOut, &totalMs)
	if err != nil {
		return Summary{}, err
	}
	s.TotalTime = time.Duration(totalMs) * time.Millisecond
	return s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
