// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package usage

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	log, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func TestLog_AddAndSummarize(t *testing.T) {
	log := openTestLog(t)

	records := []Record{
		{AgentID: "alpha", Model: "claude-opus-4-20250514", Streamed: true, Attempts: 1, Duration: 2 * time.Second, CharsIn: 100, CharsOut: 400, Success: true},
		{AgentID: "alpha", Model: "claude-opus-4-20250514", Streamed: false, Attempts: 3, Duration: 5 * time.Second, CharsIn: 50, CharsOut: 0, Success: false},
		{AgentID: "beta", Model: "claude-opus-4-1-20250805", Streamed: true, Attempts: 1, Duration: time.Second, CharsIn: 10, CharsOut: 20, Success: true},
	}
	for _, rec := range records {
		if err := log.Add(rec); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	s, err := log.Summarize("alpha")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.Requests != 2 {
		t.Errorf("Requests = %d, want 2", s.Requests)
	}
	if s.Failures != 1 {
		t.Errorf("Failures = %d, want 1", s.Failures)
	}
	if s.CharsIn != 150 || s.CharsOut != 400 {
		t.Errorf("chars = %d/%d, want 150/400", s.CharsIn, s.CharsOut)
	}
	if s.TotalTime != 7*time.Second {
		t.Errorf("TotalTime = %v, want 7s", s.TotalTime)
	}
}

func TestLog_SummarizeEmptyAgent(t *testing.T) {
	log := openTestLog(t)

	s, err := log.Summarize("nobody")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.Requests != 0 || s.TotalTime != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

func TestLog_NilIsSafe(t *testing.T) {
	var log *Log

	if err := log.Add(Record{AgentID: "x"}); err != nil {
		t.Errorf("nil Add = %v", err)
	}
	if _, err := log.Summarize("x"); err != nil {
		t.Errorf("nil Summarize = %v", err)
	}
	if err := log.Close(); err != nil {
		t.Errorf("nil Close = %v", err)
	}
}
