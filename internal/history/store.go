// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides the on-disk conversation log for one agent.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/opusagent/internal/model"
	"github.com/jeranaias/opusagent/internal/util"
)

const (
	// HistoryFileName is the per-agent history document.
	HistoryFileName = "history.json"

	// backupPrefix marks rolling history snapshots in the backup dir.
	backupPrefix = "history_"

	// previewLength is the rune budget for search result previews.
	previewLength = 100
)

// =============================================================================
// STORE
// =============================================================================

// Store holds an agent's ordered message history and keeps it persisted.
// Persistence is a full-file atomic rewrite preceded by a rolling backup;
// the single-agent, single-process design needs no locking.
type Store struct {
	path      string
	backupDir string
	maxSize   int
	retention int
	logger    zerolog.Logger

	messages []model.Message
}

// NewStore loads the history under baseDir. A missing or corrupt history
// file falls back to an empty history rather than failing construction.
func NewStore(baseDir string, maxSize, retention int, logger zerolog.Logger) *Store {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if retention <= 0 {
		retention = 10
	}

	s := &Store{
		path:      filepath.Join(baseDir, HistoryFileName),
		backupDir: filepath.Join(baseDir, "backups"),
		maxSize:   maxSize,
		retention: retention,
		logger:    logger,
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error().Err(err).Msg("failed to read history, starting empty")
		}
		s.messages = []model.Message{}
		return
	}

	var messages []model.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		s.logger.Error().Err(err).Msg("failed to parse history, starting empty")
		s.messages = []model.Message{}
		return
	}
	s.messages = messages
}

// Messages returns the history in append order. The returned slice is
// shared; callers must not mutate it.
func (s *Store) Messages() []model.Message {
	return s.messages
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	return len(s.messages)
}

// Tail returns the most recent n messages in original order.
func (s *Store) Tail(n int) []model.Message {
	if n <= 0 || len(s.messages) == 0 {
		return nil
	}
	if n > len(s.messages) {
		n = len(s.messages)
	}
	return s.messages[len(s.messages)-n:]
}

// SetMaxSize adjusts the history capacity, used when config is reloaded
// mid-session. Truncation applies on the next append.
func (s *Store) SetMaxSize(n int) {
	if n > 0 {
		s.maxSize = n
	}
}

// =============================================================================
// MUTATION
// =============================================================================

// Append adds a message, truncates the oldest entries beyond capacity and
// persists. The in-memory append always succeeds; a failed disk write is
// logged and the conversation continues in memory for this turn.
func (s *Store) Append(role model.Role, content string, metadata map[string]any) model.Message {
	msg := model.NewMessage(role, content, metadata)
	s.messages = append(s.messages, msg)

	if len(s.messages) > s.maxSize {
		removed := len(s.messages) - s.maxSize
		s.messages = s.messages[removed:]
		s.logger.Info().Int("removed", removed).Msg("truncated history")
	}

	if err := s.persist(); err != nil {
		s.logger.Error().Err(err).Msg("failed to save history")
	}
	return msg
}

// Clear snapshots the current history to the backup dir, then empties it.
func (s *Store) Clear() error {
	s.backup()
	s.messages = []model.Message{}
	if err := s.persist(); err != nil {
		s.logger.Error().Err(err).Msg("failed to save cleared history")
		return err
	}
	s.logger.Info().Msg("conversation history cleared")
	return nil
}

// persist rewrites the history file atomically, taking a rolling backup
// of the previous contents first.
func (s *Store) persist() error {
	if _, err := os.Stat(s.path); err == nil {
		s.backup()
	}

	data, err := json.MarshalIndent(s.messages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	return util.AtomicWriteFile(s.path, data, 0644)
}

// backup copies the current history file into the backup directory and
// prunes snapshots beyond the retention count. Backup failures are logged
// but never block the rewrite.
func (s *Store) backup() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Msg("could not read history for backup")
		}
		return
	}

	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		s.logger.Warn().Err(err).Msg("could not create backup directory")
		return
	}

	name := backupPrefix + time.Now().Format("20060102_150405") + ".json"
	if err := os.WriteFile(filepath.Join(s.backupDir, name), data, 0644); err != nil {
		s.logger.Warn().Err(err).Msg("could not create backup")
		return
	}

	s.pruneBackups()
}

func (s *Store) pruneBackups() {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}

	// Timestamped names sort chronologically
	sort.Strings(names)
	for len(names) > s.retention {
		os.Remove(filepath.Join(s.backupDir, names[0]))
		names = names[1:]
	}
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchResult is one history search hit.
type SearchResult struct {
	Index   int
	Message model.Message
	Preview string
}

// Search returns up to limit messages whose content contains term,
// case-insensitively, in original order. Previews are capped at 100
// characters.
func (s *Store) Search(term string, limit int) []SearchResult {
	if limit <= 0 {
		limit = 10
	}
	needle := strings.ToLower(term)

	var results []SearchResult
	for i := range s.messages {
		if !strings.Contains(strings.ToLower(s.messages[i].Content), needle) {
			continue
		}
		results = append(results, SearchResult{
			Index:   i,
			Message: s.messages[i],
			Preview: util.PreviewRunes(s.messages[i].Content, previewLength),
		})
		if len(results) >= limit {
			break
		}
	}
	return results
}
