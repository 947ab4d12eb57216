// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jeranaias/opusagent/internal/config"
	"github.com/jeranaias/opusagent/internal/history"
	"github.com/jeranaias/opusagent/internal/model"
)

// Info is a read-only snapshot of a stored agent, usable without
// constructing the full agent (no credential prompt, no log file).
type Info struct {
	ID           string
	Model        string
	ModelName    string
	Temperature  float64
	Stream       bool
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// List returns infos for every agent under the settings' agents directory,
// sorted by id. Directories without a readable config are skipped.
func List(settings *config.Settings) ([]Info, error) {
	entries, err := os.ReadDir(settings.AgentsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var infos []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := Describe(settings, entry.Name())
		if err != nil {
			continue
		}
		infos = append(infos, *info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Describe loads the snapshot for one stored agent.
func Describe(settings *config.Settings, agentID string) (*Info, error) {
	baseDir := filepath.Join(settings.AgentsDir, agentID)
	cfg, err := config.Read(filepath.Join(baseDir, config.ConfigFileName))
	if err != nil {
		return nil, err
	}

	return &Info{
		ID:           agentID,
		Model:        cfg.Model,
		ModelName:    config.GetModelConfig(cfg.Model).Name,
		Temperature:  cfg.Temperature,
		Stream:       cfg.Stream,
		MessageCount: countMessages(filepath.Join(baseDir, history.HistoryFileName)),
		CreatedAt:    cfg.CreatedAt,
		UpdatedAt:    cfg.UpdatedAt,
	}, nil
}

// countMessages reads just enough of the history file to report its
// length. Missing or corrupt files count as zero.
func countMessages(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	var messages []model.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return 0
	}
	return len(messages)
}
