// export_cmd.go - One-shot conversation export without opening a session.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jeranaias/opusagent/internal/config"
	"github.com/jeranaias/opusagent/internal/export"
	"github.com/jeranaias/opusagent/internal/history"
	"github.com/jeranaias/opusagent/internal/model"
)

// RunExport exports the agent's conversation from its stored files. No
// API credential is needed since nothing is sent anywhere.
func RunExport(args *Args) error {
	settings := config.LoadSettings()
	baseDir := filepath.Join(settings.AgentsDir, args.AgentID)

	if _, err := os.Stat(baseDir); err != nil {
		return fmt.Errorf("agent %q not found", args.AgentID)
	}

	cfg, err := config.Read(filepath.Join(baseDir, config.ConfigFileName))
	if err != nil {
		return fmt.Errorf("failed to read agent config: %w", err)
	}

	store := history.NewStore(baseDir, cfg.MaxHistorySize, settings.BackupRetention, zerolog.Nop())
	messages := store.Messages()

	conv := &export.Conversation{
		AgentID:    args.AgentID,
		ModelName:  config.GetModelConfig(cfg.Model).Name,
		Config:     *cfg,
		Messages:   messages,
		Statistics: model.ComputeStatistics(messages),
	}

	path, err := export.ExportToFile(conv, args.ExportFormat, filepath.Join(baseDir, "exports"))
	if err != nil {
		return err
	}
	fmt.Println(SuccessStyle.Render("Exported to: " + path))
	return nil
}
