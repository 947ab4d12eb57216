// agents.go - Agent listing and inspection commands.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/opusagent/internal/agent"
	"github.com/jeranaias/opusagent/internal/config"
	"github.com/jeranaias/opusagent/internal/history"
	"github.com/jeranaias/opusagent/internal/model"
	"github.com/jeranaias/opusagent/internal/util"
)

// RunList prints a table of all stored agents.
func RunList() error {
	settings := config.LoadSettings()

	infos, err := agent.List(settings)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println(WarningStyle.Render("No agents found"))
		return nil
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Available Agents:"))
	fmt.Printf("%-25s %-35s %-10s %-20s\n", "ID", "Model", "Messages", "Last Updated")
	fmt.Println(DimStyle.Render(strings.Repeat("-", 90)))

	for _, info := range infos {
		updated := "Unknown"
		if !info.UpdatedAt.IsZero() {
			updated = info.UpdatedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-25s %-35s %-10d %-20s\n", info.ID, info.ModelName, info.MessageCount, updated)
	}
	return nil
}

// RunInfo prints a detailed report for one stored agent.
func RunInfo(agentID string) error {
	settings := config.LoadSettings()
	baseDir := filepath.Join(settings.AgentsDir, agentID)

	if _, err := os.Stat(baseDir); err != nil {
		return fmt.Errorf("agent %q not found", agentID)
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Agent Information: " + agentID))

	printInfoConfig(filepath.Join(baseDir, config.ConfigFileName))
	printInfoHistory(filepath.Join(baseDir, history.HistoryFileName))
	printInfoTree(baseDir)
	return nil
}

func printInfoConfig(path string) {
	cfg, err := config.Read(path)
	if err != nil {
		fmt.Println(ErrorStyle.Render(fmt.Sprintf("Error loading config: %v", err)))
		return
	}

	fmt.Println()
	fmt.Println(SectionStyle.Render("Configuration:"))
	fmt.Printf("  Model: %s (%s)\n", cfg.Model, config.GetModelConfig(cfg.Model).Name)
	fmt.Printf("  Temperature: %g\n", cfg.Temperature)
	fmt.Printf("  Max Tokens: %d\n", cfg.MaxTokens)
	fmt.Printf("  Streaming: %t\n", cfg.Stream)
	fmt.Printf("  Created: %s\n", cfg.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Updated: %s\n", cfg.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printInfoHistory(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println()
		fmt.Println(WarningStyle.Render("No conversation history found"))
		return
	}

	var messages []model.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		fmt.Println(ErrorStyle.Render(fmt.Sprintf("Error loading history: %v", err)))
		return
	}

	stats := model.ComputeStatistics(messages)

	fmt.Println()
	fmt.Println(SectionStyle.Render("Conversation History:"))
	fmt.Printf("  Total Messages: %d\n", stats.TotalMessages)
	fmt.Printf("  User Messages: %d\n", stats.UserMessages)
	fmt.Printf("  Assistant Messages: %d\n", stats.AssistantMessages)
	fmt.Printf("  Total Characters: %d\n", stats.TotalCharacters)
	fmt.Printf("  File Size: %d bytes\n", len(data))
	if stats.FirstMessage != "" {
		fmt.Printf("  First Message: %s\n", stats.FirstMessage)
		fmt.Printf("  Last Message: %s\n", stats.LastMessage)
	}
}

func printInfoTree(baseDir string) {
	fmt.Println()
	fmt.Println(SectionStyle.Render("Directory Structure:"))
	filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return nil
		}
		fmt.Printf("  %s (%s)\n", rel, util.FormatFileSize(info.Size()))
		return nil
	})
}
