// config_cmd.go - Interactive agent configuration.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jeranaias/opusagent/internal/config"
)

// RunConfigure walks the user through a fresh configuration for the agent
// and saves it. Empty answers keep the shown default.
func RunConfigure(args *Args) error {
	settings := config.LoadSettings()
	baseDir := filepath.Join(settings.AgentsDir, args.AgentID)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create agent directory: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	cfg := config.Default()

	fmt.Println()
	fmt.Println(TitleStyle.Render("Agent Configuration Setup"))
	fmt.Println(DimStyle.Render("Press Enter to use default values"))
	fmt.Println()

	// Model selection
	models := config.SupportedModelIDs()
	fmt.Println(SectionStyle.Render("Available Models:"))
	for i, id := range models {
		fmt.Printf("  %d. %s (%s)\n", i+1, config.GetModelConfig(id).Name, id)
	}
	if choice := prompt(reader, fmt.Sprintf("\nSelect model (1-%d) [1]: ", len(models))); choice != "" {
		if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(models) {
			cfg.Model = models[n-1]
		}
	}

	// Temperature
	if answer := prompt(reader, fmt.Sprintf("Temperature (0.0-2.0) [%g]: ", cfg.Temperature)); answer != "" {
		if temp, err := strconv.ParseFloat(answer, 64); err == nil && temp >= 0.0 && temp <= 2.0 {
			cfg.Temperature = temp
		} else {
			fmt.Println(ErrorStyle.Render("Invalid temperature, using default"))
		}
	}

	// System prompt
	if answer := prompt(reader, fmt.Sprintf("System prompt [%s]: ", cfg.SystemPrompt)); answer != "" {
		cfg.SystemPrompt = answer
	}

	// Max tokens
	if answer := prompt(reader, fmt.Sprintf("Max tokens [%d]: ", cfg.MaxTokens)); answer != "" {
		if tokens, err := strconv.Atoi(answer); err == nil && tokens > 0 {
			cfg.MaxTokens = tokens
		} else {
			fmt.Println(ErrorStyle.Render("Invalid token count, using default"))
		}
	}

	// Streaming
	streamDefault := "y"
	if !cfg.Stream {
		streamDefault = "n"
	}
	if answer := prompt(reader, fmt.Sprintf("Enable streaming (y/n) [%s]: ", streamDefault)); answer != "" {
		if stream, err := ParseBoolString(answer); err == nil {
			cfg.Stream = stream
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(filepath.Join(baseDir, config.ConfigFileName)); err != nil {
		return err
	}
	fmt.Println(SuccessStyle.Render("Configuration saved"))
	return nil
}

func prompt(reader *bufio.Reader, text string) string {
	fmt.Print(text)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}
