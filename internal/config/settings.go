// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// APPLICATION SETTINGS
// =============================================================================

// Settings are application-wide knobs shared by every agent, stored as
// TOML under the user's settings directory. Per-agent tuning lives in the
// agent's own config.yaml instead.
type Settings struct {
	// AgentsDir is the root directory holding one subdirectory per agent.
	AgentsDir string `toml:"agents_dir"`

	// BackupRetention is how many rolling history backups to keep per agent.
	BackupRetention int `toml:"backup_retention"`

	// RequestsPerMinute throttles API call starts client-side. Zero
	// disables throttling.
	RequestsPerMinute int `toml:"requests_per_minute"`

	// Color toggles styled console output.
	Color bool `toml:"color"`
}

// DefaultSettings returns the settings used when no config.toml exists.
func DefaultSettings() *Settings {
	return &Settings{
		AgentsDir:         "agents",
		BackupRetention:   10,
		RequestsPerMinute: 0,
		Color:             true,
	}
}

// SettingsDir returns the application settings directory (~/.opusagent).
func SettingsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".opusagent"), nil
}

// SettingsPath returns the settings file location.
func SettingsPath() (string, error) {
	dir, err := SettingsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadSettings reads config.toml, returning defaults when it is missing or
// unparseable. Settings problems never block agent startup.
func LoadSettings() *Settings {
	path, err := SettingsPath()
	if err != nil {
		return DefaultSettings()
	}
	return LoadSettingsFrom(path)
}

// LoadSettingsFrom reads settings from an explicit path.
func LoadSettingsFrom(path string) *Settings {
	settings := DefaultSettings()

	if _, err := toml.DecodeFile(path, settings); err != nil {
		return DefaultSettings()
	}

	if settings.AgentsDir == "" {
		settings.AgentsDir = "agents"
	}
	if settings.BackupRetention <= 0 {
		settings.BackupRetention = 10
	}
	if settings.RequestsPerMinute < 0 {
		settings.RequestsPerMinute = 0
	}
	return settings
}

// SaveSettings writes the settings file with a header comment, creating
// the settings directory if needed.
func (s *Settings) SaveSettings(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open settings file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString("# opusagent application settings\n\n"); err != nil {
		return err
	}
	return toml.NewEncoder(f).Encode(s)
}
