// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package secrets resolves the API credential for an agent. Resolution
// order: environment variable, local secret file, interactive prompt
// (which then persists the entered value).
package secrets

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

const (
	// EnvVar is checked before any file or prompt.
	EnvVar = "ANTHROPIC_API_KEY"

	// SecretsFileName lives inside the agent directory.
	SecretsFileName = "secrets.json"
)

// ErrNoKey indicates no API key could be obtained.
var ErrNoKey = errors.New("API key is required")

// secretsFile mirrors the on-disk secret document.
type secretsFile struct {
	Provider string            `json:"provider"`
	Keys     map[string]string `json:"keys"`
}

// Resolve returns the API key for an agent rooted at baseDir. modelName
// is only used in prompt text. A key entered interactively is saved to
// the secret file and a .gitignore entry is added alongside it.
func Resolve(baseDir, modelName string) (string, error) {
	if key := os.Getenv(EnvVar); key != "" {
		return key, nil
	}

	path := filepath.Join(baseDir, SecretsFileName)
	if key, err := readKeyFile(path); err == nil && key != "" {
		return key, nil
	} else if err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not read secrets file: %v\n", err)
	}

	key, err := promptForKey(modelName)
	if err != nil {
		return "", err
	}

	if err := saveKey(path, key); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save API key: %v\n", err)
	} else {
		ensureGitignore()
		fmt.Printf("API key saved (%s)\n", Mask(key))
	}
	return key, nil
}

func readKeyFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var sf secretsFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return "", fmt.Errorf("failed to parse secrets file: %w", err)
	}
	return sf.Keys["default"], nil
}

func promptForKey(modelName string) (string, error) {
	fmt.Printf("API key not found for %s.\n", modelName)
	fmt.Printf("You can set %s or enter it now.\n", EnvVar)
	fmt.Printf("Enter API key for %s: ", modelName)

	var key string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}
		key = string(raw)
	} else {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}
		key = line
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrNoKey
	}
	return key, nil
}

func saveKey(path, key string) error {
	sf := secretsFile{
		Provider: "anthropic",
		Keys:     map[string]string{"default": key},
	}

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ensureGitignore adds a secrets entry to .gitignore in the working
// directory so saved keys never get committed.
func ensureGitignore() {
	const entry = "\n# API Keys\n**/secrets.json\nsecrets.json\n"

	existing, err := os.ReadFile(".gitignore")
	if err == nil && strings.Contains(string(existing), "secrets.json") {
		return
	}

	f, err := os.OpenFile(".gitignore", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	f.WriteString(entry)
}

// Mask renders a key safe for display, keeping only the first four and
// last two characters.
func Mask(key string) string {
	if len(key) <= 6 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-2:]
}
