// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"sort"
	"time"
)

// DefaultModel is used when no model is requested explicitly.
const DefaultModel = "claude-opus-4-20250514"

// ModelConfig describes the fixed properties of one supported model.
type ModelConfig struct {
	Name            string
	Description     string
	Timeout         time.Duration
	MaxOutputTokens int
}

// supportedModels is the registry of models this client can talk to.
var supportedModels = map[string]ModelConfig{
	"claude-opus-4-20250514": {
		Name:            "Claude Opus 4",
		Description:     "Claude Opus 4 model from Anthropic",
		Timeout:         300 * time.Second,
		MaxOutputTokens: 32000,
	},
	"claude-opus-4-1-20250805": {
		Name:            "Claude Opus 4.1",
		Description:     "Claude Opus 4.1 model from Anthropic",
		Timeout:         300 * time.Second,
		MaxOutputTokens: 32000,
	},
}

// GetModelConfig returns the registry entry for model, falling back to the
// default model's entry for unknown ids.
func GetModelConfig(model string) ModelConfig {
	if mc, ok := supportedModels[model]; ok {
		return mc
	}
	return supportedModels[DefaultModel]
}

// IsSupportedModel reports whether model is in the registry.
func IsSupportedModel(model string) bool {
	_, ok := supportedModels[model]
	return ok
}

// SupportedModelIDs returns the registry keys in stable order.
func SupportedModelIDs() []string {
	ids := make([]string, 0, len(supportedModels))
	for id := range supportedModels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
