// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config manages per-agent configuration and application settings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/opusagent/internal/util"
)

// ConfigFileName is the per-agent configuration document.
const ConfigFileName = "config.yaml"

// =============================================================================
// VALIDATION ERRORS
// =============================================================================

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects all validation failures for one config record.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// =============================================================================
// AGENT CONFIG
// =============================================================================

// AgentConfig holds the tunable parameters for one agent. All numeric
// fields must satisfy their documented ranges; violations reject the whole
// update rather than clamping.
type AgentConfig struct {
	Model            string  `yaml:"model" json:"model"`
	Temperature      float64 `yaml:"temperature" json:"temperature"`
	MaxTokens        int     `yaml:"max_tokens" json:"max_tokens"`
	MaxHistorySize   int     `yaml:"max_history_size" json:"max_history_size"`
	Stream           bool    `yaml:"stream" json:"stream"`
	SystemPrompt     string  `yaml:"system_prompt" json:"system_prompt"`
	TopP             float64 `yaml:"top_p" json:"top_p"`
	FrequencyPenalty float64 `yaml:"frequency_penalty" json:"frequency_penalty"`
	PresencePenalty  float64 `yaml:"presence_penalty" json:"presence_penalty"`

	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

// Default returns the configuration used for newly created agents.
func Default() *AgentConfig {
	now := time.Now()
	return &AgentConfig{
		Model:            DefaultModel,
		Temperature:      1.0,
		MaxTokens:        32000,
		MaxHistorySize:   1000,
		Stream:           true,
		SystemPrompt:     "You are Claude, an AI assistant.",
		TopP:             1.0,
		FrequencyPenalty: 0.0,
		PresencePenalty:  0.0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Validate checks every field range. It fails closed: any violation is
// reported and the caller must not persist the record.
func (c *AgentConfig) Validate() error {
	var errs ValidateErrors

	if !IsSupportedModel(c.Model) {
		errs = append(errs, ValidationError{
			Field:   "model",
			Message: fmt.Sprintf("unsupported model %q (supported: %s)", c.Model, strings.Join(SupportedModelIDs(), ", ")),
		})
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		errs = append(errs, ValidationError{Field: "temperature", Message: "must be between 0.0 and 2.0"})
	}
	if c.TopP < 0.0 || c.TopP > 1.0 {
		errs = append(errs, ValidationError{Field: "top_p", Message: "must be between 0.0 and 1.0"})
	}
	if c.FrequencyPenalty < 0.0 || c.FrequencyPenalty > 2.0 {
		errs = append(errs, ValidationError{Field: "frequency_penalty", Message: "must be between 0.0 and 2.0"})
	}
	if c.PresencePenalty < 0.0 || c.PresencePenalty > 2.0 {
		errs = append(errs, ValidationError{Field: "presence_penalty", Message: "must be between 0.0 and 2.0"})
	}
	if c.MaxTokens < 0 {
		errs = append(errs, ValidationError{Field: "max_tokens", Message: "must be positive when set"})
	}
	if c.MaxHistorySize <= 0 {
		errs = append(errs, ValidationError{Field: "max_history_size", Message: "must be positive"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// EffectiveMaxTokens caps the configured token budget at the model's
// output ceiling. Zero means unset and yields the ceiling itself.
func (c *AgentConfig) EffectiveMaxTokens() int {
	ceiling := GetModelConfig(c.Model).MaxOutputTokens
	if c.MaxTokens <= 0 || c.MaxTokens > ceiling {
		return ceiling
	}
	return c.MaxTokens
}

// =============================================================================
// UPDATE
// =============================================================================

// Update applies recognized overrides to a copy of the config, re-validates
// the whole record and only then commits it. Unknown keys are skipped and
// returned as warnings; a validation failure rejects the entire update.
func (c *AgentConfig) Update(overrides map[string]any) ([]string, error) {
	next := *c
	var warnings []string

	for key, value := range overrides {
		switch key {
		case "model":
			s, ok := value.(string)
			if !ok {
				return nil, ValidationError{Field: key, Message: "expected string"}
			}
			next.Model = s
		case "temperature":
			f, err := toFloat(value)
			if err != nil {
				return nil, ValidationError{Field: key, Message: err.Error()}
			}
			next.Temperature = f
		case "top_p":
			f, err := toFloat(value)
			if err != nil {
				return nil, ValidationError{Field: key, Message: err.Error()}
			}
			next.TopP = f
		case "frequency_penalty":
			f, err := toFloat(value)
			if err != nil {
				return nil, ValidationError{Field: key, Message: err.Error()}
			}
			next.FrequencyPenalty = f
		case "presence_penalty":
			f, err := toFloat(value)
			if err != nil {
				return nil, ValidationError{Field: key, Message: err.Error()}
			}
			next.PresencePenalty = f
		case "max_tokens":
			n, err := toInt(value)
			if err != nil {
				return nil, ValidationError{Field: key, Message: err.Error()}
			}
			next.MaxTokens = n
		case "max_history_size":
			n, err := toInt(value)
			if err != nil {
				return nil, ValidationError{Field: key, Message: err.Error()}
			}
			next.MaxHistorySize = n
		case "stream":
			b, ok := value.(bool)
			if !ok {
				return nil, ValidationError{Field: key, Message: "expected bool"}
			}
			next.Stream = b
		case "system_prompt":
			s, ok := value.(string)
			if !ok {
				return nil, ValidationError{Field: key, Message: "expected string"}
			}
			next.SystemPrompt = s
		default:
			warnings = append(warnings, fmt.Sprintf("unknown configuration key: %s", key))
		}
	}

	if err := next.Validate(); err != nil {
		return warnings, err
	}

	next.UpdatedAt = time.Now()
	*c = next
	return warnings, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Read parses a config.yaml without creating anything on disk.
func Read(path string) (*AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg AgentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Load reads the agent config from path, falling back to defaults when the
// file is missing or unparseable. Fallback defaults are persisted so the
// agent directory always carries a valid document. Environment overrides
// are applied after loading.
func Load(path string) (*AgentConfig, error) {
	cfg, err := Read(path)
	if err != nil {
		cfg = Default()
		if saveErr := cfg.Save(path); saveErr != nil {
			return cfg, saveErr
		}
		return cfg, nil
	}

	cfg.ApplyEnvOverrides()

	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now()
	}
	return cfg, nil
}

// Save writes the config as YAML with a header comment, refreshing
// updated_at first. The write is atomic.
func (c *AgentConfig) Save(path string) error {
	c.UpdatedAt = time.Now()

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := "# opusagent configuration\n# A file that fails to parse is replaced with defaults on load.\n\n"
	return util.AtomicWriteFile(path, append([]byte(header), data...), 0600)
}

// ApplyEnvOverrides applies environment variable overrides. Invalid values
// are ignored so a bad environment cannot corrupt a stored config.
func (c *AgentConfig) ApplyEnvOverrides() {
	if v := os.Getenv("ANTHROPIC_MODEL"); v != "" && IsSupportedModel(v) {
		c.Model = v
	}
	if v := os.Getenv("ANTHROPIC_SYSTEM_PROMPT"); v != "" {
		c.SystemPrompt = v
	}
}
