// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent ties config, history, secrets and the API client together
// into one persistent conversational agent.
package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/opusagent/internal/anthropic"
	"github.com/jeranaias/opusagent/internal/config"
	"github.com/jeranaias/opusagent/internal/export"
	"github.com/jeranaias/opusagent/internal/history"
	"github.com/jeranaias/opusagent/internal/include"
	"github.com/jeranaias/opusagent/internal/logging"
	"github.com/jeranaias/opusagent/internal/model"
	"github.com/jeranaias/opusagent/internal/secrets"
	"github.com/jeranaias/opusagent/internal/usage"
)

// agentDirs are created under every agent's base directory.
var agentDirs = []string{"backups", "logs", "exports", "uploads"}

// emptyResponseText is returned as the reply when a completed call carried
// no text content. It is shown to the user but never written to history.
const emptyResponseText = "No response content received"

// =============================================================================
// OPTIONS
// =============================================================================

// Options tune agent construction. Zero values mean "use the stored
// configuration".
type Options struct {
	// Model overrides and persists the configured model when set.
	Model string

	// Temperature overrides and persists the sampling temperature.
	Temperature *float64

	// NoStream disables streaming for this session only.
	NoStream bool

	// Settings supplies application-wide configuration. Nil loads the
	// user's settings file.
	Settings *config.Settings

	// Usage receives per-request records. May be nil.
	Usage *usage.Log

	// Client replaces the API client, used by tests.
	Client *anthropic.Client
}

// =============================================================================
// AGENT
// =============================================================================

// Agent is one named conversation with its own persisted config, history
// and credentials.
type Agent struct {
	ID      string
	BaseDir string

	Config   *config.AgentConfig
	History  *history.Store
	Resolver *include.Resolver

	client    *anthropic.Client
	logger    zerolog.Logger
	logCloser io.Closer
	usageLog  *usage.Log
	settings  *config.Settings
}

// New loads or creates the agent named agentID.
func New(agentID string, opts Options) (*Agent, error) {
	if opts.Model != "" && !config.IsSupportedModel(opts.Model) {
		return nil, fmt.Errorf("unsupported model %q (supported: %s)",
			opts.Model, strings.Join(config.SupportedModelIDs(), ", "))
	}

	settings := opts.Settings
	if settings == nil {
		settings = config.LoadSettings()
	}

	baseDir := filepath.Join(settings.AgentsDir, agentID)
	for _, dir := range append([]string{""}, agentDirs...) {
		if err := os.MkdirAll(filepath.Join(baseDir, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create agent directory: %w", err)
		}
	}

	logger, logCloser, err := logging.New(agentID, baseDir)
	if err != nil {
		return nil, err
	}

	cfgPath := filepath.Join(baseDir, config.ConfigFileName)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	dirty := false
	if opts.Model != "" && opts.Model != cfg.Model {
		cfg.Model = opts.Model
		dirty = true
	}
	if opts.Temperature != nil {
		if _, err := cfg.Update(map[string]any{"temperature": *opts.Temperature}); err != nil {
			logCloser.Close()
			return nil, err
		}
		dirty = true
	}
	if dirty {
		if err := cfg.Save(cfgPath); err != nil {
			logger.Warn().Err(err).Msg("could not persist config overrides")
		}
	}
	if opts.NoStream {
		cfg.Stream = false
	}

	modelConfig := config.GetModelConfig(cfg.Model)

	client := opts.Client
	if client == nil {
		key, err := secrets.Resolve(baseDir, modelConfig.Name)
		if err != nil {
			logCloser.Close()
			return nil, err
		}
		clientCfg := anthropic.DefaultConfig()
		clientCfg.Timeout = modelConfig.Timeout
		clientCfg.RequestsPerMinute = settings.RequestsPerMinute
		client = anthropic.NewClient(key, clientCfg, logger)
	}

	a := &Agent{
		ID:        agentID,
		BaseDir:   baseDir,
		Config:    cfg,
		History:   history.NewStore(baseDir, cfg.MaxHistorySize, settings.BackupRetention, logger),
		Resolver:  include.NewResolver(baseDir, logger),
		client:    client,
		logger:    logger,
		logCloser: logCloser,
		usageLog:  opts.Usage,
		settings:  settings,
	}

	logger.Info().Str("model", cfg.Model).Msg("agent initialized")
	return a, nil
}

// Close flushes and releases the agent's log file.
func (a *Agent) Close() error {
	if a.logCloser != nil {
		return a.logCloser.Close()
	}
	return nil
}

// Logger exposes the agent's logger for session-level events.
func (a *Agent) Logger() zerolog.Logger {
	return a.logger
}

// ConfigPath returns the location of the agent's config file.
func (a *Agent) ConfigPath() string {
	return filepath.Join(a.BaseDir, config.ConfigFileName)
}

// ModelName returns the display name of the configured model.
func (a *Agent) ModelName() string {
	return config.GetModelConfig(a.Config.Model).Name
}

// =============================================================================
// CONVERSATION
// =============================================================================

// SendMessage expands file references in input, records the user turn and
// performs the API call. With streaming enabled onDelta receives each text
// fragment as it arrives; the complete reply is returned either way.
//
// The user turn is persisted before the call, so a failed request still
// leaves it in history. The assistant turn is only recorded on success; a
// successful call with no text content yields a placeholder reply that is
// displayed but not appended.
func (a *Agent) SendMessage(ctx context.Context, input string, onDelta func(string)) (string, error) {
	expanded := a.Resolver.Expand(input)
	a.History.Append(model.RoleUser, expanded, nil)

	request := a.buildRequest()
	start := time.Now()

	var reply string
	var err error
	appendReply := true
	if a.Config.Stream {
		reply, err = a.client.Stream(ctx, request, onDelta)
	} else {
		var resp *anthropic.Response
		resp, err = a.client.Complete(ctx, request)
		if err == nil && resp.Text() == "" {
			reply = emptyResponseText
			appendReply = false
		} else if err == nil {
			reply = resp.Text()
		}
	}

	a.recordUsage(request, reply, time.Since(start), err == nil)

	if err != nil {
		a.logger.Error().Err(err).Msg("API request failed")
		return "", err
	}

	if appendReply && strings.TrimSpace(reply) != "" {
		a.History.Append(model.RoleAssistant, reply, nil)
	}
	a.logger.Info().
		Int("chars", len(reply)).
		Dur("elapsed", time.Since(start)).
		Msg("message exchanged")
	return reply, nil
}

// buildRequest maps the stored history onto the wire format.
func (a *Agent) buildRequest() anthropic.Request {
	messages := a.History.Messages()
	apiMessages := make([]anthropic.APIMessage, 0, len(messages))
	for i := range messages {
		apiMessages = append(apiMessages, anthropic.APIMessage{
			Role:    string(messages[i].Role),
			Content: messages[i].ContentBlocks(),
		})
	}

	return anthropic.Request{
		Model:       a.Config.Model,
		MaxTokens:   a.Config.EffectiveMaxTokens(),
		Temperature: a.Config.Temperature,
		System:      a.Config.SystemPrompt,
		Stream:      a.Config.Stream,
		Messages:    apiMessages,
	}
}

func (a *Agent) recordUsage(req anthropic.Request, reply string, elapsed time.Duration, success bool) {
	if a.usageLog == nil {
		return
	}

	charsIn := 0
	for _, msg := range req.Messages {
		for _, block := range msg.Content {
			charsIn += len(block.Text)
		}
	}

	rec := usage.Record{
		AgentID:  a.ID,
		Model:    req.Model,
		Streamed: req.Stream,
		Attempts: 1,
		Duration: elapsed,
		CharsIn:  charsIn,
		CharsOut: len(reply),
		Success:  success,
	}
	if err := a.usageLog.Add(rec); err != nil {
		a.logger.Warn().Err(err).Msg("could not record usage")
	}
}

// =============================================================================
// MANAGEMENT
// =============================================================================

// Statistics computes aggregate statistics over the current history.
func (a *Agent) Statistics() model.Statistics {
	return model.ComputeStatistics(a.History.Messages())
}

// Search finds history messages containing term.
func (a *Agent) Search(term string, limit int) []history.SearchResult {
	return a.History.Search(term, limit)
}

// UpdateConfig applies overrides atomically, persists and returns warnings
// for unknown keys.
func (a *Agent) UpdateConfig(overrides map[string]any) ([]string, error) {
	warnings, err := a.Config.Update(overrides)
	if err != nil {
		return warnings, err
	}

	if err := a.Config.Save(a.ConfigPath()); err != nil {
		return warnings, err
	}
	a.History.SetMaxSize(a.Config.MaxHistorySize)
	a.logger.Info().Msg("configuration updated")
	return warnings, nil
}

// ReloadConfig re-reads the config file, used when it changes on disk
// mid-session. Invalid or unreadable files leave the running config as is.
func (a *Agent) ReloadConfig() error {
	cfg, err := config.Read(a.ConfigPath())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	*a.Config = *cfg
	a.History.SetMaxSize(cfg.MaxHistorySize)
	a.logger.Info().Msg("configuration reloaded from disk")
	return nil
}

// ClearHistory backs up and empties the conversation.
func (a *Agent) ClearHistory() error {
	return a.History.Clear()
}

// Export writes the conversation to the agent's exports directory in the
// named format and returns the file path.
func (a *Agent) Export(format string) (string, error) {
	conv := &export.Conversation{
		AgentID:    a.ID,
		ModelName:  a.ModelName(),
		Config:     *a.Config,
		Messages:   a.History.Messages(),
		Statistics: a.Statistics(),
	}

	path, err := export.ExportToFile(conv, format, filepath.Join(a.BaseDir, "exports"))
	if err != nil {
		a.logger.Error().Err(err).Str("format", format).Msg("export failed")
		return "", err
	}
	a.logger.Info().Str("path", path).Msg("conversation exported")
	return path, nil
}

// ListFiles returns the files currently available for {filename} inclusion.
func (a *Agent) ListFiles() []string {
	return a.Resolver.ListAvailable()
}

// UsageSummary aggregates recorded API usage for this agent.
func (a *Agent) UsageSummary() (usage.Summary, error) {
	return a.usageLog.Summarize(a.ID)
}
