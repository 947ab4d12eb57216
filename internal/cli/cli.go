// cli.go - CLI parsing and command dispatch for opusagent.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/opusagent/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdList
	CmdInfo
	CmdConfig
	CmdExport
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	Command Command

	// AgentID names the agent to chat with, configure or export.
	AgentID string

	// Model overrides the configured model.
	Model string

	// Temperature overrides the configured temperature when set.
	Temperature *float64

	// NoStream disables streaming for this session.
	NoStream bool

	// InfoID is the agent named by --info.
	InfoID string

	// ExportFormat is one of json, txt, md, html.
	ExportFormat string
}

const usageText = `opusagent - Anthropic Claude Opus 4/4.1 chat agent

A command-line conversational client with per-agent persisted history,
configuration, streaming responses and multi-format export.

Usage:
  opusagent --agent-id ID            Start interactive chat
  opusagent --agent-id ID --model M  Chat using a specific model
  opusagent --list                   List all available agents
  opusagent --info ID                Show detailed info for an agent
  opusagent --agent-id ID --config   Configure agent interactively
  opusagent --agent-id ID --export F Export conversation (json|txt|md|html)
  opusagent --version                Show version
  opusagent --help                   Show this help

Flags:
  --agent-id ID        Agent ID for chat session
  --model NAME         Model to use (default: claude-opus-4-20250514)
  --temperature T      Override temperature (0.0-2.0)
  --no-stream          Disable streaming responses
  --list               List all available agents
  --info ID            Show detailed info for an agent
  --config             Configure agent interactively
  --export FORMAT      Export conversation in specified format

During chat, use {filename} in a message to inline a file's content and
'/help' to see the interactive commands.

Environment:
  ANTHROPIC_API_KEY          API key (else stored per-agent)
  ANTHROPIC_MODEL            Default model override
  ANTHROPIC_SYSTEM_PROMPT    Default system prompt override
`

// Usage returns the top-level help text.
func Usage() string {
	return usageText
}

// ParseArgs interprets command-line arguments (without the program name).
func ParseArgs(raw []string) (*Args, error) {
	parser := NewArgParser(raw)
	args := &Args{Command: CmdChat}

	if parser.BoolFlag("help") || parser.BoolFlag("h") {
		args.Command = CmdHelp
		return args, nil
	}
	if parser.BoolFlag("version") || parser.BoolFlag("v") {
		args.Command = CmdVersion
		return args, nil
	}

	args.AgentID = parser.Flag("agent-id")
	args.NoStream = parser.BoolFlag("no-stream")

	if model := parser.Flag("model"); model != "" {
		if !config.IsSupportedModel(model) {
			return nil, fmt.Errorf("unsupported model %q (supported: %s)",
				model, strings.Join(config.SupportedModelIDs(), ", "))
		}
		args.Model = model
	}

	if parser.HasFlag("temperature") {
		temp, err := parser.FlagFloat("temperature")
		if err != nil {
			return nil, err
		}
		if temp < 0.0 || temp > 2.0 {
			return nil, fmt.Errorf("temperature must be between 0.0 and 2.0, got %g", temp)
		}
		args.Temperature = &temp
	}

	switch {
	case parser.BoolFlag("list"):
		args.Command = CmdList
	case parser.Flag("info") != "":
		args.Command = CmdInfo
		args.InfoID = parser.Flag("info")
	case parser.BoolFlag("config"):
		args.Command = CmdConfig
	case parser.Flag("export") != "":
		format := strings.ToLower(parser.Flag("export"))
		switch format {
		case "json", "txt", "md", "html":
			args.Command = CmdExport
			args.ExportFormat = format
		default:
			return nil, fmt.Errorf("invalid export format %q (use: json, txt, md, html)", format)
		}
	}

	// Everything except list/info/help/version operates on one agent
	switch args.Command {
	case CmdChat, CmdConfig, CmdExport:
		if args.AgentID == "" {
			return nil, fmt.Errorf("--agent-id is required")
		}
	}

	return args, nil
}

// Run dispatches a parsed command.
func Run(args *Args) error {
	if !config.LoadSettings().Color {
		DisableColor()
	}

	switch args.Command {
	case CmdHelp:
		fmt.Print(usageText)
		return nil
	case CmdVersion:
		fmt.Printf("opusagent %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		return nil
	case CmdList:
		return RunList()
	case CmdInfo:
		return RunInfo(args.InfoID)
	case CmdConfig:
		return RunConfigure(args)
	case CmdExport:
		return RunExport(args)
	default:
		return RunChat(args)
	}
}
