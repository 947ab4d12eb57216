// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a conversation to disk in JSON, plain text,
// Markdown or HTML.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/opusagent/internal/config"
	"github.com/jeranaias/opusagent/internal/model"
)

// timestampLayout is used for human-readable timestamps in exports.
const timestampLayout = "2006-01-02 15:04:05"

// Conversation is the payload handed to an exporter.
type Conversation struct {
	AgentID    string
	ModelName  string
	Config     config.AgentConfig
	Messages   []model.Message
	Statistics model.Statistics
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a conversation to the target format and returns the content.
	Export(conv *Conversation) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "txt":
		return &TextExporter{}, nil
	case "md":
		return &MarkdownExporter{}, nil
	case "html":
		return &HTMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{"json", "txt", "md", "html"}
}

// =============================================================================
// EXPORT TO FILE
// =============================================================================

// ExportToFile renders the conversation in the named format and writes it
// into outputDir as conversation_<timestamp>.<ext>. Returns the full path.
func ExportToFile(conv *Conversation, format, outputDir string) (string, error) {
	exporter, err := ForFormat(format)
	if err != nil {
		return "", err
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	filename := "conversation_" + time.Now().Format("20060102_150405") + exporter.FileExtension()
	outputPath := filepath.Join(outputDir, filename)
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// roleTitle renders a role for display ("User", "Assistant").
func roleTitle(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "User"
	case model.RoleAssistant:
		return "Assistant"
	default:
		return string(role)
	}
}
