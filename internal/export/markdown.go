// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/opusagent/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct{}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(conv *Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Anthropic %s Chat Agent Conversation\n\n", conv.ModelName))
	sb.WriteString(fmt.Sprintf("**Agent ID:** %s  \n", conv.AgentID))
	sb.WriteString(fmt.Sprintf("**Model:** %s  \n", conv.Config.Model))
	sb.WriteString(fmt.Sprintf("**Exported:** %s  \n\n", time.Now().Format(timestampLayout)))

	for _, msg := range conv.Messages {
		emoji := "🤖"
		if msg.Role == model.RoleUser {
			emoji = "🧑"
		}
		sb.WriteString(fmt.Sprintf("## %s %s - %s\n\n", emoji, roleTitle(msg.Role), msg.Timestamp.Format(timestampLayout)))
		sb.WriteString(msg.Content + "\n\n")
	}
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}
