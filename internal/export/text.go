// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// TEXT EXPORTER
// =============================================================================

// TextExporter exports conversations to plain text.
type TextExporter struct{}

// Export converts a conversation to plain text format.
func (e *TextExporter) Export(conv *Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Anthropic %s Chat Agent Conversation Export\n", conv.ModelName))
	sb.WriteString(fmt.Sprintf("Agent ID: %s\n", conv.AgentID))
	sb.WriteString(fmt.Sprintf("Model: %s\n", conv.Config.Model))
	sb.WriteString(fmt.Sprintf("Exported: %s\n", time.Now().Format(timestampLayout)))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, msg := range conv.Messages {
		sb.WriteString(fmt.Sprintf("[%s] %s:\n", msg.Timestamp.Format(timestampLayout), strings.ToUpper(string(msg.Role))))
		sb.WriteString(msg.Content + "\n\n")
	}
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

// MimeType returns the MIME type for plain text.
func (e *TextExporter) MimeType() string {
	return "text/plain"
}
