// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/opusagent/internal/config"
	"github.com/jeranaias/opusagent/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports conversations to JSON format.
// NOTE: JSON exports always include the complete conversation data
// structure so the file is a faithful, re-importable record.
type JSONExporter struct{}

type jsonDocument struct {
	AgentID    string             `json:"agent_id"`
	ExportedAt string             `json:"exported_at"`
	Config     config.AgentConfig `json:"config"`
	Messages   []model.Message    `json:"messages"`
	Statistics model.Statistics   `json:"statistics"`
}

// Export converts a conversation to JSON format.
func (e *JSONExporter) Export(conv *Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}

	doc := jsonDocument{
		AgentID:    conv.AgentID,
		ExportedAt: time.Now().Format(time.RFC3339),
		Config:     conv.Config,
		Messages:   conv.Messages,
		Statistics: conv.Statistics,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
