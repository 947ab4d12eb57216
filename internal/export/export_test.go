// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/opusagent/internal/config"
	"github.com/jeranaias/opusagent/internal/model"
)

func testConversation() *Conversation {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	messages := []model.Message{
		{ID: "1", Role: model.RoleUser, Content: "What is Go?", Timestamp: base},
		{ID: "2", Role: model.RoleAssistant, Content: "Go is a programming language.\n```go\nfmt.Println(\"hi\")\n```", Timestamp: base.Add(time.Minute)},
		{ID: "3", Role: model.RoleUser, Content: "Thanks & goodbye <script>", Timestamp: base.Add(2 * time.Minute)},
	}

	return &Conversation{
		AgentID:    "test-agent",
		ModelName:  "Claude Opus 4",
		Config:     *config.Default(),
		Messages:   messages,
		Statistics: model.ComputeStatistics(messages),
	}
}

func TestForFormat(t *testing.T) {
	for _, format := range Formats() {
		if _, err := ForFormat(format); err != nil {
			t.Errorf("ForFormat(%q) failed: %v", format, err)
		}
	}

	if _, err := ForFormat("pdf"); err == nil {
		t.Error("expected error for unsupported format")
	} else if !strings.Contains(err.Error(), "unsupported export format: pdf") {
		t.Errorf("error = %q", err)
	}
}

func TestJSONExport(t *testing.T) {
	content, err := (&JSONExporter{}).Export(testConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(content, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if doc["agent_id"] != "test-agent" {
		t.Errorf("agent_id = %v", doc["agent_id"])
	}
	if doc["exported_at"] == nil || doc["config"] == nil {
		t.Error("missing exported_at or config")
	}
	msgs, ok := doc["messages"].([]any)
	if !ok || len(msgs) != 3 {
		t.Fatalf("messages = %v", doc["messages"])
	}
	stats, ok := doc["statistics"].(map[string]any)
	if !ok || stats["total_messages"].(float64) != 3 {
		t.Errorf("statistics = %v", doc["statistics"])
	}
}

func TestTextExport(t *testing.T) {
	content, err := (&TextExporter{}).Export(testConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	text := string(content)

	if !strings.HasPrefix(text, "Anthropic Claude Opus 4 Chat Agent Conversation Export\n") {
		t.Errorf("missing header: %q", text[:60])
	}
	if !strings.Contains(text, "Agent ID: test-agent") {
		t.Error("missing agent id line")
	}
	if !strings.Contains(text, "[2025-06-01 10:00:00] USER:\nWhat is Go?") {
		t.Error("missing formatted user message")
	}
	if !strings.Contains(text, "ASSISTANT:") {
		t.Error("missing assistant role")
	}
}

func TestMarkdownExport(t *testing.T) {
	content, err := (&MarkdownExporter{}).Export(testConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	text := string(content)

	if !strings.HasPrefix(text, "# Anthropic Claude Opus 4 Chat Agent Conversation\n") {
		t.Error("missing title")
	}
	if !strings.Contains(text, "## 🧑 User - 2025-06-01 10:00:00") {
		t.Error("missing user heading")
	}
	if !strings.Contains(text, "## 🤖 Assistant - 2025-06-01 10:01:00") {
		t.Error("missing assistant heading")
	}
	if !strings.Contains(text, "**Agent ID:** test-agent") {
		t.Error("missing metadata")
	}
}

func TestHTMLExport(t *testing.T) {
	content, err := (&HTMLExporter{}).Export(testConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	text := string(content)

	if !strings.HasPrefix(text, "<!DOCTYPE html>") {
		t.Error("missing doctype")
	}
	// Raw HTML in message content must be escaped
	if strings.Contains(text, "<script>") {
		t.Error("unescaped message content")
	}
	if !strings.Contains(text, "Thanks &amp; goodbye &lt;script&gt;") {
		t.Error("expected escaped content")
	}
	// Fenced code gets its own block
	if !strings.Contains(text, `<div class="code-block">`) {
		t.Error("missing code block")
	}
	// Stats grid is populated
	if !strings.Contains(text, "Total Messages") || !strings.Contains(text, "Duration") {
		t.Error("missing statistics section")
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()

	path, err := ExportToFile(testConversation(), "md", dir)
	if err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}

	name := filepath.Base(path)
	if !strings.HasPrefix(name, "conversation_") || !strings.HasSuffix(name, ".md") {
		t.Errorf("unexpected filename %q", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("empty export file")
	}
}

func TestExportToFile_UnsupportedFormat(t *testing.T) {
	if _, err := ExportToFile(testConversation(), "docx", t.TempDir()); err == nil {
		t.Error("expected error for unsupported format")
	}
}
