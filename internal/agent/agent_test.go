// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jeranaias/opusagent/internal/anthropic"
	"github.com/jeranaias/opusagent/internal/config"
	"github.com/jeranaias/opusagent/internal/model"
)

// newTestAgent wires an agent against a fake API server. The handler
// receives the decoded request payload.
func newTestAgent(t *testing.T, handler http.HandlerFunc) (*Agent, *config.Settings) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	clientCfg := anthropic.DefaultConfig()
	clientCfg.BaseURL = server.URL

	settings := config.DefaultSettings()
	settings.AgentsDir = filepath.Join(t.TempDir(), "agents")

	a, err := New("test-agent", Options{
		Settings: settings,
		Client:   anthropic.NewClient("sk-ant-test", clientCfg, zerolog.Nop()),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, settings
}

func completionHandler(t *testing.T, text string, capture *anthropic.Request) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "msg_01",
			"type":    "message",
			"role":    "assistant",
			"content": []map[string]string{{"type": "text", "text": text}},
			"usage":   map[string]int{"input_tokens": 1, "output_tokens": 1},
		})
	}
}

func TestNew_CreatesLayout(t *testing.T) {
	a, _ := newTestAgent(t, completionHandler(t, "ok", nil))

	for _, dir := range []string{"backups", "logs", "exports", "uploads"} {
		if _, err := os.Stat(filepath.Join(a.BaseDir, dir)); err != nil {
			t.Errorf("missing %s directory: %v", dir, err)
		}
	}
	if _, err := os.Stat(a.ConfigPath()); err != nil {
		t.Errorf("missing config file: %v", err)
	}
	if a.Config.Model != config.DefaultModel {
		t.Errorf("model = %q, want default", a.Config.Model)
	}
}

func TestNew_RejectsUnknownModel(t *testing.T) {
	settings := config.DefaultSettings()
	settings.AgentsDir = t.TempDir()

	_, err := New("x", Options{Settings: settings, Model: "gpt-4"})
	if err == nil {
		t.Fatal("expected error for unsupported model")
	}
	if !strings.Contains(err.Error(), "claude-opus-4-20250514") {
		t.Errorf("error should list supported models: %v", err)
	}
}

func TestSendMessage_NonStreaming(t *testing.T) {
	var captured anthropic.Request
	a, _ := newTestAgent(t, completionHandler(t, "Hello back!", &captured))
	a.Config.Stream = false

	reply, err := a.SendMessage(context.Background(), "Hello", nil)
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if reply != "Hello back!" {
		t.Errorf("reply = %q", reply)
	}

	// Payload carries config and full history
	if captured.Model != config.DefaultModel {
		t.Errorf("model = %q", captured.Model)
	}
	if captured.System != "You are Claude, an AI assistant." {
		t.Errorf("system = %q", captured.System)
	}
	if captured.MaxTokens != 32000 {
		t.Errorf("max_tokens = %d", captured.MaxTokens)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Content[0].Text != "Hello" {
		t.Errorf("messages = %+v", captured.Messages)
	}

	// Both turns persisted in order
	msgs := a.History.Messages()
	if len(msgs) != 2 {
		t.Fatalf("history = %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[1].Role != model.RoleAssistant {
		t.Error("wrong roles in history")
	}
	if msgs[1].Content != "Hello back!" {
		t.Errorf("assistant content = %q", msgs[1].Content)
	}
}

func TestSendMessage_Streaming(t *testing.T) {
	events := "data: {\"type\": \"content_block_delta\", \"delta\": {\"text\": \"str\"}}\n\n" +
		"data: {\"type\": \"content_block_delta\", \"delta\": {\"text\": \"eamed\"}}\n\n" +
		"data: {\"type\": \"message_stop\"}\n\n"

	a, _ := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(events))
	})

	var deltas []string
	reply, err := a.SendMessage(context.Background(), "go", func(text string) {
		deltas = append(deltas, text)
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if reply != "streamed" {
		t.Errorf("reply = %q", reply)
	}
	if len(deltas) != 2 {
		t.Errorf("deltas = %v", deltas)
	}

	// Exactly one assistant message holds the accumulated text
	msgs := a.History.Messages()
	if len(msgs) != 2 || msgs[1].Content != "streamed" {
		t.Errorf("history = %+v", msgs)
	}
}

func TestSendMessage_EmptyResponse(t *testing.T) {
	a, _ := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "msg_01", "type": "message", "role": "assistant",
			"content": []map[string]string{},
		})
	})
	a.Config.Stream = false

	reply, err := a.SendMessage(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if reply != "No response content received" {
		t.Errorf("reply = %q", reply)
	}

	// User turn persisted, placeholder never enters history
	msgs := a.History.Messages()
	if len(msgs) != 1 || msgs[0].Role != model.RoleUser {
		t.Errorf("history = %+v", msgs)
	}
}

func TestSendMessage_ExpandsFileReferences(t *testing.T) {
	var captured anthropic.Request
	a, _ := newTestAgent(t, completionHandler(t, "ok", &captured))
	a.Config.Stream = false

	uploads := filepath.Join(a.BaseDir, "uploads")
	if err := os.WriteFile(filepath.Join(uploads, "data.txt"), []byte("file contents"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := a.SendMessage(context.Background(), "summarize {data.txt}", nil); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	sent := captured.Messages[0].Content[0].Text
	if !strings.Contains(sent, "file contents") {
		t.Errorf("file not inlined in payload: %q", sent)
	}
	// History stores the expanded form
	if !strings.Contains(a.History.Messages()[0].Content, "file contents") {
		t.Error("history stores unexpanded input")
	}
}

func TestUpdateConfig(t *testing.T) {
	a, _ := newTestAgent(t, completionHandler(t, "ok", nil))

	warnings, err := a.UpdateConfig(map[string]any{"temperature": 0.5, "bogus_key": 1})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v", warnings)
	}
	if a.Config.Temperature != 0.5 {
		t.Errorf("temperature = %v", a.Config.Temperature)
	}

	// Persisted to disk
	cfg, err := config.Read(a.ConfigPath())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if cfg.Temperature != 0.5 {
		t.Errorf("persisted temperature = %v", cfg.Temperature)
	}
}

func TestUpdateConfig_InvalidRejected(t *testing.T) {
	a, _ := newTestAgent(t, completionHandler(t, "ok", nil))

	if _, err := a.UpdateConfig(map[string]any{"temperature": 3.5}); err == nil {
		t.Fatal("expected validation error")
	}
	if a.Config.Temperature != 1.0 {
		t.Errorf("temperature mutated to %v on failed update", a.Config.Temperature)
	}
}

func TestExport(t *testing.T) {
	a, _ := newTestAgent(t, completionHandler(t, "answer", nil))
	a.Config.Stream = false

	if _, err := a.SendMessage(context.Background(), "question", nil); err != nil {
		t.Fatal(err)
	}

	path, err := a.Export("txt")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(a.BaseDir, "exports") {
		t.Errorf("export path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "question") || !strings.Contains(string(data), "answer") {
		t.Error("export missing conversation content")
	}
}

func TestListAndDescribe(t *testing.T) {
	a, settings := newTestAgent(t, completionHandler(t, "ok", nil))
	a.Config.Stream = false
	if _, err := a.SendMessage(context.Background(), "hi", nil); err != nil {
		t.Fatal(err)
	}

	infos, err := List(settings)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "test-agent" {
		t.Fatalf("infos = %+v", infos)
	}
	if infos[0].MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", infos[0].MessageCount)
	}
	if infos[0].ModelName != "Claude Opus 4" {
		t.Errorf("ModelName = %q", infos[0].ModelName)
	}

	if _, err := Describe(settings, "no-such-agent"); err == nil {
		t.Error("expected error for unknown agent")
	}
}

func TestReloadConfig(t *testing.T) {
	a, _ := newTestAgent(t, completionHandler(t, "ok", nil))

	cfg, err := config.Read(a.ConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Temperature = 0.2
	if err := cfg.Save(a.ConfigPath()); err != nil {
		t.Fatal(err)
	}

	if err := a.ReloadConfig(); err != nil {
		t.Fatalf("ReloadConfig failed: %v", err)
	}
	if a.Config.Temperature != 0.2 {
		t.Errorf("temperature = %v after reload", a.Config.Temperature)
	}
}
