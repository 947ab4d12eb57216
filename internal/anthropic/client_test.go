// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/opusagent/internal/model"
)

func testRequest() Request {
	return Request{
		Model:       "claude-opus-4-20250514",
		MaxTokens:   32000,
		Temperature: 1.0,
		System:      "You are Claude, an AI assistant.",
		Messages: []APIMessage{
			{Role: "user", Content: []model.ContentBlock{model.TextBlock("hello")}},
		},
	}
}

func newTestClient(url string) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = url
	cfg.RetryBaseDelay = time.Millisecond
	return NewClient("sk-ant-test", cfg, zerolog.Nop())
}

func okResponse(text string) map[string]any {
	return map[string]any{
		"id":          "msg_01",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-opus-4-20250514",
		"content":     []map[string]string{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
		"usage":       map[string]int{"input_tokens": 10, "output_tokens": 5},
	}
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q, want /v1/messages", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-ant-test" {
			t.Error("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream = true on Complete")
		}
		if len(req.Messages) != 1 || req.Messages[0].Content[0].Text != "hello" {
			t.Error("wrong request payload")
		}

		json.NewEncoder(w).Encode(okResponse("Hi there!"))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text() != "Hi there!" {
		t.Errorf("Text = %q, want %q", resp.Text(), "Hi there!")
	}
	if resp.Usage.OutputTokens != 5 {
		t.Errorf("output tokens = %d, want 5", resp.Usage.OutputTokens)
	}
}

func TestComplete_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(okResponse("finally"))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.RetryBaseDelay = 20 * time.Millisecond
	client := NewClient("sk-ant-test", cfg, zerolog.Nop())

	start := time.Now()
	resp, err := client.Complete(context.Background(), testRequest())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Complete failed after retries: %v", err)
	}
	if resp.Text() != "finally" {
		t.Errorf("Text = %q", resp.Text())
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	// Delays double per retry: base before attempt 2, 2*base before attempt 3
	if want := 3 * cfg.RetryBaseDelay; elapsed < want {
		t.Errorf("elapsed = %v, want at least %v of backoff", elapsed, want)
	}
}

func TestComplete_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}

	var ce *ClientError
	if !errors.As(err, &ce) || ce.Type != ErrTypeExhausted {
		t.Errorf("error type = %v, want ErrTypeExhausted", err)
	}
}

func TestComplete_AuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), testRequest())
	if err != ErrInvalidAPIKey {
		t.Errorf("err = %v, want ErrInvalidAPIKey", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if !IsAuthError(err) {
		t.Error("IsAuthError = false")
	}
}

func TestComplete_ForbiddenNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), testRequest())
	if err != ErrForbidden {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestComplete_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type": "error", "error": {"type": "invalid_request_error", "message": "max_tokens too high"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if got := err.Error(); !strings.Contains(got, "max_tokens too high") {
		t.Errorf("error message missing API detail: %q", got)
	}
}

func TestStream_TimesOutWaitingForHeaders(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.Timeout = 50 * time.Millisecond
	cfg.MaxRetries = 1
	cfg.RetryBaseDelay = time.Millisecond
	client := NewClient("sk-ant-test", cfg, zerolog.Nop())

	_, err := client.Stream(context.Background(), testRequest(), nil)
	if err == nil {
		t.Fatal("expected error from a server that never responds")
	}

	var ce *ClientError
	if !errors.As(err, &ce) || ce.Type != ErrTypeExhausted {
		t.Fatalf("error type = %v, want ErrTypeExhausted", err)
	}
	if !IsTimeout(ce.Cause) {
		t.Errorf("cause = %v, want timeout", ce.Cause)
	}
}

func TestStream_EndToEnd(t *testing.T) {
	events := "event: message_start\n" +
		"data: {\"type\": \"message_start\"}\n\n" +
		"data: {\"type\": \"content_block_delta\", \"delta\": {\"type\": \"text_delta\", \"text\": \"Hello\"}}\n\n" +
		"data: {\"type\": \"content_block_delta\", \"delta\": {\"type\": \"text_delta\", \"text\": \" world\"}}\n\n" +
		"data: {\"type\": \"message_stop\"}\n\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("stream = false on Stream")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(events))
	}))
	defer server.Close()

	var deltas []string
	got, err := newTestClient(server.URL).Stream(context.Background(), testRequest(), func(text string) {
		deltas = append(deltas, text)
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if got != "Hello world" {
		t.Errorf("accumulated = %q, want %q", got, "Hello world")
	}
	if len(deltas) != 2 || deltas[0] != "Hello" || deltas[1] != " world" {
		t.Errorf("deltas = %v", deltas)
	}
}
