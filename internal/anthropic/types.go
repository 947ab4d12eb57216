// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import (
	"github.com/jeranaias/opusagent/internal/model"
)

// APIMessage is one conversation turn on the wire. Content is always a
// list of blocks, never a bare string.
type APIMessage struct {
	Role    string               `json:"role"`
	Content []model.ContentBlock `json:"content"`
}

// Request is the payload for a messages call.
type Request struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	Temperature float64      `json:"temperature"`
	System      string       `json:"system,omitempty"`
	Stream      bool         `json:"stream"`
	Messages    []APIMessage `json:"messages"`
}

// Usage reports token consumption for a completed call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is a complete (non-streamed) messages result.
type Response struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	Role       string               `json:"role"`
	Model      string               `json:"model"`
	Content    []model.ContentBlock `json:"content"`
	StopReason string               `json:"stop_reason"`
	Usage      Usage                `json:"usage"`
}

// Text returns the first text block's content, or empty if the response
// carried no text.
func (r *Response) Text() string {
	for _, block := range r.Content {
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}
