// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation messages.
package model

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// =============================================================================
// CONTENT BLOCK
// =============================================================================

// ContentBlock is a structured unit of message content as required by the
// messages API. Only text blocks are produced locally; blocks loaded from
// history are passed through to the API unchanged.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TextBlock wraps plain text as a single text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in an agent's conversation history. Messages
// are immutable once appended; only oldest-first truncation removes them.
type Message struct {
	ID        string         `json:"id,omitempty"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Blocks    []ContentBlock `json:"blocks,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewMessage creates a message with a generated ID and the current time.
func NewMessage(role Role, content string, metadata map[string]any) Message {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// ContentBlocks returns the message content in block form: structured
// blocks pass through unchanged, plain text is wrapped as one text block.
func (m *Message) ContentBlocks() []ContentBlock {
	if len(m.Blocks) > 0 {
		return m.Blocks
	}
	return []ContentBlock{TextBlock(m.Content)}
}

// ContentLength returns the content length in characters, not bytes.
func (m *Message) ContentLength() int {
	return utf8.RuneCountInString(m.Content)
}
