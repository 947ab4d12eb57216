// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"
)

// =============================================================================
// CONVERSATION STATISTICS
// =============================================================================

// Statistics is a snapshot of conversation-level counters, consumed by the
// exporters and the /stats command.
type Statistics struct {
	TotalMessages        int    `json:"total_messages"`
	UserMessages         int    `json:"user_messages"`
	AssistantMessages    int    `json:"assistant_messages"`
	TotalCharacters      int    `json:"total_characters"`
	AverageMessageLength int    `json:"average_message_length"`
	FirstMessage         string `json:"first_message,omitempty"`
	LastMessage          string `json:"last_message,omitempty"`
	ConversationDuration string `json:"conversation_duration,omitempty"`
}

const statsTimeLayout = "2006-01-02 15:04:05"

// ComputeStatistics derives statistics from an ordered message history.
// An empty history yields zero counters and empty timestamps.
func ComputeStatistics(messages []Message) Statistics {
	if len(messages) == 0 {
		return Statistics{}
	}

	var stats Statistics
	stats.TotalMessages = len(messages)

	for i := range messages {
		switch messages[i].Role {
		case RoleUser:
			stats.UserMessages++
		case RoleAssistant:
			stats.AssistantMessages++
		}
		stats.TotalCharacters += messages[i].ContentLength()
	}
	stats.AverageMessageLength = stats.TotalCharacters / len(messages)

	first := messages[0].Timestamp
	last := messages[len(messages)-1].Timestamp
	stats.FirstMessage = first.Format(statsTimeLayout)
	stats.LastMessage = last.Format(statsTimeLayout)
	stats.ConversationDuration = formatDuration(last.Sub(first))

	return stats
}

// formatDuration renders a duration as h:mm:ss, clamping negatives to zero.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
