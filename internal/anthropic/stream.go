// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader parses server-sent events from a streaming messages
// response, emitting text deltas as they arrive.
type StreamReader struct {
	reader      *bufio.Reader
	accumulator strings.Builder
	logger      zerolog.Logger
}

// NewStreamReader creates a stream reader over a response body.
func NewStreamReader(r io.Reader, logger zerolog.Logger) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
		logger: logger,
	}
}

// Process reads events until the stream ends, calling onDelta for each
// text fragment. Malformed events are skipped. Blocks until the stream
// completes or the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, onDelta func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			return nil
		}

		if !gjson.Valid(payload) {
			s.logger.Warn().Str("event", payload).Msg("skipping malformed stream event")
			continue
		}

		switch gjson.Get(payload, "type").String() {
		case "content_block_delta":
			if text := gjson.Get(payload, "delta.text").String(); text != "" {
				s.accumulator.WriteString(text)
				if onDelta != nil {
					onDelta(text)
				}
			}
		case "message_stop":
			return nil
		}
	}
}

// Accumulated returns all text received so far.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}
