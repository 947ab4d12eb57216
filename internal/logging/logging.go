// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the per-agent logger. One logger exists per
// agent lifetime and is passed explicitly to everything that logs.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// levelWriter forwards only events at or above min, used to keep the
// console quiet while the log file captures everything.
type levelWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (lw levelWriter) Write(p []byte) (int, error) {
	return lw.w.Write(p)
}

func (lw levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < lw.min {
		return len(p), nil
	}
	return lw.w.Write(p)
}

// New creates a logger for one agent, writing info and above to a daily
// file under baseDir/logs and warnings and above to stderr. The returned
// closer owns the log file.
func New(agentID, baseDir string) (zerolog.Logger, io.Closer, error) {
	logDir := filepath.Join(baseDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, time.Now().Format("2006-01-02")+".log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	sink := zerolog.MultiLevelWriter(
		levelWriter{w: f, min: zerolog.InfoLevel},
		levelWriter{w: console, min: zerolog.WarnLevel},
	)

	logger := zerolog.New(sink).With().
		Timestamp().
		Str("agent", agentID).
		Logger()

	return logger, f, nil
}
