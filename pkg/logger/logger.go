// Copyright 2025 The Agentcore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger configures the runtime's single shared *slog.Logger.
//
// Every component logs through this package rather than building its own
// handler, so log level/format are controlled in exactly one place
// (environment variables read once at startup by cmd/agentcored).
package logger

import (
	"log/slog"
	"os"
	"strings"
)

var defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Config controls the format and verbosity of the shared logger.
type Config struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string
	// Format is "text" or "json".
	Format string
}

// ParseLevel converts a string log level to slog.Level, defaulting to Info
// for anything unrecognized rather than failing startup over a typo.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs the process-wide logger per cfg. Call once at startup;
// safe to skip in tests, which get the Info/text default above.
func Init(cfg Config) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// Get returns the shared logger.
func Get() *slog.Logger { return defaultLogger }

// With returns a child logger carrying the given key/value pairs, the
// idiom used throughout the runner/store/adapters to scope log lines to a
// runID/threadID/toolName without repeating them at every call site.
func With(args ...any) *slog.Logger {
	return defaultLogger.With(args...)
}
