// Copyright 2025 The agentcore Authors
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

// Package obslog sets up the process-wide slog logger. Grounded on the
// teacher's pkg/logger/logger.go (level parsing, a terminal-aware
// colored text handler, simple/verbose output formats); the third-party
// log-filtering handler that suppresses non-hector callers unless
// level=debug is dropped — this module has no vendored third-party
// agent framework whose chatter would need muting.
package obslog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a config string ("debug","info","warn","error")
// into an slog.Level, defaulting to Warn on anything unrecognized so a
// typo in config never silently drops to the noisiest level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Init builds and installs the process-wide default logger. When w is a
// terminal, format "verbose" writes timestamp + level + message + attrs
// and any other format writes the same without the timestamp; when w is
// not a terminal, slog's own TextHandler layout is used whatever format is.
func Init(level slog.Level, output *os.File, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.String() == "WARNING" {
				return slog.String(slog.LevelKey, "WARN")
			}
			return a
		},
	}

	var handler slog.Handler = slog.NewTextHandler(output, opts)
	if isTerminal(output) {
		handler = &coloredHandler{inner: handler, out: output, verbose: format == "verbose"}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// coloredHandler reformats records with an ANSI color keyed to level,
// for interactive terminal sessions only — output piped to a file or
// another process falls back to the plain slog.TextHandler above.
type coloredHandler struct {
	inner   slog.Handler
	out     io.Writer
	verbose bool
}

func levelColor(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "\033[31m"
	case l >= slog.LevelWarn:
		return "\033[33m"
	case l >= slog.LevelInfo:
		return "\033[36m"
	default:
		return "\033[90m"
	}
}

func (h *coloredHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *coloredHandler) Handle(ctx context.Context, r slog.Record) error {
	color := levelColor(r.Level)
	reset := "\033[0m"

	levelStr := r.Level.String()
	if levelStr == "WARNING" {
		levelStr = "WARN"
	}

	var line strings.Builder
	if h.verbose {
		line.WriteString(r.Time.Format("2006/01/02 15:04:05 "))
	}
	line.WriteString(color)
	line.WriteString(strings.ToUpper(levelStr))
	line.WriteString(reset)
	line.WriteString(" ")
	line.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		line.WriteString(" ")
		line.WriteString(a.Key)
		line.WriteString("=")
		line.WriteString(a.Value.String())
		return true
	})
	line.WriteString("\n")

	_, err := h.out.Write([]byte(line.String()))
	return err
}

func (h *coloredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &coloredHandler{inner: h.inner.WithAttrs(attrs), out: h.out, verbose: h.verbose}
}

func (h *coloredHandler) WithGroup(name string) slog.Handler {
	return &coloredHandler{inner: h.inner.WithGroup(name), out: h.out, verbose: h.verbose}
}
