// Reddit-scheduler is a service that submits scheduled posts to Reddit.
// Copyright (C) 2026 Reddit-scheduler contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package logging constructs the process-wide slog logger. Output goes to
// stderr, which the service manager forwards to the journal; setting
// LOG_STDOUT duplicates it to stdout for interactive runs.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a text logger at the given level ("debug", "info", "warn",
// "error"; anything else means info). The DEBUG environment variable
// forces debug level regardless of the argument.
func New(level string) *slog.Logger {
	lvl := parseLevel(level)
	if os.Getenv("DEBUG") != "" {
		lvl = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if os.Getenv("LOG_STDOUT") != "" {
		w = io.MultiWriter(os.Stderr, os.Stdout)
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
