package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format names accepted by New.
const (
	FormatConsole = "console"
	FormatPretty  = "pretty"
	FormatJSON    = "json"
	FormatText    = "text"
)

// ParseLevel maps debug, info, warn and error (case-insensitive) to slog
// levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// New returns a logger writing to w in the named format.
func New(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	var h slog.Handler
	switch strings.ToLower(format) {
	case "", FormatConsole:
		h = NewConsoleHandler(w, &ConsoleOptions{HandlerOptions: slog.HandlerOptions{Level: level}})
	case FormatPretty:
		h = NewConsoleHandler(w, &ConsoleOptions{HandlerOptions: slog.HandlerOptions{Level: level}, Indent: true})
	case FormatJSON:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case FormatText:
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return slog.New(h), nil
}
