// Package logging builds the slog loggers used by the commands.
package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ConsoleHandler is a slog.Handler for watching a run in a terminal. Each
// record is one JSON object with time, level and msg first and attributes in
// the order they were added. Grouped attributes are flattened to dotted
// keys. A message spanning several lines (a rendered board, a table) is
// written as the JSON header followed by the raw block.
//
// It is not built for throughput.
type ConsoleHandler struct {
	w         io.Writer
	mu        *sync.Mutex
	level     slog.Leveler
	addSource bool
	indent    bool

	attrs  []slog.Attr
	prefix string
}

// ConsoleOptions extends slog.HandlerOptions with layout switches.
type ConsoleOptions struct {
	slog.HandlerOptions
	// Indent pretty-prints each object over several lines.
	Indent bool
}

func NewConsoleHandler(w io.Writer, opts *ConsoleOptions) *ConsoleHandler {
	h := &ConsoleHandler{w: w, mu: &sync.Mutex{}, level: slog.LevelInfo}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.addSource = opts.AddSource
		h.indent = opts.Indent
	}
	return h
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

type field struct {
	key   string
	value any
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	when := r.Time
	if when.IsZero() {
		when = time.Now()
	}
	msg, block, _ := strings.Cut(r.Message, "\n")

	fields := make([]field, 0, 4+len(h.attrs)+r.NumAttrs())
	fields = append(fields,
		field{"time", when.Format(time.RFC3339Nano)},
		field{"level", r.Level.String()},
		field{"msg", msg},
	)
	if h.addSource {
		fields = append(fields, field{"source", sourceFromPC(r.PC)})
	}
	for _, a := range h.attrs {
		fields = appendAttr(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.prefix, a)
		return true
	})

	var buf bytes.Buffer
	h.encode(&buf, fields)
	buf.WriteByte('\n')
	if block != "" {
		buf.WriteString(block)
		if !strings.HasSuffix(block, "\n") {
			buf.WriteByte('\n')
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *ConsoleHandler) encode(buf *bytes.Buffer, fields []field) {
	sep, open, end := ",", "{", "}"
	if h.indent {
		sep, open, end = ",\n  ", "{\n  ", "\n}"
	}
	buf.WriteString(open)
	for i, f := range fields {
		if i > 0 {
			buf.WriteString(sep)
		}
		buf.WriteString(strconv.Quote(f.key))
		buf.WriteByte(':')
		if h.indent {
			buf.WriteByte(' ')
		}
		b, err := json.Marshal(f.value)
		if err != nil {
			b = []byte(strconv.Quote(fmt.Sprint(f.value)))
		}
		buf.Write(b)
	}
	buf.WriteString(end)
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func appendAttr(fields []field, prefix string, a slog.Attr) []field {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			fields = appendAttr(fields, p, ga)
		}
		return fields
	}
	if a.Key == "" {
		return fields
	}
	return append(fields, field{prefix + a.Key, valueToAny(v)})
}

func valueToAny(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		a := v.Any()
		if s, ok := a.(fmt.Stringer); ok {
			if _, isErr := a.(error); !isErr {
				return s.String()
			}
		}
		if err, ok := a.(error); ok {
			return err.Error()
		}
		return a
	default:
		return v.String()
	}
}

func sourceFromPC(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	if f.File == "" {
		return ""
	}
	file := f.File
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[idx+1:]
	}
	return file + ":" + strconv.Itoa(f.Line)
}
