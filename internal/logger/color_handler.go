package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
)

// ColorHandler renders records through slog.TextHandler and prefixes each
// line with an ANSI-colored level tag. Intended for interactive terminals
// only. The tag is written straight to the destination; slog.TextHandler
// quote-escapes control bytes placed inside a record.
type ColorHandler struct {
	sink *colorSink
	text slog.Handler
}

// colorSink is shared by a handler and its WithAttrs/WithGroup clones so
// rendered lines stay serialized on one writer.
type colorSink struct {
	mu  sync.Mutex
	dst io.Writer
	buf bytes.Buffer
}

func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	sink := &colorSink{dst: w}
	return &ColorHandler{sink: sink, text: slog.NewTextHandler(&sink.buf, opts)}
}

func (h *ColorHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.text.Enabled(ctx, l)
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorHandler{sink: h.sink, text: h.text.WithAttrs(attrs)}
}

func (h *ColorHandler) WithGroup(name string) slog.Handler {
	return &ColorHandler{sink: h.sink, text: h.text.WithGroup(name)}
}

func (h *ColorHandler) Handle(ctx context.Context, r slog.Record) error {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.buf.Reset()
	if err := h.text.Handle(ctx, r); err != nil {
		return err
	}
	line := append([]byte(levelColor(r.Level)+r.Level.String()+"\033[0m  "), h.sink.buf.Bytes()...)
	_, err := h.sink.dst.Write(line)
	return err
}

func levelColor(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "\033[31m" // red
	case l >= slog.LevelWarn:
		return "\033[33m" // yellow
	case l >= slog.LevelInfo:
		return "\033[32m" // green
	default:
		return "\033[36m" // cyan
	}
}
