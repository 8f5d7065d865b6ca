/*
 * lc3-vm - slog.Handler wrapper for diagnostic logging.
 *
 * This is strictly a diagnostics channel (image loads, illegal
 * opcodes, terminal I/O failures). It never carries the bytes the VM is specified
 * to write to stdout/stdin (HALT's banner, PUTS/PUTSP/OUT output, IN's
 * prompt and echo) — those go straight to the Machine's configured
 * writer, untouched by this handler.
 */

package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler tees formatted log lines to an optional file and, above a
// configurable level, to stderr.
type Handler struct {
	out     io.Writer
	h       slog.Handler
	mu      *sync.Mutex
	verbose bool
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{out: h.out, h: h.h.WithAttrs(attrs), mu: h.mu, verbose: h.verbose}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{out: h.out, h: h.h.WithGroup(name), mu: h.mu, verbose: h.verbose}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	formattedTime := r.Time.Format("2006/01/02 15:04:05")

	strs := []string{formattedTime, level, r.Message}
	r.Attrs(func(a slog.Attr) bool {
		strs = append(strs, a.Key+"="+a.Value.String())
		return true
	})
	line := strings.Join(strs, " ") + "\n"
	b := []byte(line)

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.out != nil {
		_, err = h.out.Write(b)
	}
	if h.verbose || r.Level >= slog.LevelWarn {
		_, err = os.Stderr.Write(b)
	}
	return err
}

// New builds a *slog.Logger that writes to file (which may be nil) and
// mirrors warn-and-above (or everything, if verbose) to stderr.
func New(file io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})
	if file != nil {
		inner = slog.NewTextHandler(file, &slog.HandlerOptions{Level: level})
	}
	return slog.New(&Handler{
		out:     file,
		h:       inner,
		mu:      &sync.Mutex{},
		verbose: verbose,
	})
}
