package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/fs"
)

// ClearLogName is the debug log of background clear units.
const ClearLogName = "bwx-clear.log"

// bwxHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<unit>\t<message>\t<key=value ...>
//
// unit is "main" for the foreground command and the clear id for units.
type bwxHandler struct {
	w     io.Writer
	unit  string
	level slog.Level
	attrs []slog.Attr
}

func (h *bwxHandler) Enabled(_ context.Context, level slog.Level) bool { return level >= h.level }

func (h *bwxHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")
	level := r.Level.String()

	_, err := fmt.Fprintf(h.w, "%s\t%s\t%s\t%s", ts, level, h.unit, r.Message)
	if err != nil {
		return err
	}

	for _, a := range h.attrs {
		fmt.Fprintf(h.w, "\t%s=%v", a.Key, a.Value)
	}

	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.w, "\t%s=%v", a.Key, a.Value)
		return true
	})

	_, err = fmt.Fprintln(h.w)
	return err
}

func (h *bwxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &bwxHandler{
		w:     h.w,
		unit:  h.unit,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *bwxHandler) WithGroup(string) slog.Handler { return h }

// NewLogger returns the foreground logger: warnings and errors on stderr,
// everything when debug is set.
func NewLogger(debug bool) bwx.Logger {
	return newLogger(os.Stderr, "main", debug)
}

func newLogger(w io.Writer, unit string, debug bool) bwx.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return &slogAdapter{l: slog.New(&bwxHandler{w: w, unit: unit, level: level})}
}

// newUnitLogger returns the logger of a background clear unit. Units have no
// terminal, so they log to transientDir/bwx-clear.log in debug mode and
// nowhere otherwise. The returned file is nil when nothing was opened.
func newUnitLogger(transientDir, unitID string, debug bool) (bwx.Logger, *os.File, error) {
	if !debug {
		return bwx.NewNopLogger(), nil, nil
	}

	logPath := filepath.Join(transientDir, ClearLogName)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fs.PrivateFileMode)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return newLogger(f, unitID, true), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the bwx.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }

func (a *slogAdapter) With(args ...any) bwx.Logger { return &slogAdapter{l: a.l.With(args...)} }
