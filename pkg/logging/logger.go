// Package logging sets up the structured server, request and flight event logs.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"skyvario/pkg/config"
)

// RequestLogger is the logger instance for HTTP requests.
var RequestLogger = slog.New(slog.DiscardHandler)

var levels = map[string]slog.Level{
	"TRACE": LevelTrace,
	"DEBUG": slog.LevelDebug,
	"INFO":  slog.LevelInfo,
	"WARN":  slog.LevelWarn,
	"ERROR": slog.LevelError,
}

// ParseLevel maps a config level name to a slog level. Unknown names mean INFO.
func ParseLevel(name string) slog.Level {
	if l, ok := levels[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return l
	}
	return slog.LevelInfo
}

// Init rotates the previous run's logs, installs the default logger and opens
// the request and event logs. The returned func closes the files.
func Init(cfg *config.LogConfig) (func(), error) {
	for _, p := range []string{cfg.Server.Path, cfg.Requests.Path, cfg.Events.Path} {
		rotate(p)
	}
	SetTrace(cfg.Trace)
	SetEventLogPath(cfg.Events.Path)

	serverLevel := ParseLevel(cfg.Server.Level)
	if cfg.Trace {
		serverLevel = LevelTrace
	}
	serverFile, err := openLog(cfg.Server.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to setup server logger: %w", err)
	}
	requestFile, err := openLog(cfg.Requests.Path)
	if err != nil {
		serverFile.Close()
		return nil, fmt.Errorf("failed to setup requests logger: %w", err)
	}

	slog.SetDefault(slog.New(serverHandler(serverFile, serverLevel)))
	RequestLogger = slog.New(textHandler(requestFile, ParseLevel(cfg.Requests.Level)))

	return func() {
		RequestLogger = slog.New(slog.DiscardHandler)
		if err := errors.Join(serverFile.Close(), requestFile.Close()); err != nil {
			fmt.Fprintln(os.Stderr, "closing logs:", err)
		}
	}, nil
}

// serverHandler writes everything at level to w, and INFO and above to stdout
// and the Console capture.
func serverHandler(w io.Writer, level slog.Level) slog.Handler {
	return &fanoutHandler{handlers: []slog.Handler{
		textHandler(w, level),
		textHandler(os.Stdout, max(level, slog.LevelInfo)),
		textHandler(Console, slog.LevelInfo),
	}}
}

func textHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		AddSource:   level <= slog.LevelDebug,
		ReplaceAttr: renameTrace,
	})
}

func renameTrace(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if l, ok := a.Value.Any().(slog.Level); ok && l <= LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

type fanoutHandler struct {
	handlers []slog.Handler
}

func (m *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler
// nolint:gocritic // r must be passed by value to implement slog.Handler
func (m *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (m *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *fanoutHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *fanoutHandler) each(f func(slog.Handler) slog.Handler) slog.Handler {
	out := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		out[i] = f(h)
	}
	return &fanoutHandler{handlers: out}
}

// rotate keeps exactly one previous run as <path>.old.
func rotate(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = os.Remove(path + ".old")
	_ = os.Rename(path, path+".old")
}

// Event is one line of the flight journal.
type Event struct {
	Time    time.Time
	Type    string // "session", "message", "milestone", "export"
	Title   string
	Summary string
}

func (e *Event) String() string {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("[%s] [%s] %s", ts.Format("2006-01-02 15:04:05"), e.Type, e.Title)
	if e.Summary != "" {
		line += " - " + e.Summary
	}
	return line
}

var journal struct {
	mu   sync.Mutex
	path string
}

// SetEventLogPath configures the flight journal file. Empty disables the file;
// events still reach the Journal capture.
func SetEventLogPath(path string) {
	journal.mu.Lock()
	defer journal.mu.Unlock()
	journal.path = path
}

// LogEvent appends a flight event to the journal.
func LogEvent(event *Event) {
	line := event.String()
	_, _ = Journal.Write([]byte(line))

	journal.mu.Lock()
	defer journal.mu.Unlock()
	if journal.path == "" {
		return
	}
	f, err := os.OpenFile(journal.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("failed to open event log", "error", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		slog.Error("failed to write event log", "error", err)
	}
}
