package logging

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"skyvario/pkg/config"
)

func TestInit(t *testing.T) {
	tempDir := t.TempDir()
	serverLog := filepath.Join(tempDir, "server.log")
	requestLog := filepath.Join(tempDir, "requests.log")
	eventLog := filepath.Join(tempDir, "events.log")

	// a previous run's log is rotated away
	if err := os.WriteFile(serverLog, []byte("old run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.LogConfig{
		Server:   config.LogSettings{Path: serverLog, Level: "DEBUG"},
		Requests: config.LogSettings{Path: requestLog, Level: "INFO"},
		Events:   config.LogSettings{Path: eventLog},
	}

	prev := slog.Default()
	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() {
		cleanup()
		slog.SetDefault(prev)
		SetEventLogPath("")
	}()

	if _, err := os.Stat(requestLog); os.IsNotExist(err) {
		t.Error("Request log file not created")
	}
	if data, _ := os.ReadFile(serverLog + ".old"); string(data) != "old run\n" {
		t.Errorf("expected rotated log, got %q", data)
	}

	slog.Info("vario ready", "alpha", 0.2)
	if line := Console.Last(); !strings.Contains(line, "vario ready") {
		t.Errorf("console capture missed the log line: %q", line)
	}
	slog.Debug("baro sample")
	if strings.Contains(Console.Last(), "baro sample") {
		t.Error("console capture should skip DEBUG")
	}

	data, err := os.ReadFile(serverLog)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "baro sample") {
		t.Error("server log file should hold DEBUG lines")
	}
}

func TestLogEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	SetEventLogPath(path)
	defer SetEventLogPath("")

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	LogEvent(&Event{Time: ts, Type: "session", Title: "Flight started"})
	LogEvent(&Event{Time: ts, Type: "message", Title: "GPS Error", Summary: "timeout"})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read event log: %v", err)
	}
	want := "[2024-06-01 12:00:00] [session] Flight started\n" +
		"[2024-06-01 12:00:00] [message] GPS Error - timeout\n"
	if string(data) != want {
		t.Errorf("event log = %q, want %q", data, want)
	}
	if got := Journal.Last(); got != "[2024-06-01 12:00:00] [message] GPS Error - timeout" {
		t.Errorf("journal capture = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{" trace ", LevelTrace},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.name); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(textHandler(&buf, LevelTrace))
	defer SetTrace(false)

	Trace(logger, "quiet")
	if buf.Len() != 0 {
		t.Fatalf("trace off but got %q", buf.String())
	}

	SetTrace(true)
	Trace(logger, "pressure", "hpa", 1013.2)
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("expected TRACE level label, got %q", buf.String())
	}
}

func TestCapture(t *testing.T) {
	c := NewCapture(3)
	if c.Last() != "" {
		t.Error("empty capture should have no last line")
	}
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(c, "line %d\n", i)
	}
	got := c.Recent(10)
	want := []string{"line 3", "line 4", "line 5"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Recent = %v, want %v", got, want)
	}
	if c.Last() != "line 5" {
		t.Errorf("Last = %q", c.Last())
	}
	if r := c.Recent(1); len(r) != 1 || r[0] != "line 5" {
		t.Errorf("Recent(1) = %v", r)
	}
}
