package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fabfab/docprocessor/logging"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range tests {
		if got := logging.ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "warn", Format: "json"}, &buf)

	logger.Info("dropped")
	logger.Warn("kept", "document_id", "abc")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected json log line: %v", err)
	}
	if entry["msg"] != "kept" || entry["document_id"] != "abc" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := logging.New(logging.Config{Level: "debug", Format: "text"}, &buf)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	logging.WithRequestID(ctx, base).Info("hello")

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Fatalf("expected request id in output, got %q", buf.String())
	}
}

func TestWriterTeesIntoRotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "app.log")

	var stdout bytes.Buffer
	w, closer := logging.Writer(logging.Config{File: path, MaxSizeMB: 1, MaxBackups: 2}, &stdout)
	logging.New(logging.Config{Level: "info"}, w).Info("document processed", "document_id", "doc-9")

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 2; i++ {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if !strings.Contains(stdout.String(), "document_id=doc-9") {
		t.Fatalf("expected stdout copy, got %q", stdout.String()[:min(200, stdout.Len())])
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read log dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected current file plus one backup, got %d entries", len(entries))
	}
	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read current log: %v", err)
	}
	if len(current) != len(chunk) {
		t.Fatalf("expected rotated file to hold the last write, got %d bytes", len(current))
	}
}

func TestWriterWithoutFile(t *testing.T) {
	var stdout bytes.Buffer
	w, closer := logging.Writer(logging.Config{}, &stdout)
	if w != &stdout {
		t.Fatal("expected stdout writer when no file is configured")
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
