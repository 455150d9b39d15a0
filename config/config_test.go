package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fabfab/docprocessor/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("MAX_UPLOAD_SIZE", "")
	t.Setenv("ALLOWED_EXTENSIONS", "")
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("PAGE_CHARS", "")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Storage.Backend != config.BackendPostgres {
		t.Fatalf("expected postgres backend, got %q", cfg.Storage.Backend)
	}
	if cfg.HTTP.MaxUploadSize != 10*1024*1024 {
		t.Fatalf("expected 10MB upload limit, got %d", cfg.HTTP.MaxUploadSize)
	}
	if len(cfg.HTTP.AllowedExtensions) != 2 {
		t.Fatalf("expected two allowed extensions, got %v", cfg.HTTP.AllowedExtensions)
	}
	if cfg.Chunking.PageChars != 3000 || cfg.Chunking.Pages != 50 || cfg.Chunking.Paragraphs != 100 || cfg.Chunking.Tables != 10 {
		t.Fatalf("unexpected chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Chunking.Headers != 0 {
		t.Fatalf("expected headers chunk size 0 (all), got %d", cfg.Chunking.Headers)
	}
	if cfg.Neo4j.Enabled() || cfg.Archive.Enabled() || cfg.Embeddings.Enabled() {
		t.Fatal("expected optional integrations to be disabled by default")
	}
}

func TestLoadFileWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
http:
  addr: ":9090"
  allowed_extensions: ["DOCX"]
storage:
  backend: sqlite
  sqlite_path: /tmp/docs.db
chunking:
  paragraphs: 25
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("ALLOWED_EXTENSIONS", "")
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("PAGE_CHARS", "1200")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("expected env to override addr, got %q", cfg.HTTP.Addr)
	}
	if cfg.Storage.Backend != config.BackendSQLite || cfg.Storage.SQLitePath != "/tmp/docs.db" {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
	if got := cfg.HTTP.AllowedExtensions; len(got) != 1 || got[0] != ".docx" {
		t.Fatalf("expected normalised extension list, got %v", got)
	}
	if cfg.Chunking.Paragraphs != 25 || cfg.Chunking.PageChars != 1200 {
		t.Fatalf("unexpected chunking config: %+v", cfg.Chunking)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"STORAGE_BACKEND": "firestore"}},
		{name: "negative upload size", env: map[string]string{"STORAGE_BACKEND": "memory", "MAX_UPLOAD_SIZE": "-1"}},
		{name: "embeddings without dimension", env: map[string]string{"STORAGE_BACKEND": "postgres", "EMBEDDING_PROVIDER": "ollama", "EMBEDDING_DIMENSION": "0"}},
		{name: "embeddings on sqlite", env: map[string]string{"STORAGE_BACKEND": "sqlite", "EMBEDDING_PROVIDER": "ollama", "EMBEDDING_DIMENSION": "8"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MAX_UPLOAD_SIZE", "")
			t.Setenv("EMBEDDING_PROVIDER", "")
			t.Setenv("EMBEDDING_DIMENSION", "")
			for key, value := range tt.env {
				t.Setenv(key, value)
			}
			if _, err := config.Load(""); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadLogFile(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_MAX_SIZE_MB", "")
	t.Setenv("LOG_MAX_BACKUPS", "")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.File != "logs/app.log" || cfg.Log.MaxSizeMB != 10 || cfg.Log.MaxBackups != 5 {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}

	t.Setenv("LOG_FILE", "-")
	t.Setenv("LOG_MAX_BACKUPS", "2")
	cfg, err = config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.File != "" || cfg.Log.MaxBackups != 2 {
		t.Fatalf("expected file logging disabled, got %+v", cfg.Log)
	}
}
