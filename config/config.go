// Package config loads service settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

type Config struct {
	HTTP       HTTPConfig      `yaml:"http"`
	Log        LogConfig       `yaml:"log"`
	Storage    StorageConfig   `yaml:"storage"`
	Neo4j      Neo4jConfig     `yaml:"neo4j"`
	Archive    ArchiveConfig   `yaml:"archive"`
	Embeddings EmbeddingConfig `yaml:"embeddings"`
	Chunking   ChunkingConfig  `yaml:"chunking"`
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	APIPrefix         string   `yaml:"api_prefix"`
	MaxUploadSize     int64    `yaml:"max_upload_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	CORSOrigins       []string `yaml:"cors_origins"`
}

// LogConfig controls log output. File "-" turns the rotating log file off.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	PostgresDSN string `yaml:"postgres_dsn"`
	SQLitePath  string `yaml:"sqlite_path"`
}

// Neo4jConfig is disabled when URI is empty.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func (c Neo4jConfig) Enabled() bool { return c.URI != "" }

// ArchiveConfig points at a MinIO/S3 bucket for the original uploads.
// It is disabled when Endpoint is empty.
type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func (c ArchiveConfig) Enabled() bool { return c.Endpoint != "" }

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`

	OllamaHost    string `yaml:"ollama_host"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
}

func (c EmbeddingConfig) Enabled() bool { return c.Provider != "" }

// ChunkingConfig holds the simulated page threshold and per content type chunk sizes.
// Headers of 0 keeps all headers in a single chunk.
type ChunkingConfig struct {
	PageChars  int `yaml:"page_chars"`
	Pages      int `yaml:"pages"`
	Paragraphs int `yaml:"paragraphs"`
	Headers    int `yaml:"headers"`
	Tables     int `yaml:"tables"`
}

// Load reads path (if non-empty), applies environment overrides and fills defaults.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.MaxUploadSize = int64(getEnvInt("MAX_UPLOAD_SIZE", int(c.HTTP.MaxUploadSize)))
	c.HTTP.AllowedExtensions = getEnvList("ALLOWED_EXTENSIONS", c.HTTP.AllowedExtensions)
	c.HTTP.CORSOrigins = getEnvList("CORS_ORIGINS", c.HTTP.CORSOrigins)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.Log.MaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", c.Log.MaxSizeMB)
	c.Log.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.Log.MaxBackups)

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.PostgresDSN = getEnv("POSTGRES_DSN", c.Storage.PostgresDSN)
	c.Storage.SQLitePath = getEnv("SQLITE_PATH", c.Storage.SQLitePath)

	c.Neo4j.URI = getEnv("NEO4J_URI", c.Neo4j.URI)
	c.Neo4j.Username = getEnv("NEO4J_USERNAME", c.Neo4j.Username)
	c.Neo4j.Password = getEnv("NEO4J_PASSWORD", c.Neo4j.Password)

	c.Archive.Endpoint = getEnv("MINIO_ENDPOINT", c.Archive.Endpoint)
	c.Archive.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Archive.AccessKey)
	c.Archive.SecretKey = getEnv("MINIO_SECRET_KEY", c.Archive.SecretKey)
	c.Archive.Bucket = getEnv("MINIO_BUCKET", c.Archive.Bucket)
	c.Archive.UseSSL = getEnvBool("MINIO_USE_SSL", c.Archive.UseSSL)

	c.Embeddings.Provider = strings.ToLower(getEnv("EMBEDDING_PROVIDER", c.Embeddings.Provider))
	c.Embeddings.Model = getEnv("EMBEDDING_MODEL", c.Embeddings.Model)
	c.Embeddings.Dimension = getEnvInt("EMBEDDING_DIMENSION", c.Embeddings.Dimension)
	c.Embeddings.OllamaHost = getEnv("OLLAMA_HOST", c.Embeddings.OllamaHost)
	c.Embeddings.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.Embeddings.OpenAIAPIKey)
	c.Embeddings.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.Embeddings.OpenAIBaseURL)

	c.Chunking.PageChars = getEnvInt("PAGE_CHARS", c.Chunking.PageChars)
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8000"
	}
	if c.HTTP.APIPrefix == "" {
		c.HTTP.APIPrefix = "/api"
	}
	if c.HTTP.MaxUploadSize == 0 {
		c.HTTP.MaxUploadSize = 10 * 1024 * 1024
	}
	if len(c.HTTP.AllowedExtensions) == 0 {
		c.HTTP.AllowedExtensions = []string{".docx", ".pdf"}
	}
	for i, ext := range c.HTTP.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.HTTP.AllowedExtensions[i] = ext
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{"*"}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	switch c.Log.File {
	case "":
		c.Log.File = "logs/app.log"
	case "-":
		c.Log.File = ""
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 5
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendPostgres
	}
	if c.Storage.PostgresDSN == "" {
		c.Storage.PostgresDSN = "postgres://localhost:5432/docprocessor?sslmode=disable"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/documents.db"
	}

	if c.Neo4j.Username == "" {
		c.Neo4j.Username = "neo4j"
	}
	if c.Archive.Bucket == "" {
		c.Archive.Bucket = "processed-documents"
	}

	if c.Embeddings.Enabled() {
		if c.Embeddings.Model == "" {
			switch c.Embeddings.Provider {
			case ProviderOpenAI:
				c.Embeddings.Model = "text-embedding-3-small"
			default:
				c.Embeddings.Model = "nomic-embed-text"
			}
		}
		if c.Embeddings.OllamaHost == "" {
			c.Embeddings.OllamaHost = "http://localhost:11434"
		}
	}

	if c.Chunking.PageChars <= 0 {
		c.Chunking.PageChars = 3000
	}
	if c.Chunking.Pages <= 0 {
		c.Chunking.Pages = 50
	}
	if c.Chunking.Paragraphs <= 0 {
		c.Chunking.Paragraphs = 100
	}
	if c.Chunking.Tables <= 0 {
		c.Chunking.Tables = 10
	}
}

// Validate reports settings that cannot be used to start the service.
func (c Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case BackendPostgres, BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend: %q", c.Storage.Backend))
	}

	if c.HTTP.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("max upload size must be positive, got %d", c.HTTP.MaxUploadSize))
	}

	if c.Embeddings.Enabled() {
		switch c.Embeddings.Provider {
		case ProviderOllama, ProviderOpenAI:
		default:
			errs = append(errs, fmt.Errorf("unknown embedding provider: %q", c.Embeddings.Provider))
		}
		if c.Embeddings.Dimension <= 0 {
			errs = append(errs, fmt.Errorf("embedding dimension must be positive when embeddings are enabled"))
		}
		if c.Storage.Backend != BackendPostgres {
			errs = append(errs, fmt.Errorf("embeddings require the %s storage backend", BackendPostgres))
		}
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
