package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test ingest defaults
	assert.Equal(t, 100, cfg.Ingest.BatchSize)
	assert.Equal(t, 3, cfg.Ingest.MaxRetries)
	assert.Equal(t, 100, cfg.Ingest.RetryBackoffMS)

	// Test embedding defaults
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 256, cfg.Embedding.Dim)
	assert.NotEmpty(t, cfg.Embedding.OllamaBaseURL)

	// Test store defaults
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.NotEmpty(t, cfg.Store.SQLitePath)
	assert.Equal(t, "log_entries", cfg.Store.EntryCollection)
	assert.Equal(t, "log_embeddings", cfg.Store.EmbeddingCollection)

	// Test search defaults
	assert.Equal(t, 0.5, cfg.Search.Alpha)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 2000, cfg.Search.SubSearchTimeoutMS)

	// Test logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		modifyFn  func(*Config)
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid default config",
			modifyFn:  func(cfg *Config) {},
			wantError: false,
		},
		{
			name: "zero batch size",
			modifyFn: func(cfg *Config) {
				cfg.Ingest.BatchSize = 0
			},
			wantError: true,
			errorMsg:  "batch_size must be at least 1",
		},
		{
			name: "invalid embedding provider",
			modifyFn: func(cfg *Config) {
				cfg.Embedding.Provider = "invalid"
			},
			wantError: true,
			errorMsg:  "invalid provider",
		},
		{
			name: "zero embedding dim",
			modifyFn: func(cfg *Config) {
				cfg.Embedding.Dim = 0
			},
			wantError: true,
			errorMsg:  "dim must be at least 1",
		},
		{
			name: "ollama provider without base url",
			modifyFn: func(cfg *Config) {
				cfg.Embedding.Provider = "ollama"
				cfg.Embedding.OllamaBaseURL = ""
			},
			wantError: true,
			errorMsg:  "ollama_base_url is required",
		},
		{
			name: "ollama provider with malformed url",
			modifyFn: func(cfg *Config) {
				cfg.Embedding.Provider = "ollama"
				cfg.Embedding.OllamaBaseURL = "not a url"
			},
			wantError: true,
			errorMsg:  "invalid URL",
		},
		{
			name: "invalid store backend",
			modifyFn: func(cfg *Config) {
				cfg.Store.Backend = "invalid"
			},
			wantError: true,
			errorMsg:  "invalid backend",
		},
		{
			name: "missing sqlite path",
			modifyFn: func(cfg *Config) {
				cfg.Store.Backend = "sqlite"
				cfg.Store.SQLitePath = ""
			},
			wantError: true,
			errorMsg:  "sqlite_path is required",
		},
		{
			name: "colliding collection names",
			modifyFn: func(cfg *Config) {
				cfg.Store.EntryCollection = "logs"
				cfg.Store.EmbeddingCollection = "logs"
			},
			wantError: true,
			errorMsg:  "must differ",
		},
		{
			name: "alpha above one",
			modifyFn: func(cfg *Config) {
				cfg.Search.Alpha = 1.5
			},
			wantError: true,
			errorMsg:  "alpha must be between 0 and 1",
		},
		{
			name: "negative alpha",
			modifyFn: func(cfg *Config) {
				cfg.Search.Alpha = -0.1
			},
			wantError: true,
			errorMsg:  "alpha must be between 0 and 1",
		},
		{
			name: "zero default limit",
			modifyFn: func(cfg *Config) {
				cfg.Search.DefaultLimit = 0
			},
			wantError: true,
			errorMsg:  "default_limit must be at least 1",
		},
		{
			name: "invalid log level",
			modifyFn: func(cfg *Config) {
				cfg.Logging.Level = "invalid"
			},
			wantError: true,
			errorMsg:  "invalid log level",
		},
		{
			name: "invalid log format",
			modifyFn: func(cfg *Config) {
				cfg.Logging.Format = "invalid"
			},
			wantError: true,
			errorMsg:  "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modifyFn(cfg)

			errs := cfg.Validate()

			if tt.wantError {
				assert.NotEmpty(t, errs, "expected validation errors but got none")
				found := false
				for _, err := range errs {
					if strings.Contains(err.Error(), tt.errorMsg) {
						found = true
						break
					}
				}
				assert.True(t, found, "expected error message containing '%s', got: %v", tt.errorMsg, errs)
			} else {
				assert.Empty(t, errs, "expected no validation errors but got: %v", errs)
			}
		})
	}
}

func TestConfigManagerLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
ingest:
  batch_size: 250

embedding:
  provider: "ollama"
  dim: 768
  ollama_model: "mxbai-embed-large"

store:
  backend: "memory"

search:
  alpha: 0.7
  default_limit: 20

logging:
  level: "debug"
  format: "text"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	cfg := mgr.Get(ctx)
	require.NotNil(t, cfg)

	assert.Equal(t, 250, cfg.Ingest.BatchSize)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 768, cfg.Embedding.Dim)
	assert.Equal(t, "mxbai-embed-large", cfg.Embedding.OllamaModel)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 0.7, cfg.Search.Alpha)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	// Unset sections keep their defaults.
	assert.Equal(t, 3, cfg.Ingest.MaxRetries)
	assert.Equal(t, "log_entries", cfg.Store.EntryCollection)
}

func TestConfigManagerEnvironmentOverrides(t *testing.T) {
	os.Setenv("OLLAMA_BASE_URL", "http://ollama.internal:11434")
	os.Setenv("OPSLENS_SQLITE_PATH", "/data/override.db")
	defer func() {
		os.Unsetenv("OLLAMA_BASE_URL")
		os.Unsetenv("OPSLENS_SQLITE_PATH")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
embedding:
  ollama_base_url: "http://localhost:11434"

store:
  sqlite_path: "/var/lib/opslens/file.db"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	cfg := mgr.Get(ctx)
	assert.Equal(t, "http://ollama.internal:11434", cfg.Embedding.OllamaBaseURL,
		"base URL should be overridden by environment variable")
	assert.Equal(t, "/data/override.db", cfg.Store.SQLitePath,
		"sqlite path should be overridden by environment variable")
}

func TestConfigManagerMissingFile(t *testing.T) {
	configPath := "/tmp/nonexistent-config.yaml"

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	// Should not error - should use defaults
	require.NoError(t, err)

	cfg := mgr.Get(ctx)
	assert.NotNil(t, cfg)
	assert.Equal(t, 100, cfg.Ingest.BatchSize)
}

func TestConfigManagerValidation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
ingest:
  batch_size: 0

embedding:
  provider: "invalid-provider"

search:
  alpha: 2.0
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	err = mgr.Validate(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}
