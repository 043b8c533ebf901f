package config

import "context"

// Package config provides configuration management for opslens-rag.
//
// Responsibilities:
//   - Load configuration from YAML files and environment variables
//   - Validate configuration on startup
//   - Provide runtime access to all configuration
//   - Support configuration reloading for tunable settings
//   - Establish reasonable defaults
//
// Configuration Sources (priority order, high to low):
//   1. Environment variables (OPSLENS_* prefix)
//   2. YAML config files (default: /etc/opslens/config.yaml)
//   3. Built-in defaults (lowest priority)
//
// Main Configuration Sections:
//
//   1. Ingest
//      - batch_size: Records per store write (default 100)
//      - max_retries: Batch write retry attempts
//      - retry_backoff_ms: Initial retry backoff
//
//   2. Embedding
//      - provider: "hash" | "ollama"
//      - dim: Vector dimensionality
//      - ollama_base_url: Ollama instance URL
//      - ollama_model: Embedding model name
//      - cache_size / cache_ttl_seconds: Encode memoization
//
//   3. Store
//      - backend: "sqlite" | "memory"
//      - sqlite_path: Path to SQLite file
//      - entry_collection / embedding_collection: Collection names
//
//   4. Search
//      - alpha: Vector weight in hybrid scoring
//      - default_limit: Results per search when unset
//      - sub_search_timeout_ms: Per-sub-search bound
//
//   5. Logging
//      - level: "debug" | "info" | "warn" | "error"
//      - format: "json" | "text"
//      - file / max_size_mb / max_backups / max_age_days: Rotation

// Config struct contains all configuration fields
type Config struct {
	// Ingest configuration
	Ingest struct {
		BatchSize      int
		MaxRetries     int
		RetryBackoffMS int
	}

	// Embedding configuration
	Embedding struct {
		Provider        string
		Dim             int
		OllamaBaseURL   string
		OllamaModel     string
		CacheSize       int
		CacheTTLSeconds int
	}

	// Store configuration
	Store struct {
		Backend             string
		SQLitePath          string
		EntryCollection     string
		EmbeddingCollection string
	}

	// Search configuration
	Search struct {
		Alpha              float64
		DefaultLimit       int
		SubSearchTimeoutMS int
	}

	// Logging configuration
	Logging struct {
		Level      string
		Format     string
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
}

// ConfigManager defines the interface for configuration access.
type ConfigManager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches for configuration changes and reloads (if supported).
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources.
	Reload(ctx context.Context) error
}

// NewConfigManager creates a new configuration manager.
func NewConfigManager(configPath string) (ConfigManager, error) {
	mgr := &viperConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
	return mgr, nil
}

// NewConfigManagerWithDefaults creates a config manager with default config path.
func NewConfigManagerWithDefaults() (ConfigManager, error) {
	return NewConfigManager("/etc/opslens/config.yaml")
}
