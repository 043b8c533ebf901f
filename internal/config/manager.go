package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// viperConfigManager implements ConfigManager using Viper.
type viperConfigManager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

// Load loads configuration from all sources.
func (m *viperConfigManager) Load(ctx context.Context) error {
	m.viper = viper.New()

	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	m.viper.SetEnvPrefix("OPSLENS")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	// Config file is optional: defaults plus env vars are a complete
	// configuration on their own.
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// use defaults
		} else if os.IsNotExist(err) {
			// use defaults
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.applyEnvOverrides()

	return nil
}

// Get returns the current configuration.
func (m *viperConfigManager) Get(ctx context.Context) *Config {
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperConfigManager) Validate(ctx context.Context) error {
	errs := m.config.Validate()
	if len(errs) > 0 {
		var errMsgs []string
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
	}
	return nil
}

// Watch watches for configuration changes and reloads.
func (m *viperConfigManager) Watch(ctx context.Context) <-chan Config {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		if err := m.unmarshalConfig(); err != nil {
			return
		}
		select {
		case m.watchChan <- *m.config:
		default:
			// Channel full, skip this update
		}
	})

	return m.watchChan
}

// Reload reloads configuration from sources.
func (m *viperConfigManager) Reload(ctx context.Context) error {
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.applyEnvOverrides()

	return nil
}

// setDefaults sets default values in viper.
func (m *viperConfigManager) setDefaults() {
	defaults := DefaultConfig()

	// Ingest defaults
	m.viper.SetDefault("ingest.batch_size", defaults.Ingest.BatchSize)
	m.viper.SetDefault("ingest.max_retries", defaults.Ingest.MaxRetries)
	m.viper.SetDefault("ingest.retry_backoff_ms", defaults.Ingest.RetryBackoffMS)

	// Embedding defaults
	m.viper.SetDefault("embedding.provider", defaults.Embedding.Provider)
	m.viper.SetDefault("embedding.dim", defaults.Embedding.Dim)
	m.viper.SetDefault("embedding.ollama_base_url", defaults.Embedding.OllamaBaseURL)
	m.viper.SetDefault("embedding.ollama_model", defaults.Embedding.OllamaModel)
	m.viper.SetDefault("embedding.cache_size", defaults.Embedding.CacheSize)
	m.viper.SetDefault("embedding.cache_ttl_seconds", defaults.Embedding.CacheTTLSeconds)

	// Store defaults
	m.viper.SetDefault("store.backend", defaults.Store.Backend)
	m.viper.SetDefault("store.sqlite_path", defaults.Store.SQLitePath)
	m.viper.SetDefault("store.entry_collection", defaults.Store.EntryCollection)
	m.viper.SetDefault("store.embedding_collection", defaults.Store.EmbeddingCollection)

	// Search defaults
	m.viper.SetDefault("search.alpha", defaults.Search.Alpha)
	m.viper.SetDefault("search.default_limit", defaults.Search.DefaultLimit)
	m.viper.SetDefault("search.sub_search_timeout_ms", defaults.Search.SubSearchTimeoutMS)

	// Logging defaults
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
	m.viper.SetDefault("logging.file", defaults.Logging.File)
	m.viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	m.viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	m.viper.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)
}

// unmarshalConfig unmarshals viper config into Config struct.
func (m *viperConfigManager) unmarshalConfig() error {
	cfg := &Config{}

	// Ingest
	cfg.Ingest.BatchSize = m.viper.GetInt("ingest.batch_size")
	cfg.Ingest.MaxRetries = m.viper.GetInt("ingest.max_retries")
	cfg.Ingest.RetryBackoffMS = m.viper.GetInt("ingest.retry_backoff_ms")

	// Embedding
	cfg.Embedding.Provider = m.viper.GetString("embedding.provider")
	cfg.Embedding.Dim = m.viper.GetInt("embedding.dim")
	cfg.Embedding.OllamaBaseURL = m.viper.GetString("embedding.ollama_base_url")
	cfg.Embedding.OllamaModel = m.viper.GetString("embedding.ollama_model")
	cfg.Embedding.CacheSize = m.viper.GetInt("embedding.cache_size")
	cfg.Embedding.CacheTTLSeconds = m.viper.GetInt("embedding.cache_ttl_seconds")

	// Store
	cfg.Store.Backend = m.viper.GetString("store.backend")
	cfg.Store.SQLitePath = m.viper.GetString("store.sqlite_path")
	cfg.Store.EntryCollection = m.viper.GetString("store.entry_collection")
	cfg.Store.EmbeddingCollection = m.viper.GetString("store.embedding_collection")

	// Search
	cfg.Search.Alpha = m.viper.GetFloat64("search.alpha")
	cfg.Search.DefaultLimit = m.viper.GetInt("search.default_limit")
	cfg.Search.SubSearchTimeoutMS = m.viper.GetInt("search.sub_search_timeout_ms")

	// Logging
	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.Format = m.viper.GetString("logging.format")
	cfg.Logging.File = m.viper.GetString("logging.file")
	cfg.Logging.MaxSizeMB = m.viper.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = m.viper.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = m.viper.GetInt("logging.max_age_days")

	m.config = cfg
	return nil
}

// applyEnvOverrides applies environment variable overrides for settings
// that commonly come from the deployment environment rather than the file.
func (m *viperConfigManager) applyEnvOverrides() {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		m.config.Embedding.OllamaBaseURL = baseURL
	}

	if path := os.Getenv("OPSLENS_SQLITE_PATH"); path != "" {
		m.config.Store.SQLitePath = path
	}
}
