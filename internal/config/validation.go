package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	// Validate ingest configuration
	if c.Ingest.BatchSize < 1 {
		errs = append(errs, &ValidationError{
			Field:   "ingest.batch_size",
			Message: fmt.Sprintf("batch_size must be at least 1, got %d", c.Ingest.BatchSize),
		})
	}

	if c.Ingest.MaxRetries < 1 {
		errs = append(errs, &ValidationError{
			Field:   "ingest.max_retries",
			Message: fmt.Sprintf("max_retries must be at least 1, got %d", c.Ingest.MaxRetries),
		})
	}

	if c.Ingest.RetryBackoffMS < 0 {
		errs = append(errs, &ValidationError{
			Field:   "ingest.retry_backoff_ms",
			Message: fmt.Sprintf("retry_backoff_ms cannot be negative, got %d", c.Ingest.RetryBackoffMS),
		})
	}

	// Validate embedding configuration
	validProviders := map[string]bool{
		"hash":   true,
		"ollama": true,
	}
	if !validProviders[c.Embedding.Provider] {
		errs = append(errs, &ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: hash, ollama", c.Embedding.Provider),
		})
	}

	if c.Embedding.Dim < 1 {
		errs = append(errs, &ValidationError{
			Field:   "embedding.dim",
			Message: fmt.Sprintf("dim must be at least 1, got %d", c.Embedding.Dim),
		})
	}

	if c.Embedding.Provider == "ollama" {
		if c.Embedding.OllamaBaseURL == "" {
			errs = append(errs, &ValidationError{
				Field:   "embedding.ollama_base_url",
				Message: "ollama_base_url is required when provider is ollama",
			})
		} else if u, err := url.Parse(c.Embedding.OllamaBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, &ValidationError{
				Field:   "embedding.ollama_base_url",
				Message: fmt.Sprintf("invalid URL: %s", c.Embedding.OllamaBaseURL),
			})
		}

		if c.Embedding.OllamaModel == "" {
			errs = append(errs, &ValidationError{
				Field:   "embedding.ollama_model",
				Message: "ollama_model is required when provider is ollama",
			})
		}
	}

	if c.Embedding.CacheSize < 0 {
		errs = append(errs, &ValidationError{
			Field:   "embedding.cache_size",
			Message: fmt.Sprintf("cache_size cannot be negative, got %d", c.Embedding.CacheSize),
		})
	}

	if c.Embedding.CacheTTLSeconds < 0 {
		errs = append(errs, &ValidationError{
			Field:   "embedding.cache_ttl_seconds",
			Message: fmt.Sprintf("cache_ttl_seconds cannot be negative, got %d", c.Embedding.CacheTTLSeconds),
		})
	}

	// Validate store configuration
	validBackends := map[string]bool{
		"sqlite": true,
		"memory": true,
	}
	if !validBackends[c.Store.Backend] {
		errs = append(errs, &ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: sqlite, memory", c.Store.Backend),
		})
	}

	if c.Store.Backend == "sqlite" && c.Store.SQLitePath == "" {
		errs = append(errs, &ValidationError{
			Field:   "store.sqlite_path",
			Message: "sqlite_path is required when backend is sqlite",
		})
	}

	if c.Store.EntryCollection == "" {
		errs = append(errs, &ValidationError{
			Field:   "store.entry_collection",
			Message: "entry_collection cannot be empty",
		})
	}

	if c.Store.EmbeddingCollection == "" {
		errs = append(errs, &ValidationError{
			Field:   "store.embedding_collection",
			Message: "embedding_collection cannot be empty",
		})
	}

	if c.Store.EntryCollection != "" && c.Store.EntryCollection == c.Store.EmbeddingCollection {
		errs = append(errs, &ValidationError{
			Field:   "store.embedding_collection",
			Message: "entry_collection and embedding_collection must differ",
		})
	}

	// Validate search configuration
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		errs = append(errs, &ValidationError{
			Field:   "search.alpha",
			Message: fmt.Sprintf("alpha must be between 0 and 1, got %g", c.Search.Alpha),
		})
	}

	if c.Search.DefaultLimit < 1 {
		errs = append(errs, &ValidationError{
			Field:   "search.default_limit",
			Message: fmt.Sprintf("default_limit must be at least 1, got %d", c.Search.DefaultLimit),
		})
	}

	if c.Search.SubSearchTimeoutMS < 0 {
		errs = append(errs, &ValidationError{
			Field:   "search.sub_search_timeout_ms",
			Message: fmt.Sprintf("sub_search_timeout_ms cannot be negative, got %d", c.Search.SubSearchTimeoutMS),
		})
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format '%s', must be one of: json, text", c.Logging.Format),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errs = append(errs, &ValidationError{
			Field:   "logging.max_size_mb",
			Message: fmt.Sprintf("max_size_mb cannot be negative, got %d", c.Logging.MaxSizeMB),
		})
	}

	return errs
}
