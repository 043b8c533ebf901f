package config

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Ingest defaults
	cfg.Ingest.BatchSize = 100
	cfg.Ingest.MaxRetries = 3
	cfg.Ingest.RetryBackoffMS = 100

	// Embedding defaults
	cfg.Embedding.Provider = "hash"
	cfg.Embedding.Dim = 256
	cfg.Embedding.OllamaBaseURL = "http://localhost:11434"
	cfg.Embedding.OllamaModel = "nomic-embed-text"
	cfg.Embedding.CacheSize = 4096
	cfg.Embedding.CacheTTLSeconds = 3600

	// Store defaults
	cfg.Store.Backend = "sqlite"
	cfg.Store.SQLitePath = "/var/lib/opslens/opslens-rag.db"
	cfg.Store.EntryCollection = "log_entries"
	cfg.Store.EmbeddingCollection = "log_embeddings"

	// Search defaults
	cfg.Search.Alpha = 0.5
	cfg.Search.DefaultLimit = 10
	cfg.Search.SubSearchTimeoutMS = 2000

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.File = ""
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxBackups = 5
	cfg.Logging.MaxAgeDays = 30

	return cfg
}
