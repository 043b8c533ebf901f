package main

// Package main is the entry point for the opslens-rag process.
//
// Responsibilities:
//   - Load and validate configuration from YAML and environment variables
//   - Build the application logger (zap, optional rotation)
//   - Open the configured store backend (SQLite or in-memory)
//   - Build the embedding encoder (hash or Ollama, cache-wrapped)
//   - Ensure both collections exist before any work
//   - Ingest the log files named on the command line
//   - Run an ad-hoc hybrid query when -query is given
//   - Implement graceful shutdown with context cancellation
//
// Pipeline Flow:
//   1. Raw log lines → Parser (structured fields)
//   2. Parsed entries → Enrichment (summary, category, severity)
//   3. Enriched records → dual collections (entries + embeddings)
//   4. Hybrid search merges vector and keyword sub-searches into one
//      ranked evidence list
//
// Graceful Shutdown:
//   - Cancels in-flight ingestion batches
//   - Flushes the logger
//   - Closes the store

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/opslens/opslens-rag/internal/config"
	"github.com/opslens/opslens-rag/internal/embedding"
	"github.com/opslens/opslens-rag/internal/enrich"
	"github.com/opslens/opslens-rag/internal/indexer"
	"github.com/opslens/opslens-rag/internal/logging"
	"github.com/opslens/opslens-rag/internal/parser"
	"github.com/opslens/opslens-rag/internal/search"
	"github.com/opslens/opslens-rag/internal/store"
	"github.com/opslens/opslens-rag/internal/store/memory"
	"github.com/opslens/opslens-rag/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "/etc/opslens/config.yaml", "path to YAML config file")
	query := flag.String("query", "", "ad-hoc hybrid query to run after ingestion")
	limit := flag.Int("limit", 0, "result limit for -query (0 uses the configured default)")
	flag.Parse()

	if err := run(*configPath, *query, *limit, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "opslens-rag: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, query string, limit int, files []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, err := config.NewConfigManager(configPath)
	if err != nil {
		return fmt.Errorf("create config manager: %w", err)
	}
	if err := mgr.Load(ctx); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := mgr.Validate(ctx); err != nil {
		return err
	}
	cfg := mgr.Get(ctx)

	logger, err := logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		Compress:   true,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	vs, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer vs.Close()

	encoder := buildEncoder(cfg)

	searcher := search.New(vs, encoder, search.Config{
		EntryCollection:     cfg.Store.EntryCollection,
		EmbeddingCollection: cfg.Store.EmbeddingCollection,
		Alpha:               &cfg.Search.Alpha,
		SubSearchTimeout:    time.Duration(cfg.Search.SubSearchTimeoutMS) * time.Millisecond,
	}, logger)

	if err := searcher.EnsureSchema(ctx); err != nil {
		return err
	}

	for _, file := range files {
		if err := ingestFile(ctx, cfg, encoder, vs, logger, file); err != nil {
			return err
		}
	}

	if query != "" {
		if limit <= 0 {
			limit = cfg.Search.DefaultLimit
		}
		if err := runQuery(ctx, searcher, query, limit); err != nil {
			return err
		}
	}

	if len(files) == 0 && query == "" {
		logger.Info("nothing to do: no files and no query given")
	}
	return nil
}

func openStore(cfg *config.Config) (store.VectorStore, error) {
	switch cfg.Store.Backend {
	case "memory":
		return memory.New(), nil
	default:
		return sqlite.Open(cfg.Store.SQLitePath)
	}
}

func buildEncoder(cfg *config.Config) embedding.Encoder {
	var enc embedding.Encoder
	switch cfg.Embedding.Provider {
	case "ollama":
		enc = embedding.NewOllamaEncoder(cfg.Embedding.OllamaBaseURL, cfg.Embedding.OllamaModel, cfg.Embedding.Dim, 0)
	default:
		enc = embedding.NewHashEncoder(cfg.Embedding.Dim)
	}
	if cfg.Embedding.CacheSize > 0 {
		enc = embedding.NewCachedEncoder(enc, cfg.Embedding.CacheSize,
			time.Duration(cfg.Embedding.CacheTTLSeconds)*time.Second)
	}
	return enc
}

func ingestFile(ctx context.Context, cfg *config.Config, enc embedding.Encoder, vs store.VectorStore, logger *zap.Logger, file string) error {
	retry := indexer.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.Ingest.MaxRetries
	retry.InitialBackoff = time.Duration(cfg.Ingest.RetryBackoffMS) * time.Millisecond

	ix := indexer.New(parser.New(), enrich.New(), enc, vs, indexer.Config{
		BatchSize:           cfg.Ingest.BatchSize,
		EntryCollection:     cfg.Store.EntryCollection,
		EmbeddingCollection: cfg.Store.EmbeddingCollection,
		Retry:               retry,
		Source:              file,
	}, logger)

	stats, err := ix.IndexFile(ctx, file)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", file, err)
	}
	logger.Info("ingestion finished",
		zap.String("file", file),
		zap.Int("parsed", stats.LinesParsed),
		zap.Int("skipped", stats.LinesSkipped),
		zap.Int("batches_failed", stats.BatchesFailed))
	return nil
}

func runQuery(ctx context.Context, searcher *search.Service, query string, limit int) error {
	res, err := searcher.HybridSearch(ctx, query, search.Options{Limit: limit})
	if err != nil {
		return fmt.Errorf("hybrid search: %w", err)
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	for _, item := range res.Items {
		if err := out.Encode(map[string]any{
			"id":          item.Record.ID,
			"timestamp":   item.Record.Timestamp,
			"service":     item.Record.ServiceName,
			"level":       item.Record.Level,
			"summary":     item.Record.Summary,
			"category":    item.Record.Category,
			"severity":    item.Record.SeverityScore,
			"final_score": item.FinalScore,
		}); err != nil {
			return err
		}
	}
	return nil
}
