package indexer

// Package indexer drives raw log lines through parse → enrich → dual
// collection batch writes.
//
// Responsibilities:
//   - Read lines sequentially from a reader or file, preserving per-source
//     order
//   - Soft-skip (count, never fail on) unparseable lines
//   - Pair every parsed line's structured entry with one enriched record
//     under a unique entry ID
//   - Buffer fixed-size batches and write them to the two collections,
//     retrying with backoff; a batch that exhausts its retries is recorded
//     as failed and the run continues
//   - Report run statistics so a caller can decide to re-run ingestion
//     (writes are append-only, so re-runs are safe)
//
// Each Indexer instance owns one source; independent instances may run
// concurrently against a shared store with no coordination.

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opslens/opslens-rag/internal/embedding"
	"github.com/opslens/opslens-rag/internal/enrich"
	"github.com/opslens/opslens-rag/internal/metrics"
	"github.com/opslens/opslens-rag/internal/models"
	"github.com/opslens/opslens-rag/internal/parser"
	"github.com/opslens/opslens-rag/internal/store"
)

// Host fields are defaulted when the line format carries none.
const (
	defaultHostIP   = "0.0.0.0"
	defaultHostName = "unknown"
)

// maxLineBytes bounds a single scanned line.
const maxLineBytes = 1 << 20

// Stats summarizes one ingestion run.
type Stats struct {
	LinesSeen        int
	LinesParsed      int
	LinesSkipped     int
	BatchesAttempted int
	BatchesFailed    int
	EncodeFailures   int
	Degraded         int
	Elapsed          time.Duration
}

// Config carries the indexer's tunables.
type Config struct {
	BatchSize           int
	EntryCollection     string
	EmbeddingCollection string
	Retry               RetryPolicy

	// Source labels log output and metrics; typically the file name.
	Source string
}

// Indexer is one ingestion pipeline instance. Dependencies are passed in
// explicitly; there is no package-level state.
type Indexer struct {
	parser    *parser.Parser
	processor *enrich.Processor
	encoder   embedding.Encoder
	store     store.VectorStore
	cfg       Config
	log       *zap.Logger
}

// New constructs an Indexer. Zero config fields get working defaults.
func New(p *parser.Parser, proc *enrich.Processor, enc embedding.Encoder, vs store.VectorStore, cfg Config, log *zap.Logger) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.EntryCollection == "" {
		cfg.EntryCollection = "log_entries"
	}
	if cfg.EmbeddingCollection == "" {
		cfg.EmbeddingCollection = "log_embeddings"
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Source == "" {
		cfg.Source = "stream"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{
		parser:    p,
		processor: proc,
		encoder:   enc,
		store:     vs,
		cfg:       cfg,
		log:       log.With(zap.String("source", cfg.Source)),
	}
}

// IndexFile ingests one file.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ix.IndexReader(ctx, f)
}

// batch holds the paired records accumulated for one flush.
type batch struct {
	entries    []models.LogEntry
	embeddings []store.EmbeddingWithVector
}

func (b *batch) reset() {
	b.entries = b.entries[:0]
	b.embeddings = b.embeddings[:0]
}

// IndexReader ingests lines from r until EOF or context cancellation.
// Stats are returned even alongside an error so partial progress stays
// visible.
func (ix *Indexer) IndexReader(ctx context.Context, r io.Reader) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	if err := ix.ensureCollections(ctx); err != nil {
		return stats, err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var b batch
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			ix.finish(stats, start)
			return stats, err
		}

		stats.LinesSeen++
		parsed := ix.parser.Parse(scanner.Text())
		if parsed == nil {
			stats.LinesSkipped++
			metrics.LinesTotal.WithLabelValues(ix.cfg.Source, "skipped").Inc()
			continue
		}
		stats.LinesParsed++
		metrics.LinesTotal.WithLabelValues(ix.cfg.Source, "parsed").Inc()

		entry, record := ix.buildRecords(ctx, parsed, stats)
		b.entries = append(b.entries, entry)
		b.embeddings = append(b.embeddings, record)

		if len(b.entries) >= ix.cfg.BatchSize {
			ix.flush(ctx, &b, stats)
		}
	}
	if err := scanner.Err(); err != nil {
		ix.flush(ctx, &b, stats)
		ix.finish(stats, start)
		return stats, fmt.Errorf("read source: %w", err)
	}

	ix.flush(ctx, &b, stats)
	ix.finish(stats, start)
	return stats, nil
}

func (ix *Indexer) finish(stats *Stats, start time.Time) {
	stats.Elapsed = time.Since(start)
	metrics.IngestDuration.WithLabelValues(ix.cfg.Source).Observe(stats.Elapsed.Seconds())
	ix.log.Info("ingestion run finished",
		zap.Int("lines_seen", stats.LinesSeen),
		zap.Int("lines_parsed", stats.LinesParsed),
		zap.Int("lines_skipped", stats.LinesSkipped),
		zap.Int("batches_attempted", stats.BatchesAttempted),
		zap.Int("batches_failed", stats.BatchesFailed),
		zap.Duration("elapsed", stats.Elapsed),
	)
}

// buildRecords turns one parsed line into its paired entry and enriched
// record. The entry ID is the pairing key.
func (ix *Indexer) buildRecords(ctx context.Context, parsed *parser.Parsed, stats *Stats) (models.LogEntry, store.EmbeddingWithVector) {
	entry := models.LogEntry{
		ID:          uuid.NewString(),
		Timestamp:   parsed.Timestamp,
		ServiceName: parsed.ServiceName,
		HostIP:      defaultHostIP,
		HostName:    defaultHostName,
		Level:       parsed.Level,
		Message:     parsed.Message,
		Component:   parsed.Component,
		ThreadID:    parsed.ThreadID,
		RequestID:   parsed.RequestID,
		ErrorCode:   parsed.ErrorCode,
		DurationMS:  parsed.DurationMS,
	}

	e := ix.processor.Enrich(parsed.Level, parsed.Message)
	if e.Degraded {
		stats.Degraded++
		metrics.EnrichmentDegraded.Inc()
	}

	record := models.EmbeddingRecord{
		ID:            uuid.NewString(),
		LogEntryID:    entry.ID,
		Timestamp:     entry.Timestamp,
		ServiceName:   entry.ServiceName,
		HostIP:        entry.HostIP,
		Level:         entry.Level,
		Content:       entry.Message,
		Summary:       e.Summary,
		Category:      e.Category,
		SeverityScore: e.Severity,
		Degraded:      e.Degraded,
	}

	var vector []float32
	if ix.encoder != nil {
		v, err := ix.encoder.Encode(ctx, record.Content)
		if err != nil {
			// Keyword search still works without a vector; keep going.
			stats.EncodeFailures++
			metrics.EmbeddingRequests.WithLabelValues("error").Inc()
			ix.log.Warn("encode failed, inserting without vector",
				zap.String("entry_id", entry.ID), zap.Error(err))
		} else {
			metrics.EmbeddingRequests.WithLabelValues("ok").Inc()
			vector = v
		}
	}

	return entry, store.EmbeddingWithVector{Record: record, Vector: vector}
}

// flush writes the buffered batch to both collections with retries. A batch
// that fails after retry exhaustion is recorded and dropped; later batches
// proceed.
func (ix *Indexer) flush(ctx context.Context, b *batch, stats *Stats) {
	if len(b.entries) == 0 {
		return
	}
	stats.BatchesAttempted++

	entries := append([]models.LogEntry(nil), b.entries...)
	embeddings := append([]store.EmbeddingWithVector(nil), b.embeddings...)
	b.reset()

	// Each collection's insert is tracked separately so a retry never
	// replays a half that already committed. Replaying the entry insert
	// would duplicate rows in stores without a primary-key reject and turn
	// a transient embedding-side failure into a permanent one in stores
	// with it.
	entriesDone, embeddingsDone := false, false
	err := ix.cfg.Retry.Do(ctx, func() error {
		if !entriesDone {
			if err := ix.store.InsertEntryBatch(ctx, ix.cfg.EntryCollection, entries); err != nil {
				metrics.BatchRetries.Inc()
				return fmt.Errorf("entry collection: %w", err)
			}
			entriesDone = true
		}
		if !embeddingsDone {
			if err := ix.store.InsertEmbeddingBatch(ctx, ix.cfg.EmbeddingCollection, embeddings); err != nil {
				metrics.BatchRetries.Inc()
				return fmt.Errorf("embedding collection: %w", err)
			}
			embeddingsDone = true
		}
		return nil
	})
	if err != nil {
		stats.BatchesFailed++
		metrics.BatchesTotal.WithLabelValues(ix.cfg.Source, "failed").Inc()
		ix.log.Error("batch write failed after retries",
			zap.Int("batch_size", len(entries)), zap.Error(err))
		return
	}
	metrics.BatchesTotal.WithLabelValues(ix.cfg.Source, "ok").Inc()
}

func (ix *Indexer) ensureCollections(ctx context.Context) error {
	dim := 0
	if ix.encoder != nil {
		dim = ix.encoder.Dim()
	}
	if err := ix.store.EnsureCollection(ctx, store.EntrySchema(ix.cfg.EntryCollection)); err != nil {
		return err
	}
	return ix.store.EnsureCollection(ctx, store.EmbeddingSchema(ix.cfg.EmbeddingCollection, dim))
}
