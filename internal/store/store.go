package store

// Package store defines the narrow vector-store capability contract the
// ingestion and retrieval layers are written against.
//
// Responsibilities:
//   - Collection schema definitions for the two persisted collections
//     (structured entries, enriched embeddings)
//   - Batch insert, nearest-neighbor query, keyword query, count
//   - A filter shape enforced identically on the vector and keyword paths
//   - Sentinel errors that keep "store unreachable" distinguishable from a
//     valid empty result
//
// Implementations are swappable: a SQLite-backed store for persistence and
// an in-memory store for tests and offline runs. Callers receive the
// interface through explicit construction, never through package globals.

import (
	"context"
	"errors"
	"time"

	"github.com/opslens/opslens-rag/internal/models"
)

var (
	// ErrUnavailable means the backing store could not be reached. It is
	// never returned for an empty result set.
	ErrUnavailable = errors.New("store: unavailable")

	// ErrUnknownCollection means the named collection was never created.
	ErrUnknownCollection = errors.New("store: unknown collection")

	// ErrDimensionMismatch means a vector's length disagrees with the
	// collection's configured dimensionality.
	ErrDimensionMismatch = errors.New("store: vector dimension mismatch")
)

// FieldType enumerates the column types a collection schema can carry.
type FieldType string

const (
	FieldString    FieldType = "string"
	FieldTimestamp FieldType = "timestamp"
	FieldFloat     FieldType = "float"
	FieldBool      FieldType = "bool"
)

// Field is one named, typed column. Filterable fields support equality
// (strings) or range (timestamps) filters.
type Field struct {
	Name       string
	Type       FieldType
	Filterable bool
}

// Schema describes one collection. VectorDim of zero means the collection
// carries no vector index; FullText names the fields under keyword search.
type Schema struct {
	Name      string
	Fields    []Field
	VectorDim int
	FullText  []string
}

// EntrySchema is the structured collection: raw parsed fields, range
// filterable on timestamp, equality filterable on service and level.
func EntrySchema(name string) Schema {
	return Schema{
		Name: name,
		Fields: []Field{
			{Name: "id", Type: FieldString},
			{Name: "timestamp", Type: FieldTimestamp, Filterable: true},
			{Name: "service_name", Type: FieldString, Filterable: true},
			{Name: "host_ip", Type: FieldString},
			{Name: "host_name", Type: FieldString},
			{Name: "log_level", Type: FieldString, Filterable: true},
			{Name: "message", Type: FieldString},
			{Name: "component", Type: FieldString},
			{Name: "thread_id", Type: FieldString},
			{Name: "request_id", Type: FieldString},
			{Name: "error_code", Type: FieldString},
			{Name: "duration_ms", Type: FieldFloat},
			{Name: "tags", Type: FieldString},
			{Name: "metadata", Type: FieldString},
		},
	}
}

// EmbeddingSchema is the enriched collection: same filters as the entry
// collection plus vector and keyword indexes over content and summary.
func EmbeddingSchema(name string, dim int) Schema {
	return Schema{
		Name: name,
		Fields: []Field{
			{Name: "id", Type: FieldString},
			{Name: "log_entry_id", Type: FieldString},
			{Name: "timestamp", Type: FieldTimestamp, Filterable: true},
			{Name: "service_name", Type: FieldString, Filterable: true},
			{Name: "host_ip", Type: FieldString},
			{Name: "log_level", Type: FieldString, Filterable: true},
			{Name: "content", Type: FieldString},
			{Name: "summary", Type: FieldString},
			{Name: "category", Type: FieldString, Filterable: true},
			{Name: "severity_score", Type: FieldFloat},
			{Name: "degraded", Type: FieldBool},
		},
		VectorDim: dim,
		FullText:  []string{"content", "summary"},
	}
}

// Filters restricts a query. Zero values mean "no restriction". The same
// filter semantics apply on the vector and keyword paths.
type Filters struct {
	ServiceName string
	Level       models.LogLevel
	From, To    time.Time
}

// Match reports whether an embedding record passes the filters. In-memory
// implementations share this so both query paths filter identically.
func (f Filters) Match(r *models.EmbeddingRecord) bool {
	if f.ServiceName != "" && r.ServiceName != f.ServiceName {
		return false
	}
	if f.Level != "" && r.Level != f.Level {
		return false
	}
	if !f.From.IsZero() && r.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Timestamp.After(f.To) {
		return false
	}
	return true
}

// EmbeddingWithVector pairs a record with its (optional) embedding vector.
// A nil vector inserts the record for keyword search only.
type EmbeddingWithVector struct {
	Record models.EmbeddingRecord
	Vector []float32
}

// ScoredRecord is one query hit with the sub-search's native score:
// cosine similarity for vector queries, keyword relevance for keyword
// queries. Higher is always better.
type ScoredRecord struct {
	Record models.EmbeddingRecord
	Score  float64
}

// VectorStore is the capability contract for the backing store. Writes are
// append-only; implementations must tolerate concurrent batch writes from
// independent ingestion sources.
type VectorStore interface {
	// EnsureCollection idempotently creates the collection with the given
	// schema. Calling it again with the same schema is a no-op.
	EnsureCollection(ctx context.Context, schema Schema) error

	// InsertEntryBatch appends structured entries to a collection.
	InsertEntryBatch(ctx context.Context, collection string, entries []models.LogEntry) error

	// InsertEmbeddingBatch appends enriched records (with optional vectors)
	// to a collection.
	InsertEmbeddingBatch(ctx context.Context, collection string, batch []EmbeddingWithVector) error

	// VectorQuery returns up to limit records nearest to vector, best first,
	// with a similarity confidence per record.
	VectorQuery(ctx context.Context, collection string, vector []float32, filters Filters, limit int) ([]ScoredRecord, error)

	// KeywordQuery returns up to limit records ranked by keyword relevance
	// to the query text, best first.
	KeywordQuery(ctx context.Context, collection string, query string, filters Filters, limit int) ([]ScoredRecord, error)

	// Count returns the number of records in a collection.
	Count(ctx context.Context, collection string) (int64, error)

	// Close releases store resources.
	Close() error
}
