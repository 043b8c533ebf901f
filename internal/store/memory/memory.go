package memory

// Package memory is the in-memory VectorStore implementation: the swappable
// test double, also usable for small offline runs. Vector queries score by
// cosine similarity; keyword queries score by query-term overlap over the
// record's content and summary. Both paths share the store.Filters
// semantics exactly.

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/opslens/opslens-rag/internal/models"
	"github.com/opslens/opslens-rag/internal/store"
)

type collection struct {
	schema     store.Schema
	entries    []models.LogEntry
	embeddings []store.EmbeddingWithVector
}

// Store is an in-memory VectorStore. Safe for concurrent use; writes are
// append-only, matching the contract.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

var _ store.VectorStore = (*Store)(nil)

// EnsureCollection creates the collection if absent; repeat calls no-op.
func (s *Store) EnsureCollection(ctx context.Context, schema store.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[schema.Name]; ok {
		return nil
	}
	s.collections[schema.Name] = &collection{schema: schema}
	return nil
}

// InsertEntryBatch appends structured entries.
func (s *Store) InsertEntryBatch(ctx context.Context, name string, entries []models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return store.ErrUnknownCollection
	}
	c.entries = append(c.entries, entries...)
	return nil
}

// InsertEmbeddingBatch appends enriched records with optional vectors.
func (s *Store) InsertEmbeddingBatch(ctx context.Context, name string, batch []store.EmbeddingWithVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return store.ErrUnknownCollection
	}
	for _, item := range batch {
		if item.Vector != nil && c.schema.VectorDim > 0 && len(item.Vector) != c.schema.VectorDim {
			return store.ErrDimensionMismatch
		}
	}
	c.embeddings = append(c.embeddings, batch...)
	return nil
}

// VectorQuery returns the nearest records by cosine similarity.
func (s *Store) VectorQuery(ctx context.Context, name string, vector []float32, filters store.Filters, limit int) ([]store.ScoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, store.ErrUnknownCollection
	}
	if limit <= 0 {
		return nil, nil
	}

	var hits []store.ScoredRecord
	for i := range c.embeddings {
		item := &c.embeddings[i]
		if item.Vector == nil || !filters.Match(&item.Record) {
			continue
		}
		sim := cosineSimilarity(vector, item.Vector)
		hits = append(hits, store.ScoredRecord{Record: item.Record, Score: sim})
	}
	sortHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// KeywordQuery returns records ranked by query-term overlap.
func (s *Store) KeywordQuery(ctx context.Context, name string, query string, filters store.Filters, limit int) ([]store.ScoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, store.ErrUnknownCollection
	}
	if limit <= 0 {
		return nil, nil
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var hits []store.ScoredRecord
	for i := range c.embeddings {
		item := &c.embeddings[i]
		if !filters.Match(&item.Record) {
			continue
		}
		text := strings.ToLower(item.Record.Content + " " + item.Record.Summary)
		score := 0.0
		for _, term := range terms {
			if strings.Contains(text, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, store.ScoredRecord{Record: item.Record, Score: score})
		}
	}
	sortHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Count returns the number of records in a collection, counting whichever
// record kind the collection holds.
func (s *Store) Count(ctx context.Context, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return 0, store.ErrUnknownCollection
	}
	return int64(len(c.entries) + len(c.embeddings)), nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// sortHits orders by score descending, ties by recency then ID for a
// stable, deterministic order.
func sortHits(hits []store.ScoredRecord) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].Record.Timestamp.Equal(hits[j].Record.Timestamp) {
			return hits[i].Record.Timestamp.After(hits[j].Record.Timestamp)
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
