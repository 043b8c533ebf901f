package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opslens/opslens-rag/internal/models"
	"github.com/opslens/opslens-rag/internal/store"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedEmbeddings(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, store.EmbeddingSchema("embeddings", 3)))

	base := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	batch := []store.EmbeddingWithVector{
		{
			Record: models.EmbeddingRecord{
				ID: "r1", LogEntryID: "e1", Timestamp: base,
				ServiceName: "auth", Level: models.LevelError,
				Content: "connection refused by database", Summary: "connection refused",
				Category: models.CategoryNetwork, SeverityScore: 0.7,
			},
			Vector: []float32{1, 0, 0},
		},
		{
			Record: models.EmbeddingRecord{
				ID: "r2", LogEntryID: "e2", Timestamp: base.Add(time.Minute),
				ServiceName: "billing", Level: models.LevelInfo,
				Content: "payment batch completed", Summary: "payment batch completed",
				Category: models.CategoryApplication, SeverityScore: 0.1,
			},
			Vector: []float32{0, 1, 0},
		},
		{
			Record: models.EmbeddingRecord{
				ID: "r3", LogEntryID: "e3", Timestamp: base.Add(2 * time.Minute),
				ServiceName: "auth", Level: models.LevelCritical,
				Content: "out of memory killing worker", Summary: "out of memory",
				Category: models.CategoryMemory, SeverityScore: 0.95, Degraded: true,
			},
			Vector: []float32{0, 0, 1},
		},
	}
	require.NoError(t, s.InsertEmbeddingBatch(ctx, "embeddings", batch))
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	schema := store.EmbeddingSchema("embeddings", 3)
	require.NoError(t, s.EnsureCollection(ctx, schema))
	require.NoError(t, s.EnsureCollection(ctx, schema))
	n, err := s.Count(ctx, "embeddings")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRegistrySurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.EnsureCollection(ctx, store.EmbeddingSchema("embeddings", 3)))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	// Collection is known without another EnsureCollection call.
	n, err := s2.Count(ctx, "embeddings")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestEntryRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, store.EntrySchema("entries")))

	dur := 123.0
	entries := []models.LogEntry{
		{
			ID: "e1", Timestamp: time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC),
			ServiceName: "auth", HostIP: "10.0.0.1", HostName: "node-1",
			Level: models.LevelWarn, Message: "slow login", ThreadID: "t-1",
			RequestID: "req-9", DurationMS: &dur, Tags: []string{"login"},
			Metadata: map[string]string{"region": "eu"},
		},
	}
	require.NoError(t, s.InsertEntryBatch(ctx, "entries", entries))
	n, err := s.Count(ctx, "entries")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestVectorQueryRanksAndFilters(t *testing.T) {
	s := openTest(t)
	seedEmbeddings(t, s)
	ctx := context.Background()

	hits, err := s.VectorQuery(ctx, "embeddings", []float32{0.9, 0.1, 0}, store.Filters{}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "r1", hits[0].Record.ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	// Same filter shape as the keyword path.
	f := store.Filters{ServiceName: "auth", Level: models.LevelCritical}
	hits, err = s.VectorQuery(ctx, "embeddings", []float32{1, 1, 1}, f, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "r3", hits[0].Record.ID)
	assert.True(t, hits[0].Record.Degraded)
}

func TestVectorQueryDimensionMismatch(t *testing.T) {
	s := openTest(t)
	seedEmbeddings(t, s)
	_, err := s.VectorQuery(context.Background(), "embeddings", []float32{1, 0}, store.Filters{}, 5)
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)
}

func TestKeywordQueryBM25(t *testing.T) {
	s := openTest(t)
	seedEmbeddings(t, s)
	ctx := context.Background()

	hits, err := s.KeywordQuery(ctx, "embeddings", "connection refused", store.Filters{}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "r1", hits[0].Record.ID)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestKeywordQueryFilters(t *testing.T) {
	s := openTest(t)
	seedEmbeddings(t, s)
	ctx := context.Background()

	f := store.Filters{ServiceName: "auth"}
	hits, err := s.KeywordQuery(ctx, "embeddings", "memory payment connection", f, 10)
	require.NoError(t, err)
	for _, h := range hits {
		assert.Equal(t, "auth", h.Record.ServiceName)
	}

	base := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	tr := store.Filters{From: base.Add(30 * time.Second), To: base.Add(90 * time.Second)}
	hits, err = s.KeywordQuery(ctx, "embeddings", "payment memory connection", tr, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "r2", hits[0].Record.ID)
}

func TestKeywordQueryPunctuationSafe(t *testing.T) {
	s := openTest(t)
	seedEmbeddings(t, s)
	_, err := s.KeywordQuery(context.Background(), "embeddings", `"dropped AND (weird) NEAR syntax"`, store.Filters{}, 5)
	assert.NoError(t, err)
}

func TestZeroLimitAndEmptyQuery(t *testing.T) {
	s := openTest(t)
	seedEmbeddings(t, s)
	ctx := context.Background()

	hits, err := s.VectorQuery(ctx, "embeddings", []float32{1, 0, 0}, store.Filters{}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.KeywordQuery(ctx, "embeddings", "   ", store.Filters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUnknownCollection(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	_, err := s.Count(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrUnknownCollection)
	err = s.InsertEntryBatch(ctx, "missing", []models.LogEntry{{ID: "x"}})
	assert.ErrorIs(t, err, store.ErrUnknownCollection)
}
