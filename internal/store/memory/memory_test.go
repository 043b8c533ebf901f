package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opslens/opslens-rag/internal/models"
	"github.com/opslens/opslens-rag/internal/store"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, store.EmbeddingSchema("embeddings", 3)))

	base := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	records := []store.EmbeddingWithVector{
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
				Category: models.CategoryMemory, SeverityScore: 0.95,
			},
			Vector: []float32{0, 0, 1},
		},
	}
	require.NoError(t, s.InsertEmbeddingBatch(ctx, "embeddings", records))
	return s
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	schema := store.EmbeddingSchema("embeddings", 3)
	require.NoError(t, s.EnsureCollection(ctx, schema))
	require.NoError(t, s.EnsureCollection(ctx, schema))

	n, err := s.Count(ctx, "embeddings")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestUnknownCollection(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.VectorQuery(ctx, "nope", []float32{1}, store.Filters{}, 5)
	assert.ErrorIs(t, err, store.ErrUnknownCollection)
	_, err = s.Count(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrUnknownCollection)
}

func TestDimensionMismatch(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, store.EmbeddingSchema("embeddings", 3)))
	err := s.InsertEmbeddingBatch(ctx, "embeddings", []store.EmbeddingWithVector{
		{Record: models.EmbeddingRecord{ID: "bad"}, Vector: []float32{1, 2}},
	})
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)
}

func TestVectorQueryRanksBySimilarity(t *testing.T) {
	s := seeded(t)
	hits, err := s.VectorQuery(context.Background(), "embeddings", []float32{0.9, 0.1, 0}, store.Filters{}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "r1", hits[0].Record.ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestKeywordQueryRanksByOverlap(t *testing.T) {
	s := seeded(t)
	hits, err := s.KeywordQuery(context.Background(), "embeddings", "connection refused", store.Filters{}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "r1", hits[0].Record.ID)
}

func TestFiltersEnforcedOnBothPaths(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	f := store.Filters{ServiceName: "auth", Level: models.LevelCritical}

	vhits, err := s.VectorQuery(ctx, "embeddings", []float32{1, 1, 1}, f, 10)
	require.NoError(t, err)
	khits, err := s.KeywordQuery(ctx, "embeddings", "memory worker payment connection", f, 10)
	require.NoError(t, err)

	for _, h := range vhits {
		assert.Equal(t, "auth", h.Record.ServiceName)
		assert.Equal(t, models.LevelCritical, h.Record.Level)
	}
	for _, h := range khits {
		assert.Equal(t, "auth", h.Record.ServiceName)
		assert.Equal(t, models.LevelCritical, h.Record.Level)
	}
	require.Len(t, vhits, 1)
	require.Len(t, khits, 1)
	assert.Equal(t, "r3", vhits[0].Record.ID)
}

func TestTimeRangeFilter(t *testing.T) {
	s := seeded(t)
	base := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	f := store.Filters{From: base.Add(30 * time.Second), To: base.Add(90 * time.Second)}
	hits, err := s.KeywordQuery(context.Background(), "embeddings", "payment memory connection", f, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "r2", hits[0].Record.ID)
}

func TestZeroLimitReturnsEmpty(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	vhits, err := s.VectorQuery(ctx, "embeddings", []float32{1, 0, 0}, store.Filters{}, 0)
	require.NoError(t, err)
	assert.Empty(t, vhits)
	khits, err := s.KeywordQuery(ctx, "embeddings", "connection", store.Filters{}, 0)
	require.NoError(t, err)
	assert.Empty(t, khits)
}

func TestEntryBatchAndCount(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, store.EntrySchema("entries")))
	entries := []models.LogEntry{
		{ID: "e1", Timestamp: time.Now().UTC(), ServiceName: "auth", Level: models.LevelInfo, Message: "ok"},
		{ID: "e2", Timestamp: time.Now().UTC(), ServiceName: "auth", Level: models.LevelWarn, Message: "hm"},
	}
	require.NoError(t, s.InsertEntryBatch(ctx, "entries", entries))
	n, err := s.Count(ctx, "entries")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
