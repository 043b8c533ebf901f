package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/opslens/opslens-rag/internal/embedding"
	"github.com/opslens/opslens-rag/internal/metrics"
	"github.com/opslens/opslens-rag/internal/models"
	"github.com/opslens/opslens-rag/internal/store"
)

// Config carries the service's construction-time settings. A nil Alpha
// means DefaultAlpha; an explicit 0 or 1 selects a pure keyword or pure
// vector ranking.
type Config struct {
	EntryCollection     string
	EmbeddingCollection string
	Alpha               *float64
	SubSearchTimeout    time.Duration
}

// Service is the hybrid retrieval service. Store and encoder come in
// through the constructor; there are no package-level singletons.
type Service struct {
	store   store.VectorStore
	encoder embedding.Encoder
	cfg     Config
	alpha   float64
	log     *zap.Logger
}

// New constructs a Service. Zero config fields get working defaults.
func New(vs store.VectorStore, enc embedding.Encoder, cfg Config, log *zap.Logger) *Service {
	if cfg.EntryCollection == "" {
		cfg.EntryCollection = "log_entries"
	}
	if cfg.EmbeddingCollection == "" {
		cfg.EmbeddingCollection = "log_embeddings"
	}
	alpha := DefaultAlpha
	if cfg.Alpha != nil {
		alpha = clampAlpha(*cfg.Alpha)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: vs, encoder: enc, cfg: cfg, alpha: alpha, log: log}
}

func clampAlpha(a float64) float64 {
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

// EnsureSchema idempotently creates both collections. Safe to call
// repeatedly and from multiple instances.
func (s *Service) EnsureSchema(ctx context.Context) error {
	dim := 0
	if s.encoder != nil {
		dim = s.encoder.Dim()
	}
	if err := s.store.EnsureCollection(ctx, store.EntrySchema(s.cfg.EntryCollection)); err != nil {
		return fmt.Errorf("ensure entry collection: %w", err)
	}
	if err := s.store.EnsureCollection(ctx, store.EmbeddingSchema(s.cfg.EmbeddingCollection, dim)); err != nil {
		return fmt.Errorf("ensure embedding collection: %w", err)
	}
	return nil
}

// VectorSearch returns the nearest records to a precomputed query vector.
func (s *Service) VectorSearch(ctx context.Context, vector []float32, filters store.Filters, limit int) ([]store.ScoredRecord, error) {
	start := time.Now()
	hits, err := s.store.VectorQuery(ctx, s.cfg.EmbeddingCollection, vector, filters, limit)
	s.observe("vector", start, len(hits), err)
	return hits, err
}

// KeywordSearch returns the best keyword matches for raw query text.
func (s *Service) KeywordSearch(ctx context.Context, query string, filters store.Filters, limit int) ([]store.ScoredRecord, error) {
	start := time.Now()
	hits, err := s.store.KeywordQuery(ctx, s.cfg.EmbeddingCollection, query, filters, limit)
	s.observe("keyword", start, len(hits), err)
	return hits, err
}

// Count reports the number of records in the embedding collection.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx, s.cfg.EmbeddingCollection)
}

// HybridSearch embeds the query, runs both sub-searches concurrently, and
// merges them into one ranked list. One failed sub-search degrades the
// merge to the other side; both failing returns ErrRetrievalUnavailable.
func (s *Service) HybridSearch(ctx context.Context, query string, opts Options) (*Result, error) {
	start := time.Now()
	alpha := s.alpha
	if opts.Alpha != nil {
		alpha = clampAlpha(*opts.Alpha)
	}
	if opts.SubSearchTimeout == 0 {
		opts.SubSearchTimeout = s.cfg.SubSearchTimeout
	}

	res := &Result{}
	if opts.Limit <= 0 {
		res.Items = []models.SearchResultItem{}
		return res, nil
	}

	vectorCh := make(chan struct{})
	go func() {
		defer close(vectorCh)
		res.VectorRaw, res.VectorErr = s.vectorSide(ctx, query, opts)
	}()

	keywordCh := make(chan struct{})
	go func() {
		defer close(keywordCh)
		subCtx, cancel := subContext(ctx, opts.SubSearchTimeout)
		defer cancel()
		res.KeywordRaw, res.KeywordErr = s.store.KeywordQuery(subCtx, s.cfg.EmbeddingCollection, query, opts.Filters, opts.Limit)
	}()

	<-vectorCh
	<-keywordCh

	if res.VectorErr != nil && res.KeywordErr != nil {
		metrics.SearchesTotal.WithLabelValues("hybrid", "failed").Inc()
		return nil, fmt.Errorf("%w: vector: %v; keyword: %v", ErrRetrievalUnavailable, res.VectorErr, res.KeywordErr)
	}
	if res.Degraded() {
		metrics.SearchesTotal.WithLabelValues("hybrid", "degraded").Inc()
		s.log.Warn("hybrid search degraded to single sub-search",
			zap.NamedError("vector_err", res.VectorErr),
			zap.NamedError("keyword_err", res.KeywordErr))
	} else {
		metrics.SearchesTotal.WithLabelValues("hybrid", "ok").Inc()
	}

	res.Items = mergeAndRerank(res.VectorRaw, res.KeywordRaw, alpha, opts.Limit)
	metrics.SearchDuration.WithLabelValues("hybrid").Observe(time.Since(start).Seconds())
	metrics.SearchResults.WithLabelValues("hybrid").Observe(float64(len(res.Items)))
	return res, nil
}

// vectorSide embeds the query and runs the vector sub-search. An encode
// failure counts as a vector-side failure, degrading to keyword results.
func (s *Service) vectorSide(ctx context.Context, query string, opts Options) ([]store.ScoredRecord, error) {
	if s.encoder == nil {
		return nil, fmt.Errorf("no encoder configured")
	}
	subCtx, cancel := subContext(ctx, opts.SubSearchTimeout)
	defer cancel()

	vector, err := s.encoder.Encode(subCtx, query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	return s.store.VectorQuery(subCtx, s.cfg.EmbeddingCollection, vector, opts.Filters, opts.Limit)
}

func subContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Service) observe(mode string, start time.Time, n int, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	metrics.SearchesTotal.WithLabelValues(mode, status).Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.SearchResults.WithLabelValues(mode).Observe(float64(n))
	}
}

// mergeAndRerank folds the two sub-search result lists into one ranked
// list:
//
//  1. each list's native scores are min-max normalized onto [0,1]
//  2. lists merge with deduplication by record ID; an item present in both
//     carries both raw scores
//  3. final = alpha*vectorNorm + (1-alpha)*keywordNorm, a missing side
//     contributing zero
//  4. sort by final desc, ties by vector confidence, then recency
func mergeAndRerank(vectorRaw, keywordRaw []store.ScoredRecord, alpha float64, limit int) []models.SearchResultItem {
	vNorm := normalize(vectorRaw)
	kNorm := normalize(keywordRaw)

	merged := make(map[string]*models.SearchResultItem, len(vectorRaw)+len(keywordRaw))
	var order []string

	for i, hit := range vectorRaw {
		item := &models.SearchResultItem{
			Record:      hit.Record,
			FromVector:  true,
			VectorScore: hit.Score,
			FinalScore:  alpha * vNorm[i],
		}
		merged[hit.Record.ID] = item
		order = append(order, hit.Record.ID)
	}
	for i, hit := range keywordRaw {
		if item, ok := merged[hit.Record.ID]; ok {
			item.FromKeyword = true
			item.KeywordScore = hit.Score
			item.FinalScore += (1 - alpha) * kNorm[i]
			continue
		}
		merged[hit.Record.ID] = &models.SearchResultItem{
			Record:       hit.Record,
			FromKeyword:  true,
			KeywordScore: hit.Score,
			FinalScore:   (1 - alpha) * kNorm[i],
		}
		order = append(order, hit.Record.ID)
	}

	items := make([]models.SearchResultItem, 0, len(order))
	for _, id := range order {
		items = append(items, *merged[id])
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].FinalScore != items[j].FinalScore {
			return items[i].FinalScore > items[j].FinalScore
		}
		if items[i].VectorScore != items[j].VectorScore {
			return items[i].VectorScore > items[j].VectorScore
		}
		return items[i].Record.Timestamp.After(items[j].Record.Timestamp)
	})

	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// normalize min-max scales a list's scores onto [0,1]. A list whose scores
// are all equal normalizes to 1: its members are each other's best match.
func normalize(hits []store.ScoredRecord) []float64 {
	if len(hits) == 0 {
		return nil
	}
	min, max := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < min {
			min = h.Score
		}
		if h.Score > max {
			max = h.Score
		}
	}
	norm := make([]float64, len(hits))
	if max == min {
		for i := range norm {
			norm[i] = 1
		}
		return norm
	}
	for i, h := range hits {
		norm[i] = (h.Score - min) / (max - min)
	}
	return norm
}
