package search

// Package search provides the hybrid retrieval service: schema bootstrap,
// vector search, keyword search, and the merge/rerank that folds both into
// one ranked evidence list.
//
// Responsibilities:
//   - Idempotent bootstrap of the two collections
//   - Vector search over a query embedding with filters and limit
//   - Keyword search over query text with the same filter shape
//   - Hybrid search: both sub-searches run concurrently, each under its own
//     timeout; scores are normalized to [0,1], merged with deduplication,
//     and reranked by an alpha-weighted final score
//   - Degraded mode: one failed sub-search degrades hybrid to the other's
//     results; both failing surfaces ErrRetrievalUnavailable
//
// Every call is self-contained; the service keeps no query state.

import (
	"errors"
	"time"

	"github.com/opslens/opslens-rag/internal/models"
	"github.com/opslens/opslens-rag/internal/store"
)

// ErrRetrievalUnavailable means both sub-searches failed; it is distinct
// from an empty result set, which is a valid success.
var ErrRetrievalUnavailable = errors.New("search: retrieval unavailable")

// DefaultAlpha balances vector and keyword scores evenly.
const DefaultAlpha = 0.5

// Options tunes one hybrid search call.
type Options struct {
	// Alpha is the vector-score weight; the keyword side gets 1-Alpha.
	// Nil means the service default. An explicit 0 is honored as a pure
	// keyword ranking, 1 as pure vector; values outside [0,1] clamp.
	Alpha *float64

	// Limit caps the merged result list. A limit of zero or less returns
	// an empty list without error.
	Limit int

	// Filters apply identically to both sub-searches.
	Filters store.Filters

	// SubSearchTimeout bounds each sub-search independently; a timeout on
	// one side never blocks the other. Zero means no extra bound beyond
	// the caller's context.
	SubSearchTimeout time.Duration
}

// Result is the outcome of one hybrid search: the merged, reranked items
// plus the untouched raw sub-results for traceability.
type Result struct {
	Items []models.SearchResultItem

	VectorRaw  []store.ScoredRecord
	KeywordRaw []store.ScoredRecord

	// VectorErr/KeywordErr record a failed sub-search; the merged items
	// then come from the surviving side alone.
	VectorErr  error
	KeywordErr error
}

// Degraded reports whether one sub-search failed and the merge proceeded
// single-sided.
func (r *Result) Degraded() bool {
	return (r.VectorErr != nil) != (r.KeywordErr != nil)
}
