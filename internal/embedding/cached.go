package embedding

import (
	"context"
	"time"

	"github.com/opslens/opslens-rag/internal/cache"
)

// CachedEncoder memoizes an inner Encoder. Encoding is deterministic per
// text, so cached vectors never go stale; the TTL only bounds memory held
// for messages that stop recurring.
type CachedEncoder struct {
	inner Encoder
	cache *cache.Cache
}

// NewCachedEncoder wraps inner with a cache of maxEntries vectors kept for
// at most ttl.
func NewCachedEncoder(inner Encoder, maxEntries int, ttl time.Duration) *CachedEncoder {
	return &CachedEncoder{inner: inner, cache: cache.New(maxEntries, ttl)}
}

var _ Encoder = (*CachedEncoder)(nil)

// Encode returns the cached vector when available, otherwise delegates.
func (e *CachedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		return v.([]float32), nil
	}
	vec, err := e.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, vec)
	return vec, nil
}

// Dim returns the inner encoder's dimensionality.
func (e *CachedEncoder) Dim() int { return e.inner.Dim() }
