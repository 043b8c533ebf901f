package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashEncoder is a deterministic local encoder: each lowercased token is
// feature-hashed into one of dim buckets and the resulting vector is
// L2-normalized. It captures token overlap, not semantics, which is enough
// for tests and for offline runs without an embedding service.
type HashEncoder struct {
	dim int
}

// NewHashEncoder creates a HashEncoder with the given dimensionality.
func NewHashEncoder(dim int) *HashEncoder {
	if dim <= 0 {
		dim = 128
	}
	return &HashEncoder{dim: dim}
}

var _ Encoder = (*HashEncoder)(nil)

// Encode hashes tokens into buckets; identical text always yields the
// identical vector.
func (e *HashEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dim))
		// The next hash bit picks the sign, spreading collisions.
		if sum&(1<<63) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) * inv)
		}
	}
	return vec, nil
}

// Dim returns the configured dimensionality.
func (e *HashEncoder) Dim() int { return e.dim }
