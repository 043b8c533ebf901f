package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHashEncoderDeterministic(t *testing.T) {
	e := NewHashEncoder(64)
	ctx := context.Background()
	a, err := e.Encode(ctx, "connection refused by database")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Encode(ctx, "connection refused by database")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 || len(b) != 64 {
		t.Fatalf("dims: %d, %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text produced different vectors")
		}
	}
}

func TestHashEncoderNormalized(t *testing.T) {
	e := NewHashEncoder(32)
	vec, err := e.Encode(context.Background(), "out of memory killing worker process")
	if err != nil {
		t.Fatal(err)
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("norm = %f, want 1", norm)
	}
}

func TestHashEncoderEmptyText(t *testing.T) {
	e := NewHashEncoder(16)
	vec, err := e.Encode(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 16 {
		t.Fatalf("dim = %d", len(vec))
	}
}

func TestOllamaEncoder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	e := NewOllamaEncoder(srv.URL, "nomic-embed-text", 3, time.Second)
	vec, err := e.Encode(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 || vec[2] != float32(0.3) {
		t.Errorf("vec = %v", vec)
	}
}

func TestOllamaEncoderDimensionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float64{1, 2}})
	}))
	defer srv.Close()

	e := NewOllamaEncoder(srv.URL, "m", 3, time.Second)
	if _, err := e.Encode(context.Background(), "hello"); err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestOllamaEncoderUnreachable(t *testing.T) {
	e := NewOllamaEncoder("http://127.0.0.1:1", "m", 3, 200*time.Millisecond)
	_, err := e.Encode(context.Background(), "hello")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

type countingEncoder struct {
	inner Encoder
	calls int
}

func (c *countingEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.inner.Encode(ctx, text)
}

func (c *countingEncoder) Dim() int { return c.inner.Dim() }

func TestCachedEncoderMemoizes(t *testing.T) {
	counting := &countingEncoder{inner: NewHashEncoder(8)}
	e := NewCachedEncoder(counting, 16, time.Minute)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := e.Encode(ctx, "repeated log message"); err != nil {
			t.Fatal(err)
		}
	}
	if counting.calls != 1 {
		t.Errorf("inner calls = %d, want 1", counting.calls)
	}
	if e.Dim() != 8 {
		t.Errorf("dim = %d", e.Dim())
	}
}
