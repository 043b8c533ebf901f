package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := New(10, 0)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("hit on empty cache")
	}
	c.Set("k", []float32{1, 2, 3})
	v, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if vec := v.([]float32); len(vec) != 3 {
		t.Errorf("got %v", vec)
	}
}

func TestCapacityEviction(t *testing.T) {
	c := New(3, 0)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	if c.Len() != 3 {
		t.Fatalf("len = %d, want 3", c.Len())
	}
	// Oldest two were evicted.
	if _, ok := c.Get("k0"); ok {
		t.Error("k0 should be evicted")
	}
	if _, ok := c.Get("k4"); !ok {
		t.Error("k4 should be present")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New(10, 10*time.Millisecond)
	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatal("fresh entry missed")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
}

func TestStats(t *testing.T) {
	c := New(10, 0)
	c.Set("k", 1)
	c.Get("k")
	c.Get("nope")
	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("hits=%d misses=%d", hits, misses)
	}
}
