package cache

import (
	"testing"
	"time"
)

func TestGetSetAndInvalidate(t *testing.T) {
	c := New[int64, string](4, time.Minute)
	defer c.Stop()

	c.Set(1, "alpha")
	if v, ok := c.Get(1); !ok || v != "alpha" {
		t.Fatalf("Get(1) = %q, %v", v, ok)
	}

	c.Invalidate(1)
	if _, ok := c.Get(1); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int64, int](2, time.Minute)
	defer c.Stop()

	c.Set(1, 10)
	c.Set(2, 20)
	c.Get(1) // touch 1 so 2 becomes the eviction candidate
	c.Set(3, 30)

	if _, ok := c.Get(2); ok {
		t.Fatalf("expected 2 to be evicted")
	}
	if _, ok := c.Get(1); !ok {
		t.Fatalf("expected 1 to survive")
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
}

func TestExpiredEntriesMiss(t *testing.T) {
	c := New[int64, int](4, 10*time.Millisecond)
	defer c.Stop()

	c.Set(1, 10)
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get(1); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestPurgeExpired(t *testing.T) {
	c := New[int64, int](4, 10*time.Millisecond)
	defer c.Stop()

	c.Set(1, 10)
	c.Set(2, 20)
	time.Sleep(25 * time.Millisecond)

	if n := c.PurgeExpired(); n > 2 {
		t.Fatalf("PurgeExpired() = %d, want at most 2", n)
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d after purge, want 0", c.Len())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c := New[int64, int](4, time.Minute)
	c.Stop()
	c.Stop()
}
