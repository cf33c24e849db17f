package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	// Miss
	if _, ok, err := c.Get(ctx, "perm:u1:t1:"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	// Set + Hit
	if err := c.SetWithGroup(ctx, "perm:u1:t1:", []byte(`["orders:read"]`), "principal-group:u1", time.Minute); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(ctx, "perm:u1:t1:")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got) != `["orders:read"]` {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	if err := c.SetWithGroup(ctx, "k1", []byte("v"), "g1", 1*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k1"); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheInvalidateGroup(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.SetWithGroup(ctx, "perm:u1:t1:", []byte("a"), "principal-group:u1", time.Minute) //nolint:errcheck // memory cache writes cannot fail
	c.SetWithGroup(ctx, "perm:u1:t2:", []byte("b"), "principal-group:u1", time.Minute) //nolint:errcheck // memory cache writes cannot fail
	c.SetWithGroup(ctx, "perm:u2:t1:", []byte("c"), "principal-group:u2", time.Minute) //nolint:errcheck // memory cache writes cannot fail

	if err := c.InvalidateGroup(ctx, "principal-group:u1"); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := c.Get(ctx, "perm:u1:t1:"); ok {
		t.Fatal("expected u1/t1 evicted")
	}
	if _, ok, _ := c.Get(ctx, "perm:u1:t2:"); ok {
		t.Fatal("expected u1/t2 evicted")
	}
	if _, ok, _ := c.Get(ctx, "perm:u2:t1:"); !ok {
		t.Fatal("expected u2 entry to survive")
	}
}

func TestMemoryCacheInvalidatePattern(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.SetWithGroup(ctx, "perm:u1:t1:", []byte("a"), "principal-group:u1", time.Minute)  //nolint:errcheck // memory cache writes cannot fail
	c.SetWithGroup(ctx, "perm:u2:t1:", []byte("b"), "principal-group:u2", time.Minute)  //nolint:errcheck // memory cache writes cannot fail
	c.SetWithGroup(ctx, "principal:u1", []byte("c"), "principal-group:u1", time.Minute) //nolint:errcheck // memory cache writes cannot fail

	if err := c.InvalidatePattern(ctx, "perm:*"); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := c.Get(ctx, "perm:u1:t1:"); ok {
		t.Fatal("expected perm entry evicted")
	}
	if _, ok, _ := c.Get(ctx, "perm:u2:t1:"); ok {
		t.Fatal("expected perm entry evicted")
	}
	if _, ok, _ := c.Get(ctx, "principal:u1"); !ok {
		t.Fatal("expected principal entry to survive")
	}
}

func TestMemoryCacheGroupRebinding(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.SetWithGroup(ctx, "k", []byte("a"), "g1", time.Minute) //nolint:errcheck // memory cache writes cannot fail
	c.SetWithGroup(ctx, "k", []byte("b"), "g2", time.Minute) //nolint:errcheck // memory cache writes cannot fail

	// The key moved to g2; invalidating g1 must not touch it.
	if err := c.InvalidateGroup(ctx, "g1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("expected key to survive old-group invalidation")
	}

	if err := c.InvalidateGroup(ctx, "g2"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected key evicted with its current group")
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	c.SetWithGroup(ctx, "k1", []byte("a"), "g", time.Minute) //nolint:errcheck // memory cache writes cannot fail
	c.SetWithGroup(ctx, "k2", []byte("b"), "g", time.Minute) //nolint:errcheck // memory cache writes cannot fail
	c.SetWithGroup(ctx, "k3", []byte("c"), "g", time.Minute) //nolint:errcheck // memory cache writes cannot fail

	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	if n > 2 {
		t.Fatalf("expected at most 2 entries, got %d", n)
	}
}
