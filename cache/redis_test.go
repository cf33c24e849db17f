package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // test cleanup
	return NewRedis(client)
}

func TestRedisCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := newTestRedis(t)

	if _, ok, err := c.Get(ctx, "perm:u1:t1:"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

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

func TestRedisCacheInvalidateGroup(t *testing.T) {
	ctx := context.Background()
	c := newTestRedis(t)

	mustSet := func(key, group string) {
		t.Helper()
		if err := c.SetWithGroup(ctx, key, []byte("v"), group, time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	mustSet("perm:u1:t1:", "principal-group:u1")
	mustSet("perm:u1:t2:", "principal-group:u1")
	mustSet("perm:u2:t1:", "principal-group:u2")

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

	// Second invalidation of an empty group is a no-op.
	if err := c.InvalidateGroup(ctx, "principal-group:u1"); err != nil {
		t.Fatal(err)
	}
}

func TestRedisCacheInvalidatePattern(t *testing.T) {
	ctx := context.Background()
	c := newTestRedis(t)

	if err := c.SetWithGroup(ctx, "perm:u1:t1:", []byte("a"), "principal-group:u1", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := c.SetWithGroup(ctx, "principal:u1", []byte("b"), "principal-group:u1", time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := c.InvalidatePattern(ctx, "perm:*"); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := c.Get(ctx, "perm:u1:t1:"); ok {
		t.Fatal("expected perm entry evicted")
	}
	if _, ok, _ := c.Get(ctx, "principal:u1"); !ok {
		t.Fatal("expected principal entry to survive")
	}
}

func TestRedisCacheTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close() //nolint:errcheck // test cleanup
	c := NewRedis(client)

	if err := c.SetWithGroup(ctx, "k1", []byte("v"), "g1", time.Second); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Second)

	if _, ok, _ := c.Get(ctx, "k1"); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}
