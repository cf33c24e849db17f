package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/arbiter"
)

// Compile-time interface check.
var _ arbiter.Cache = (*Redis)(nil)

const defaultRedisPrefix = "arbiter"

// Redis is a Redis-backed grouped cache. Group membership lives in a
// Redis set alongside the value keys, so one round of deletes evicts a
// whole group.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures the Redis cache.
type RedisOption func(*Redis)

// WithPrefix sets the key namespace prefix.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// NewRedis creates a Redis-backed cache on an existing client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.prefix = strings.TrimSuffix(r.prefix, ":")
	return r
}

func (r *Redis) key(k string) string   { return r.prefix + ":" + k }
func (r *Redis) group(g string) string { return r.prefix + ":group:" + g }

// Get returns the cached value for the key, if present.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("arbiter/cache: redis get: %w", err)
	}
	return raw, true, nil
}

// SetWithGroup stores the value and registers the key in the group set.
// The group set outlives its members by a margin so a key that expires
// on its own leaves only a stale set member behind, which InvalidateGroup
// deletes harmlessly.
func (r *Redis) SetWithGroup(ctx context.Context, key string, value []byte, group string, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(key), value, ttl)
	pipe.SAdd(ctx, r.group(group), r.key(key))
	pipe.Expire(ctx, r.group(group), ttl+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("arbiter/cache: redis set: %w", err)
	}
	return nil
}

// InvalidateGroup evicts every key registered in the group.
func (r *Redis) InvalidateGroup(ctx context.Context, group string) error {
	gkey := r.group(group)
	members, err := r.client.SMembers(ctx, gkey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("arbiter/cache: redis group members: %w", err)
	}
	pipe := r.client.TxPipeline()
	if len(members) > 0 {
		pipe.Del(ctx, members...)
	}
	pipe.Del(ctx, gkey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("arbiter/cache: redis invalidate group: %w", err)
	}
	return nil
}

// InvalidatePattern evicts every key matching the glob pattern.
func (r *Redis) InvalidatePattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, r.key(pattern), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("arbiter/cache: redis delete keys: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("arbiter/cache: redis scan: %w", err)
	}
	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("arbiter/cache: redis delete keys: %w", err)
		}
	}
	return nil
}
