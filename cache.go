package arbiter

import (
	"context"
	"time"
)

// Cache is the grouped key/value cache the engine uses for resolved
// permission sets and principal records. Implementations own their
// group-membership bookkeeping; the engine only names the group a key
// belongs to.
//
// Cache failures must surface as errors, not silent misses: the engine
// logs them and falls through to the store, but never treats an
// infrastructure failure as an authorization decision.
type Cache interface {
	// Get returns the cached value for the key, if present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// SetWithGroup stores the value under the key, registers the key in
	// the invalidation group, and applies the TTL.
	SetWithGroup(ctx context.Context, key string, value []byte, group string, ttl time.Duration) error

	// InvalidateGroup evicts every key registered in the group.
	InvalidateGroup(ctx context.Context, group string) error

	// InvalidatePattern evicts every key matching the glob pattern.
	// Administrative resets only; never on the hot path.
	InvalidatePattern(ctx context.Context, pattern string) error
}
