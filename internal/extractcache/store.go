package extractcache

import (
	"context"
	"time"

	"github.com/signupassist/provider-pipeline/internal/program"
)

// DefaultTTL bounds how long an extraction stays reusable when the caller
// does not specify one. The content-hashed key already ties validity to the
// page's actual content, so the TTL only caps staleness of the hash itself.
const DefaultTTL = 6 * time.Hour

// Store is the extraction cache contract. A false second return from Get is
// a miss; misses (including expired entries) always fall through to a fresh
// extraction call at the pipeline layer.
type Store interface {
	Get(ctx context.Context, key string) ([]program.Program, bool, error)
	Set(ctx context.Context, key string, items []program.Program, ttl time.Duration) error
	InvalidateExpired(ctx context.Context) (int, error)
	Clear(ctx context.Context) (int, error)
}
