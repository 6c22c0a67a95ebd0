package extractcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signupassist/provider-pipeline/internal/program"
)

// RedisStore is the durable extraction cache variant. Redis expires entries
// server-side, so InvalidateExpired has nothing to sweep and always reports
// zero.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	normalized := strings.TrimSpace(prefix)
	if normalized == "" {
		normalized = "pipeline:extractions"
	}
	return &RedisStore{
		client: client,
		prefix: normalized,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]program.Program, bool, error) {
	fullKey, err := s.fullKey(key)
	if err != nil {
		return nil, false, err
	}
	raw, err := s.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("extraction cache get: %w", err)
	}
	var items []program.Program
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("decode cached extraction: %w", err)
	}
	return items, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, items []program.Program, ttl time.Duration) error {
	fullKey, err := s.fullKey(key)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode extraction: %w", err)
	}
	if err := s.client.Set(ctx, fullKey, raw, ttl).Err(); err != nil {
		return fmt.Errorf("extraction cache set: %w", err)
	}
	return nil
}

func (s *RedisStore) InvalidateExpired(_ context.Context) (int, error) {
	return 0, nil
}

func (s *RedisStore) Clear(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		cleared int
	)
	pattern := s.prefix + ":*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 256).Result()
		if err != nil {
			return cleared, fmt.Errorf("extraction cache scan: %w", err)
		}
		if len(keys) > 0 {
			removed, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return cleared, fmt.Errorf("extraction cache clear: %w", err)
			}
			cleared += int(removed)
		}
		if next == 0 {
			return cleared, nil
		}
		cursor = next
	}
}

func (s *RedisStore) fullKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("cache key is required")
	}
	return s.prefix + ":" + key, nil
}
