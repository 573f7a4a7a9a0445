package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/wonny/aegis-allocator/pkg/logger"
)

// Cache provides typed JSON caching with in-flight deduplication
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
	group  singleflight.Group
	logger *logger.Logger
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string, log *logger.Logger) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
		logger: log,
	}
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value; a missing key is (false, nil)
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}
	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// GetOrSet retrieves from cache or calls fn to populate it.
// Concurrent misses on the same key share one fn call.
// 읽기 실패는 에러로 반환, 쓰기 실패는 Warn 로그만 남기고 계산 결과를 그대로 반환.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) (hit bool, err error) {
	// Try cache first
	found, err := c.Get(ctx, key, dest)
	if err != nil {
		return false, err
	}
	if found {
		return true, nil
	}

	// Cache miss - call function once per key
	data, err, _ := c.group.Do(key, func() (interface{}, error) {
		value, err := fn()
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, key, value, ttl); err != nil {
			c.logger.WithError(err).WithField("key", c.key(key)).Warn("Cache write failed")
		}
		return json.Marshal(value)
	})
	if err != nil {
		return false, err
	}

	// Unmarshal into dest
	if err := json.Unmarshal(data.([]byte), dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}
	return false, nil
}

// DefaultTTL 파이프라인 결과 캐시 기본 TTL
const DefaultTTL = 10 * time.Minute

// PipelineKey cache key for a pipeline request under one refdata version.
// 참조 테이블이 리로드되면 해시가 바뀌어 이전 결과는 TTL로 자연 소멸.
func PipelineKey(refdataHash, requestHash string) string {
	return fmt.Sprintf("pipeline:%s:%s", refdataHash, requestHash)
}
