package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether one request for key may proceed.
// Returns (allowed, remaining, error).
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, int, error)
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Limit  int           // Maximum requests allowed
	Window time.Duration // Time window
}

// PerMinute returns a config allowing n requests per minute
func PerMinute(n int) RateLimitConfig {
	return RateLimitConfig{Limit: n, Window: time.Minute}
}

// NewLimiter returns the Redis limiter when Redis is enabled, otherwise an in-process one
func NewLimiter(client *Client, prefix string, cfg RateLimitConfig) Limiter {
	if client != nil && client.Enabled() {
		return NewRateLimiter(client, prefix, cfg)
	}
	return NewLocalLimiter(cfg)
}

// ============================================================================
// Redis sliding window
// ============================================================================

// slidingWindow removes expired entries, counts, and admits atomically
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	else
		return {0, 0}
	end
`)

// RateLimiter implements sliding window rate limiting using Redis
// ⭐ SSOT: 여러 API 인스턴스가 같은 한도를 공유
type RateLimiter struct {
	client *Client
	prefix string
	cfg    RateLimitConfig

	mu  sync.Mutex
	seq uint64
}

// NewRateLimiter creates a new Redis rate limiter
func NewRateLimiter(client *Client, prefix string, cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
		cfg:    cfg,
	}
}

// Allow checks if a request is allowed under the rate limit
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	if !r.client.Enabled() {
		// If Redis is disabled, allow all requests
		return true, r.cfg.Limit, nil
	}

	now := time.Now().UnixMilli()
	windowStart := now - r.cfg.Window.Milliseconds()

	// 같은 밀리초 요청도 구분되도록 member에 순번 부여
	r.mu.Lock()
	r.seq++
	member := fmt.Sprintf("%d-%d", now, r.seq)
	r.mu.Unlock()

	result, err := slidingWindow.Run(ctx, r.client.Redis(),
		[]string{fmt.Sprintf("%s:ratelimit:%s", r.prefix, key)},
		now,
		windowStart,
		r.cfg.Limit,
		r.cfg.Window.Milliseconds(),
		member,
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	allowed := result[0].(int64) == 1
	remaining := int(result[1].(int64))
	return allowed, remaining, nil
}

// ============================================================================
// In-process token bucket (Redis disabled)
// ============================================================================

// DefaultLocalMaxKeys bounds the number of buckets a LocalLimiter keeps
const DefaultLocalMaxKeys = 10000

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter keeps one token bucket per key.
// 버킷 수가 maxKeys에 닿으면 Window 이상 쉬었던 버킷(이미 가득 찬 상태)을 정리하고,
// 그래도 가득하면 가장 오래 안 쓰인 버킷 하나를 버림.
type LocalLimiter struct {
	cfg     RateLimitConfig
	maxKeys int
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*localBucket
}

// NewLocalLimiter creates an in-process limiter with burst = Limit
func NewLocalLimiter(cfg RateLimitConfig) *LocalLimiter {
	return NewLocalLimiterWithMax(cfg, DefaultLocalMaxKeys)
}

// NewLocalLimiterWithMax is NewLocalLimiter with an explicit bucket bound
func NewLocalLimiterWithMax(cfg RateLimitConfig, maxKeys int) *LocalLimiter {
	if maxKeys < 1 {
		maxKeys = DefaultLocalMaxKeys
	}
	return &LocalLimiter{
		cfg:     cfg,
		maxKeys: maxKeys,
		now:     time.Now,
		buckets: make(map[string]*localBucket),
	}
}

// Allow consumes one token for key if available
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, int, error) {
	if l.cfg.Limit <= 0 {
		return true, 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.maxKeys {
			l.evict(now)
		}
		every := rate.Every(l.cfg.Window / time.Duration(l.cfg.Limit))
		b = &localBucket{limiter: rate.NewLimiter(every, l.cfg.Limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	if !b.limiter.AllowN(now, 1) {
		return false, 0, nil
	}
	return true, int(b.limiter.TokensAt(now)), nil
}

// Len reports the number of live buckets
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// evict runs with l.mu held
func (l *LocalLimiter) evict(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.cfg.Window {
			delete(l.buckets, k)
			continue
		}
		if !found || b.lastSeen.Before(oldest) {
			oldestKey, oldest, found = k, b.lastSeen, true
		}
	}
	if len(l.buckets) >= l.maxKeys && found {
		delete(l.buckets, oldestKey)
	}
}
