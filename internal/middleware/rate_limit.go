package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rehber/rehber/internal/client"
	"github.com/rehber/rehber/internal/util/logger"
)

// LimiterConfig configures a per-client token bucket. With Redis set the
// buckets are shared between processes; otherwise they live in memory and
// a client's bucket is dropped once it has been idle for BucketTTL.
type LimiterConfig struct {
	RatePerInterval int
	Interval        time.Duration
	Burst           int

	Redis     *client.RedisClient
	KeyPrefix string
	BucketTTL time.Duration
}

type RateLimiter struct {
	mu        sync.Mutex
	cfg       LimiterConfig
	buckets   map[string]*tokenBucket
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(cfg LimiterConfig) *RateLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:"
	}
	if cfg.BucketTTL <= 0 {
		cfg.BucketTTL = 24 * time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RatePerInterval
	}
	return &RateLimiter{
		cfg:     cfg,
		buckets: make(map[string]*tokenBucket),
		now:     time.Now,
	}
}

// Handler rejects requests over the limit with 429. Redis failures let the
// request through and mark the response as degraded.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := remoteAddrIP(r.RemoteAddr).String()

		if rl.cfg.Redis != nil {
			ok, err := rl.redisAllow(r.Context(), rl.cfg.KeyPrefix+key)
			if err != nil {
				logger.Warnf("rate limiter degraded: %v", err)
				w.Header().Set("X-RateLimit-Degraded", "true")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				tooMany(w, rl.cfg.Interval)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if !rl.bucket(key).allow(rl.now(), 1) {
			tooMany(w, rl.cfg.Interval)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tooMany(w http.ResponseWriter, retry time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
	http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
}

type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64
	lastRefill time.Time
}

func newBucket(rate int, interval time.Duration, burst int, now time.Time) *tokenBucket {
	return &tokenBucket{
		capacity:   float64(burst),
		tokens:     float64(burst),
		refillRate: float64(rate) / interval.Seconds(),
		lastRefill: now,
	}
}

func (b *tokenBucket) allow(now time.Time, cost int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now

	if b.tokens >= float64(cost) {
		b.tokens -= float64(cost)
		return true
	}
	return false
}

func (b *tokenBucket) idleSince(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.lastRefill)
}

func (rl *RateLimiter) bucket(key string) *tokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.cfg.BucketTTL {
		rl.evictIdle(now)
		rl.lastSweep = now
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = newBucket(rl.cfg.RatePerInterval, rl.cfg.Interval, rl.cfg.Burst, now)
		rl.buckets[key] = b
	}
	return b
}

// evictIdle drops buckets unused for BucketTTL. Caller holds rl.mu.
func (rl *RateLimiter) evictIdle(now time.Time) {
	for k, b := range rl.buckets {
		if b.idleSince(now) >= rl.cfg.BucketTTL {
			delete(rl.buckets, k)
		}
	}
}

var luaScript = client.NewScript(`
-- KEYS = bucket key
-- ARGV = now_ms, rate_per_sec, capacity, cost, ttl_sec
local key = KEYS[1]
local now = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local cap = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local data = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if not tokens or not ts then
  tokens = cap
  ts = now
else
  local elapsed = (now - ts) / 1000
  tokens = math.min(cap, tokens + (elapsed * rate))
  ts = now
end

local allowed = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "ts", ts)
redis.call("EXPIRE", key, ttl)

return allowed
`)

func (rl *RateLimiter) redisAllow(ctx context.Context, key string) (bool, error) {
	var allowed bool
	err := rl.cfg.Redis.InstrumentedDo(ctx, func(ctx context.Context) error {
		res, err := luaScript.Run(ctx, rl.cfg.Redis, []string{key},
			rl.now().UnixMilli(),
			float64(rl.cfg.RatePerInterval)/rl.cfg.Interval.Seconds(),
			rl.cfg.Burst,
			1,
			int(rl.cfg.BucketTTL.Seconds()),
		).Int64()
		allowed = res == 1
		return err
	})
	return allowed, err
}
