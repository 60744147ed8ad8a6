// Package client holds connections to external services.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rehber/rehber/internal/util/logger"
)

// ErrCircuitOpen is returned while the breaker refuses calls.
var ErrCircuitOpen = errors.New("redis circuit breaker open")

// RedisConfig defines configuration for the Redis client.
type RedisConfig struct {
	Address         string
	Password        string
	DB              int
	PoolSize        int
	MinIdleConns    int
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolTimeout     time.Duration
	ConnMaxIdleTime time.Duration
	// ConnectRetry bounds how long the first ping is retried. Zero pings once.
	ConnectRetry   time.Duration
	CircuitBreaker CircuitBreakerConfig
}

type CircuitBreakerConfig struct {
	Enabled      bool
	FailureRatio float64
	RecoveryTime time.Duration
	MinRequests  uint64
}

// ConfigFromURL parses redis://[:password@]host[:port][/db].
func ConfigFromURL(u string) (RedisConfig, error) {
	opts, err := redis.ParseURL(u)
	if err != nil {
		return RedisConfig{}, fmt.Errorf("parse redis url: %w", err)
	}
	return RedisConfig{
		Address:  opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		// A redis started alongside the desktop shell may still be booting.
		ConnectRetry: 5 * time.Second,
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:      true,
			FailureRatio: 0.5,
			RecoveryTime: 30 * time.Second,
			MinRequests:  20,
		},
	}, nil
}

// RedisClient wraps redis.Client with tracing and a circuit breaker.
type RedisClient struct {
	*redis.Client
	config RedisConfig
	mu     sync.Mutex
	closed bool
	tracer trace.Tracer
	cb     *circuitBreaker
}

type circuitBreaker struct {
	mu           sync.Mutex
	state        string // "closed", "open", "half-open"
	failures     uint64
	successes    uint64
	total        uint64
	lastFailure  time.Time
	failureRatio float64
	recoveryTime time.Duration
	minRequests  uint64
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*RedisClient, error) {
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = cfg.PoolSize / 2
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	if cfg.PoolTimeout == 0 {
		cfg.PoolTimeout = 4 * time.Second
	}
	if cfg.ConnMaxIdleTime == 0 {
		cfg.ConnMaxIdleTime = 5 * time.Minute
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Address,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolTimeout:     cfg.PoolTimeout,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	})

	if err := pingWithRetry(ctx, rdb, cfg.ConnectRetry); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	rc := &RedisClient{
		Client: rdb,
		config: cfg,
		tracer: otel.Tracer("redis"),
	}
	if cfg.CircuitBreaker.Enabled {
		rc.cb = &circuitBreaker{
			state:        "closed",
			failureRatio: cfg.CircuitBreaker.FailureRatio,
			recoveryTime: cfg.CircuitBreaker.RecoveryTime,
			minRequests:  cfg.CircuitBreaker.MinRequests,
		}
	}
	rdb.AddHook(tracingHook{})

	logger.Infof("redis client connected to %s (db %d)", cfg.Address, cfg.DB)
	return rc, nil
}

// Close terminates the connection pool. Safe to call twice.
func (c *RedisClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.Client.Close()
}

// HealthCheck pings Redis unless the breaker is open.
func (c *RedisClient) HealthCheck(ctx context.Context) error {
	return c.InstrumentedDo(ctx, func(ctx context.Context) error {
		return c.Ping(ctx).Err()
	})
}

// InstrumentedDo runs fn through the circuit breaker.
func (c *RedisClient) InstrumentedDo(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}
	err := fn(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		c.recordFailure()
		if isTimeoutError(err) {
			logger.Warnf("redis timeout: %v", err)
		}
		return err
	}
	c.recordSuccess()
	return err
}

// CircuitBreakerState returns "disabled", "closed", "open" or "half-open".
func (c *RedisClient) CircuitBreakerState() string {
	if c.cb == nil {
		return "disabled"
	}
	c.cb.mu.Lock()
	defer c.cb.mu.Unlock()
	return c.cb.state
}

// NewScript exposes redis.NewScript so callers need not import go-redis.
func NewScript(script string) *redis.Script {
	return redis.NewScript(script)
}

type tracingHook struct{}

func (tracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(
				attribute.String("net.transport", network),
				attribute.String("net.peer.name", addr),
			)
		}
		return next(ctx, network, addr)
	}
}

func (tracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		span := trace.SpanFromContext(ctx)
		if span.IsRecording() {
			span.SetAttributes(
				attribute.String("db.system", "redis"),
				attribute.String("db.operation", cmd.Name()),
			)
		}
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) && span.IsRecording() {
			span.RecordError(err)
		}
		return err
	}
}

func (tracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		span := trace.SpanFromContext(ctx)
		if span.IsRecording() {
			span.SetAttributes(
				attribute.String("db.system", "redis"),
				attribute.String("db.operation", "pipeline"),
				attribute.Int("db.command_count", len(cmds)),
			)
		}
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) && span.IsRecording() {
			span.RecordError(err)
		}
		return err
	}
}

func (c *RedisClient) isCircuitOpen() bool {
	if c.cb == nil {
		return false
	}
	c.cb.mu.Lock()
	defer c.cb.mu.Unlock()

	if c.cb.state == "open" {
		if time.Since(c.cb.lastFailure) <= c.cb.recoveryTime {
			return true
		}
		c.cb.state = "half-open"
		c.cb.failures = 0
		c.cb.successes = 0
		c.cb.total = 0
		logger.Warn("redis circuit moving to half-open state")
	}
	return false
}

func (c *RedisClient) recordFailure() {
	if c.cb == nil {
		return
	}
	c.cb.mu.Lock()
	defer c.cb.mu.Unlock()

	c.cb.failures++
	c.cb.total++
	c.cb.lastFailure = time.Now()

	if c.cb.state == "half-open" {
		c.cb.state = "open"
		logger.Error("redis circuit re-opened after failure")
		return
	}
	if c.cb.total >= c.cb.minRequests {
		ratio := float64(c.cb.failures) / float64(c.cb.total)
		if ratio >= c.cb.failureRatio {
			c.cb.state = "open"
			logger.Errorf("redis circuit opened, failure ratio %.2f", ratio)
		}
	}
}

func (c *RedisClient) recordSuccess() {
	if c.cb == nil {
		return
	}
	c.cb.mu.Lock()
	defer c.cb.mu.Unlock()

	c.cb.successes++
	c.cb.total++

	if c.cb.state == "half-open" && c.cb.successes >= c.cb.minRequests/2 {
		c.cb.state = "closed"
		c.cb.failures = 0
		c.cb.successes = 0
		c.cb.total = 0
		logger.Warn("redis circuit closed after successful operations")
	}
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func pingWithRetry(ctx context.Context, rdb *redis.Client, maxElapsed time.Duration) error {
	if maxElapsed <= 0 {
		return rdb.Ping(ctx).Err()
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 2 * time.Second
	exp.Reset()

	op := func() (struct{}, error) {
		err := rdb.Ping(ctx).Err()
		if err != nil {
			logger.Debugf("[Redis] ping failed, retrying: %v", err)
		}
		return struct{}{}, err
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(exp),
		backoff.WithMaxElapsedTime(maxElapsed),
	)
	return err
}
