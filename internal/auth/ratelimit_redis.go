package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 2 * time.Second

// recordFailureScript counts a failure in the current window and sets the
// lock key once the count reaches the limit.
var recordFailureScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if count >= tonumber(ARGV[2]) then
  redis.call("SET", KEYS[2], "1", "PX", ARGV[3])
  return 1
end
return 0
`)

// RedisRateLimiter is a LoginLimiter shared by every instance that points at
// the same Redis. On Redis failures it fails closed.
type RedisRateLimiter struct {
	client      *redis.Client
	prefix      string
	maxAttempts int
	window      time.Duration
	lockout     time.Duration
}

// NewRedisRateLimiter creates a Redis-backed login limiter.
func NewRedisRateLimiter(addr, password, prefix string, cfg RateLimitConfig) (*RedisRateLimiter, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	if cfg.MaxAttempts <= 0 || cfg.WindowDuration <= 0 || cfg.LockoutDuration <= 0 {
		return nil, errors.New("rate limiter requires positive attempts, window and lockout")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "library:ratelimit"
	}
	return &RedisRateLimiter{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix:      prefix,
		maxAttempts: cfg.MaxAttempts,
		window:      cfg.WindowDuration,
		lockout:     cfg.LockoutDuration,
	}, nil
}

func (l *RedisRateLimiter) keys(ip, login string) (counter, lock string) {
	key := limiterKey(ip, strings.ToLower(login))
	slot := time.Now().UTC().UnixMilli() / l.window.Milliseconds()
	return fmt.Sprintf("%s:%s:%d", l.prefix, key, slot), fmt.Sprintf("%s:lock:%s", l.prefix, key)
}

func (l *RedisRateLimiter) Allow(ip, login string) (bool, time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	counter, lock := l.keys(ip, login)
	ttl, err := l.client.PTTL(ctx, lock).Result()
	if err != nil {
		slog.Warn("login limiter unavailable", "error", err)
		return false, l.window
	}
	if ttl > 0 {
		return false, ttl
	}

	count, err := l.client.Get(ctx, counter).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("login limiter unavailable", "error", err)
		return false, l.window
	}
	if count >= l.maxAttempts {
		return false, l.lockout
	}
	return true, 0
}

func (l *RedisRateLimiter) RecordFailure(ip, login string) (bool, time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	counter, lock := l.keys(ip, login)
	locked, err := recordFailureScript.Run(ctx, l.client, []string{counter, lock},
		l.window.Milliseconds(), l.maxAttempts, l.lockout.Milliseconds()).Int()
	if err != nil {
		slog.Warn("failed to record login failure", "error", err)
		return false, 0
	}
	if locked == 1 {
		return true, l.lockout
	}
	return false, 0
}

func (l *RedisRateLimiter) RecordSuccess(ip, login string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	counter, lock := l.keys(ip, login)
	if err := l.client.Del(ctx, counter, lock).Err(); err != nil {
		slog.Warn("failed to clear login failures", "error", err)
	}
}

// Ping checks the Redis connection.
func (l *RedisRateLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisRateLimiter) Close() error {
	return l.client.Close()
}

var _ LoginLimiter = (*RedisRateLimiter)(nil)
