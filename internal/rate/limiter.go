package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned once a handle exceeds its failed-login budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis command failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config holds limiter tuning parameters.
type Config struct {
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	KeyPrefix             string
}

// DefaultConfig allows five failures per handle in a fifteen-minute window.
func DefaultConfig() Config {
	return Config{
		MaxLoginAttempts:      5,
		LoginCooldownDuration: 15 * time.Minute,
		KeyPrefix:             "cosyncjwt:login:",
	}
}

// Limiter counts failed logins per handle in Redis using fixed windows.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by redisClient.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns ErrRateLimited when handle has used up its budget.
func (l *Limiter) CheckLogin(ctx context.Context, handle string) error {
	count, err := l.redis.Get(ctx, l.key(handle)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

// RecordFailure counts one failed login for handle.
func (l *Limiter) RecordFailure(ctx context.Context, handle string) error {
	key := l.key(handle)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set by the first failure only.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.LoginCooldownDuration).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

// Reset clears the counter of handle after a successful login.
func (l *Limiter) Reset(ctx context.Context, handle string) error {
	if err := l.redis.Del(ctx, l.key(handle)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the failures recorded for handle in the current window.
func (l *Limiter) Attempts(ctx context.Context, handle string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(handle)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) key(handle string) string {
	return l.config.KeyPrefix + handle
}
