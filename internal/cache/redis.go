// internal/cache/redis.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whoopclone/backend/internal/logger"
)

var (
	ErrInvalidRedisURL = errors.New("invalid REDIS_URL")
	customLog          = logger.NewLogger()
)

// NewRedisOptions parses REDIS_URL and fills in retry/backoff and timeout defaults
// for anything the URL leaves unset.
func NewRedisOptions(redisURL string) (*redis.Options, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRedisURL, err)
	}

	if opt.MaxRetries == 0 {
		opt.MaxRetries = 5
	}
	if opt.MinRetryBackoff == 0 {
		opt.MinRetryBackoff = 100 * time.Millisecond
	}
	if opt.MaxRetryBackoff == 0 {
		opt.MaxRetryBackoff = 2 * time.Second
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = 3 * time.Second
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = 4 * time.Second
	}
	return opt, nil
}

// NewRedisClient builds a client for REDIS_URL. No connection is made until first use.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := NewRedisOptions(redisURL)
	if err != nil {
		return nil, err
	}
	customLog.Printf("Cache: Redis client configured for %s (db %d)", opt.Addr, opt.DB)
	return redis.NewClient(opt), nil
}

// Pinger is the part of a redis client the readiness check needs.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// HealthCheck pings redis with a short timeout.
func HealthCheck(ctx context.Context, client Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
