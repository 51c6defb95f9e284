package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// RateLimiter implements domain.RateLimiter with a fixed-window counter
// per key. The counter and its expiry are set in one pipeline so a
// crashed client cannot leave an immortal key behind.
type RateLimiter struct {
	rdb *redis.Client
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{rdb: c.Underlying()}
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

// Allow reports whether a request for key is permitted under limit
// requests per window. Allowed requests are counted; rejected ones are
// not charged against the next window.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := "ratelimit:" + key

	pipe := rl.rdb.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit allow %s: %w", key, err)
	}

	if count.Val() > int64(limit) {
		rl.rdb.Decr(ctx, redisKey)
		return false, nil
	}
	return true, nil
}
