package domain

import (
	"context"
	"time"
)

// MarketCache provides fast market lookups in front of the market
// source.
type MarketCache interface {
	Set(ctx context.Context, market Market, ttl time.Duration) error
	SetBatch(ctx context.Context, markets []Market, ttl time.Duration) error
	Get(ctx context.Context, id string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}

// SignalBus provides pub/sub fan-out of trading events to interested
// consumers (the websocket hub, notifiers).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter provides distributed request rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
