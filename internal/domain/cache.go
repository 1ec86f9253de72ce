package domain

import (
	"context"
	"time"
)

// Signal is a single message delivered by the SignalBus. Channel is the
// concrete channel the message was published to, which matters for pattern
// subscriptions where it differs from the subscribed pattern.
type Signal struct {
	Channel string
	Payload []byte
}

// SignalBus is the real-time publish primitive. Implementations fan messages
// out to every subscriber of a channel; delivery is best-effort.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan Signal, error)
}

// MarketCache caches market snapshots in front of the market store. Entries
// expire by TTL; markets are read-only input here so nothing invalidates
// them early.
type MarketCache interface {
	Get(ctx context.Context, id string) (Market, error)
	Set(ctx context.Context, market Market) error
}

// RateLimiter limits the number of allowed events per key per window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
