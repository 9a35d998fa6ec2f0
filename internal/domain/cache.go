package domain

import (
	"context"
	"time"
)

// PredictionCache provides fast prediction lookups in front of the
// projection store. Entries expire on their own; writers invalidate after
// every confirmed settlement action.
type PredictionCache interface {
	Set(ctx context.Context, p Prediction) error
	Get(ctx context.Context, predictionID int64) (Prediction, error)
	Invalidate(ctx context.Context, predictionID int64) error
}

// LeaderboardCache caches the computed leaderboard for a short TTL.
type LeaderboardCache interface {
	Set(ctx context.Context, entries []LeaderboardEntry) error
	Get(ctx context.Context) ([]LeaderboardEntry, error)
	Invalidate(ctx context.Context) error
}

// LockManager provides distributed locking for per-prediction settlement
// critical sections.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateLimiter bounds how often a keyed action may run inside a window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus provides pub/sub for settlement events consumed by the
// websocket hub and notifiers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
