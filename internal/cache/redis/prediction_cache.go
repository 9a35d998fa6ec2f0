package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soumik404/basecast/internal/domain"
)

// predictionTTL bounds how stale a cached prediction can get before the
// next read falls through to the projection store.
const predictionTTL = 30 * time.Second

// PredictionCache implements domain.PredictionCache using JSON-serialized
// predictions keyed by on-chain numeric id.
//
// Key schema:
//
//	prediction:{id} - JSON-encoded domain.Prediction
type PredictionCache struct {
	rdb *redis.Client
}

// NewPredictionCache creates a PredictionCache backed by the given Client.
func NewPredictionCache(c *Client) *PredictionCache {
	return &PredictionCache{rdb: c.Underlying()}
}

func predictionKey(id int64) string {
	return "prediction:" + strconv.FormatInt(id, 10)
}

// Set stores a prediction with the cache TTL.
func (pc *PredictionCache) Set(ctx context.Context, p domain.Prediction) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal prediction %d: %w", p.PredictionID, err)
	}
	if err := pc.rdb.Set(ctx, predictionKey(p.PredictionID), data, predictionTTL).Err(); err != nil {
		return fmt.Errorf("redis: set prediction %d: %w", p.PredictionID, err)
	}
	return nil
}

// Get retrieves a prediction by its on-chain id. It returns
// domain.ErrNotFound on a cache miss.
func (pc *PredictionCache) Get(ctx context.Context, predictionID int64) (domain.Prediction, error) {
	data, err := pc.rdb.Get(ctx, predictionKey(predictionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Prediction{}, domain.ErrNotFound
		}
		return domain.Prediction{}, fmt.Errorf("redis: get prediction %d: %w", predictionID, err)
	}

	var p domain.Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Prediction{}, fmt.Errorf("redis: unmarshal prediction %d: %w", predictionID, err)
	}
	return p, nil
}

// Invalidate drops the cached entry so the next read refetches from the
// projection store.
func (pc *PredictionCache) Invalidate(ctx context.Context, predictionID int64) error {
	if err := pc.rdb.Del(ctx, predictionKey(predictionID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate prediction %d: %w", predictionID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PredictionCache = (*PredictionCache)(nil)
