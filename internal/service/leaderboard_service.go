package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soumik404/basecast/internal/domain"
)

// LeaderboardService serves the profit-ranked bettor aggregate, cache-aside
// with a short TTL. The cache is invalidated on every resolution, so the
// board tightens within one settlement.
type LeaderboardService struct {
	store  domain.LeaderboardStore
	cache  domain.LeaderboardCache
	logger *slog.Logger
}

// NewLeaderboardService creates a LeaderboardService. cache may be nil.
func NewLeaderboardService(store domain.LeaderboardStore, cache domain.LeaderboardCache, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "leaderboard")),
	}
}

// Top returns the leaderboard, best profit first.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if s.cache != nil {
		entries, err := s.cache.Get(ctx)
		if err == nil && len(entries) > 0 {
			if limit > 0 && limit < len(entries) {
				entries = entries[:limit]
			}
			return entries, nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "cache read failed", slog.String("error", err.Error()))
		}
	}

	entries, err := s.store.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: compute: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, entries); err != nil {
			s.logger.WarnContext(ctx, "cache write failed", slog.String("error", err.Error()))
		}
	}
	return entries, nil
}
