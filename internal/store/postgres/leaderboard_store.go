package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soumik404/basecast/internal/domain"
)

// LeaderboardStore implements domain.LeaderboardStore with a SQL aggregate
// over resolved bets.
type LeaderboardStore struct {
	pool *pgxpool.Pool
}

// NewLeaderboardStore creates a new LeaderboardStore backed by the given
// connection pool.
func NewLeaderboardStore(pool *pgxpool.Pool) *LeaderboardStore {
	return &LeaderboardStore{pool: pool}
}

// Top returns the bettors ranked by total profit across resolved
// predictions. Profit counts payout minus stake for winners and the full
// stake as loss for losers; win rate is wins over resolved bets, as a
// percentage.
func (s *LeaderboardStore) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	const query = `
		SELECT
			LOWER(b.bettor) AS address,
			COALESCE(SUM(
				CASE WHEN b.choice = p.result THEN COALESCE(b.payout, 0) - b.amount
				     ELSE -b.amount END
			), 0) AS total_profit,
			COUNT(*) AS total_bets,
			COUNT(*) FILTER (WHERE b.choice = p.result) AS wins
		FROM bets b
		JOIN predictions p ON p.prediction_id = b.prediction_id
		WHERE p.status = 'resolved' AND p.result IS NOT NULL
		GROUP BY LOWER(b.bettor)
		ORDER BY total_profit DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Address, &e.TotalProfit, &e.TotalBets, &e.Wins); err != nil {
			return nil, fmt.Errorf("postgres: scan leaderboard entry: %w", err)
		}
		if e.TotalBets > 0 {
			e.WinRate = float64(e.Wins) / float64(e.TotalBets) * 100
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: leaderboard rows: %w", err)
	}
	return entries, nil
}

// Compile-time interface check.
var _ domain.LeaderboardStore = (*LeaderboardStore)(nil)
