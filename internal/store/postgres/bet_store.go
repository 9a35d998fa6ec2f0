package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soumik404/basecast/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

const betCols = `doc_id, bet_id, prediction_id, bettor, choice, amount,
	payout, claimed, placed_at, updated_at`

// Create inserts a confirmed bet. The (prediction_id, bettor) unique
// constraint backs the one-bet-per-pair invariant at the projection level;
// the real guard is the orchestrator's on-chain scan.
func (s *BetStore) Create(ctx context.Context, b domain.Bet) error {
	const query = `
		INSERT INTO bets (
			doc_id, bet_id, prediction_id, bettor, choice, amount,
			payout, claimed, placed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`

	_, err := s.pool.Exec(ctx, query,
		b.DocID, b.BetID, b.PredictionID, b.Bettor, string(b.Choice), b.Amount,
		b.Payout, b.Claimed, b.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create bet %d: %w", b.BetID, err)
	}
	return nil
}

func scanBet(row pgx.Row) (domain.Bet, error) {
	var (
		b      domain.Bet
		choice string
	)
	err := row.Scan(
		&b.DocID, &b.BetID, &b.PredictionID, &b.Bettor, &choice, &b.Amount,
		&b.Payout, &b.Claimed, &b.PlacedAt, &b.UpdatedAt,
	)
	if err != nil {
		return domain.Bet{}, err
	}
	b.Choice = domain.BetChoice(choice)
	return b, nil
}

// GetByDocID retrieves a bet by its projection row id.
func (s *BetStore) GetByDocID(ctx context.Context, docID string) (domain.Bet, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+betCols+` FROM bets WHERE doc_id = $1`, docID)
	b, err := scanBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bet{}, domain.ErrNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: get bet %s: %w", docID, err)
	}
	return b, nil
}

// GetByBetID retrieves a bet by its on-chain id.
func (s *BetStore) GetByBetID(ctx context.Context, betID int64) (domain.Bet, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+betCols+` FROM bets WHERE bet_id = $1`, betID)
	b, err := scanBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bet{}, domain.ErrNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: get bet %d: %w", betID, err)
	}
	return b, nil
}

// GetUserBet retrieves the bettor's single bet on a prediction, if any.
func (s *BetStore) GetUserBet(ctx context.Context, predictionID int64, bettor string) (domain.Bet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+betCols+` FROM bets WHERE prediction_id = $1 AND LOWER(bettor) = LOWER($2)`,
		predictionID, bettor)
	b, err := scanBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bet{}, domain.ErrNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: get user bet %d/%s: %w", predictionID, bettor, err)
	}
	return b, nil
}

func (s *BetStore) list(ctx context.Context, query string, args ...any) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets: %w", err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bets rows: %w", err)
	}
	return bets, nil
}

// ListByPrediction returns every bet on a prediction, oldest first.
func (s *BetStore) ListByPrediction(ctx context.Context, predictionID int64, opts domain.ListOpts) ([]domain.Bet, error) {
	query := `SELECT ` + betCols + ` FROM bets WHERE prediction_id = $1 ORDER BY placed_at ASC`
	args := []any{predictionID}
	if opts.Limit > 0 {
		query += " LIMIT $2"
		args = append(args, opts.Limit)
	}
	return s.list(ctx, query, args...)
}

// ListByUser returns a bettor's bets, newest first.
func (s *BetStore) ListByUser(ctx context.Context, bettor string, opts domain.ListOpts) ([]domain.Bet, error) {
	query := `SELECT ` + betCols + ` FROM bets WHERE LOWER(bettor) = LOWER($1) ORDER BY placed_at DESC`
	args := []any{bettor}
	if opts.Limit > 0 {
		query += " LIMIT $2"
		args = append(args, opts.Limit)
	}
	return s.list(ctx, query, args...)
}

// SetPayouts writes computed payouts for a batch of bets in one transaction,
// so resolution never leaves a prediction half-paid.
func (s *BetStore) SetPayouts(ctx context.Context, payouts map[string]float64) error {
	if len(payouts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for docID, payout := range payouts {
		batch.Queue(
			`UPDATE bets SET payout = $1, updated_at = NOW() WHERE doc_id = $2`,
			payout, docID,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range payouts {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: set payouts: %w", err)
		}
	}
	return nil
}

// MarkClaimed sets the claimed flag. It is irreversible.
func (s *BetStore) MarkClaimed(ctx context.Context, docID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bets SET claimed = TRUE, updated_at = NOW() WHERE doc_id = $1`, docID)
	if err != nil {
		return fmt.Errorf("postgres: mark bet %s claimed: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.BetStore = (*BetStore)(nil)
