package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soumik404/basecast/internal/domain"
)

// PredictionStore implements domain.PredictionStore using PostgreSQL.
type PredictionStore struct {
	pool *pgxpool.Pool
}

// NewPredictionStore creates a new PredictionStore backed by the given
// connection pool.
func NewPredictionStore(pool *pgxpool.Pool) *PredictionStore {
	return &PredictionStore{pool: pool}
}

const predictionCols = `doc_id, prediction_id, title, description, currency,
	deadline, max_capacity, creator, total_yes, total_no, status,
	proposed_result, proposed_by, proposed_at,
	result, verified_by, verified_at, rejection_reason,
	reconciled, created_at, updated_at`

// Upsert inserts or updates a prediction, keyed by the on-chain numeric id.
// Last writer wins; updated_at always advances.
func (s *PredictionStore) Upsert(ctx context.Context, p domain.Prediction) error {
	const query = `
		INSERT INTO predictions (
			doc_id, prediction_id, title, description, currency,
			deadline, max_capacity, creator, total_yes, total_no, status,
			proposed_result, proposed_by, proposed_at,
			result, verified_by, verified_at, rejection_reason,
			reconciled, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14,
			$15, $16, $17, $18,
			$19, $20, NOW()
		)
		ON CONFLICT (prediction_id) DO UPDATE SET
			title            = EXCLUDED.title,
			description      = EXCLUDED.description,
			currency         = EXCLUDED.currency,
			deadline         = EXCLUDED.deadline,
			max_capacity     = EXCLUDED.max_capacity,
			total_yes        = EXCLUDED.total_yes,
			total_no         = EXCLUDED.total_no,
			status           = EXCLUDED.status,
			proposed_result  = EXCLUDED.proposed_result,
			proposed_by      = EXCLUDED.proposed_by,
			proposed_at      = EXCLUDED.proposed_at,
			result           = EXCLUDED.result,
			verified_by      = EXCLUDED.verified_by,
			verified_at      = EXCLUDED.verified_at,
			rejection_reason = EXCLUDED.rejection_reason,
			reconciled       = EXCLUDED.reconciled,
			updated_at       = NOW()`

	_, err := s.pool.Exec(ctx, query,
		p.DocID, p.PredictionID, p.Title, p.Description, string(p.Currency),
		p.Deadline, p.MaxCapacity, p.Creator, p.TotalYes, p.TotalNo, string(p.Status),
		choicePtr(p.ProposedResult), p.ProposedBy, p.ProposedAt,
		choicePtr(p.Result), p.VerifiedBy, p.VerifiedAt, p.RejectionReason,
		p.Reconciled, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert prediction %d: %w", p.PredictionID, err)
	}
	return nil
}

// choicePtr converts an optional BetChoice to a nullable string column.
func choicePtr(c *domain.BetChoice) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

// scanPrediction scans a single prediction row.
func scanPrediction(row pgx.Row) (domain.Prediction, error) {
	var (
		p               domain.Prediction
		currency        string
		status          string
		proposedResult  *string
		result          *string
	)
	err := row.Scan(
		&p.DocID, &p.PredictionID, &p.Title, &p.Description, &currency,
		&p.Deadline, &p.MaxCapacity, &p.Creator, &p.TotalYes, &p.TotalNo, &status,
		&proposedResult, &p.ProposedBy, &p.ProposedAt,
		&result, &p.VerifiedBy, &p.VerifiedAt, &p.RejectionReason,
		&p.Reconciled, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Prediction{}, err
	}
	p.Currency = domain.StakeCurrency(currency)
	p.Status = domain.PredictionStatus(status)
	if proposedResult != nil {
		c := domain.BetChoice(*proposedResult)
		p.ProposedResult = &c
	}
	if result != nil {
		c := domain.BetChoice(*result)
		p.Result = &c
	}
	return p, nil
}

// GetByPredictionID retrieves a prediction by its on-chain numeric id.
func (s *PredictionStore) GetByPredictionID(ctx context.Context, predictionID int64) (domain.Prediction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+predictionCols+` FROM predictions WHERE prediction_id = $1`, predictionID)
	p, err := scanPrediction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Prediction{}, domain.ErrNotFound
		}
		return domain.Prediction{}, fmt.Errorf("postgres: get prediction %d: %w", predictionID, err)
	}
	return p, nil
}

func (s *PredictionStore) list(ctx context.Context, query string, args ...any) ([]domain.Prediction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list predictions: %w", err)
	}
	defer rows.Close()

	var preds []domain.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan prediction: %w", err)
		}
		preds = append(preds, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list predictions rows: %w", err)
	}
	return preds, nil
}

// ListByStatus returns predictions in the given status, newest first.
func (s *PredictionStore) ListByStatus(ctx context.Context, status domain.PredictionStatus, opts domain.ListOpts) ([]domain.Prediction, error) {
	query := `SELECT ` + predictionCols + ` FROM predictions WHERE status = $1 ORDER BY created_at DESC`
	args := []any{string(status)}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}
	return s.list(ctx, query, args...)
}

// ListActive returns open predictions whose betting deadline has not passed.
func (s *PredictionStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Prediction, error) {
	query := `SELECT ` + predictionCols + ` FROM predictions
		WHERE status = 'active' AND deadline > NOW() ORDER BY deadline ASC`
	args := []any{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}
	return s.list(ctx, query, args...)
}

// ListUpdatedSince returns non-terminal predictions touched after the given
// time, used by the reconciliation sweep.
func (s *PredictionStore) ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]domain.Prediction, error) {
	query := `SELECT ` + predictionCols + ` FROM predictions
		WHERE updated_at >= $1 AND status NOT IN ('resolved', 'cancelled')
		ORDER BY updated_at DESC LIMIT $2`
	return s.list(ctx, query, since, limit)
}

// Count returns the total number of predictions in the projection.
func (s *PredictionStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM predictions").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count predictions: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.PredictionStore = (*PredictionStore)(nil)
