package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soumik404/basecast/internal/domain"
)

// ProposalStore implements domain.ProposalStore using PostgreSQL.
type ProposalStore struct {
	pool *pgxpool.Pool
}

// NewProposalStore creates a new ProposalStore backed by the given
// connection pool.
func NewProposalStore(pool *pgxpool.Pool) *ProposalStore {
	return &ProposalStore{pool: pool}
}

const proposalCols = `doc_id, prediction_id, result, proposed_by, proposed_at,
	verified, approved, verified_by, verified_at, rejection_reason, reconciled`

// Create inserts a new proposal round.
func (s *ProposalStore) Create(ctx context.Context, p domain.Proposal) error {
	const query = `
		INSERT INTO result_proposals (
			doc_id, prediction_id, result, proposed_by, proposed_at,
			verified, approved, verified_by, verified_at, rejection_reason, reconciled
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		p.DocID, p.PredictionID, string(p.Result), p.ProposedBy, p.ProposedAt,
		p.Verified, p.Approved, p.VerifiedBy, p.VerifiedAt, p.RejectionReason, p.Reconciled,
	)
	if err != nil {
		return fmt.Errorf("postgres: create proposal for %d: %w", p.PredictionID, err)
	}
	return nil
}

func scanProposal(row pgx.Row) (domain.Proposal, error) {
	var (
		p      domain.Proposal
		result string
	)
	err := row.Scan(
		&p.DocID, &p.PredictionID, &result, &p.ProposedBy, &p.ProposedAt,
		&p.Verified, &p.Approved, &p.VerifiedBy, &p.VerifiedAt, &p.RejectionReason, &p.Reconciled,
	)
	if err != nil {
		return domain.Proposal{}, err
	}
	p.Result = domain.BetChoice(result)
	return p, nil
}

// GetOpen returns the unverified proposal for a prediction, if one is in
// flight. At most one proposal is open at a time.
func (s *ProposalStore) GetOpen(ctx context.Context, predictionID int64) (domain.Proposal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+proposalCols+` FROM result_proposals
		 WHERE prediction_id = $1 AND verified = FALSE
		 ORDER BY proposed_at DESC LIMIT 1`, predictionID)
	p, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Proposal{}, domain.ErrNotFound
		}
		return domain.Proposal{}, fmt.Errorf("postgres: get open proposal %d: %w", predictionID, err)
	}
	return p, nil
}

// Update overwrites a proposal row by doc id.
func (s *ProposalStore) Update(ctx context.Context, p domain.Proposal) error {
	const query = `
		UPDATE result_proposals SET
			result = $1, verified = $2, approved = $3, verified_by = $4,
			verified_at = $5, rejection_reason = $6, reconciled = $7
		WHERE doc_id = $8`

	tag, err := s.pool.Exec(ctx, query,
		string(p.Result), p.Verified, p.Approved, p.VerifiedBy,
		p.VerifiedAt, p.RejectionReason, p.Reconciled, p.DocID,
	)
	if err != nil {
		return fmt.Errorf("postgres: update proposal %s: %w", p.DocID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByPrediction returns all proposal rounds for a prediction, newest
// first.
func (s *ProposalStore) ListByPrediction(ctx context.Context, predictionID int64) ([]domain.Proposal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+proposalCols+` FROM result_proposals
		 WHERE prediction_id = $1 ORDER BY proposed_at DESC`, predictionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list proposals %d: %w", predictionID, err)
	}
	defer rows.Close()

	var proposals []domain.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list proposals rows: %w", err)
	}
	return proposals, nil
}

// Compile-time interface check.
var _ domain.ProposalStore = (*ProposalStore)(nil)
