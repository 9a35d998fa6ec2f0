package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soumik404/basecast/internal/domain"
)

// VerifierStore implements domain.VerifierStore using PostgreSQL.
type VerifierStore struct {
	pool *pgxpool.Pool
}

// NewVerifierStore creates a new VerifierStore backed by the given
// connection pool.
func NewVerifierStore(pool *pgxpool.Pool) *VerifierStore {
	return &VerifierStore{pool: pool}
}

// Upsert inserts or reactivates a verifier record.
func (s *VerifierStore) Upsert(ctx context.Context, v domain.Verifier) error {
	const query = `
		INSERT INTO verifiers (address, name, added_by, added_at, active)
		VALUES (LOWER($1), $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE SET
			name = EXCLUDED.name,
			added_by = EXCLUDED.added_by,
			added_at = EXCLUDED.added_at,
			active = EXCLUDED.active`

	_, err := s.pool.Exec(ctx, query, v.Address, v.Name, v.AddedBy, v.AddedAt, v.Active)
	if err != nil {
		return fmt.Errorf("postgres: upsert verifier %s: %w", v.Address, err)
	}
	return nil
}

// Get retrieves a verifier record by address.
func (s *VerifierStore) Get(ctx context.Context, addr string) (domain.Verifier, error) {
	var v domain.Verifier
	err := s.pool.QueryRow(ctx,
		`SELECT address, name, added_by, added_at, active FROM verifiers WHERE address = LOWER($1)`,
		addr,
	).Scan(&v.Address, &v.Name, &v.AddedBy, &v.AddedAt, &v.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Verifier{}, domain.ErrNotFound
		}
		return domain.Verifier{}, fmt.Errorf("postgres: get verifier %s: %w", addr, err)
	}
	return v, nil
}

// Deactivate marks a verifier inactive. The row is kept for audit history.
func (s *VerifierStore) Deactivate(ctx context.Context, addr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE verifiers SET active = FALSE WHERE address = LOWER($1)`, addr)
	if err != nil {
		return fmt.Errorf("postgres: deactivate verifier %s: %w", addr, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListActive returns all active verifiers, oldest first.
func (s *VerifierStore) ListActive(ctx context.Context) ([]domain.Verifier, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, name, added_by, added_at, active FROM verifiers
		 WHERE active = TRUE ORDER BY added_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list verifiers: %w", err)
	}
	defer rows.Close()

	var verifiers []domain.Verifier
	for rows.Next() {
		var v domain.Verifier
		if err := rows.Scan(&v.Address, &v.Name, &v.AddedBy, &v.AddedAt, &v.Active); err != nil {
			return nil, fmt.Errorf("postgres: scan verifier: %w", err)
		}
		verifiers = append(verifiers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list verifiers rows: %w", err)
	}
	return verifiers, nil
}

// Compile-time interface check.
var _ domain.VerifierStore = (*VerifierStore)(nil)
