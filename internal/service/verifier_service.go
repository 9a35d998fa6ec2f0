package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/soumik404/basecast/internal/domain"
)

// VerifierService manages the verifier registry. The contract's verifiers
// mapping is the authorization truth; the projection keeps the name and
// provenance metadata the contract cannot hold.
type VerifierService struct {
	reader    domain.ChainReader
	writer    domain.ChainWriter
	verifiers domain.VerifierStore
	audit     domain.AuditStore
	logger    *slog.Logger

	now func() time.Time
}

// NewVerifierService creates a VerifierService.
func NewVerifierService(
	reader domain.ChainReader,
	writer domain.ChainWriter,
	verifiers domain.VerifierStore,
	audit domain.AuditStore,
	logger *slog.Logger,
) *VerifierService {
	return &VerifierService{
		reader:    reader,
		writer:    writer,
		verifiers: verifiers,
		audit:     audit,
		logger:    logger.With(slog.String("component", "verifiers")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Add registers a new verifier on chain and in the projection. Owner-only.
func (s *VerifierService) Add(ctx context.Context, actor, addr, name string) (domain.Verifier, error) {
	if addr == "" {
		return domain.Verifier{}, fmt.Errorf("%w: verifier address is required", domain.ErrValidation)
	}
	if err := s.authorizeOwner(ctx, actor); err != nil {
		return domain.Verifier{}, err
	}

	hash, err := s.writer.AddVerifier(ctx, addr)
	if err != nil {
		if errors.Is(err, domain.ErrTxRejected) {
			return domain.Verifier{}, fmt.Errorf("verifiers: add %s: %w", addr, domain.ErrTxRejected)
		}
		return domain.Verifier{}, fmt.Errorf("verifiers: add %s: %w", addr, err)
	}
	if status, err := s.writer.WaitConfirmed(ctx, hash); err != nil || status != domain.TxConfirmed {
		return domain.Verifier{}, fmt.Errorf("verifiers: confirm add %s: %w", addr, err)
	}

	v := domain.Verifier{
		Address: addr,
		Name:    name,
		AddedBy: actor,
		AddedAt: s.now(),
		Active:  true,
	}
	if err := s.verifiers.Upsert(ctx, v); err != nil {
		return domain.Verifier{}, fmt.Errorf("verifiers: project %s: %w", addr, err)
	}

	if err := s.audit.Log(ctx, "verifier_added", map[string]any{
		"address": addr,
		"name":    name,
		"by":      actor,
		"tx":      hash,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "verifier added",
		slog.String("address", addr),
		slog.String("name", name),
		slog.String("tx", hash),
	)
	return v, nil
}

// Remove revokes a verifier on chain and deactivates the projection record.
// Owner-only.
func (s *VerifierService) Remove(ctx context.Context, actor, addr string) error {
	if err := s.authorizeOwner(ctx, actor); err != nil {
		return err
	}

	v, err := s.verifiers.Get(ctx, addr)
	if err != nil {
		return fmt.Errorf("verifiers: load %s: %w", addr, err)
	}
	if !v.Active {
		return fmt.Errorf("%w: verifier %s is already inactive", domain.ErrPrecondition, addr)
	}

	hash, err := s.writer.RemoveVerifier(ctx, addr)
	if err != nil {
		if errors.Is(err, domain.ErrTxRejected) {
			return fmt.Errorf("verifiers: remove %s: %w", addr, domain.ErrTxRejected)
		}
		return fmt.Errorf("verifiers: remove %s: %w", addr, err)
	}
	if status, err := s.writer.WaitConfirmed(ctx, hash); err != nil || status != domain.TxConfirmed {
		return fmt.Errorf("verifiers: confirm remove %s: %w", addr, err)
	}

	if err := s.verifiers.Deactivate(ctx, addr); err != nil {
		return fmt.Errorf("verifiers: deactivate %s: %w", addr, err)
	}

	if err := s.audit.Log(ctx, "verifier_removed", map[string]any{
		"address": addr,
		"by":      actor,
		"tx":      hash,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "verifier removed",
		slog.String("address", addr),
		slog.String("tx", hash),
	)
	return nil
}

// List returns the active verifier registry.
func (s *VerifierService) List(ctx context.Context) ([]domain.Verifier, error) {
	rows, err := s.verifiers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("verifiers: list: %w", err)
	}
	return rows, nil
}

func (s *VerifierService) authorizeOwner(ctx context.Context, actor string) error {
	owner, err := s.reader.Owner(ctx)
	if err != nil {
		return fmt.Errorf("verifiers: read owner: %w", err)
	}
	if !strings.EqualFold(owner, actor) {
		return fmt.Errorf("%w: only the owner may manage verifiers", domain.ErrUnauthorized)
	}
	return nil
}
