package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/soumik404/basecast/internal/domain"
)

// ReconcileService repairs the off-chain projection from the contract. The
// chain is authoritative for status, result, pool totals, deadline, and
// capacity; Reconcile overwrites the projection row wholesale with what the
// chain says, whatever the row claimed before.
type ReconcileService struct {
	reader      domain.ChainReader
	predictions domain.PredictionStore
	proposals   domain.ProposalStore
	cache       domain.PredictionCache
	audit       domain.AuditStore
	alerter     Alerter
	logger      *slog.Logger

	now func() time.Time
}

// NewReconcileService creates a ReconcileService.
func NewReconcileService(
	reader domain.ChainReader,
	predictions domain.PredictionStore,
	proposals domain.ProposalStore,
	cache domain.PredictionCache,
	audit domain.AuditStore,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		reader:      reader,
		predictions: predictions,
		proposals:   proposals,
		cache:       cache,
		audit:       audit,
		logger:      logger.With(slog.String("component", "reconcile")),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithAlerter attaches an operator notifier for repair alerts.
func (s *ReconcileService) WithAlerter(a Alerter) *ReconcileService {
	s.alerter = a
	return s
}

// Reconcile overwrites the projection of one prediction from its on-chain
// record. Reconciliation repairs existing rows only: a missing projection row
// yields ErrReconcileNotFound and nothing is created. The operation is
// idempotent; reconciling an already-consistent row writes the same state
// again.
func (s *ReconcileService) Reconcile(ctx context.Context, predictionID int64) (domain.Prediction, error) {
	onchain, err := s.reader.ReadPrediction(ctx, predictionID)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("reconcile: read prediction %d: %w", predictionID, err)
	}

	p, err := s.predictions.GetByPredictionID(ctx, predictionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Prediction{}, fmt.Errorf("%w: prediction %d", domain.ErrReconcileNotFound, predictionID)
		}
		return domain.Prediction{}, fmt.Errorf("reconcile: load projection %d: %w", predictionID, err)
	}

	status := domain.StatusFromCode(onchain.StatusCode)
	if status == "" {
		return domain.Prediction{}, fmt.Errorf("reconcile: prediction %d has unknown status code %d", predictionID, onchain.StatusCode)
	}

	now := s.now()
	p.Status = status
	p.TotalYes = onchain.TotalYes
	p.TotalNo = onchain.TotalNo
	p.Deadline = onchain.Deadline
	p.MaxCapacity = onchain.MaxCapacity
	p.Reconciled = true
	p.UpdatedAt = now

	switch status {
	case domain.StatusResolved:
		result := domain.ChoiceFromBool(onchain.FinalResult)
		p.Result = &result
		p.ProposedResult = nil
		p.ProposedBy = ""
		p.ProposedAt = nil
	case domain.StatusActive:
		// A resting active state means no proposal is pending on chain;
		// clear any staged proposal fields the projection still carries.
		p.Result = nil
		p.ProposedResult = nil
		p.ProposedBy = ""
		p.ProposedAt = nil
	case domain.StatusCancelled:
		p.Result = nil
	}

	if err := s.predictions.Upsert(ctx, p); err != nil {
		return domain.Prediction{}, fmt.Errorf("reconcile: write projection %d: %w", predictionID, err)
	}
	s.reconcileProposal(ctx, predictionID, status, onchain.FinalResult, now)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, predictionID); err != nil {
			s.logger.WarnContext(ctx, "cache invalidate failed",
				slog.Int64("prediction_id", predictionID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.audit.Log(ctx, domain.EventReconciled, map[string]any{
		"prediction_id": predictionID,
		"status":        string(status),
		"total_yes":     onchain.TotalYes,
		"total_no":      onchain.TotalNo,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
	}

	if s.alerter != nil {
		_ = s.alerter.NotifyEvent(ctx, domain.SettlementEvent{
			Type:         domain.EventReconciled,
			PredictionID: predictionID,
			At:           now,
		})
	}

	s.logger.InfoContext(ctx, "projection reconciled",
		slog.Int64("prediction_id", predictionID),
		slog.String("status", string(status)),
	)
	return p, nil
}

// reconcileProposal updates any open proposal row in lockstep with the
// repaired prediction: a chain resolution closes it approved, a resting
// active state closes it unapproved.
func (s *ReconcileService) reconcileProposal(ctx context.Context, predictionID int64, status domain.PredictionStatus, finalResult bool, now time.Time) {
	prop, err := s.proposals.GetOpen(ctx, predictionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "load open proposal failed",
				slog.Int64("prediction_id", predictionID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	switch status {
	case domain.StatusResolved:
		prop.Verified = true
		prop.Approved = prop.Result == domain.ChoiceFromBool(finalResult)
	case domain.StatusActive, domain.StatusCancelled:
		prop.Verified = true
		prop.Approved = false
	default:
		// Still pending on chain; leave the proposal open.
		return
	}
	prop.VerifiedAt = &now
	prop.Reconciled = true

	if err := s.proposals.Update(ctx, prop); err != nil {
		s.logger.WarnContext(ctx, "update proposal failed",
			slog.Int64("prediction_id", predictionID),
			slog.String("error", err.Error()),
		)
	}
}

// Sweep reconciles every non-terminal prediction touched within the lookback
// window. Per-prediction failures are logged and counted, never aborting the
// pass; the number of successfully repaired rows is returned.
func (s *ReconcileService) Sweep(ctx context.Context, lookback time.Duration, limit int) (int, error) {
	since := s.now().Add(-lookback)
	rows, err := s.predictions.ListUpdatedSince(ctx, since, limit)
	if err != nil {
		return 0, fmt.Errorf("reconcile: list sweep candidates: %w", err)
	}

	repaired := 0
	for _, p := range rows {
		if ctx.Err() != nil {
			return repaired, ctx.Err()
		}
		if _, err := s.Reconcile(ctx, p.PredictionID); err != nil {
			s.logger.ErrorContext(ctx, "sweep reconcile failed",
				slog.Int64("prediction_id", p.PredictionID),
				slog.String("error", err.Error()),
			)
			continue
		}
		repaired++
	}

	s.logger.InfoContext(ctx, "sweep complete",
		slog.Int("candidates", len(rows)),
		slog.Int("repaired", repaired),
	)
	return repaired, nil
}
