package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soumik404/basecast/internal/domain"
)

// PredictionService serves read paths: prediction lookups through the cache,
// listings, payout quotes, and a bettor's existing exposure.
type PredictionService struct {
	predictions domain.PredictionStore
	bets        domain.BetStore
	proposals   domain.ProposalStore
	cache       domain.PredictionCache
	logger      *slog.Logger
}

// NewPredictionService creates a PredictionService. cache may be nil.
func NewPredictionService(
	predictions domain.PredictionStore,
	bets domain.BetStore,
	proposals domain.ProposalStore,
	cache domain.PredictionCache,
	logger *slog.Logger,
) *PredictionService {
	return &PredictionService{
		predictions: predictions,
		bets:        bets,
		proposals:   proposals,
		cache:       cache,
		logger:      logger.With(slog.String("component", "predictions")),
	}
}

// Get returns one prediction by its on-chain id, cache-aside. Cache errors
// fall through to the store and are logged, never surfaced.
func (s *PredictionService) Get(ctx context.Context, predictionID int64) (domain.Prediction, error) {
	if s.cache != nil {
		p, err := s.cache.Get(ctx, predictionID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "cache read failed",
				slog.Int64("prediction_id", predictionID),
				slog.String("error", err.Error()),
			)
		}
	}

	p, err := s.predictions.GetByPredictionID(ctx, predictionID)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("predictions: get %d: %w", predictionID, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.logger.WarnContext(ctx, "cache write failed",
				slog.Int64("prediction_id", predictionID),
				slog.String("error", err.Error()),
			)
		}
	}
	return p, nil
}

// List returns predictions filtered by status, or every active prediction
// when status is empty.
func (s *PredictionService) List(ctx context.Context, status domain.PredictionStatus, opts domain.ListOpts) ([]domain.Prediction, error) {
	if status == "" {
		rows, err := s.predictions.ListActive(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("predictions: list active: %w", err)
		}
		return rows, nil
	}
	rows, err := s.predictions.ListByStatus(ctx, status, opts)
	if err != nil {
		return nil, fmt.Errorf("predictions: list by status %s: %w", status, err)
	}
	return rows, nil
}

// Pending returns the verifier queue: predictions awaiting verification.
func (s *PredictionService) Pending(ctx context.Context, opts domain.ListOpts) ([]domain.Prediction, error) {
	rows, err := s.predictions.ListByStatus(ctx, domain.StatusPendingVerification, opts)
	if err != nil {
		return nil, fmt.Errorf("predictions: list pending: %w", err)
	}
	return rows, nil
}

// Quote is a potential-payout simulation for a stake that has not been
// placed.
type Quote struct {
	PredictionID int64
	Choice       domain.BetChoice
	Amount       float64
	Payout       float64
	Profit       float64
	Multiplier   float64
}

// Quote simulates placing amount on choice against the prediction's current
// pools and returns the payout the bettor would receive if that side wins.
func (s *PredictionService) Quote(ctx context.Context, predictionID int64, choice domain.BetChoice, amount float64) (Quote, error) {
	if !choice.Valid() {
		return Quote{}, fmt.Errorf("%w: choice must be yes or no", domain.ErrValidation)
	}
	if amount <= 0 {
		return Quote{}, fmt.Errorf("%w: amount must be greater than 0", domain.ErrValidation)
	}

	p, err := s.Get(ctx, predictionID)
	if err != nil {
		return Quote{}, err
	}

	payout := domain.PotentialPayout(p.TotalYes, p.TotalNo, choice, amount)
	return Quote{
		PredictionID: predictionID,
		Choice:       choice,
		Amount:       amount,
		Payout:       payout,
		Profit:       domain.Profit(payout, amount),
		Multiplier:   domain.Multiplier(payout, amount),
	}, nil
}

// UserBet returns the bettor's projected bet on a prediction, so clients can
// warn before a doomed duplicate attempt. ErrNotFound when there is none.
func (s *PredictionService) UserBet(ctx context.Context, predictionID int64, bettor string) (domain.Bet, error) {
	b, err := s.bets.GetUserBet(ctx, predictionID, bettor)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Bet{}, err
		}
		return domain.Bet{}, fmt.Errorf("predictions: user bet on %d: %w", predictionID, err)
	}
	return b, nil
}

// Bets lists the projected bets, by prediction or by user.
func (s *PredictionService) Bets(ctx context.Context, predictionID int64, bettor string, opts domain.ListOpts) ([]domain.Bet, error) {
	if bettor != "" {
		rows, err := s.bets.ListByUser(ctx, bettor, opts)
		if err != nil {
			return nil, fmt.Errorf("predictions: list bets for %s: %w", bettor, err)
		}
		return rows, nil
	}
	rows, err := s.bets.ListByPrediction(ctx, predictionID, opts)
	if err != nil {
		return nil, fmt.Errorf("predictions: list bets on %d: %w", predictionID, err)
	}
	return rows, nil
}

// Proposals lists the proposal history of a prediction.
func (s *PredictionService) Proposals(ctx context.Context, predictionID int64) ([]domain.Proposal, error) {
	rows, err := s.proposals.ListByPrediction(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("predictions: list proposals on %d: %w", predictionID, err)
	}
	return rows, nil
}
