package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soumik404/basecast/internal/domain"
)

// Alerter delivers operator notifications for settlement events. Satisfied by
// notify.Notifier; nil-checked everywhere so it stays optional.
type Alerter interface {
	NotifyEvent(ctx context.Context, ev domain.SettlementEvent) error
}

// settlementLockTTL bounds how long a per-prediction critical section may
// hold its distributed lock. It must exceed the chain confirmation timeout.
const settlementLockTTL = 3 * time.Minute

// SettlementService orchestrates every state-changing settlement action:
// submit the transaction, wait for confirmation within the configured bound,
// and only then update the off-chain projection. The contract is the sole
// authority; the projection is never written for a transaction that did not
// confirm.
type SettlementService struct {
	reader      domain.ChainReader
	writer      domain.ChainWriter
	predictions domain.PredictionStore
	bets        domain.BetStore
	proposals   domain.ProposalStore
	cache       domain.PredictionCache
	lbCache     domain.LeaderboardCache
	locks       domain.LockManager
	bus         domain.SignalBus
	audit       domain.AuditStore
	archiver    domain.SnapshotArchiver
	alerter     Alerter
	logger      *slog.Logger

	// now is injected in tests.
	now func() time.Time
}

// NewSettlementService creates a SettlementService with all required
// dependencies. The archiver and alerter are attached separately because both
// are optional.
func NewSettlementService(
	reader domain.ChainReader,
	writer domain.ChainWriter,
	predictions domain.PredictionStore,
	bets domain.BetStore,
	proposals domain.ProposalStore,
	cache domain.PredictionCache,
	lbCache domain.LeaderboardCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		reader:      reader,
		writer:      writer,
		predictions: predictions,
		bets:        bets,
		proposals:   proposals,
		cache:       cache,
		lbCache:     lbCache,
		locks:       locks,
		bus:         bus,
		audit:       audit,
		logger:      logger.With(slog.String("component", "settlement")),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithArchiver attaches a snapshot archiver so resolutions are written to
// blob storage. Without one, resolution skips archival.
func (s *SettlementService) WithArchiver(a domain.SnapshotArchiver) *SettlementService {
	s.archiver = a
	return s
}

// WithAlerter attaches an operator notifier.
func (s *SettlementService) WithAlerter(a Alerter) *SettlementService {
	s.alerter = a
	return s
}

// CreatePredictionInput carries the request to open a new prediction.
type CreatePredictionInput struct {
	Title       string
	Description string
	Currency    domain.StakeCurrency
	Deadline    time.Time
	MaxCapacity float64
	Creator     string
}

// CreatePrediction submits the creation transaction, waits for confirmation,
// reads the contract-assigned id back, and projects the new prediction.
func (s *SettlementService) CreatePrediction(ctx context.Context, in CreatePredictionInput) (domain.Prediction, error) {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Prediction{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if in.Currency != domain.CurrencyETH && in.Currency != domain.CurrencyUSDC {
		return domain.Prediction{}, fmt.Errorf("%w: currency must be ETH or USDC", domain.ErrValidation)
	}
	if !in.Deadline.After(s.now()) {
		return domain.Prediction{}, fmt.Errorf("%w: deadline must be in the future", domain.ErrValidation)
	}
	if in.MaxCapacity < 0 {
		return domain.Prediction{}, fmt.Errorf("%w: max capacity must not be negative", domain.ErrValidation)
	}

	hash, err := s.writer.CreatePrediction(ctx, in.Title, in.Description, in.Currency, in.Deadline, in.MaxCapacity)
	if err != nil {
		return domain.Prediction{}, s.submitErr("create prediction", err)
	}
	if err := s.confirm(ctx, hash); err != nil {
		return domain.Prediction{}, err
	}

	// The id comes from our own receipt's creation log. The contract
	// counter cannot attribute: another creation may land between our
	// submission and a counter read.
	predictionID, err := s.writer.CreatedPredictionID(ctx, hash)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("settlement: created prediction id from tx %s: %w", hash, err)
	}

	onchain, err := s.reader.ReadPrediction(ctx, predictionID)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("settlement: read created prediction %d: %w", predictionID, err)
	}

	now := s.now()
	p := domain.Prediction{
		DocID:        uuid.NewString(),
		PredictionID: predictionID,
		Title:        in.Title,
		Description:  in.Description,
		Currency:     in.Currency,
		Deadline:     onchain.Deadline,
		MaxCapacity:  onchain.MaxCapacity,
		Creator:      in.Creator,
		Status:       domain.StatusFromCode(onchain.StatusCode),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.predictions.Upsert(ctx, p); err != nil {
		return domain.Prediction{}, fmt.Errorf("settlement: project created prediction %d: %w", predictionID, err)
	}

	s.emit(ctx, domain.SettlementEvent{
		Type:         domain.EventPredictionCreated,
		PredictionID: predictionID,
		Address:      in.Creator,
		TxHash:       hash,
		At:           now,
	})

	s.logger.InfoContext(ctx, "prediction created",
		slog.Int64("prediction_id", predictionID),
		slog.String("creator", in.Creator),
		slog.String("tx", hash),
	)
	return p, nil
}

// PlaceBetInput carries a wager request.
type PlaceBetInput struct {
	PredictionID int64
	Bettor       string
	Choice       domain.BetChoice
	Amount       float64
}

// PlaceBet places a wager. The duplicate-exposure guard is re-derived from
// confirmed on-chain bets, never from the cache or the projection: a bettor
// with any confirmed bet on the prediction is refused before a transaction is
// submitted.
func (s *SettlementService) PlaceBet(ctx context.Context, in PlaceBetInput) (domain.Bet, error) {
	if in.Bettor == "" {
		return domain.Bet{}, fmt.Errorf("%w: bettor address is required", domain.ErrValidation)
	}

	unlock, err := s.lock(ctx, in.PredictionID)
	if err != nil {
		return domain.Bet{}, err
	}
	defer unlock()

	p, err := s.freshPrediction(ctx, in.PredictionID)
	if err != nil {
		return domain.Bet{}, err
	}

	existing, err := s.confirmedBet(ctx, in.PredictionID, in.Bettor)
	if err != nil {
		return domain.Bet{}, err
	}

	now := s.now()
	staged, err := domain.ApplyBet(p, in.Bettor, in.Choice, in.Amount, existing, now)
	if err != nil {
		return domain.Bet{}, err
	}

	hash, err := s.writer.PlaceBet(ctx, in.PredictionID, in.Choice.Bool(), in.Amount, p.Currency)
	if err != nil {
		return domain.Bet{}, s.submitErr("place bet", err)
	}
	if err := s.confirm(ctx, hash); err != nil {
		return domain.Bet{}, err
	}

	// The bet confirmed; its contract-assigned id is in the receipt log.
	// A scan of the bettor's bets could lag behind the receipt on a slow
	// node and must not be trusted here.
	betID, err := s.writer.PlacedBetID(ctx, hash)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("settlement: placed bet id from tx %s: %w", hash, err)
	}

	b := domain.Bet{
		DocID:        uuid.NewString(),
		BetID:        betID,
		PredictionID: in.PredictionID,
		Bettor:       in.Bettor,
		Choice:       in.Choice,
		Amount:       in.Amount,
		PlacedAt:     now,
		UpdatedAt:    now,
	}
	if err := s.bets.Create(ctx, b); err != nil {
		return domain.Bet{}, fmt.Errorf("settlement: project bet on %d: %w", in.PredictionID, err)
	}
	if err := s.predictions.Upsert(ctx, staged); err != nil {
		return domain.Bet{}, fmt.Errorf("settlement: project pools on %d: %w", in.PredictionID, err)
	}
	s.invalidate(ctx, in.PredictionID)

	s.emit(ctx, domain.SettlementEvent{
		Type:         domain.EventBetConfirmed,
		PredictionID: in.PredictionID,
		Address:      in.Bettor,
		Choice:       string(in.Choice),
		Amount:       in.Amount,
		TxHash:       hash,
		At:           now,
	})

	s.logger.InfoContext(ctx, "bet confirmed",
		slog.Int64("prediction_id", in.PredictionID),
		slog.String("bettor", in.Bettor),
		slog.String("choice", string(in.Choice)),
		slog.Float64("amount", in.Amount),
		slog.String("tx", hash),
	)
	return b, nil
}

// ProposeResult stages a result for verification. Creator-only, after the
// deadline, submitted as an on-chain transaction before the projection and a
// proposal row are written.
func (s *SettlementService) ProposeResult(ctx context.Context, predictionID int64, proposer string, result domain.BetChoice) (domain.Prediction, error) {
	unlock, err := s.lock(ctx, predictionID)
	if err != nil {
		return domain.Prediction{}, err
	}
	defer unlock()

	p, err := s.freshPrediction(ctx, predictionID)
	if err != nil {
		return domain.Prediction{}, err
	}

	now := s.now()
	staged, err := domain.Propose(p, proposer, result, now)
	if err != nil {
		return domain.Prediction{}, err
	}

	hash, err := s.writer.ProposeResult(ctx, predictionID, result.Bool())
	if err != nil {
		return domain.Prediction{}, s.submitErr("propose result", err)
	}
	if err := s.confirm(ctx, hash); err != nil {
		return domain.Prediction{}, err
	}

	if err := s.predictions.Upsert(ctx, staged); err != nil {
		return domain.Prediction{}, fmt.Errorf("settlement: project proposal on %d: %w", predictionID, err)
	}
	prop := domain.Proposal{
		DocID:        uuid.NewString(),
		PredictionID: predictionID,
		Result:       result,
		ProposedBy:   proposer,
		ProposedAt:   now,
	}
	if err := s.proposals.Create(ctx, prop); err != nil {
		return domain.Prediction{}, fmt.Errorf("settlement: record proposal on %d: %w", predictionID, err)
	}
	s.invalidate(ctx, predictionID)

	s.emit(ctx, domain.SettlementEvent{
		Type:         domain.EventResultProposed,
		PredictionID: predictionID,
		Address:      proposer,
		Choice:       string(result),
		TxHash:       hash,
		At:           now,
	})

	s.logger.InfoContext(ctx, "result proposed",
		slog.Int64("prediction_id", predictionID),
		slog.String("proposer", proposer),
		slog.String("result", string(result)),
		slog.String("tx", hash),
	)
	return staged, nil
}

// VerifyResult approves or rejects a pending proposal. The verifier must be
// authorized against the contract's verifier registry (or be the owner).
// Approval submits the resolving transaction and, once confirmed, writes the
// final payouts to every bet row and archives the settlement snapshot.
// Rejection submits the rejecting transaction: the contract itself returns
// the prediction to active, so the creator may propose again.
func (s *SettlementService) VerifyResult(ctx context.Context, predictionID int64, verifier string, approve bool, reason string) (domain.Prediction, error) {
	if err := s.authorizeVerifier(ctx, verifier); err != nil {
		return domain.Prediction{}, err
	}

	unlock, err := s.lock(ctx, predictionID)
	if err != nil {
		return domain.Prediction{}, err
	}
	defer unlock()

	p, err := s.freshPrediction(ctx, predictionID)
	if err != nil {
		return domain.Prediction{}, err
	}

	if approve {
		return s.approveResult(ctx, p, verifier)
	}
	return s.rejectResult(ctx, p, verifier, reason)
}

func (s *SettlementService) approveResult(ctx context.Context, p domain.Prediction, verifier string) (domain.Prediction, error) {
	now := s.now()
	staged, err := domain.Approve(p, verifier, now)
	if err != nil {
		return domain.Prediction{}, err
	}
	result := *staged.Result

	hash, err := s.writer.VerifyResult(ctx, p.PredictionID, true, "")
	if err != nil {
		return domain.Prediction{}, s.submitErr("approve result", err)
	}
	if err := s.confirm(ctx, hash); err != nil {
		return domain.Prediction{}, err
	}

	if err := s.predictions.Upsert(ctx, staged); err != nil {
		return domain.Prediction{}, fmt.Errorf("settlement: project resolution on %d: %w", p.PredictionID, err)
	}

	bets, err := s.bets.ListByPrediction(ctx, p.PredictionID, domain.ListOpts{})
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("settlement: list bets on %d: %w", p.PredictionID, err)
	}
	payouts := domain.FinalPayouts(staged.TotalYes, staged.TotalNo, result, bets)
	if len(payouts) > 0 {
		if err := s.bets.SetPayouts(ctx, payouts); err != nil {
			return domain.Prediction{}, fmt.Errorf("settlement: write payouts on %d: %w", p.PredictionID, err)
		}
	}
	s.closeProposal(ctx, staged, verifier, true, "", now)

	if domain.PoolStranded(staged.TotalYes, staged.TotalNo, result) {
		s.audited(ctx, domain.EventPoolStranded, map[string]any{
			"prediction_id": staged.PredictionID,
			"total_pool":    staged.TotalPool(),
			"result":        string(result),
		})
		s.emit(ctx, domain.SettlementEvent{
			Type:         domain.EventPoolStranded,
			PredictionID: staged.PredictionID,
			Amount:       staged.TotalPool(),
			At:           now,
		})
	}

	s.archiveSnapshot(ctx, staged, bets, payouts, now)
	s.invalidate(ctx, staged.PredictionID)
	if s.lbCache != nil {
		if err := s.lbCache.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "leaderboard invalidate failed", slog.String("error", err.Error()))
		}
	}

	s.emit(ctx, domain.SettlementEvent{
		Type:         domain.EventResolved,
		PredictionID: staged.PredictionID,
		Address:      verifier,
		Choice:       string(result),
		TxHash:       hash,
		At:           now,
	})

	s.logger.InfoContext(ctx, "prediction resolved",
		slog.Int64("prediction_id", staged.PredictionID),
		slog.String("verifier", verifier),
		slog.String("result", string(result)),
		slog.String("tx", hash),
	)
	return staged, nil
}

func (s *SettlementService) rejectResult(ctx context.Context, p domain.Prediction, verifier, reason string) (domain.Prediction, error) {
	now := s.now()
	staged, err := domain.Reject(p, verifier, reason, now)
	if err != nil {
		return domain.Prediction{}, err
	}

	// The reject rides the same verify transaction with approve=false; the
	// contract returns the prediction to active so a fresh proposal is
	// accepted afterwards.
	hash, err := s.writer.VerifyResult(ctx, p.PredictionID, false, reason)
	if err != nil {
		return domain.Prediction{}, s.submitErr("reject result", err)
	}
	if err := s.confirm(ctx, hash); err != nil {
		return domain.Prediction{}, err
	}

	if err := s.predictions.Upsert(ctx, staged); err != nil {
		return domain.Prediction{}, fmt.Errorf("settlement: project rejection on %d: %w", p.PredictionID, err)
	}
	s.closeProposal(ctx, staged, verifier, false, reason, now)
	s.invalidate(ctx, staged.PredictionID)

	s.emit(ctx, domain.SettlementEvent{
		Type:         domain.EventResultRejected,
		PredictionID: staged.PredictionID,
		Address:      verifier,
		TxHash:       hash,
		At:           now,
	})

	s.logger.InfoContext(ctx, "proposal rejected",
		slog.Int64("prediction_id", staged.PredictionID),
		slog.String("verifier", verifier),
		slog.String("reason", reason),
		slog.String("tx", hash),
	)
	return staged, nil
}

// ClaimReward claims the payout of a winning bet. The bet may be identified
// by its projection document id or by its on-chain numeric id.
func (s *SettlementService) ClaimReward(ctx context.Context, betRef, claimer string) (domain.Bet, error) {
	b, err := s.loadBet(ctx, betRef)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("settlement: load bet %q: %w", betRef, err)
	}

	unlock, err := s.lock(ctx, b.PredictionID)
	if err != nil {
		return domain.Bet{}, err
	}
	defer unlock()

	p, err := s.predictions.GetByPredictionID(ctx, b.PredictionID)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("settlement: load prediction %d: %w", b.PredictionID, err)
	}

	now := s.now()
	staged, err := domain.Claim(p, b, claimer, now)
	if err != nil {
		return domain.Bet{}, err
	}

	hash, err := s.writer.ClaimReward(ctx, b.BetID)
	if err != nil {
		return domain.Bet{}, s.submitErr("claim reward", err)
	}
	if err := s.confirm(ctx, hash); err != nil {
		return domain.Bet{}, err
	}

	if err := s.bets.MarkClaimed(ctx, b.DocID); err != nil {
		return domain.Bet{}, fmt.Errorf("settlement: mark bet %q claimed: %w", b.DocID, err)
	}

	var payout float64
	if staged.Payout != nil {
		payout = *staged.Payout
	}
	s.emit(ctx, domain.SettlementEvent{
		Type:         domain.EventRewardClaimed,
		PredictionID: b.PredictionID,
		Address:      claimer,
		Amount:       payout,
		TxHash:       hash,
		At:           now,
	})

	s.logger.InfoContext(ctx, "reward claimed",
		slog.Int64("prediction_id", b.PredictionID),
		slog.Int64("bet_id", b.BetID),
		slog.String("claimer", claimer),
		slog.Float64("payout", payout),
		slog.String("tx", hash),
	)
	return staged, nil
}

// ---------------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------------

// loadBet resolves a bet reference: projection document id first, then the
// on-chain numeric id when the reference parses as one.
func (s *SettlementService) loadBet(ctx context.Context, ref string) (domain.Bet, error) {
	b, err := s.bets.GetByDocID(ctx, ref)
	if err == nil {
		return b, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
			return s.bets.GetByBetID(ctx, id)
		}
	}
	return domain.Bet{}, err
}

// lock acquires the per-prediction settlement lock.
func (s *SettlementService) lock(ctx context.Context, predictionID int64) (func(), error) {
	unlock, err := s.locks.Acquire(ctx, fmt.Sprintf("settle:%d", predictionID), settlementLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return nil, fmt.Errorf("%w: settlement in progress for prediction %d", domain.ErrPrecondition, predictionID)
		}
		return nil, fmt.Errorf("settlement: acquire lock for %d: %w", predictionID, err)
	}
	return unlock, nil
}

// freshPrediction loads the projection row and overlays the authoritative
// on-chain status, pools, deadline, and capacity so guards never run against
// stale data.
func (s *SettlementService) freshPrediction(ctx context.Context, predictionID int64) (domain.Prediction, error) {
	p, err := s.predictions.GetByPredictionID(ctx, predictionID)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("settlement: load prediction %d: %w", predictionID, err)
	}
	onchain, err := s.reader.ReadPrediction(ctx, predictionID)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("settlement: read prediction %d: %w", predictionID, err)
	}

	p.Status = domain.StatusFromCode(onchain.StatusCode)
	if p.Status == "" {
		return domain.Prediction{}, fmt.Errorf("settlement: prediction %d has unknown status code %d", predictionID, onchain.StatusCode)
	}
	p.TotalYes = onchain.TotalYes
	p.TotalNo = onchain.TotalNo
	p.Deadline = onchain.Deadline
	p.MaxCapacity = onchain.MaxCapacity
	return p, nil
}

// confirmedBet scans the bettor's confirmed on-chain bets for one on the
// given prediction. Returns nil when there is none.
func (s *SettlementService) confirmedBet(ctx context.Context, predictionID int64, bettor string) (*domain.Bet, error) {
	ids, err := s.reader.UserBets(ctx, bettor)
	if err != nil {
		return nil, fmt.Errorf("settlement: read bets for %s: %w", bettor, err)
	}
	for _, id := range ids {
		ob, err := s.reader.ReadBet(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("settlement: read bet %d: %w", id, err)
		}
		if ob.PredictionID != predictionID {
			continue
		}
		return &domain.Bet{
			BetID:        ob.BetID,
			PredictionID: ob.PredictionID,
			Bettor:       ob.Bettor,
			Choice:       domain.ChoiceFromBool(ob.Choice),
			Amount:       ob.Amount,
			Claimed:      ob.Claimed,
		}, nil
	}
	return nil, nil
}

// authorizeVerifier checks the contract's verifier registry, falling back to
// the owner.
func (s *SettlementService) authorizeVerifier(ctx context.Context, addr string) error {
	ok, err := s.reader.IsVerifier(ctx, addr)
	if err != nil {
		return fmt.Errorf("settlement: check verifier %s: %w", addr, err)
	}
	if ok {
		return nil
	}
	owner, err := s.reader.Owner(ctx)
	if err != nil {
		return fmt.Errorf("settlement: read owner: %w", err)
	}
	if strings.EqualFold(owner, addr) {
		return nil
	}
	return fmt.Errorf("%w: %s is not a verifier", domain.ErrUnauthorized, addr)
}

// confirm runs the bounded confirmation wait and classifies the outcome.
// A declined signature is a cancellation, not a failure, and is logged at
// info; a timeout leaves the transaction pending and retryable.
func (s *SettlementService) confirm(ctx context.Context, hash string) error {
	status, err := s.writer.WaitConfirmed(ctx, hash)
	switch {
	case err == nil && status == domain.TxConfirmed:
		return nil
	case errors.Is(err, domain.ErrTxTimeout):
		s.logger.WarnContext(ctx, "confirmation timed out", slog.String("tx", hash))
		return fmt.Errorf("settlement: tx %s: %w", hash, domain.ErrTxTimeout)
	case errors.Is(err, domain.ErrTxReverted):
		s.logger.WarnContext(ctx, "transaction reverted", slog.String("tx", hash))
		return fmt.Errorf("settlement: tx %s: %w", hash, domain.ErrTxReverted)
	default:
		return fmt.Errorf("settlement: wait for tx %s: %w", hash, err)
	}
}

// submitErr classifies a submission failure. Signer declination is benign.
func (s *SettlementService) submitErr(action string, err error) error {
	if errors.Is(err, domain.ErrTxRejected) {
		s.logger.Info("transaction declined by signer", slog.String("action", action))
		return fmt.Errorf("settlement: %s: %w", action, domain.ErrTxRejected)
	}
	return fmt.Errorf("settlement: %s: %w", action, err)
}

// closeProposal marks the open proposal row verified. Missing rows are
// tolerated: proposals staged before reconciliation repairs may not exist.
func (s *SettlementService) closeProposal(ctx context.Context, p domain.Prediction, verifier string, approved bool, reason string, now time.Time) {
	prop, err := s.proposals.GetOpen(ctx, p.PredictionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "load open proposal failed",
				slog.Int64("prediction_id", p.PredictionID),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	prop.Verified = true
	prop.Approved = approved
	prop.VerifiedBy = verifier
	prop.VerifiedAt = &now
	prop.RejectionReason = reason
	if err := s.proposals.Update(ctx, prop); err != nil {
		s.logger.WarnContext(ctx, "update proposal failed",
			slog.Int64("prediction_id", p.PredictionID),
			slog.String("error", err.Error()),
		)
	}
}

// archiveSnapshot writes the settlement snapshot to blob storage. The
// resolution is already durable; archival failure is reported, not fatal.
func (s *SettlementService) archiveSnapshot(ctx context.Context, p domain.Prediction, bets []domain.Bet, payouts map[string]float64, now time.Time) {
	if s.archiver == nil {
		return
	}
	key, err := s.archiver.Archive(ctx, domain.SettlementSnapshot{
		Prediction: p,
		Bets:       bets,
		Payouts:    payouts,
		ResolvedAt: now,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "snapshot archive failed",
			slog.Int64("prediction_id", p.PredictionID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.InfoContext(ctx, "snapshot archived",
		slog.Int64("prediction_id", p.PredictionID),
		slog.String("key", key),
	)
}

// invalidate drops the prediction's cache entry. Cache errors are never
// fatal.
func (s *SettlementService) invalidate(ctx context.Context, predictionID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, predictionID); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed",
			slog.Int64("prediction_id", predictionID),
			slog.String("error", err.Error()),
		)
	}
}

// emit publishes the event on the signal bus, mirrors it to the audit log,
// and forwards it to the operator notifier. None of the three may fail a
// confirmed settlement.
func (s *SettlementService) emit(ctx context.Context, ev domain.SettlementEvent) {
	payload, err := json.Marshal(ev)
	if err == nil {
		if pubErr := s.bus.Publish(ctx, domain.SettlementChannel, payload); pubErr != nil {
			s.logger.WarnContext(ctx, "publish event failed",
				slog.String("event", ev.Type),
				slog.String("error", pubErr.Error()),
			)
		}
	}

	s.audited(ctx, ev.Type, map[string]any{
		"prediction_id": ev.PredictionID,
		"address":       ev.Address,
		"choice":        ev.Choice,
		"amount":        ev.Amount,
		"tx":            ev.TxHash,
	})

	if s.alerter != nil {
		if err := s.alerter.NotifyEvent(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "notify failed",
				slog.String("event", ev.Type),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *SettlementService) audited(ctx context.Context, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
