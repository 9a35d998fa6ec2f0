package domain

import (
	"fmt"
	"strings"
	"time"
)

// Lifecycle transitions for predictions and bets. Each function takes the
// current value, checks every guard, and returns an updated copy; on any
// guard failure the input is untouched and the error names the guard. The
// legal transitions are:
//
//	active               --propose--> pending_verification
//	pending_verification --approve--> resolved  (terminal)
//	pending_verification --reject---> active
//	resolved / cancelled --x--------> (absorbing)
//
// Guards that need on-chain facts (verifier authorization, a bettor's
// confirmed exposure) take those facts as arguments so the caller is forced
// to derive them from the chain, not from the cache.

// sameAddress compares two addresses case-insensitively.
func sameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Propose stages a result for verification. Only the creator may propose,
// and only after the deadline has passed on an active prediction.
func Propose(p Prediction, proposer string, result BetChoice, now time.Time) (Prediction, error) {
	if !result.Valid() {
		return p, fmt.Errorf("%w: result must be yes or no", ErrValidation)
	}
	if p.Status.Terminal() {
		return p, fmt.Errorf("%w: prediction is %s", ErrPrecondition, p.Status)
	}
	if p.Status == StatusPendingVerification {
		return p, fmt.Errorf("%w: a proposal is already awaiting verification", ErrPrecondition)
	}
	if !sameAddress(proposer, p.Creator) {
		return p, fmt.Errorf("%w: only the creator may propose a result", ErrUnauthorized)
	}
	if now.Before(p.Deadline) {
		return p, fmt.Errorf("%w: deadline not passed", ErrPrecondition)
	}

	ts := now
	p.Status = StatusPendingVerification
	p.ProposedResult = &result
	p.ProposedBy = proposer
	p.ProposedAt = &ts
	p.RejectionReason = ""
	p.UpdatedAt = now
	return p, nil
}

// Approve finalizes the proposed result. The caller must have established
// that verifier is authorized against the contract's verifier registry or is
// the owner; this function guards state only.
func Approve(p Prediction, verifier string, now time.Time) (Prediction, error) {
	if p.Status != StatusPendingVerification {
		return p, fmt.Errorf("%w: no proposal awaiting verification", ErrPrecondition)
	}
	if p.ProposedResult == nil {
		return p, fmt.Errorf("%w: proposal has no result", ErrPrecondition)
	}

	ts := now
	result := *p.ProposedResult
	p.Status = StatusResolved
	p.Result = &result
	p.VerifiedBy = verifier
	p.VerifiedAt = &ts
	p.UpdatedAt = now
	return p, nil
}

// Reject returns a pending prediction to active, clearing the proposed
// fields and recording the reason. The creator may propose again afterwards.
func Reject(p Prediction, verifier, reason string, now time.Time) (Prediction, error) {
	if p.Status != StatusPendingVerification {
		return p, fmt.Errorf("%w: no proposal awaiting verification", ErrPrecondition)
	}

	p.Status = StatusActive
	p.ProposedResult = nil
	p.ProposedBy = ""
	p.ProposedAt = nil
	p.RejectionReason = reason
	p.VerifiedBy = verifier
	p.UpdatedAt = now
	return p, nil
}

// ApplyBet records a confirmed wager on the prediction's pool totals.
// existing is the bettor's confirmed on-chain bet on this prediction, if
// any; callers must derive it from chain reads, never from the projection.
func ApplyBet(p Prediction, bettor string, choice BetChoice, amount float64, existing *Bet, now time.Time) (Prediction, error) {
	if !choice.Valid() {
		return p, fmt.Errorf("%w: choice must be yes or no", ErrValidation)
	}
	if amount <= 0 {
		return p, fmt.Errorf("%w: amount must be greater than 0", ErrValidation)
	}
	if p.Status != StatusActive {
		return p, fmt.Errorf("%w: prediction is %s", ErrPrecondition, p.Status)
	}
	if !now.Before(p.Deadline) {
		return p, fmt.Errorf("%w: betting deadline has passed", ErrPrecondition)
	}
	if existing != nil {
		return p, fmt.Errorf("%w: bettor already wagered %s on this prediction", ErrPrecondition, existing.Choice)
	}
	if p.MaxCapacity > 0 && p.TotalPool()+amount > p.MaxCapacity {
		return p, fmt.Errorf("%w: pool capacity exceeded", ErrPrecondition)
	}

	if choice == ChoiceYes {
		p.TotalYes += amount
	} else {
		p.TotalNo += amount
	}
	p.UpdatedAt = now
	return p, nil
}

// Claim marks a winning bet claimed. The prediction must be resolved, the
// claimer must own the bet, the bet must back the final result, carry a
// positive payout, and not have been claimed before.
func Claim(p Prediction, b Bet, claimer string, now time.Time) (Bet, error) {
	if p.Status != StatusResolved || p.Result == nil {
		return b, fmt.Errorf("%w: prediction is not resolved", ErrPrecondition)
	}
	if !sameAddress(claimer, b.Bettor) {
		return b, fmt.Errorf("%w: bet belongs to another address", ErrUnauthorized)
	}
	if b.Claimed {
		return b, fmt.Errorf("%w: reward already claimed", ErrPrecondition)
	}
	if !b.Won(*p.Result) {
		return b, fmt.Errorf("%w: bet did not back the winning side", ErrPrecondition)
	}
	if b.Payout == nil || *b.Payout <= 0 {
		return b, fmt.Errorf("%w: no payout to claim", ErrPrecondition)
	}

	b.Claimed = true
	b.UpdatedAt = now
	return b, nil
}
