package domain

import "time"

// PredictionStatus is the lifecycle state of a prediction.
type PredictionStatus string

const (
	StatusActive              PredictionStatus = "active"
	StatusPendingVerification PredictionStatus = "pending_verification"
	StatusResolved            PredictionStatus = "resolved"
	StatusRejected            PredictionStatus = "rejected"
	StatusCancelled           PredictionStatus = "cancelled"
)

// On-chain status codes. This vocabulary is shared with the PredictionMarket
// contract and must not change. Rejection is not a resting state on chain: a
// rejected verification returns the prediction to code 0.
const (
	StatusCodeActive              uint8 = 0
	StatusCodePendingVerification uint8 = 1
	StatusCodeResolved            uint8 = 2
	StatusCodeCancelled           uint8 = 3
)

// StatusFromCode maps an on-chain status code to the semantic status. Unknown
// codes map to the empty status so callers can reject them explicitly.
func StatusFromCode(code uint8) PredictionStatus {
	switch code {
	case StatusCodeActive:
		return StatusActive
	case StatusCodePendingVerification:
		return StatusPendingVerification
	case StatusCodeResolved:
		return StatusResolved
	case StatusCodeCancelled:
		return StatusCancelled
	default:
		return ""
	}
}

// Code maps the semantic status back to the on-chain code. StatusRejected has
// no on-chain representation and maps to active, matching contract behavior.
func (s PredictionStatus) Code() uint8 {
	switch s {
	case StatusPendingVerification:
		return StatusCodePendingVerification
	case StatusResolved:
		return StatusCodeResolved
	case StatusCancelled:
		return StatusCodeCancelled
	default:
		return StatusCodeActive
	}
}

// Terminal reports whether the status is absorbing. No transition leaves a
// resolved or cancelled prediction.
func (s PredictionStatus) Terminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// StakeCurrency identifies what a prediction's pools are denominated in.
type StakeCurrency string

const (
	CurrencyETH  StakeCurrency = "ETH"
	CurrencyUSDC StakeCurrency = "USDC"
)

// Prediction is a wagering proposition. The on-chain PredictionID is the
// authoritative identity; DocID is the projection row id assigned off-chain.
type Prediction struct {
	DocID        string
	PredictionID int64

	Title       string
	Description string
	Currency    StakeCurrency
	Deadline    time.Time
	MaxCapacity float64 // 0 means uncapped
	Creator     string

	TotalYes float64
	TotalNo  float64

	Status PredictionStatus

	// Proposal fields, set while a result is awaiting verification.
	ProposedResult *BetChoice
	ProposedBy     string
	ProposedAt     *time.Time

	// Resolution fields, set once verified.
	Result     *BetChoice
	VerifiedBy string
	VerifiedAt *time.Time

	// RejectionReason holds the reason from the most recent rejected
	// verification, if any.
	RejectionReason string

	// Reconciled is true when the row was last written by the reconciliation
	// service rather than an optimistic projection update.
	Reconciled bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalPool returns the combined stake across both sides.
func (p Prediction) TotalPool() float64 {
	return p.TotalYes + p.TotalNo
}

// WinningPool returns the stake on the given side.
func (p Prediction) WinningPool(result BetChoice) float64 {
	if result == ChoiceYes {
		return p.TotalYes
	}
	return p.TotalNo
}
