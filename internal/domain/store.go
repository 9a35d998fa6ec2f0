package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PredictionStore persists the off-chain projection of predictions, keyed by
// the on-chain numeric id. It is a read cache of chain truth: writes happen
// only after a transaction confirms or during reconciliation.
type PredictionStore interface {
	Upsert(ctx context.Context, p Prediction) error
	GetByPredictionID(ctx context.Context, predictionID int64) (Prediction, error)
	ListByStatus(ctx context.Context, status PredictionStatus, opts ListOpts) ([]Prediction, error)
	ListActive(ctx context.Context, opts ListOpts) ([]Prediction, error)
	ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]Prediction, error)
	Count(ctx context.Context) (int64, error)
}

// BetStore persists the off-chain projection of bets.
type BetStore interface {
	Create(ctx context.Context, b Bet) error
	GetByDocID(ctx context.Context, docID string) (Bet, error)
	GetByBetID(ctx context.Context, betID int64) (Bet, error)
	GetUserBet(ctx context.Context, predictionID int64, bettor string) (Bet, error)
	ListByPrediction(ctx context.Context, predictionID int64, opts ListOpts) ([]Bet, error)
	ListByUser(ctx context.Context, bettor string, opts ListOpts) ([]Bet, error)
	SetPayouts(ctx context.Context, payouts map[string]float64) error
	MarkClaimed(ctx context.Context, docID string) error
}

// Proposal is the projection of a result proposal round, kept alongside the
// prediction so the verifier view can show proposal history.
type Proposal struct {
	DocID        string
	PredictionID int64
	Result       BetChoice
	ProposedBy   string
	ProposedAt   time.Time

	Verified        bool
	Approved        bool
	VerifiedBy      string
	VerifiedAt      *time.Time
	RejectionReason string
	Reconciled      bool
}

// ProposalStore persists proposal rounds.
type ProposalStore interface {
	Create(ctx context.Context, p Proposal) error
	GetOpen(ctx context.Context, predictionID int64) (Proposal, error)
	Update(ctx context.Context, p Proposal) error
	ListByPrediction(ctx context.Context, predictionID int64) ([]Proposal, error)
}

// VerifierStore persists verifier registry metadata. Authorization truth
// stays on chain; this store serves the display list.
type VerifierStore interface {
	Upsert(ctx context.Context, v Verifier) error
	Get(ctx context.Context, addr string) (Verifier, error)
	Deactivate(ctx context.Context, addr string) error
	ListActive(ctx context.Context) ([]Verifier, error)
}

// LeaderboardStore serves the profit-ranked bettor aggregate.
type LeaderboardStore interface {
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of settlement actions.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
