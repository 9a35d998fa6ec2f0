package domain

import (
	"context"
	"time"
)

// OnchainPrediction is the contract's record of a prediction. Amounts are
// normalized to whole token units by the adapter.
type OnchainPrediction struct {
	PredictionID int64
	Deadline     time.Time
	MaxCapacity  float64
	TotalYes     float64
	TotalNo      float64
	StatusCode   uint8
	FinalResult  bool
}

// OnchainBet is the contract's record of a single wager.
type OnchainBet struct {
	BetID        int64
	PredictionID int64
	Bettor       string
	Choice       bool
	Amount       float64
	Claimed      bool
}

// TxStatus is the outcome of a bounded confirmation wait.
type TxStatus string

const (
	TxConfirmed TxStatus = "confirmed"
	TxPending   TxStatus = "pending"
	TxFailed    TxStatus = "failed"
)

// ChainReader reads authoritative state from the PredictionMarket contract.
// The projection is never consulted for guard decisions; these reads are.
type ChainReader interface {
	ReadPrediction(ctx context.Context, predictionID int64) (OnchainPrediction, error)
	ReadBet(ctx context.Context, betID int64) (OnchainBet, error)
	UserBets(ctx context.Context, bettor string) ([]int64, error)
	PredictionBets(ctx context.Context, predictionID int64) ([]int64, error)
	NextPredictionID(ctx context.Context) (int64, error)
	Owner(ctx context.Context) (string, error)
	IsVerifier(ctx context.Context, addr string) (bool, error)
}

// ChainWriter submits transactions to the PredictionMarket contract. Every
// call returns the transaction hash immediately; confirmation is a separate
// bounded wait via WaitConfirmed.
type ChainWriter interface {
	CreatePrediction(ctx context.Context, title, description string, currency StakeCurrency, deadline time.Time, maxCapacity float64) (string, error)
	PlaceBet(ctx context.Context, predictionID int64, choice bool, amount float64, currency StakeCurrency) (string, error)
	ProposeResult(ctx context.Context, predictionID int64, result bool) (string, error)

	// VerifyResult approves or rejects the pending proposal on chain. An
	// approval resolves the prediction with its proposed result; a
	// rejection returns it to active and records the reason.
	VerifyResult(ctx context.Context, predictionID int64, approve bool, rejectionReason string) (string, error)

	ClaimReward(ctx context.Context, betID int64) (string, error)
	AddVerifier(ctx context.Context, addr string) (string, error)
	RemoveVerifier(ctx context.Context, addr string) (string, error)

	// CreatedPredictionID and PlacedBetID recover the contract-assigned id
	// from a confirmed transaction's receipt log. The counter must never be
	// used for attribution: another caller's transaction may land between
	// submission and the read.
	CreatedPredictionID(ctx context.Context, txHash string) (int64, error)
	PlacedBetID(ctx context.Context, txHash string) (int64, error)

	// WaitConfirmed blocks until the transaction is mined or the configured
	// confirmation timeout elapses. It returns TxConfirmed on success,
	// TxFailed with ErrTxReverted when the receipt carries a failed status,
	// and TxPending with ErrTxTimeout when the bound expires first.
	WaitConfirmed(ctx context.Context, txHash string) (TxStatus, error)
}
