package domain

import (
	"context"
	"time"
)

// Settlement event types published on the signal bus and mirrored to the
// audit log.
const (
	EventPredictionCreated = "prediction_created"
	EventBetConfirmed      = "bet_confirmed"
	EventResultProposed    = "result_proposed"
	EventResultRejected    = "result_rejected"
	EventResolved          = "resolved"
	EventRewardClaimed     = "reward_claimed"
	EventReconciled        = "reconciled"
	EventPoolStranded      = "pool_stranded"
)

// SettlementChannel is the bus channel settlement events are published on.
const SettlementChannel = "settlement"

// SettlementEvent is the JSON payload published for every confirmed
// settlement action.
type SettlementEvent struct {
	Type         string    `json:"type"`
	PredictionID int64     `json:"prediction_id"`
	Address      string    `json:"address,omitempty"`
	Choice       string    `json:"choice,omitempty"`
	Amount       float64   `json:"amount,omitempty"`
	TxHash       string    `json:"tx_hash,omitempty"`
	At           time.Time `json:"at"`
}

// SettlementSnapshot is the archived record of a resolved prediction: the
// final on-chain state plus every bet's computed payout, written to blob
// storage at resolution time.
type SettlementSnapshot struct {
	Prediction Prediction         `json:"prediction"`
	Bets       []Bet              `json:"bets"`
	Payouts    map[string]float64 `json:"payouts"`
	ResolvedAt time.Time          `json:"resolved_at"`
}

// SnapshotArchiver persists settlement snapshots to durable blob storage.
type SnapshotArchiver interface {
	Archive(ctx context.Context, snap SettlementSnapshot) (key string, err error)
}
