package domain

import "time"

// BetChoice is the side of a prediction a wager backs. The boolean encoding
// (true=yes, false=no) is shared with the contract and must not change.
type BetChoice string

const (
	ChoiceYes BetChoice = "yes"
	ChoiceNo  BetChoice = "no"
)

// ChoiceFromBool maps the on-chain boolean encoding to a BetChoice.
func ChoiceFromBool(b bool) BetChoice {
	if b {
		return ChoiceYes
	}
	return ChoiceNo
}

// Bool returns the on-chain boolean encoding of the choice.
func (c BetChoice) Bool() bool {
	return c == ChoiceYes
}

// Valid reports whether the choice is one of the two legal values.
func (c BetChoice) Valid() bool {
	return c == ChoiceYes || c == ChoiceNo
}

// Bet is a single wager by one bettor on one prediction. At most one bet
// exists per (bettor, prediction) pair; the contract rejects top-ups and so
// does the orchestrator, by scanning confirmed on-chain bets before
// submitting.
type Bet struct {
	DocID        string
	BetID        int64 // contract-assigned, set once the bet transaction confirms
	PredictionID int64

	Bettor string
	Choice BetChoice
	Amount float64

	// Payout is nil until the prediction resolves. Zero for losing bets.
	Payout  *float64
	Claimed bool

	PlacedAt  time.Time
	UpdatedAt time.Time
}

// Won reports whether the bet backed the winning side of a resolved
// prediction.
func (b Bet) Won(result BetChoice) bool {
	return b.Choice == result
}
