package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPotentialPayout_SoleParticipant(t *testing.T) {
	// First bettor on an empty pool wins exactly their stake back.
	assert.InDelta(t, 100.0, PotentialPayout(0, 0, ChoiceYes, 100), 1e-9)
}

func TestPotentialPayout_ExistingPool(t *testing.T) {
	// winningPool=400, totalPool=1100 -> 100/400*1100 = 275
	assert.InDelta(t, 275.0, PotentialPayout(300, 700, ChoiceYes, 100), 1e-9)
}

func TestPotentialPayout_NoSide(t *testing.T) {
	assert.InDelta(t, 110.0, PotentialPayout(300, 700, ChoiceNo, 100), 1.0)
}

func TestPotentialPayout_ZeroStake(t *testing.T) {
	assert.Equal(t, 0.0, PotentialPayout(0, 0, ChoiceYes, 0))
	assert.Equal(t, 0.0, PotentialPayout(500, 0, ChoiceNo, 0))
}

func TestPotentialPayout_CanBeBelowStake(t *testing.T) {
	// Backing a dominant side pays less than the stake; the invariant is
	// payout == stake * totalPool / winningPool, not payout >= stake.
	payout := PotentialPayout(9000, 100, ChoiceYes, 100)
	assert.Less(t, payout, 100.0)
	assert.InDelta(t, 100*9200.0/9100.0, payout, 1e-9)
}

func TestProfitAndMultiplier(t *testing.T) {
	assert.InDelta(t, 175.0, Profit(275, 100), 1e-9)
	assert.InDelta(t, 2.75, Multiplier(275, 100), 1e-9)
	assert.Equal(t, 0.0, Multiplier(275, 0))
}

func TestFinalPayouts_SumEqualsTotalPool(t *testing.T) {
	bets := []Bet{
		{DocID: "a", Choice: ChoiceYes, Amount: 100},
		{DocID: "b", Choice: ChoiceYes, Amount: 200},
		{DocID: "c", Choice: ChoiceNo, Amount: 700},
	}
	payouts := FinalPayouts(300, 700, ChoiceYes, bets)

	assert.Equal(t, 0.0, payouts["c"])

	var sum float64
	for _, b := range bets {
		if b.Choice == ChoiceYes {
			sum += payouts[b.DocID]
		}
	}
	assert.InDelta(t, 1000.0, sum, 1e-9)

	// Proportional within the winning side.
	assert.InDelta(t, 2*payouts["a"], payouts["b"], 1e-9)
}

func TestFinalPayouts_EmptyWinningSide(t *testing.T) {
	bets := []Bet{
		{DocID: "a", Choice: ChoiceNo, Amount: 500},
		{DocID: "b", Choice: ChoiceNo, Amount: 250},
	}
	payouts := FinalPayouts(0, 750, ChoiceYes, bets)

	for id, p := range payouts {
		assert.Equal(t, 0.0, p, "bet %s should pay nothing", id)
	}
	assert.True(t, PoolStranded(0, 750, ChoiceYes))
}

func TestPoolStranded(t *testing.T) {
	assert.False(t, PoolStranded(300, 700, ChoiceYes))
	assert.False(t, PoolStranded(0, 0, ChoiceYes))
	assert.True(t, PoolStranded(500, 0, ChoiceNo))
}
