package domain

// Parimutuel wagering math. Winners split the combined pool in proportion to
// their stake within the winning side. All functions are pure; pool totals
// come from the authoritative on-chain record at call time.

// PotentialPayout simulates adding stake to the chosen side and returns the
// payout the bettor would receive if that side wins:
//
//	winningPool = chosenSide + stake
//	totalPool   = totalYes + totalNo + stake
//	payout      = stake / winningPool * totalPool
//
// A zero winning pool (only possible with stake == 0) pays zero.
func PotentialPayout(totalYes, totalNo float64, choice BetChoice, stake float64) float64 {
	winningPool := totalNo + stake
	if choice == ChoiceYes {
		winningPool = totalYes + stake
	}
	if winningPool <= 0 {
		return 0
	}
	totalPool := totalYes + totalNo + stake
	return stake / winningPool * totalPool
}

// Profit returns payout minus stake.
func Profit(payout, stake float64) float64 {
	return payout - stake
}

// Multiplier returns payout over stake, guarding the zero-stake case.
func Multiplier(payout, stake float64) float64 {
	if stake <= 0 {
		return 0
	}
	return payout / stake
}

// FinalPayouts computes the payout for every bet on a resolved prediction.
// Winning bets receive stake / winningPool * totalPool; losing bets receive
// zero. The returned map is keyed by bet DocID.
//
// When nobody bet on the winning side the pool has no claimants: every bet
// pays zero and the staked funds stay locked in the contract. Callers should
// detect this with PoolStranded and record it.
func FinalPayouts(totalYes, totalNo float64, result BetChoice, bets []Bet) map[string]float64 {
	totalPool := totalYes + totalNo
	winningPool := totalNo
	if result == ChoiceYes {
		winningPool = totalYes
	}

	payouts := make(map[string]float64, len(bets))
	for _, b := range bets {
		if b.Choice == result && winningPool > 0 {
			payouts[b.DocID] = b.Amount / winningPool * totalPool
		} else {
			payouts[b.DocID] = 0
		}
	}
	return payouts
}

// PoolStranded reports whether a resolution leaves staked funds with no
// winners to claim them: a non-empty pool whose winning side holds nothing.
func PoolStranded(totalYes, totalNo float64, result BetChoice) bool {
	winningPool := totalNo
	if result == ChoiceYes {
		winningPool = totalYes
	}
	return winningPool <= 0 && totalYes+totalNo > 0
}
