package domain

// LeaderboardEntry aggregates one bettor's record across resolved
// predictions. Profit sums payout minus stake; losing bets contribute their
// full stake as loss. WinRate is wins over resolved bets, as a percentage.
type LeaderboardEntry struct {
	Address     string
	TotalProfit float64
	TotalBets   int64
	Wins        int64
	WinRate     float64
}
