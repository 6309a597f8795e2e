package wager

// Stats aggregates a user's settled wagers.
type Stats struct {
	TotalWagers      int
	TotalWon         int
	TotalLost        int
	TotalPushed      int
	TotalCancelled   int
	ActiveWagers     int
	TotalStakedCents int64
	TotalProfitCents int64
	BiggestWinCents  int64
	BiggestLossCents int64
}

// WinRate returns the won share of decided wagers as a 0-100 percentage.
func (stats Stats) WinRate() float64 {
	decided := stats.TotalWon + stats.TotalLost
	if decided == 0 {
		return 0
	}
	return float64(stats.TotalWon) / float64(decided) * 100
}

// ScoreboardEntry is one row of the balance ranking.
type ScoreboardEntry struct {
	Rank             int
	UserID           UserID
	BalanceCents     AmountCents
	ActiveWagerCount int
}
