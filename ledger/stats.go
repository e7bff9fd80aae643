package ledger

// Stats summarizes closed trades: SELL records whose resulting position is
// exactly zero. Partial scale-outs realize P&L but are intentionally excluded
// from the tallies; the definition matches the account's original reporting
// and changing it would silently shift every historical win rate.
type Stats struct {
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	AvgProfitRatio float64 `json:"avg_pnl_ratio"`
}

// TradeStats derives win/loss statistics from the trade history.
func (l *Ledger) TradeStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Stats
	var sum float64
	for _, t := range l.trades {
		if t.Side != SideSell || t.PositionAfter != 0 {
			continue
		}
		s.TotalTrades++
		sum += t.ProfitRatio
		if t.ProfitRatio > 0 {
			s.WinningTrades++
		} else {
			s.LosingTrades++
		}
	}
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades)
		s.AvgProfitRatio = sum / float64(s.TotalTrades)
	}
	return s
}
