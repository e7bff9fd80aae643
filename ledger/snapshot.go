package ledger

import (
	"fmt"
	"sort"
)

// Snapshot is the serializable account state. It round-trips exactly the
// fields a paper-trading session needs to survive a restart; mark prices are
// deliberately absent and are re-observed from the feed.
type Snapshot struct {
	Cash             float64            `json:"cash"`
	InitialCapital   float64            `json:"initial_capital"`
	Positions        map[string]int     `json:"positions"`
	AverageCosts     map[string]float64 `json:"average_costs"`
	TradeHistory     []TradeRecord      `json:"trade_history"`
	EquityHistory    map[string]float64 `json:"equity_history"`
	ProcessedSignals []string           `json:"processed_signal_ids"`
}

// Snapshot captures the current state under the lock.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() Snapshot {
	snap := Snapshot{
		Cash:           l.cash,
		InitialCapital: l.initialCapital,
		Positions:      make(map[string]int, len(l.positions)),
		AverageCosts:   make(map[string]float64, len(l.avgCosts)),
		TradeHistory:   make([]TradeRecord, len(l.trades)),
		EquityHistory:  make(map[string]float64, len(l.equity)),
	}
	for s, q := range l.positions {
		snap.Positions[s] = q
	}
	for s, c := range l.avgCosts {
		snap.AverageCosts[s] = c
	}
	copy(snap.TradeHistory, l.trades)
	for d, e := range l.equity {
		snap.EquityHistory[d] = e
	}
	snap.ProcessedSignals = make([]string, 0, len(l.processed))
	for id := range l.processed {
		snap.ProcessedSignals = append(snap.ProcessedSignals, id)
	}
	sort.Strings(snap.ProcessedSignals)
	return snap
}

// Restore replaces the account state with a previously captured snapshot.
// Used once at paper-runner start, never during active stepping.
func (l *Ledger) Restore(snap Snapshot) error {
	if snap.Cash < 0 {
		return fmt.Errorf("restore: negative cash %.2f", snap.Cash)
	}
	for s, q := range snap.Positions {
		if q < 0 {
			return fmt.Errorf("restore: negative position %d for %s", q, s)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.cash = snap.Cash
	if snap.InitialCapital > 0 {
		l.initialCapital = snap.InitialCapital
	}
	l.positions = make(map[string]int, len(snap.Positions))
	for s, q := range snap.Positions {
		if q > 0 {
			l.positions[s] = q
		}
	}
	l.avgCosts = make(map[string]float64, len(snap.AverageCosts))
	for s, c := range snap.AverageCosts {
		if _, held := l.positions[s]; held {
			l.avgCosts[s] = c
		}
	}
	l.trades = make([]TradeRecord, len(snap.TradeHistory))
	copy(l.trades, snap.TradeHistory)
	l.equity = make(map[string]float64, len(snap.EquityHistory))
	for d, e := range snap.EquityHistory {
		l.equity[d] = e
	}
	l.processed = make(map[string]struct{}, len(snap.ProcessedSignals))
	for _, id := range snap.ProcessedSignals {
		l.processed[id] = struct{}{}
	}
	return nil
}
