// Package journal persists finished runs for later review. Every run gets a
// summary row plus its fills and equity curve, all keyed by a shared run ID,
// so backtests stay comparable across parameter sweeps. Two backends: SQLite
// for a queryable history, CSV for spreadsheet-friendly dumps.
package journal

import (
	"time"

	"github.com/mhlam/tradeflow/ledger"
)

// RunRecord is the summary row for one finished run.
type RunRecord struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"` // "backtest" or "paper"
	Strategy       string    `json:"strategy"`
	Symbols        []string  `json:"symbols"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	CreatedAt      time.Time `json:"created_at"`
	InitialCapital float64   `json:"initial_capital"`
	FinalValue     float64   `json:"final_value"`
	TotalReturn    float64   `json:"total_return"` // percent
	MaxDrawdown    float64   `json:"max_drawdown"` // percent, <= 0
	TotalOrders    int       `json:"total_orders"`
	ClosedTrades   int       `json:"closed_trades"`
	WinRate        float64   `json:"win_rate"` // percent of closed trades
}

// EquityRow is one stored equity sample.
type EquityRow struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Journal records runs and their fills. Implementations need not be safe for
// concurrent use; callers write one run at a time.
type Journal interface {
	RecordRun(run RunRecord) error
	RecordTrade(runID string, t ledger.TradeRecord) error
	RecordEquity(runID string, at time.Time, equity float64) error
	Close() error
}

// Nop discards everything. It stands in when journaling is disabled.
type Nop struct{}

func (Nop) RecordRun(RunRecord) error                     { return nil }
func (Nop) RecordTrade(string, ledger.TradeRecord) error  { return nil }
func (Nop) RecordEquity(string, time.Time, float64) error { return nil }
func (Nop) Close() error                                  { return nil }
