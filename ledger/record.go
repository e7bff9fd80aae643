package ledger

import (
	"errors"
	"time"
)

// Side is the direction of an executed trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Sentinel errors returned by Buy/Sell. Callers branch with errors.Is to map
// an outcome to an execution status.
var (
	ErrInvalidOrder      = errors.New("ledger: price and quantity must be positive")
	ErrDuplicateSignal   = errors.New("ledger: signal already processed")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrNoHoldings        = errors.New("ledger: no holdings")
)

// TradeRecord is one executed trade. Records are append-only: once in the
// history they are never edited or removed.
type TradeRecord struct {
	Time           time.Time          `json:"time"`
	Symbol         string             `json:"symbol"`
	Side           Side               `json:"side"`
	Price          float64            `json:"price"`
	Quantity       int                `json:"quantity"`
	Commission     float64            `json:"commission"`
	Reason         string             `json:"reason,omitempty"`
	Factors        map[string]float64 `json:"factors,omitempty"`
	TradeTag       string             `json:"trade_tag,omitempty"`
	PositionBefore int                `json:"position_before"`
	PositionAfter  int                `json:"position_after"`
	// ProfitRatio is set on SELL records only: (price - avgCost) / avgCost
	// at execution time, 0 when the average cost was unknown.
	ProfitRatio float64 `json:"profit_ratio"`
	SignalID    string  `json:"signal_id,omitempty"`
}

// EquityPoint is one dated equity sample.
type EquityPoint struct {
	Date   string  `json:"date"`
	Equity float64 `json:"equity"`
}
