// Package ledger implements the simulated account: cash, positions, average
// cost, trade history, and daily equity samples. It is the only place account
// state mutates; everything else observes.
package ledger

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"
)

// DateLayout keys equity samples: one sample per calendar date.
const DateLayout = "2006-01-02"

// Observer is notified after every executed trade with a consistent snapshot.
// It runs outside the ledger lock; an error is logged and swallowed so a
// side-effect failure can never corrupt or roll back bookkeeping.
type Observer func(snap Snapshot, rec TradeRecord) error

// Ledger is a long-only, cash-settled simulated account.
//
// All methods are safe for concurrent use. The backtest path stays
// single-threaded, but the paper runner shares the same type and a future
// feed may deliver updates from another goroutine.
type Ledger struct {
	mu             sync.Mutex
	cash           float64
	initialCapital float64
	commissionRate float64
	positions      map[string]int
	avgCosts       map[string]float64
	marks          map[string]float64
	trades         []TradeRecord
	processed      map[string]struct{}
	equity         map[string]float64
	observer       Observer
	log            *slog.Logger
}

// Option configures a Ledger at construction.
type Option func(*Ledger)

// WithObserver installs the post-trade hook (persistence, notification fan-out).
func WithObserver(fn Observer) Option {
	return func(l *Ledger) { l.observer = fn }
}

// WithLogger routes observer failures and rejects to a specific logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates an account with the given starting cash and commission rate.
func New(initialCapital, commissionRate float64, opts ...Option) *Ledger {
	l := &Ledger{
		cash:           initialCapital,
		initialCapital: initialCapital,
		commissionRate: commissionRate,
		positions:      make(map[string]int),
		avgCosts:       make(map[string]float64),
		marks:          make(map[string]float64),
		processed:      make(map[string]struct{}),
		equity:         make(map[string]float64),
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

// UpdateMarkPrice records the latest observed price for valuation. No other
// side effect.
func (l *Ledger) UpdateMarkPrice(symbol string, price float64) {
	l.mu.Lock()
	l.marks[symbol] = price
	l.mu.Unlock()
}

// MarkPrice returns the last observed price for symbol, 0 if never seen.
func (l *Ledger) MarkPrice(symbol string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.marks[symbol]
}

func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

func (l *Ledger) InitialCapital() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initialCapital
}

func (l *Ledger) CommissionRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commissionRate
}

// Position returns the held quantity for symbol, 0 when flat.
func (l *Ledger) Position(symbol string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positions[symbol]
}

// Positions returns a copy of all non-zero holdings.
func (l *Ledger) Positions() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.positions))
	for s, q := range l.positions {
		out[s] = q
	}
	return out
}

// AverageCost returns the volume-weighted entry price for symbol, 0 when flat.
func (l *Ledger) AverageCost(symbol string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.avgCosts[symbol]
}

// TotalEquity is cash plus the mark-to-market value of all holdings. A held
// symbol with no mark price yet contributes zero.
func (l *Ledger) TotalEquity() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalEquityLocked()
}

func (l *Ledger) totalEquityLocked() float64 {
	equity := l.cash
	for symbol, qty := range l.positions {
		equity += float64(qty) * l.marks[symbol]
	}
	return equity
}

// Processed reports whether a signal identifier has already executed.
func (l *Ledger) Processed(signalID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.processed[signalID]
	return ok
}

// Buy executes a purchase. The signalID, when non-empty, is recorded on
// success and rejects any later call carrying the same id. Rejections leave
// the account untouched.
func (l *Ledger) Buy(symbol string, price float64, qty int, at time.Time, reason, signalID string, factors map[string]float64, tradeTag string) error {
	if price <= 0 || qty <= 0 {
		return ErrInvalidOrder
	}

	l.mu.Lock()
	if signalID != "" {
		if _, dup := l.processed[signalID]; dup {
			l.mu.Unlock()
			return ErrDuplicateSignal
		}
	}

	cost := price * float64(qty)
	commission := cost * l.commissionRate
	if l.cash < cost+commission {
		l.mu.Unlock()
		return ErrInsufficientFunds
	}

	before := l.positions[symbol]
	after := before + qty
	// Volume-weighted mean of the prior lot and this one.
	l.avgCosts[symbol] = (l.avgCosts[symbol]*float64(before) + price*float64(qty)) / float64(after)
	l.positions[symbol] = after
	l.cash -= round2(cost + commission)

	rec := TradeRecord{
		Time:           at,
		Symbol:         symbol,
		Side:           SideBuy,
		Price:          price,
		Quantity:       qty,
		Commission:     round2(commission),
		Reason:         reason,
		Factors:        copyFactors(factors),
		TradeTag:       tradeTag,
		PositionBefore: before,
		PositionAfter:  after,
		SignalID:       signalID,
	}
	l.commitAndNotify(rec, signalID)
	return nil
}

// Sell executes a sale. The quantity is clamped to current holdings; selling
// with no position at all is a rejection.
func (l *Ledger) Sell(symbol string, price float64, qty int, at time.Time, reason, signalID string, factors map[string]float64, tradeTag string) error {
	if price <= 0 || qty <= 0 {
		return ErrInvalidOrder
	}

	l.mu.Lock()
	if signalID != "" {
		if _, dup := l.processed[signalID]; dup {
			l.mu.Unlock()
			return ErrDuplicateSignal
		}
	}

	before := l.positions[symbol]
	if before <= 0 {
		l.mu.Unlock()
		return ErrNoHoldings
	}
	if qty > before {
		qty = before
	}

	revenue := price * float64(qty)
	commission := revenue * l.commissionRate
	avg := l.avgCosts[symbol]
	profitRatio := 0.0
	if avg > 0 {
		profitRatio = (price - avg) / avg
	}

	after := before - qty
	l.positions[symbol] = after
	if after == 0 {
		delete(l.positions, symbol)
		delete(l.avgCosts, symbol)
	}
	l.cash += round2(revenue - commission)

	rec := TradeRecord{
		Time:           at,
		Symbol:         symbol,
		Side:           SideSell,
		Price:          price,
		Quantity:       qty,
		Commission:     round2(commission),
		Reason:         reason,
		Factors:        copyFactors(factors),
		TradeTag:       tradeTag,
		PositionBefore: before,
		PositionAfter:  after,
		ProfitRatio:    profitRatio,
		SignalID:       signalID,
	}
	l.commitAndNotify(rec, signalID)
	return nil
}

// commitAndNotify appends the record, marks the signal processed, releases
// the lock, then fires the observer. The observer runs unlocked so a hook
// that reads the ledger cannot deadlock.
func (l *Ledger) commitAndNotify(rec TradeRecord, signalID string) {
	l.trades = append(l.trades, rec)
	if signalID != "" {
		l.processed[signalID] = struct{}{}
	}

	obs := l.observer
	var snap Snapshot
	if obs != nil {
		snap = l.snapshotLocked()
	}
	log := l.log
	l.mu.Unlock()

	if obs == nil {
		return
	}
	if err := obs(snap, rec); err != nil {
		log.Warn("trade observer failed",
			"symbol", rec.Symbol, "side", string(rec.Side), "error", err)
	}
}

// Trades returns a copy of the trade history.
func (l *Ledger) Trades() []TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TradeRecord, len(l.trades))
	copy(out, l.trades)
	return out
}

// RecordEquity stores one equity sample for the calendar date of t. A later
// write on the same date overwrites, producing a daily curve even when the
// loop steps sub-daily.
func (l *Ledger) RecordEquity(t time.Time, equity float64) {
	l.mu.Lock()
	l.equity[t.UTC().Format(DateLayout)] = equity
	l.mu.Unlock()
}

// EquityHistory returns a copy of the date-keyed samples.
func (l *Ledger) EquityHistory() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]float64, len(l.equity))
	for d, e := range l.equity {
		out[d] = e
	}
	return out
}

// EquityPoints returns the daily samples in date order.
func (l *Ledger) EquityPoints() []EquityPoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EquityPoint, 0, len(l.equity))
	for d, e := range l.equity {
		out = append(out, EquityPoint{Date: d, Equity: e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func copyFactors(in map[string]float64) map[string]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
