// Package router dispatches strategy signals to the ledger and reports each
// attempt as a terminal SUCCESS/FAILED/SKIPPED outcome. Rejections are part
// of normal operation, so they travel in the Result rather than as errors.
package router

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mhlam/tradeflow/ledger"
	"github.com/mhlam/tradeflow/market"
	"github.com/mhlam/tradeflow/risk"
	"github.com/mhlam/tradeflow/strategies"
)

// Status is the terminal outcome of one signal. There are no retries; a
// fresh signal at a later bar is an independent attempt.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// Result records what became of a routed signal.
type Result struct {
	Action   strategies.Action `json:"action"`
	Symbol   string            `json:"symbol"`
	Price    float64           `json:"price"`
	Time     time.Time         `json:"time"`
	Status   Status            `json:"status"`
	Quantity int               `json:"quantity"`
	Msg      string            `json:"msg"`
}

// SignalTimeLayout formats the bar timestamp inside a signal ID.
const SignalTimeLayout = "2006-01-02 15:04:05"

// SignalID derives the idempotency key for a signal. It is deterministic in
// (symbol, time, action), which is what lets the ledger drop replays.
func SignalID(symbol string, at time.Time, action strategies.Action) string {
	return fmt.Sprintf("%s_%s_%s", symbol, at.Format(SignalTimeLayout), action)
}

// Router owns no mutable state beyond the static lot-size table; all
// position and cash state lives in the ledger.
type Router struct {
	ledger *ledger.Ledger
	sizer  *risk.Sizer
	lots   market.LotSizes
	log    *slog.Logger
}

// New builds a router over the given ledger and sizer. lots may be nil, in
// which case every symbol trades in single shares.
func New(led *ledger.Ledger, sizer *risk.Sizer, lots market.LotSizes, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{ledger: led, sizer: sizer, lots: lots, log: log}
}

// Execute routes one signal for symbol at the given bar price and time.
func (r *Router) Execute(symbol string, sig strategies.Signal, price float64, at time.Time) Result {
	res := Result{
		Action: sig.Action,
		Symbol: symbol,
		Price:  price,
		Time:   at,
		Status: StatusSkipped,
	}

	if sig.Action != strategies.ActionBuy && sig.Action != strategies.ActionSell {
		return res
	}

	lot := r.lots.Get(symbol)
	qty := r.sizer.OrderQuantity(
		sig.Action,
		r.ledger.Position(symbol),
		price,
		r.ledger.TotalEquity(),
		r.ledger.Cash(),
		lot,
		sig,
	)
	if qty <= 0 {
		res.Msg = "no actionable quantity"
		return res
	}

	id := SignalID(symbol, at, sig.Action)

	var err error
	switch sig.Action {
	case strategies.ActionBuy:
		err = r.ledger.Buy(symbol, price, qty, at, sig.Reason, id, sig.Factors, sig.TradeTag)
	case strategies.ActionSell:
		err = r.ledger.Sell(symbol, price, qty, at, sig.Reason, id, sig.Factors, sig.TradeTag)
	}

	switch {
	case err == nil:
		res.Status = StatusSuccess
		res.Quantity = qty
		res.Msg = fmt.Sprintf("filled %d shares", qty)
	case errors.Is(err, ledger.ErrDuplicateSignal):
		res.Msg = "signal already processed"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		res.Status = StatusFailed
		res.Msg = "insufficient funds"
	case errors.Is(err, ledger.ErrNoHoldings):
		res.Status = StatusFailed
		res.Msg = "no holdings to sell"
	default:
		res.Status = StatusFailed
		res.Msg = err.Error()
	}

	if res.Status != StatusSuccess {
		r.log.Debug("order not filled",
			"symbol", symbol,
			"action", string(sig.Action),
			"status", string(res.Status),
			"msg", res.Msg)
	}
	return res
}
