package backtest

import (
	"fmt"
	"time"

	"github.com/mhlam/tradeflow/ledger"
	"github.com/mhlam/tradeflow/market"
	"github.com/mhlam/tradeflow/router"
	"github.com/mhlam/tradeflow/strategies"
)

// RunMulti replays two timeframes of the same portfolio: a daily "swing"
// series that drives entries and exits, and a faster intraday series that
// carries only "T" rebalances. Per calendar day:
//
//  1. mark every symbol's daily close, then analyze the daily slices; a
//     signal tagged "T" is ignored here (it belongs to the inner loop)
//  2. walk each symbol's intraday bars inside [day, day+1): mark, analyze,
//     and route only signals tagged "T", subject to the per-day cap
//  3. append one equity sample for the day, valued at end-of-day marks
//
// The tag partition is what stops one decision from firing in both loops.
// Swing timestamps are normalized to midnight so the day windows stay
// unambiguous regardless of how the feed stamps daily bars.
func (e *Engine) RunMulti(swing, intraday map[string]*market.Series) error {
	daily := make(map[string]*market.Series, len(swing))
	for sym, series := range e.usable(swing) {
		daily[sym] = series.NormalizeDaily()
	}
	if len(daily) == 0 {
		return fmt.Errorf("backtest: no usable swing series")
	}
	fast := e.usable(intraday)

	symbols := sortedSymbols(daily)
	days := mergeTimestamps(daily)
	e.log.Info("multi-timeframe backtest started",
		"symbols", len(daily),
		"days", len(days))

	for _, day := range days {
		if e.warmup(day) {
			continue
		}
		dayEnd := day.Add(24 * time.Hour)

		for _, sym := range symbols {
			if i := daily[sym].IndexOf(day); i >= 0 {
				e.led.UpdateMarkPrice(sym, daily[sym].Candles[i].Close)
			}
		}

		for _, sym := range symbols {
			series := daily[sym]
			i := series.IndexOf(day)
			if i < 0 {
				continue
			}
			e.stepSwing(sym, series.UpTo(day), series.Candles[i].Close, day)
		}

		for _, sym := range symbols {
			series := fast[sym]
			if series == nil {
				continue
			}
			window := series.Between(day, dayEnd)
			for _, bar := range window.Candles {
				if e.warmup(bar.Time) {
					continue
				}
				e.led.UpdateMarkPrice(sym, bar.Close)
				e.stepIntraday(sym, series.UpTo(bar.Time), bar.Close, bar.Time)
			}
		}

		e.curve = append(e.curve, EquitySample{Time: day, Equity: e.led.TotalEquity()})
	}
	return nil
}

// stepSwing routes a daily decision unless it is an intraday rebalance.
func (e *Engine) stepSwing(symbol string, history *market.Series, price float64, ts time.Time) {
	sig, err := e.strat.Analyze(symbol, history)
	if err != nil {
		e.log.Warn("strategy error, holding",
			"symbol", symbol,
			"time", ts.Format(ledger.DateLayout),
			"err", err)
		sig = strategies.Hold(err.Error())
	}
	if sig.TradeTag == strategies.TagT {
		return
	}
	e.router.Execute(symbol, sig, price, ts)
}

// stepIntraday routes only "T" rebalances, within the daily budget.
func (e *Engine) stepIntraday(symbol string, history *market.Series, price float64, ts time.Time) {
	sig, err := e.strat.Analyze(symbol, history)
	if err != nil {
		e.log.Warn("strategy error, holding",
			"symbol", symbol,
			"time", ts.Format(router.SignalTimeLayout),
			"err", err)
		return
	}
	if sig.TradeTag != strategies.TagT {
		return
	}
	if !e.allowT(symbol, ts) {
		return
	}
	res := e.router.Execute(symbol, sig, price, ts)
	if res.Status == router.StatusSuccess {
		e.markT(symbol, ts)
	}
}
