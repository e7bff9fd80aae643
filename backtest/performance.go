package backtest

import (
	"fmt"
	"io"
	"sort"

	"github.com/mhlam/tradeflow/ledger"
)

// Performance summarizes a finished run.
type Performance struct {
	InitialCapital float64      `json:"initial_capital"`
	FinalValue     float64      `json:"final_value"`
	TotalReturn    float64      `json:"total_return"` // percent
	MaxDrawdown    float64      `json:"max_drawdown"` // percent, <= 0
	Stats          ledger.Stats `json:"stats"`
	// TotalOrders counts every fill, including the partial exits that the
	// closed-trade Stats leave out.
	TotalOrders int                 `json:"total_orders"`
	Symbols     []SymbolPerformance `json:"symbols"`
}

// SymbolPerformance is the per-symbol breakdown. PnL includes the market
// value of whatever is still held at the end of the run, so a profitable
// open position counts as profit.
type SymbolPerformance struct {
	Symbol      string  `json:"symbol"`
	PnL         float64 `json:"pnl"`
	ROI         float64 `json:"roi"` // percent on buy turnover
	Position    int     `json:"position"`
	MarketValue float64 `json:"market_value"`
	Closed      int     `json:"closed"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"` // percent
}

// Performance computes the run summary from the equity curve and the ledger.
// Call after Run/RunMulti; an engine that never stepped reports zeroes.
func (e *Engine) Performance() Performance {
	perf := Performance{
		InitialCapital: e.cfg.InitialCapital,
		Stats:          e.led.TradeStats(),
		TotalOrders:    len(e.led.Trades()),
	}
	if len(e.curve) == 0 {
		return perf
	}

	perf.FinalValue = e.curve[len(e.curve)-1].Equity
	perf.TotalReturn = (perf.FinalValue - perf.InitialCapital) / perf.InitialCapital * 100
	perf.MaxDrawdown = maxDrawdown(e.curve)
	perf.Symbols = e.symbolBreakdown()
	return perf
}

// maxDrawdown walks the curve tracking the running peak; the deepest
// peak-to-trough drop is reported as a non-positive percentage.
func maxDrawdown(curve []EquitySample) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Equity
	var dd float64
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		if d := (p.Equity - peak) / peak * 100; d < dd {
			dd = d
		}
	}
	return dd
}

type symbolTally struct {
	buyAmount  float64
	sellAmount float64
	commission float64
	closed     int
	wins       int
	losses     int
}

func (e *Engine) symbolBreakdown() []SymbolPerformance {
	tallies := make(map[string]*symbolTally)
	for _, t := range e.led.Trades() {
		st := tallies[t.Symbol]
		if st == nil {
			st = &symbolTally{}
			tallies[t.Symbol] = st
		}
		st.commission += t.Commission
		switch t.Side {
		case ledger.SideBuy:
			st.buyAmount += t.Price * float64(t.Quantity)
		case ledger.SideSell:
			st.sellAmount += t.Price * float64(t.Quantity)
			if t.PositionAfter == 0 {
				st.closed++
				if t.ProfitRatio > 0 {
					st.wins++
				} else {
					st.losses++
				}
			}
		}
	}

	out := make([]SymbolPerformance, 0, len(tallies))
	for symbol, st := range tallies {
		sp := SymbolPerformance{
			Symbol:   symbol,
			Position: e.led.Position(symbol),
			Closed:   st.closed,
			Wins:     st.wins,
			Losses:   st.losses,
		}
		sp.MarketValue = float64(sp.Position) * e.led.MarkPrice(symbol)
		sp.PnL = st.sellAmount + sp.MarketValue - st.buyAmount - st.commission
		if st.buyAmount > 0 {
			sp.ROI = sp.PnL / st.buyAmount * 100
		}
		if st.closed > 0 {
			sp.WinRate = float64(st.wins) / float64(st.closed) * 100
		}
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// WriteSummary renders the human-readable result block.
func (p Performance) WriteSummary(w io.Writer) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Initial Capital: %.2f\n", p.InitialCapital)
	fmt.Fprintf(w, "Final Equity:    %.2f\n", p.FinalValue)
	fmt.Fprintf(w, "Total Return:    %.2f%%\n", p.TotalReturn)
	fmt.Fprintf(w, "Max Drawdown:    %.2f%%\n", p.MaxDrawdown)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Orders:          %d (closed trades: %d)\n", p.TotalOrders, p.Stats.TotalTrades)
	fmt.Fprintf(w, "Wins / Losses:   %d / %d\n", p.Stats.WinningTrades, p.Stats.LosingTrades)
	fmt.Fprintf(w, "Win Rate:        %.2f%%\n", p.Stats.WinRate*100)
	fmt.Fprintf(w, "Avg P&L Ratio:   %.2f%%\n", p.Stats.AvgProfitRatio*100)

	if len(p.Symbols) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Per-Symbol Breakdown")
	fmt.Fprintln(w, "--------------------------------------------------")
	for _, s := range p.Symbols {
		fmt.Fprintf(w, "%-10s | pnl %10.2f | roi %7.2f%% | pos %6d | value %12.2f | win %6.2f%% (%d/%d)\n",
			s.Symbol, s.PnL, s.ROI, s.Position, s.MarketValue, s.WinRate, s.Wins, s.Closed)
	}
}
