// Package backtest replays historical bars through a strategy and the order
// pipeline. Runs are deterministic: identical bars and strategy behavior
// produce an identical trade sequence and equity curve, so symbols are always
// visited in sorted order and nothing in the hot path touches the clock.
package backtest

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mhlam/tradeflow/ledger"
	"github.com/mhlam/tradeflow/market"
	"github.com/mhlam/tradeflow/risk"
	"github.com/mhlam/tradeflow/router"
	"github.com/mhlam/tradeflow/strategies"
)

// Config carries the per-run simulation parameters.
type Config struct {
	InitialCapital float64
	CommissionRate float64
	Sizing         risk.SizingConfig
	Lots           market.LotSizes
	// Start is the first bar that may trade; earlier bars only warm up
	// indicators. Zero means trade from the first bar.
	Start time.Time
	// TMaxPerSymbolPerDay caps intraday "T" rebalances. Zero means the
	// stock limit of two.
	TMaxPerSymbolPerDay int
}

// EquitySample is one point of the equity curve.
type EquitySample struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// tBudget tracks how many "T" fills a symbol has used on a calendar day.
type tBudget struct {
	date  string
	count int
}

// Engine owns the ledger, sizer, and router for one simulation run.
type Engine struct {
	cfg    Config
	strat  strategies.Strategy
	led    *ledger.Ledger
	router *router.Router
	log    *slog.Logger

	budgets map[string]*tBudget
	curve   []EquitySample
}

// Option configures an Engine beyond the plain Config.
type Option func(*engineOptions)

type engineOptions struct {
	log      *slog.Logger
	observer ledger.Observer
}

// WithLogger routes engine diagnostics to log.
func WithLogger(log *slog.Logger) Option {
	return func(o *engineOptions) { o.log = log }
}

// WithObserver attaches a trade observer to the run's ledger, typically a
// journal hook.
func WithObserver(fn ledger.Observer) Option {
	return func(o *engineOptions) { o.observer = fn }
}

// New validates cfg and assembles the simulation pipeline.
func New(strat strategies.Strategy, cfg Config, opts ...Option) (*Engine, error) {
	if strat == nil {
		return nil, fmt.Errorf("backtest: strategy is required")
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("backtest: initial capital must be positive, got %.2f", cfg.InitialCapital)
	}
	if cfg.CommissionRate < 0 {
		return nil, fmt.Errorf("backtest: commission rate must not be negative, got %.4f", cfg.CommissionRate)
	}
	if cfg.TMaxPerSymbolPerDay == 0 {
		cfg.TMaxPerSymbolPerDay = 2
	}

	sizer, err := risk.NewSizer(cfg.Sizing)
	if err != nil {
		return nil, err
	}

	var eo engineOptions
	for _, opt := range opts {
		opt(&eo)
	}
	if eo.log == nil {
		eo.log = slog.Default()
	}

	ledOpts := []ledger.Option{ledger.WithLogger(eo.log)}
	if eo.observer != nil {
		ledOpts = append(ledOpts, ledger.WithObserver(eo.observer))
	}
	led := ledger.New(cfg.InitialCapital, cfg.CommissionRate, ledOpts...)

	return &Engine{
		cfg:     cfg,
		strat:   strat,
		led:     led,
		router:  router.New(led, sizer, cfg.Lots, eo.log),
		log:     eo.log,
		budgets: make(map[string]*tBudget),
	}, nil
}

// Ledger exposes the run's account state.
func (e *Engine) Ledger() *ledger.Ledger { return e.led }

// EquityCurve returns the recorded equity samples in time order.
func (e *Engine) EquityCurve() []EquitySample {
	out := make([]EquitySample, len(e.curve))
	copy(out, e.curve)
	return out
}

// Run replays a portfolio of same-period series through the strategy:
//
//  1. merge all bar timestamps into one sorted, deduplicated sequence
//  2. at each timestamp, mark every present symbol's close first
//  3. then analyze and route per symbol, in sorted symbol order
//  4. append one equity sample per timestamp
//
// Bars before cfg.Start run steps 2-3 not at all; they exist only so the
// strategy sees them as history once trading begins.
func (e *Engine) Run(data map[string]*market.Series) error {
	clean := e.usable(data)
	if len(clean) == 0 {
		return fmt.Errorf("backtest: no usable series")
	}

	symbols := sortedSymbols(clean)
	timeline := mergeTimestamps(clean)
	e.log.Info("backtest started",
		"symbols", len(clean),
		"steps", len(timeline))

	for _, ts := range timeline {
		if e.warmup(ts) {
			continue
		}

		for _, sym := range symbols {
			if i := clean[sym].IndexOf(ts); i >= 0 {
				e.led.UpdateMarkPrice(sym, clean[sym].Candles[i].Close)
			}
		}

		for _, sym := range symbols {
			series := clean[sym]
			i := series.IndexOf(ts)
			if i < 0 {
				continue
			}
			e.step(sym, series.UpTo(ts), series.Candles[i].Close, ts)
		}

		e.curve = append(e.curve, EquitySample{Time: ts, Equity: e.led.TotalEquity()})
	}
	return nil
}

// step analyzes one symbol at one timestamp and routes the outcome. Strategy
// errors degrade to HOLD so a single bad bar cannot abort the run.
func (e *Engine) step(symbol string, history *market.Series, price float64, ts time.Time) {
	sig, err := e.strat.Analyze(symbol, history)
	if err != nil {
		e.log.Warn("strategy error, holding",
			"symbol", symbol,
			"time", ts.Format(router.SignalTimeLayout),
			"err", err)
		sig = strategies.Hold(err.Error())
	}

	if sig.TradeTag == strategies.TagT && !e.allowT(symbol, ts) {
		return
	}

	res := e.router.Execute(symbol, sig, price, ts)
	if sig.TradeTag == strategies.TagT && res.Status == router.StatusSuccess {
		e.markT(symbol, ts)
	}
}

// warmup reports whether ts is before the trading window.
func (e *Engine) warmup(ts time.Time) bool {
	return !e.cfg.Start.IsZero() && ts.Before(e.cfg.Start)
}

// usable drops nil, empty, or unordered series with a warning and returns
// the survivors. The caller's map is never mutated.
func (e *Engine) usable(data map[string]*market.Series) map[string]*market.Series {
	clean := make(map[string]*market.Series, len(data))
	for sym, series := range data {
		if err := series.Validate(); err != nil {
			e.log.Warn("dropping symbol", "symbol", sym, "err", err)
			continue
		}
		clean[sym] = series
	}
	return clean
}

func (e *Engine) allowT(symbol string, at time.Time) bool {
	return e.budget(symbol, at).count < e.cfg.TMaxPerSymbolPerDay
}

func (e *Engine) markT(symbol string, at time.Time) {
	e.budget(symbol, at).count++
}

// budget returns the symbol's counter for at's calendar day, resetting it
// when the day changes.
func (e *Engine) budget(symbol string, at time.Time) *tBudget {
	date := at.Format(ledger.DateLayout)
	b := e.budgets[symbol]
	if b == nil || b.date != date {
		b = &tBudget{date: date}
		e.budgets[symbol] = b
	}
	return b
}

func sortedSymbols(data map[string]*market.Series) []string {
	out := make([]string, 0, len(data))
	for sym := range data {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// mergeTimestamps returns the union of all bar times, sorted and deduplicated.
func mergeTimestamps(data map[string]*market.Series) []time.Time {
	var all []time.Time
	for _, series := range data {
		all = append(all, series.Timestamps()...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Before(all[j]) })
	out := all[:0]
	for _, ts := range all {
		if len(out) == 0 || !out[len(out)-1].Equal(ts) {
			out = append(out, ts)
		}
	}
	return out
}
