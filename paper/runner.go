// Package paper runs the live-shaped polling loop against the simulated
// account: poll the latest bars, mark prices, analyze, route, notify. It is
// the same pipeline the backtest engine drives, clocked by a real feed
// instead of a historical timeline.
package paper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/mhlam/tradeflow/datafeed"
	"github.com/mhlam/tradeflow/ledger"
	"github.com/mhlam/tradeflow/market"
	"github.com/mhlam/tradeflow/notify"
	"github.com/mhlam/tradeflow/persist"
	"github.com/mhlam/tradeflow/risk"
	"github.com/mhlam/tradeflow/router"
	"github.com/mhlam/tradeflow/strategies"
)

// staleSlack is added to twice the bar period when deciding whether the
// latest bar is too old to act on, absorbing feed publication lag.
const staleSlack = 5 * time.Minute

// Config carries the paper session parameters.
type Config struct {
	InitialCapital float64
	CommissionRate float64
	Sizing         risk.SizingConfig
	Lots           market.LotSizes

	Symbols []string
	Period  market.Period
	// HistoryCount is how many bars each poll fetches for analysis.
	HistoryCount int

	// Interval separates polling cycles; RequestDelay separates symbols
	// within a cycle.
	Interval     time.Duration
	RequestDelay time.Duration

	// TMaxPerSymbolPerDay caps intraday "T" rebalances. Zero means two.
	TMaxPerSymbolPerDay int
}

func (c *Config) setDefaults() {
	if c.HistoryCount <= 0 {
		c.HistoryCount = 100
	}
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.RequestDelay < 0 {
		c.RequestDelay = 0
	}
	if c.TMaxPerSymbolPerDay == 0 {
		c.TMaxPerSymbolPerDay = 2
	}
}

// tCount tracks a symbol's "T" fills for one calendar day.
type tCount struct {
	date  string
	count int
}

// Runner polls a feed and trades one simulated account.
type Runner struct {
	cfg    Config
	feed   datafeed.Feed
	strat  strategies.Strategy
	led    *ledger.Ledger
	sizer  *risk.Sizer
	router *router.Router
	store  *persist.Store
	notif  notify.Notifier
	log    *slog.Logger
	tracer trace.Tracer

	budgets    map[string]*tCount
	lastAction map[string]strategies.Action
	now        func() time.Time
}

// Option configures a Runner beyond the plain Config.
type Option func(*runnerOptions)

type runnerOptions struct {
	log    *slog.Logger
	store  *persist.Store
	notif  notify.Notifier
	tracer trace.Tracer
}

// WithLogger routes runner diagnostics to log.
func WithLogger(log *slog.Logger) Option {
	return func(o *runnerOptions) { o.log = log }
}

// WithStore persists the account: restored at start, saved on every scan
// and after every trade.
func WithStore(store *persist.Store) Option {
	return func(o *runnerOptions) { o.store = store }
}

// WithNotifier sends a notice for every executed or failed order.
func WithNotifier(n notify.Notifier) Option {
	return func(o *runnerOptions) { o.notif = n }
}

// WithTracer wraps each polling cycle in a span.
func WithTracer(t trace.Tracer) Option {
	return func(o *runnerOptions) { o.tracer = t }
}

// New validates cfg and assembles the paper pipeline.
func New(feed datafeed.Feed, strat strategies.Strategy, cfg Config, opts ...Option) (*Runner, error) {
	if feed == nil {
		return nil, fmt.Errorf("paper: feed is required")
	}
	if strat == nil {
		return nil, fmt.Errorf("paper: strategy is required")
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("paper: no symbols configured")
	}
	if !cfg.Period.Valid() {
		return nil, fmt.Errorf("paper: invalid period %q", cfg.Period)
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("paper: initial capital must be positive, got %.2f", cfg.InitialCapital)
	}
	cfg.setDefaults()

	sizer, err := risk.NewSizer(cfg.Sizing)
	if err != nil {
		return nil, err
	}

	var ro runnerOptions
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.log == nil {
		ro.log = slog.Default()
	}

	ledOpts := []ledger.Option{ledger.WithLogger(ro.log)}
	if ro.store != nil {
		store := ro.store
		ledOpts = append(ledOpts, ledger.WithObserver(func(snap ledger.Snapshot, _ ledger.TradeRecord) error {
			return store.Save(snap)
		}))
	}
	led := ledger.New(cfg.InitialCapital, cfg.CommissionRate, ledOpts...)

	return &Runner{
		cfg:        cfg,
		feed:       feed,
		strat:      strat,
		led:        led,
		sizer:      sizer,
		router:     router.New(led, sizer, cfg.Lots, ro.log),
		store:      ro.store,
		notif:      ro.notif,
		log:        ro.log,
		tracer:     ro.tracer,
		budgets:    make(map[string]*tCount),
		lastAction: make(map[string]strategies.Action),
		now:        time.Now,
	}, nil
}

// Ledger exposes the session's account state.
func (r *Runner) Ledger() *ledger.Ledger { return r.led }

// Run polls until ctx is canceled. Cancellation is honored between symbols
// and between cycles, never inside an order, so no trade is ever left half
// applied. A canceled context is a normal stop, not an error.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.restore(); err != nil {
		return err
	}

	r.log.Info("paper trading started",
		"symbols", len(r.cfg.Symbols),
		"period", string(r.cfg.Period),
		"interval", r.cfg.Interval.String())

	for {
		r.cycle(ctx)

		select {
		case <-ctx.Done():
			r.log.Info("paper trading stopped")
			return nil
		case <-time.After(r.cfg.Interval):
		}
	}
}

// restore loads the persisted account, if any.
func (r *Runner) restore() error {
	if r.store == nil {
		return nil
	}
	snap, found, err := r.store.Load()
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := r.led.Restore(snap); err != nil {
		return fmt.Errorf("paper: restore %s: %w", r.store.Path(), err)
	}
	r.log.Info("account restored",
		"path", r.store.Path(),
		"cash", r.led.Cash(),
		"positions", len(r.led.Positions()))
	return nil
}

// cycle scans every configured symbol once.
func (r *Runner) cycle(ctx context.Context) {
	ctx, span := r.span(ctx, "scan_cycle")
	defer span.End()

	for _, sym := range r.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}
		r.scan(ctx, sym)
		sleepCtx(ctx, r.cfg.RequestDelay)
	}
}

// scan polls one symbol and routes whatever the strategy decides. Feed and
// strategy failures skip the symbol; the loop never aborts.
func (r *Runner) scan(ctx context.Context, symbol string) {
	series, err := r.feed.Latest(ctx, symbol, r.cfg.Period, r.cfg.HistoryCount)
	if err != nil {
		r.log.Warn("fetch failed", "symbol", symbol, "err", err)
		return
	}
	if series.Empty() {
		return
	}

	bar := series.Last()
	price := bar.Close

	// The bar time, not the wall clock, keys the signal: polling the same
	// bar twice must not trigger twice.
	if r.stale(bar.Time) {
		r.log.Debug("bar is stale, market likely closed",
			"symbol", symbol,
			"bar_time", bar.Time.Format(router.SignalTimeLayout))
		return
	}

	r.led.UpdateMarkPrice(symbol, price)
	r.led.RecordEquity(bar.Time, r.led.TotalEquity())
	r.save()

	sig, err := r.strat.Analyze(symbol, series)
	if err != nil {
		r.log.Warn("strategy error", "symbol", symbol, "err", err)
		return
	}
	if sig.Action != strategies.ActionBuy && sig.Action != strategies.ActionSell {
		return
	}
	if sig.TradeTag == strategies.TagT && !r.allowT(symbol, bar.Time) {
		return
	}

	res := r.router.Execute(symbol, sig, price, bar.Time)
	if res.Status == router.StatusSkipped {
		// Replayed signal. After a restart the remembered action is
		// empty, so an action change here is worth a line.
		if sig.Action != r.lastAction[symbol] {
			r.log.Info("duplicate signal with changed action",
				"symbol", symbol,
				"action", string(sig.Action))
			r.lastAction[symbol] = sig.Action
		}
		return
	}
	if sig.TradeTag == strategies.TagT && res.Status == router.StatusSuccess {
		r.markT(symbol, bar.Time)
	}

	r.log.Info("signal routed",
		"symbol", symbol,
		"action", string(sig.Action),
		"status", string(res.Status),
		"quantity", res.Quantity,
		"price", price)
	r.notifySignal(ctx, symbol, sig, res, price, bar.Time)
	r.lastAction[symbol] = sig.Action
}

// stale reports whether the newest bar is older than twice its period plus
// slack, which usually means the market is closed.
func (r *Runner) stale(barTime time.Time) bool {
	return r.now().Sub(barTime) > r.cfg.Period.Duration()*2+staleSlack
}

func (r *Runner) save() {
	if r.store == nil {
		return
	}
	if err := r.store.Save(r.led.Snapshot()); err != nil {
		r.log.Warn("snapshot save failed", "err", err)
	}
}

func (r *Runner) notifySignal(ctx context.Context, symbol string, sig strategies.Signal, res router.Result, price float64, at time.Time) {
	if r.notif == nil {
		return
	}

	stats := r.led.TradeStats()
	winRate := "N/A"
	if stats.TotalTrades > 0 {
		winRate = fmt.Sprintf("%.1f%%", stats.WinRate*100)
	}
	tag := sig.TradeTag
	if tag == "" {
		tag = "N/A"
	}

	title := fmt.Sprintf("[signal] %s %s", symbol, sig.Action)
	body := fmt.Sprintf(
		"symbol: %s\ntime: %s\naction: %s\ntag: %s\nprice: %.2f\nreason: %s\nsuggested: %.0f%% of equity\nresult: %s (%s)\naccount: cash=%.2f equity=%.2f\nwin rate: %s (%d/%d)",
		symbol,
		at.Format(router.SignalTimeLayout),
		sig.Action,
		tag,
		price,
		sig.Reason,
		r.sizer.TargetRatio(sig)*100,
		res.Status,
		res.Msg,
		r.led.Cash(),
		r.led.TotalEquity(),
		winRate,
		stats.WinningTrades,
		stats.TotalTrades,
	)

	if err := r.notif.Notify(ctx, title, body); err != nil {
		r.log.Warn("notify failed", "symbol", symbol, "err", err)
	}
}

func (r *Runner) allowT(symbol string, at time.Time) bool {
	return r.budget(symbol, at).count < r.cfg.TMaxPerSymbolPerDay
}

func (r *Runner) markT(symbol string, at time.Time) {
	r.budget(symbol, at).count++
}

func (r *Runner) budget(symbol string, at time.Time) *tCount {
	date := at.Format(ledger.DateLayout)
	b := r.budgets[symbol]
	if b == nil || b.date != date {
		b = &tCount{date: date}
		r.budgets[symbol] = b
	}
	return b
}

// span starts a cycle span when tracing is wired, and is a no-op otherwise.
func (r *Runner) span(ctx context.Context, name string) (context.Context, trace.Span) {
	if r.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return r.tracer.Start(ctx, name)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
