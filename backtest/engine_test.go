package backtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhlam/tradeflow/market"
	"github.com/mhlam/tradeflow/risk"
	"github.com/mhlam/tradeflow/strategies"
)

var day0 = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

// scriptStrategy turns a closure into a Strategy for engine tests.
type scriptStrategy struct {
	name    string
	analyze func(symbol string, series *market.Series) (strategies.Signal, error)
}

func (s *scriptStrategy) Name() string { return s.name }

func (s *scriptStrategy) Analyze(symbol string, series *market.Series) (strategies.Signal, error) {
	return s.analyze(symbol, series)
}

// dailySeries builds one bar per day from closes, starting at day0.
func dailySeries(symbol string, closes ...float64) *market.Series {
	candles := make([]market.Candle, len(closes))
	for i, c := range closes {
		candles[i] = market.Candle{
			Time:   day0.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return market.NewSeries(symbol, market.PeriodDay, candles)
}

func testConfig() Config {
	return Config{
		InitialCapital: 100_000,
		CommissionRate: 0,
		Sizing:         risk.DefaultSizing(),
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	strat := &scriptStrategy{name: "noop", analyze: func(string, *market.Series) (strategies.Signal, error) {
		return strategies.Hold(""), nil
	}}

	_, err := New(nil, testConfig())
	assert.Error(t, err, "nil strategy")

	cfg := testConfig()
	cfg.InitialCapital = 0
	_, err = New(strat, cfg)
	assert.Error(t, err, "zero capital")

	cfg = testConfig()
	cfg.CommissionRate = -0.1
	_, err = New(strat, cfg)
	assert.Error(t, err, "negative commission")

	cfg = testConfig()
	cfg.Sizing.MaxRatio = 0
	_, err = New(strat, cfg)
	assert.Error(t, err, "broken sizing config")
}

func TestRunBuyThenLiquidate(t *testing.T) {
	t.Parallel()

	// Buy 20% of equity on the first bar, liquidate on the last.
	strat := &scriptStrategy{name: "cycle", analyze: func(symbol string, s *market.Series) (strategies.Signal, error) {
		switch s.Len() {
		case 1:
			return strategies.Signal{Action: strategies.ActionBuy, TargetRatio: strategies.Ratio(0.2), Reason: "enter"}, nil
		case 3:
			return strategies.Signal{Action: strategies.ActionSell, Reason: "exit"}, nil
		}
		return strategies.Hold(""), nil
	}}

	e, err := New(strat, testConfig())
	require.NoError(t, err)

	data := map[string]*market.Series{"AAPL.US": dailySeries("AAPL.US", 100, 105, 110)}
	require.NoError(t, e.Run(data))

	led := e.Ledger()
	assert.Equal(t, 102_000.0, led.Cash())
	assert.Zero(t, led.Position("AAPL.US"))

	trades := led.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, 200, trades[0].Quantity)
	assert.InDelta(t, 0.10, trades[1].ProfitRatio, 1e-9)

	curve := e.EquityCurve()
	require.Len(t, curve, 3)
	assert.Equal(t, []float64{100_000, 101_000, 102_000}, []float64{curve[0].Equity, curve[1].Equity, curve[2].Equity})
	assert.True(t, curve[0].Time.Equal(day0))
}

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()

	build := func() (*Engine, map[string]*market.Series) {
		strat := &scriptStrategy{name: "flip", analyze: func(symbol string, s *market.Series) (strategies.Signal, error) {
			if s.Len()%2 == 1 {
				return strategies.Signal{Action: strategies.ActionBuy, TargetRatio: strategies.Ratio(0.3)}, nil
			}
			return strategies.Signal{Action: strategies.ActionSell}, nil
		}}
		e, err := New(strat, testConfig())
		require.NoError(t, err)
		data := map[string]*market.Series{
			"AAPL.US": dailySeries("AAPL.US", 100, 101, 99, 103, 102),
			"MSFT.US": dailySeries("MSFT.US", 300, 305, 295, 310, 308),
		}
		return e, data
	}

	e1, d1 := build()
	require.NoError(t, e1.Run(d1))
	e2, d2 := build()
	require.NoError(t, e2.Run(d2))

	assert.Equal(t, e1.Ledger().Trades(), e2.Ledger().Trades())
	assert.Equal(t, e1.EquityCurve(), e2.EquityCurve())
}

func TestRunWarmupWindow(t *testing.T) {
	t.Parallel()

	var seenLens []int
	strat := &scriptStrategy{name: "probe", analyze: func(symbol string, s *market.Series) (strategies.Signal, error) {
		seenLens = append(seenLens, s.Len())
		return strategies.Hold(""), nil
	}}

	cfg := testConfig()
	cfg.Start = day0.AddDate(0, 0, 3)
	e, err := New(strat, cfg)
	require.NoError(t, err)

	data := map[string]*market.Series{"AAPL.US": dailySeries("AAPL.US", 100, 101, 102, 103, 104)}
	require.NoError(t, e.Run(data))

	// Bars before Start never reach the strategy, but they are part of the
	// history window once trading begins.
	assert.Equal(t, []int{4, 5}, seenLens)
	assert.Len(t, e.EquityCurve(), 2)
}

func TestRunCapsIntradayRebalances(t *testing.T) {
	t.Parallel()

	// Every bar asks for 100 more shares, tagged "T". Only two fills per
	// symbol per calendar day may land.
	strat := &scriptStrategy{name: "greedy-t", analyze: func(symbol string, s *market.Series) (strategies.Signal, error) {
		return strategies.Signal{
			Action:       strategies.ActionBuy,
			TradeTag:     strategies.TagT,
			TargetShares: strategies.Shares(s.Len() * 100),
		}, nil
	}}

	e, err := New(strat, testConfig())
	require.NoError(t, err)

	bars := make([]market.Candle, 6)
	for i := range bars {
		// Four bars on day one, two on day two.
		ts := day0.Add(time.Duration(i) * 15 * time.Minute)
		if i >= 4 {
			ts = day0.AddDate(0, 0, 1).Add(time.Duration(i-4) * 15 * time.Minute)
		}
		bars[i] = market.Candle{Time: ts, Open: 10, High: 10, Low: 10, Close: 10, Volume: 1}
	}
	data := map[string]*market.Series{"AAPL.US": market.NewSeries("AAPL.US", market.Period15m, bars)}
	require.NoError(t, e.Run(data))

	trades := e.Ledger().Trades()
	require.Len(t, trades, 4)
	for i, tr := range trades {
		day := 0
		if i >= 2 {
			day = 1
		}
		assert.Equal(t, day0.AddDate(0, 0, day).Format("2006-01-02"), tr.Time.UTC().Format("2006-01-02"))
	}
}

func TestRunStrategyErrorBecomesHold(t *testing.T) {
	t.Parallel()

	strat := &scriptStrategy{name: "flaky", analyze: func(symbol string, s *market.Series) (strategies.Signal, error) {
		if s.Len() == 2 {
			return strategies.Signal{}, fmt.Errorf("indicator blew up")
		}
		return strategies.Signal{Action: strategies.ActionBuy, TargetRatio: strategies.Ratio(0.1)}, nil
	}}

	e, err := New(strat, testConfig())
	require.NoError(t, err)

	data := map[string]*market.Series{"AAPL.US": dailySeries("AAPL.US", 100, 100, 100)}
	require.NoError(t, e.Run(data), "a strategy error must not abort the run")

	// Bars 1 and 3 trade; bar 2 degraded to HOLD.
	assert.Len(t, e.Ledger().Trades(), 1, "replayed buy at the same target is churn-suppressed")
	assert.Len(t, e.EquityCurve(), 3)
}

func TestRunDropsUnusableSeries(t *testing.T) {
	t.Parallel()

	strat := &scriptStrategy{name: "noop", analyze: func(string, *market.Series) (strategies.Signal, error) {
		return strategies.Hold(""), nil
	}}
	e, err := New(strat, testConfig())
	require.NoError(t, err)

	data := map[string]*market.Series{
		"GOOD.US": dailySeries("GOOD.US", 100, 101),
		"BAD.US":  {Symbol: "BAD.US", Period: market.PeriodDay},
	}
	require.NoError(t, e.Run(data))
	assert.Len(t, e.EquityCurve(), 2)

	e2, err := New(strat, testConfig())
	require.NoError(t, err)
	err = e2.Run(map[string]*market.Series{"BAD.US": {Symbol: "BAD.US"}})
	assert.Error(t, err, "a run with no usable series is refused")
}

func TestMergeTimestamps(t *testing.T) {
	t.Parallel()

	a := dailySeries("A", 1, 2, 3)
	b := &market.Series{Symbol: "B", Period: market.PeriodDay, Candles: []market.Candle{
		{Time: day0.AddDate(0, 0, 1), Close: 5},
		{Time: day0.AddDate(0, 0, 4), Close: 6},
	}}

	merged := mergeTimestamps(map[string]*market.Series{"A": a, "B": b})
	require.Len(t, merged, 4)
	for i := 1; i < len(merged); i++ {
		assert.True(t, merged[i-1].Before(merged[i]), "timeline must be strictly increasing")
	}
}
