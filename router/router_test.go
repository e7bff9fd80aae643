package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhlam/tradeflow/ledger"
	"github.com/mhlam/tradeflow/market"
	"github.com/mhlam/tradeflow/risk"
	"github.com/mhlam/tradeflow/strategies"
)

func newTestRouter(t *testing.T, capital, commission float64, lots market.LotSizes) (*Router, *ledger.Ledger) {
	t.Helper()
	led := ledger.New(capital, commission)
	sizer, err := risk.NewSizer(risk.DefaultSizing())
	require.NoError(t, err)
	return New(led, sizer, lots, nil), led
}

func barTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", value)
	require.NoError(t, err)
	return ts
}

func TestSignalID(t *testing.T) {
	t.Parallel()

	at := barTime(t, "2024-01-02 09:30:00")
	assert.Equal(t, "AAPL_2024-01-02 09:30:00_BUY", SignalID("AAPL", at, strategies.ActionBuy))
	assert.Equal(t, "AAPL_2024-01-02 09:30:00_SELL", SignalID("AAPL", at, strategies.ActionSell))
}

func TestExecuteHoldIsSkipped(t *testing.T) {
	t.Parallel()
	r, led := newTestRouter(t, 100_000, 0, nil)

	res := r.Execute("AAPL", strategies.Hold("nothing to do"), 100, barTime(t, "2024-01-02 09:30:00"))
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Zero(t, res.Quantity)
	assert.Empty(t, res.Msg)
	assert.Equal(t, 100_000.0, led.Cash())
}

func TestExecuteBuyFills(t *testing.T) {
	t.Parallel()
	r, led := newTestRouter(t, 100_000, 0, nil)

	sig := strategies.Signal{
		Action:      strategies.ActionBuy,
		Reason:      "breakout",
		TargetRatio: strategies.Ratio(0.2),
	}
	res := r.Execute("AAPL", sig, 100, barTime(t, "2024-01-02 09:30:00"))

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 200, res.Quantity)
	assert.Equal(t, "filled 200 shares", res.Msg)
	assert.Equal(t, "AAPL", res.Symbol)
	assert.Equal(t, 100.0, res.Price)
	assert.Equal(t, 200, led.Position("AAPL"))
	assert.Equal(t, 80_000.0, led.Cash())
}

func TestExecuteDuplicateSignalSkipped(t *testing.T) {
	t.Parallel()
	r, led := newTestRouter(t, 100_000, 0, nil)

	at := barTime(t, "2024-01-02 09:30:00")
	sig := strategies.Signal{Action: strategies.ActionBuy, TargetRatio: strategies.Ratio(0.5)}

	led.UpdateMarkPrice("AAPL", 100)
	first := r.Execute("AAPL", sig, 100, at)
	require.Equal(t, StatusSuccess, first.Status)
	require.Equal(t, 500, led.Position("AAPL"))

	// A higher mark raises total equity, so the replay sizes a real top-up
	// order; only the signal ID stops it.
	led.UpdateMarkPrice("AAPL", 120)
	cash, pos := led.Cash(), led.Position("AAPL")
	second := r.Execute("AAPL", sig, 100, at)

	assert.Equal(t, StatusSkipped, second.Status)
	assert.Equal(t, "signal already processed", second.Msg)
	assert.Zero(t, second.Quantity)
	assert.Equal(t, cash, led.Cash(), "replay must not move cash")
	assert.Equal(t, pos, led.Position("AAPL"), "replay must not move position")

	// Same bar, opposite action: a different signal, not a replay.
	sell := r.Execute("AAPL", strategies.Signal{Action: strategies.ActionSell}, 120, at)
	assert.Equal(t, StatusSuccess, sell.Status)
}

func TestExecuteReplayAtTargetSkipsOnQuantity(t *testing.T) {
	t.Parallel()
	r, led := newTestRouter(t, 100_000, 0, nil)

	at := barTime(t, "2024-01-02 09:30:00")
	sig := strategies.Signal{Action: strategies.ActionBuy, TargetRatio: strategies.Ratio(0.2)}

	led.UpdateMarkPrice("AAPL", 100)
	require.Equal(t, StatusSuccess, r.Execute("AAPL", sig, 100, at).Status)

	// With the position already at target the sizer zeroes the replay
	// before the ledger ever sees the duplicate ID.
	res := r.Execute("AAPL", sig, 100, at)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, "no actionable quantity", res.Msg)
}

func TestExecuteInsufficientFundsFails(t *testing.T) {
	t.Parallel()

	// The sizer's cash clamp ignores commission, so an all-in order at
	// exactly available cash is rejected by the ledger.
	r, led := newTestRouter(t, 10_000, 0.001, nil)

	sig := strategies.Signal{Action: strategies.ActionBuy, TargetRatio: strategies.Ratio(1.0)}
	res := r.Execute("AAPL", sig, 100, barTime(t, "2024-01-02 09:30:00"))

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "insufficient funds", res.Msg)
	assert.Zero(t, res.Quantity)
	assert.Equal(t, 10_000.0, led.Cash())
	assert.Zero(t, led.Position("AAPL"))
}

func TestExecuteSellLiquidates(t *testing.T) {
	t.Parallel()
	r, led := newTestRouter(t, 100_000, 0, nil)

	buy := strategies.Signal{Action: strategies.ActionBuy, TargetRatio: strategies.Ratio(0.2)}
	require.Equal(t, StatusSuccess, r.Execute("AAPL", buy, 100, barTime(t, "2024-01-02 09:30:00")).Status)

	led.UpdateMarkPrice("AAPL", 110)
	sell := strategies.Signal{Action: strategies.ActionSell, Reason: "take profit"}
	res := r.Execute("AAPL", sell, 110, barTime(t, "2024-01-03 09:30:00"))

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 200, res.Quantity)
	assert.Zero(t, led.Position("AAPL"))
}

func TestExecuteTinyTargetSkipped(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t, 100_000, 0, nil)

	sig := strategies.Signal{Action: strategies.ActionBuy, TargetRatio: strategies.Ratio(0.00001)}
	res := r.Execute("AAPL", sig, 100, barTime(t, "2024-01-02 09:30:00"))

	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, "no actionable quantity", res.Msg)
}

func TestExecuteRespectsLotTable(t *testing.T) {
	t.Parallel()
	lots := market.LotSizes{"600519": 100}
	r, led := newTestRouter(t, 100_000, 0, lots)

	sig := strategies.Signal{Action: strategies.ActionBuy, TargetRatio: strategies.Ratio(0.2)}
	res := r.Execute("600519", sig, 99, barTime(t, "2024-01-02 09:30:00"))

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 200, res.Quantity)
	assert.Zero(t, res.Quantity%100)
	assert.Equal(t, 200, led.Position("600519"))

	// Unknown symbols fall back to single-share lots.
	led.UpdateMarkPrice("600519", 99)
	res = r.Execute("AAPL", sig, 99, barTime(t, "2024-01-02 09:30:00"))
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 202, res.Quantity)
}
