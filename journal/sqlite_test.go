package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhlam/tradeflow/ledger"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func sampleRun(id string) RunRecord {
	return RunRecord{
		ID:             id,
		Kind:           "backtest",
		Strategy:       "MACD",
		Symbols:        []string{"AAPL.US", "MSFT.US"},
		Start:          time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
		CreatedAt:      time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC),
		InitialCapital: 100_000,
		FinalValue:     108_500,
		TotalReturn:    8.5,
		MaxDrawdown:    -4.2,
		TotalOrders:    12,
		ClosedTrades:   5,
		WinRate:        60,
	}
}

func sampleTrade(signalID string, at time.Time) ledger.TradeRecord {
	return ledger.TradeRecord{
		Time:           at,
		Symbol:         "AAPL.US",
		Side:           ledger.SideBuy,
		Price:          190.5,
		Quantity:       100,
		Commission:     5.72,
		Reason:         "golden cross",
		PositionBefore: 0,
		PositionAfter:  100,
		SignalID:       signalID,
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('runs','trades','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["runs"])
	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteRunRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	run := sampleRun("run-1")
	require.NoError(t, j.RecordRun(run))

	got, err := j.GetRun("run-1")
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Kind, got.Kind)
	assert.Equal(t, run.Strategy, got.Strategy)
	assert.Equal(t, run.Symbols, got.Symbols)
	assert.True(t, got.Start.Equal(run.Start))
	assert.True(t, got.End.Equal(run.End))
	assert.True(t, got.CreatedAt.Equal(run.CreatedAt))
	assert.InDelta(t, run.InitialCapital, got.InitialCapital, 1e-6)
	assert.InDelta(t, run.FinalValue, got.FinalValue, 1e-6)
	assert.InDelta(t, run.TotalReturn, got.TotalReturn, 1e-9)
	assert.InDelta(t, run.MaxDrawdown, got.MaxDrawdown, 1e-9)
	assert.Equal(t, run.TotalOrders, got.TotalOrders)
	assert.Equal(t, run.ClosedTrades, got.ClosedTrades)
	assert.InDelta(t, run.WinRate, got.WinRate, 1e-9)
}

func TestSQLiteGetRunMissing(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	_, err := j.GetRun("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteListRuns(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	base := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := sampleRun(id)
		run.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, j.RecordRun(run))
	}

	all, err := j.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "run-c", all[0].ID)
	assert.Equal(t, "run-b", all[1].ID)
	assert.Equal(t, "run-a", all[2].ID)

	top, err := j.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "run-c", top[0].ID)
	assert.Equal(t, "run-b", top[1].ID)
}

func TestSQLiteTradesByRun(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	t1 := time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC)
	t2 := t1.AddDate(0, 0, 1)

	// Insert out of order; listing must come back time-sorted.
	later := sampleTrade("sig-2", t2)
	later.Side = ledger.SideSell
	later.Quantity = 100
	later.PositionBefore = 100
	later.PositionAfter = 0
	later.ProfitRatio = 0.05
	later.TradeTag = "T"
	require.NoError(t, j.RecordTrade("run-1", later))
	require.NoError(t, j.RecordTrade("run-1", sampleTrade("sig-1", t1)))
	require.NoError(t, j.RecordTrade("run-2", sampleTrade("sig-other", t1)))

	got, err := j.ListTradesByRun("run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "sig-1", got[0].SignalID)
	assert.Equal(t, ledger.SideBuy, got[0].Side)
	assert.True(t, got[0].Time.Equal(t1))
	assert.Equal(t, 100, got[0].Quantity)
	assert.InDelta(t, 190.5, got[0].Price, 1e-9)
	assert.Equal(t, "golden cross", got[0].Reason)

	assert.Equal(t, "sig-2", got[1].SignalID)
	assert.Equal(t, ledger.SideSell, got[1].Side)
	assert.Equal(t, "T", got[1].TradeTag)
	assert.Equal(t, 0, got[1].PositionAfter)
	assert.InDelta(t, 0.05, got[1].ProfitRatio, 1e-9)

	none, err := j.ListTradesByRun("run-9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteEquityByRun(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	base := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	for i, eq := range []float64{100_000, 101_200, 100_800} {
		at := base.AddDate(0, 0, i)
		require.NoError(t, j.RecordEquity("run-1", at, eq))
	}
	require.NoError(t, j.RecordEquity("run-2", base, 50_000))

	got, err := j.ListEquityByRun("run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, got[0].Time.Equal(base))
	assert.InDelta(t, 100_000, got[0].Equity, 1e-6)
	assert.True(t, got[2].Time.Equal(base.AddDate(0, 0, 2)))
	assert.InDelta(t, 100_800, got[2].Equity, 1e-6)
}

func TestSQLiteReopen(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.RecordRun(sampleRun("run-1")))
	require.NoError(t, j.Close())

	again, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = again.Close() })

	got, err := again.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "MACD", got.Strategy)
}
