package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(dir)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	runs := readCSV(t, filepath.Join(dir, "runs.csv"))
	require.Len(t, runs, 1)
	assert.Equal(t, []string{"id", "kind", "strategy", "symbols", "start", "end",
		"created_at", "initial_capital", "final_value", "total_return",
		"max_drawdown", "total_orders", "closed_trades", "win_rate"}, runs[0])

	trades := readCSV(t, filepath.Join(dir, "trades.csv"))
	require.Len(t, trades, 1)
	assert.Equal(t, []string{"run_id", "signal_id", "time", "symbol", "side",
		"price", "quantity", "commission", "reason", "trade_tag",
		"position_before", "position_after", "profit_ratio"}, trades[0])

	equity := readCSV(t, filepath.Join(dir, "equity.csv"))
	require.Len(t, equity, 1)
	assert.Equal(t, []string{"run_id", "time", "equity"}, equity[0])
}

func TestCSVJournalRecordRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(dir)
	require.NoError(t, err)

	require.NoError(t, j.RecordRun(sampleRun("run-1")))
	require.NoError(t, j.Close())

	rows := readCSV(t, filepath.Join(dir, "runs.csv"))
	require.Len(t, rows, 2)

	want := []string{
		"run-1",
		"backtest",
		"MACD",
		"AAPL.US,MSFT.US",
		"2024-01-02T00:00:00Z",
		"2024-06-28T00:00:00Z",
		"2024-07-01T09:30:00Z",
		"100000.000000",
		"108500.000000",
		"8.500000",
		"-4.200000",
		"12",
		"5",
		"60.000000",
	}
	assert.Equal(t, want, rows[1])
}

func TestCSVJournalRecordTradeAndEquity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(dir)
	require.NoError(t, err)

	at := time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC)
	trade := sampleTrade("sig-1", at)
	trade.TradeTag = "T"
	require.NoError(t, j.RecordTrade("run-1", trade))
	require.NoError(t, j.RecordEquity("run-1", at, 100_500.25))
	require.NoError(t, j.Close())

	trades := readCSV(t, filepath.Join(dir, "trades.csv"))
	require.Len(t, trades, 2)
	assert.Equal(t, []string{
		"run-1",
		"sig-1",
		"2024-03-04T16:00:00Z",
		"AAPL.US",
		"BUY",
		"190.500000",
		"100",
		"5.720000",
		"golden cross",
		"T",
		"0",
		"100",
		"0.000000",
	}, trades[1])

	equity := readCSV(t, filepath.Join(dir, "equity.csv"))
	require.Len(t, equity, 2)
	assert.Equal(t, []string{"run-1", "2024-03-04T16:00:00Z", "100500.250000"}, equity[1])
}

func TestCSVJournalAppendsAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	j, err := NewCSV(dir)
	require.NoError(t, err)
	require.NoError(t, j.RecordRun(sampleRun("run-1")))
	require.NoError(t, j.Close())

	j, err = NewCSV(dir)
	require.NoError(t, err)
	require.NoError(t, j.RecordRun(sampleRun("run-2")))
	require.NoError(t, j.Close())

	rows := readCSV(t, filepath.Join(dir, "runs.csv"))
	require.Len(t, rows, 3) // single header plus two runs
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "run-1", rows[1][0])
	assert.Equal(t, "run-2", rows[2][0])
}

func TestCSVJournalCreatesDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "journal")
	j, err := NewCSV(dir)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	_, err = os.Stat(filepath.Join(dir, "runs.csv"))
	assert.NoError(t, err)
}

func TestCSVJournalZeroTimes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(dir)
	require.NoError(t, err)

	// A paper run has no fixed start or end; those columns stay empty.
	run := sampleRun("run-live")
	run.Kind = "paper"
	run.Start = time.Time{}
	run.End = time.Time{}
	require.NoError(t, j.RecordRun(run))
	require.NoError(t, j.Close())

	rows := readCSV(t, filepath.Join(dir, "runs.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[1][4])
	assert.Equal(t, "", rows[1][5])
	assert.Equal(t, "paper", rows[1][1])
}
