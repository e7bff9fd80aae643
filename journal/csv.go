package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mhlam/tradeflow/ledger"
)

// CSVJournal appends runs, trades and equity samples to three CSV files in
// one directory. Headers are written only when a file is empty, so
// successive runs accumulate in the same files.
type CSVJournal struct {
	runs   *csv.Writer
	trades *csv.Writer
	equity *csv.Writer
	files  []*os.File
}

var (
	runsHeader = []string{"id", "kind", "strategy", "symbols", "start", "end",
		"created_at", "initial_capital", "final_value", "total_return",
		"max_drawdown", "total_orders", "closed_trades", "win_rate"}
	tradesHeader = []string{"run_id", "signal_id", "time", "symbol", "side",
		"price", "quantity", "commission", "reason", "trade_tag",
		"position_before", "position_after", "profit_ratio"}
	equityHeader = []string{"run_id", "time", "equity"}
)

// NewCSV opens runs.csv, trades.csv and equity.csv under dir, creating the
// directory and the files as needed.
func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	j := &CSVJournal{}
	var err error
	if j.runs, err = j.open(filepath.Join(dir, "runs.csv"), runsHeader); err != nil {
		j.Close()
		return nil, err
	}
	if j.trades, err = j.open(filepath.Join(dir, "trades.csv"), tradesHeader); err != nil {
		j.Close()
		return nil, err
	}
	if j.equity, err = j.open(filepath.Join(dir, "equity.csv"), equityHeader); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) open(path string, header []string) (*csv.Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	j.files = append(j.files, f)

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}
	return w, nil
}

func (j *CSVJournal) RecordRun(run RunRecord) error {
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	err := j.runs.Write([]string{
		run.ID,
		run.Kind,
		run.Strategy,
		strings.Join(run.Symbols, ","),
		whenCSV(run.Start),
		whenCSV(run.End),
		created.UTC().Format(time.RFC3339),
		f(run.InitialCapital),
		f(run.FinalValue),
		f(run.TotalReturn),
		f(run.MaxDrawdown),
		strconv.Itoa(run.TotalOrders),
		strconv.Itoa(run.ClosedTrades),
		f(run.WinRate),
	})
	if err != nil {
		return err
	}
	j.runs.Flush()
	return j.runs.Error()
}

func (j *CSVJournal) RecordTrade(runID string, t ledger.TradeRecord) error {
	err := j.trades.Write([]string{
		runID,
		t.SignalID,
		t.Time.UTC().Format(time.RFC3339),
		t.Symbol,
		string(t.Side),
		f(t.Price),
		strconv.Itoa(t.Quantity),
		f(t.Commission),
		t.Reason,
		t.TradeTag,
		strconv.Itoa(t.PositionBefore),
		strconv.Itoa(t.PositionAfter),
		f(t.ProfitRatio),
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(runID string, at time.Time, equity float64) error {
	err := j.equity.Write([]string{
		runID,
		at.UTC().Format(time.RFC3339),
		f(equity),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	for _, w := range []*csv.Writer{j.runs, j.trades, j.equity} {
		if w == nil {
			continue
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	for _, file := range j.files {
		if err := file.Close(); err != nil {
			return err
		}
	}
	return nil
}

func whenCSV(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
