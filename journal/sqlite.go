package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mhlam/tradeflow/ledger"
)

// SQLite keeps the journal in a single database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database at path, creating it and the schema when they
// do not exist yet.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(run RunRecord) error {
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := j.db.Exec(`
		INSERT INTO runs
		(id, kind, strategy, symbols, start_time, end_time, created_at,
		 initial_capital, final_value, total_return, max_drawdown,
		 total_orders, closed_trades, win_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Strategy, strings.Join(run.Symbols, ","),
		run.Start, run.End, created,
		run.InitialCapital, run.FinalValue, run.TotalReturn, run.MaxDrawdown,
		run.TotalOrders, run.ClosedTrades, run.WinRate,
	)
	return err
}

func (j *SQLite) RecordTrade(runID string, t ledger.TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(run_id, signal_id, time, symbol, side, price, quantity, commission,
		 reason, trade_tag, position_before, position_after, profit_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, t.SignalID, t.Time, t.Symbol, string(t.Side), t.Price,
		t.Quantity, t.Commission, t.Reason, t.TradeTag,
		t.PositionBefore, t.PositionAfter, t.ProfitRatio,
	)
	return err
}

func (j *SQLite) RecordEquity(runID string, at time.Time, equity float64) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (run_id, time, equity) VALUES (?, ?, ?)`,
		runID, at, equity,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
