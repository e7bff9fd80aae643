package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mhlam/tradeflow/ledger"
)

const runColumns = `id, kind, strategy, symbols, start_time, end_time, created_at,
	initial_capital, final_value, total_return, max_drawdown,
	total_orders, closed_trades, win_rate`

// GetRun returns a single run summary by ID.
func (j *SQLite) GetRun(id string) (RunRecord, error) {
	row := j.db.QueryRow(`
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("journal: run %q not found", id)
	}
	return run, err
}

// ListRuns returns run summaries, most recent first. A limit of zero or less
// returns everything.
func (j *SQLite) ListRuns(limit int) ([]RunRecord, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// ListTradesByRun returns the fills of one run in execution order.
func (j *SQLite) ListTradesByRun(runID string) ([]ledger.TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT signal_id, time, symbol, side, price, quantity, commission,
		       reason, trade_tag, position_before, position_after, profit_ratio
		FROM trades
		WHERE run_id = ?
		ORDER BY time ASC, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.TradeRecord
	for rows.Next() {
		var t ledger.TradeRecord
		var side string
		if err := rows.Scan(
			&t.SignalID,
			&t.Time,
			&t.Symbol,
			&side,
			&t.Price,
			&t.Quantity,
			&t.Commission,
			&t.Reason,
			&t.TradeTag,
			&t.PositionBefore,
			&t.PositionAfter,
			&t.ProfitRatio,
		); err != nil {
			return nil, err
		}
		t.Side = ledger.Side(side)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListEquityByRun returns the equity curve of one run in time order.
func (j *SQLite) ListEquityByRun(runID string) ([]EquityRow, error) {
	rows, err := j.db.Query(`
		SELECT time, equity
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityRow
	for rows.Next() {
		var row EquityRow
		if err := rows.Scan(&row.Time, &row.Equity); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var run RunRecord
	var symbols string
	err := row.Scan(
		&run.ID,
		&run.Kind,
		&run.Strategy,
		&symbols,
		&run.Start,
		&run.End,
		&run.CreatedAt,
		&run.InitialCapital,
		&run.FinalValue,
		&run.TotalReturn,
		&run.MaxDrawdown,
		&run.TotalOrders,
		&run.ClosedTrades,
		&run.WinRate,
	)
	if err != nil {
		return RunRecord{}, err
	}
	if symbols != "" {
		run.Symbols = strings.Split(symbols, ",")
	}
	return run, nil
}
