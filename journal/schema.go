package journal

// Schema creates the journal tables. Every statement is idempotent so
// reopening an existing database is safe.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	strategy        TEXT NOT NULL,
	symbols         TEXT NOT NULL,
	start_time      DATETIME NOT NULL,
	end_time        DATETIME NOT NULL,
	created_at      DATETIME NOT NULL,
	initial_capital REAL NOT NULL,
	final_value     REAL NOT NULL,
	total_return    REAL NOT NULL,
	max_drawdown    REAL NOT NULL,
	total_orders    INTEGER NOT NULL,
	closed_trades   INTEGER NOT NULL,
	win_rate        REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id          TEXT NOT NULL,
	signal_id       TEXT NOT NULL,
	time            DATETIME NOT NULL,
	symbol          TEXT NOT NULL,
	side            TEXT NOT NULL,
	price           REAL NOT NULL,
	quantity        INTEGER NOT NULL,
	commission      REAL NOT NULL,
	reason          TEXT NOT NULL,
	trade_tag       TEXT NOT NULL,
	position_before INTEGER NOT NULL,
	position_after  INTEGER NOT NULL,
	profit_ratio    REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time   DATETIME NOT NULL,
	equity REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run_time ON trades(run_id, time);
CREATE INDEX IF NOT EXISTS idx_equity_run_time ON equity(run_id, time);
`
