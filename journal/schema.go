package journal

const Schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	dataset TEXT NOT NULL,
	params TEXT NOT NULL,
	start_time DATETIME,
	end_time DATETIME,
	usable_bars INTEGER NOT NULL,
	start_balance REAL NOT NULL,
	end_balance REAL NOT NULL,
	net_pl REAL NOT NULL,
	return_pct REAL NOT NULL,
	max_dd_pct REAL NOT NULL,
	win_rate REAL NOT NULL,
	profit_factor REAL NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	open_lots INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	kind TEXT NOT NULL,
	time DATETIME NOT NULL,
	shares INTEGER NOT NULL,
	lots INTEGER NOT NULL,
	avg_cost REAL NOT NULL,
	exit_price REAL NOT NULL,
	net_exit_price REAL NOT NULL,
	return_fraction REAL NOT NULL,
	proceeds REAL NOT NULL,
	pnl REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	time DATETIME NOT NULL,
	equity REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS scans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	scan_key TEXT NOT NULL,
	date TEXT NOT NULL,
	symbol TEXT NOT NULL,
	price TEXT NOT NULL,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(run_id, time);
CREATE INDEX IF NOT EXISTS idx_scans_key ON scans(scan_key);
`
