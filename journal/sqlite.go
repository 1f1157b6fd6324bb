package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/rsitrader/backtest"
	"github.com/rustyeddy/rsitrader/scan"
	"github.com/sirupsen/logrus"
)

type SQLite struct {
	db *sql.DB
}

var (
	_ Journal    = (*SQLite)(nil)
	_ scan.Store = (*SQLite)(nil)
)

// NewSQLite opens (or creates) the database at path and applies Schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serialises anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

const insertTrade = `
	INSERT INTO trades
	(run_id, seq, kind, time, shares, lots, avg_cost, exit_price, net_exit_price, return_fraction, proceeds, pnl)
	VALUES (?, %s, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertEquity = `
	INSERT INTO equity (run_id, seq, time, equity)
	VALUES (?, %s, ?, ?)`

const nextTradeSeq = `(SELECT COALESCE(MAX(seq), -1) + 1 FROM trades WHERE run_id = ?)`
const nextEquitySeq = `(SELECT COALESCE(MAX(seq), -1) + 1 FROM equity WHERE run_id = ?)`

// RecordTrade appends one trade to runID.
func (j *SQLite) RecordTrade(runID string, t backtest.TradeRecord) error {
	_, err := j.db.Exec(fmt.Sprintf(insertTrade, nextTradeSeq),
		runID, runID, string(t.Kind), t.Time, t.Shares, t.Lots, t.AvgCost,
		t.ExitPrice, t.NetExitPrice, t.ReturnFraction, t.Proceeds, t.PnL,
	)
	return err
}

// RecordEquity appends one equity point to runID.
func (j *SQLite) RecordEquity(runID string, e backtest.EquityPoint) error {
	_, err := j.db.Exec(fmt.Sprintf(insertEquity, nextEquitySeq),
		runID, runID, e.Time, e.Equity,
	)
	return err
}

// RecordBacktest stores the run summary with its trades and equity curve in
// one transaction.
func (j *SQLite) RecordBacktest(ctx context.Context, run BacktestRun, res backtest.Result) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return err
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs
		(run_id, created, symbol, dataset, params, start_time, end_time, usable_bars,
		 start_balance, end_balance, net_pl, return_pct, max_dd_pct, win_rate, profit_factor,
		 trades, wins, losses, open_lots)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Created, run.Symbol, run.Dataset, string(params), run.Start, run.End, run.UsableBars,
		run.StartBalance, run.EndBalance, run.NetPL, run.ReturnPct, run.MaxDDPct, run.WinRate, run.ProfitFactor,
		run.Trades, run.Wins, run.Losses, run.OpenLots,
	)
	if err != nil {
		return fmt.Errorf("journal: insert run %s: %w", run.RunID, err)
	}

	for i, t := range res.Trades {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(insertTrade, "?"),
			run.RunID, i, string(t.Kind), t.Time, t.Shares, t.Lots, t.AvgCost,
			t.ExitPrice, t.NetExitPrice, t.ReturnFraction, t.Proceeds, t.PnL,
		); err != nil {
			return fmt.Errorf("journal: insert trade %d: %w", i, err)
		}
	}
	for i, e := range res.EquityCurve {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(insertEquity, "?"),
			run.RunID, i, e.Time, e.Equity,
		); err != nil {
			return fmt.Errorf("journal: insert equity %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"run_id": run.RunID,
		"trades": len(res.Trades),
		"equity": len(res.EquityCurve),
	}).Debug("journal: recorded backtest")
	return nil
}

// GetBacktestRun loads one run summary.
func (j *SQLite) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	var (
		run    BacktestRun
		params string
	)
	err := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, symbol, dataset, params, start_time, end_time, usable_bars,
		       start_balance, end_balance, net_pl, return_pct, max_dd_pct, win_rate, profit_factor,
		       trades, wins, losses, open_lots
		FROM backtest_runs
		WHERE run_id = ?`, runID).Scan(
		&run.RunID, &run.Created, &run.Symbol, &run.Dataset, &params, &run.Start, &run.End, &run.UsableBars,
		&run.StartBalance, &run.EndBalance, &run.NetPL, &run.ReturnPct, &run.MaxDDPct, &run.WinRate, &run.ProfitFactor,
		&run.Trades, &run.Wins, &run.Losses, &run.OpenLots,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return BacktestRun{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	if err != nil {
		return BacktestRun{}, err
	}
	if err := json.Unmarshal([]byte(params), &run.Params); err != nil {
		return BacktestRun{}, fmt.Errorf("run %q: decode params: %w", runID, err)
	}
	return run, nil
}

// ExportBacktestOrg loads a run with its trades and renders the Org block.
func (j *SQLite) ExportBacktestOrg(ctx context.Context, runID string) (string, error) {
	run, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return "", err
	}
	return RenderBacktestOrg(run, trades)
}

// Write appends records under key.
func (j *SQLite) Write(ctx context.Context, key string, records []scan.Record) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scans (scan_key, date, symbol, price, value)
			VALUES (?, ?, ?, ?, ?)`,
			key, r.Date, r.Symbol, r.Price, r.Value,
		); err != nil {
			return fmt.Errorf("journal: insert scan %s/%s: %w", key, r.Symbol, err)
		}
	}
	return tx.Commit()
}

// Read returns every record stored under key in insertion order.
func (j *SQLite) Read(ctx context.Context, key string) ([]scan.Record, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT date, symbol, price, value
		FROM scans
		WHERE scan_key = ?
		ORDER BY id ASC`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []scan.Record
	for rows.Next() {
		var r scan.Record
		if err := rows.Scan(&r.Date, &r.Symbol, &r.Price, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("scan %q: %w", key, ErrNotFound)
	}
	return out, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
