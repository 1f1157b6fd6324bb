package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rustyeddy/rsitrader/backtest"
)

const tradeColumns = `kind, time, shares, lots, avg_cost, exit_price, net_exit_price, return_fraction, proceeds, pnl`

func scanTrade(rows *sql.Rows) (backtest.TradeRecord, error) {
	var (
		t    backtest.TradeRecord
		kind string
	)
	err := rows.Scan(
		&kind,
		&t.Time,
		&t.Shares,
		&t.Lots,
		&t.AvgCost,
		&t.ExitPrice,
		&t.NetExitPrice,
		&t.ReturnFraction,
		&t.Proceeds,
		&t.PnL,
	)
	t.Kind = backtest.ExitKind(kind)
	return t, err
}

func collectTrades(rows *sql.Rows) ([]backtest.TradeRecord, error) {
	defer rows.Close()

	out := []backtest.TradeRecord{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTradesByRunID returns the trades of a run in the order they happened.
func (j *SQLite) ListTradesByRunID(ctx context.Context, runID string) ([]backtest.TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

// ListTradesBetween returns the trades of a run whose time is within [start, end).
func (j *SQLite) ListTradesBetween(ctx context.Context, runID string, start, end time.Time) ([]backtest.TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE run_id = ? AND time >= ? AND time < ?
		ORDER BY seq ASC`, runID, start, end)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

// ListEquityByRunID returns the equity curve of a run.
func (j *SQLite) ListEquityByRunID(ctx context.Context, runID string) ([]backtest.EquityPoint, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, equity
		FROM equity
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []backtest.EquityPoint{}
	for rows.Next() {
		var e backtest.EquityPoint
		if err := rows.Scan(&e.Time, &e.Equity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RunSummary is one line of ListRuns.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Created   time.Time `json:"created"`
	Symbol    string    `json:"symbol"`
	ReturnPct float64   `json:"return_pct"`
	Trades    int       `json:"trades"`
}

// ListRuns returns the newest runs first. An empty symbol matches all;
// limit <= 0 means no limit.
func (j *SQLite) ListRuns(ctx context.Context, symbol string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, created, symbol, return_pct, trades
		FROM backtest_runs
		WHERE ? = '' OR symbol = ?
		ORDER BY run_id DESC
		LIMIT ?`, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.Created, &s.Symbol, &s.ReturnPct, &s.Trades); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
