package journal

import (
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/rsitrader/backtest"
	"github.com/rustyeddy/rsitrader/scan"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	return j, path
}

func sampleResult() backtest.Result {
	p := backtest.DefaultParams()
	res := backtest.Result{
		Params:     p,
		UsableBars: 3,
		EquityCurve: []backtest.EquityPoint{
			{Time: day0, Equity: 1_000_000},
			{Time: day0.AddDate(0, 0, 1), Equity: 1_005_000},
			{Time: day0.AddDate(0, 0, 2), Equity: 1_010_000},
		},
		Trades: []backtest.TradeRecord{
			{Kind: backtest.PartialExit, Time: day0.AddDate(0, 0, 1), Shares: 500, Lots: 1, AvgCost: 100.1425, ExitPrice: 110, NetExitPrice: 109.51325, ReturnFraction: 0.0935, Proceeds: 54756.625, PnL: 4685.375},
			{Kind: backtest.FullExit, Time: day0.AddDate(0, 0, 2), Shares: 500, Lots: 1, AvgCost: 100.1425, ExitPrice: 120, NetExitPrice: 119.469, ReturnFraction: 0.193, Proceeds: 59734.5, PnL: 9663.25},
		},
	}
	res.Stats = backtest.Summarize(res.EquityCurve, res.Trades, p.InitialCapital)
	return res
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	for _, name := range []string{"backtest_runs", "trades", "equity", "scans"} {
		assert.True(t, found[name], name)
	}
}

func TestRecordBacktestRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	res := sampleResult()
	run := NewBacktestRun("01HZRUN0000000000000000001", "2330.TW", "fixtures/2330.csv", res)
	require.NoError(t, j.RecordBacktest(ctx, run, res))

	got, err := j.GetBacktestRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "2330.TW", got.Symbol)
	assert.Equal(t, res.Params, got.Params)
	assert.Equal(t, 2, got.Trades)
	assert.Equal(t, 2, got.Wins)
	assert.InDelta(t, 1.0, got.ReturnPct, 1e-9)
	assert.InDelta(t, 1_010_000, got.EndBalance, 1e-6)
	assert.True(t, got.Start.Equal(day0))
	assert.True(t, got.End.Equal(day0.AddDate(0, 0, 2)))

	trades, err := j.ListTradesByRunID(ctx, run.RunID)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, backtest.PartialExit, trades[0].Kind)
	assert.Equal(t, backtest.FullExit, trades[1].Kind)
	assert.Equal(t, int64(500), trades[1].Shares)
	assert.InDelta(t, 9663.25, trades[1].PnL, 1e-9)
	assert.True(t, trades[1].Time.Equal(day0.AddDate(0, 0, 2)))

	eq, err := j.ListEquityByRunID(ctx, run.RunID)
	require.NoError(t, err)
	require.Len(t, eq, 3)
	assert.InDelta(t, 1_005_000, eq[1].Equity, 1e-6)

	between, err := j.ListTradesBetween(ctx, run.RunID, day0, day0.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, between, 1)
	assert.Equal(t, backtest.PartialExit, between[0].Kind)

	runs, err := j.ListRuns(ctx, "2330.TW", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunID, runs[0].RunID)

	runs, err = j.ListRuns(ctx, "2317.TW", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRecordBacktestDuplicate(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	res := sampleResult()
	run := NewBacktestRun("dup", "2330.TW", "", res)
	require.NoError(t, j.RecordBacktest(ctx, run, res))
	assert.Error(t, j.RecordBacktest(ctx, run, res))

	// the failed transaction left nothing behind
	trades, err := j.ListTradesByRunID(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}

func TestGetBacktestRunNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetBacktestRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = j.ExportBacktestOrg(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStreamingRecord(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	res := sampleResult()
	require.NoError(t, Record(j, "stream", res))

	trades, err := j.ListTradesByRunID(context.Background(), "stream")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, backtest.PartialExit, trades[0].Kind)

	eq, err := j.ListEquityByRunID(context.Background(), "stream")
	require.NoError(t, err)
	assert.Len(t, eq, 3)
}

func TestScanStore(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	var store scan.Store = j

	_, err := store.Read(ctx, "daily")
	assert.ErrorIs(t, err, ErrNotFound)

	first := []scan.Record{
		{Date: "2024-05-02", Symbol: "2330.TW", Price: decimal.RequireFromString("645.12"), Value: decimal.RequireFromString("193.54")},
	}
	second := []scan.Record{
		{Date: "2024-05-03", Symbol: "2317.TW", Price: decimal.RequireFromString("104.50"), Value: decimal.RequireFromString("52.25")},
	}
	require.NoError(t, store.Write(ctx, "daily", first))
	require.NoError(t, store.Write(ctx, "daily", second))
	require.NoError(t, store.Write(ctx, "other", second))

	got, err := store.Read(ctx, "daily")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2330.TW", got[0].Symbol)
	assert.True(t, got[0].Value.Equal(first[0].Value))
	assert.True(t, got[1].Price.Equal(decimal.RequireFromString("104.5")))
}

func TestRenderBacktestOrg(t *testing.T) {
	t.Parallel()

	res := sampleResult()
	run := NewBacktestRun("RUN1", "2330.TW", "yahoo", res)
	run.Notes = []string{"partial exits dominate"}

	out, err := RenderBacktestOrg(run, res.Trades)
	require.NoError(t, err)

	assert.Contains(t, out, "* BACKTEST: RSI lots 2330.TW")
	assert.Contains(t, out, ":RUN_ID:      RUN1")
	assert.Contains(t, out, ":START_DATE:  2024-03-01")
	assert.Contains(t, out, ":RETURN_PCT:  1.00")
	assert.Contains(t, out, ":PROFIT_FAC:  (no losses)")
	assert.Contains(t, out, "| RSI period       | 14 |")
	assert.Contains(t, out, "| 2024-03-03 | full-exit | 500 |")
	assert.Contains(t, out, "- partial exits dominate")
	assert.NotContains(t, out, "Next Actions")
}

func TestWriteBacktestOrg(t *testing.T) {
	t.Parallel()

	run := NewBacktestRun("RUN2", "1101.TW", "", sampleResult())
	run.OrgPath = filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, run.WriteBacktestOrg(nil))

	data, err := os.ReadFile(run.OrgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), ":DATASET:     (dataset?)")
	assert.NotContains(t, string(data), "** Trades")
}

func TestCSVJournal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)
	require.NoError(t, Record(j, "R1", sampleResult()))
	require.NoError(t, j.Close())

	read := func(path string) [][]string {
		fh, err := os.Open(path)
		require.NoError(t, err)
		defer fh.Close()
		rows, err := csv.NewReader(fh).ReadAll()
		require.NoError(t, err)
		return rows
	}

	trades := read(tradesPath)
	require.Len(t, trades, 3)
	assert.Equal(t, tradesHeader, trades[0])
	assert.Equal(t, []string{"R1", "partial-exit", "2024-03-02T00:00:00Z", "500", "1"}, trades[1][:5])
	assert.Equal(t, "9663.250000", trades[2][10])

	equity := read(equityPath)
	require.Len(t, equity, 4)
	assert.Equal(t, equityHeader, equity[0])
	assert.Equal(t, []string{"R1", "2024-03-03T00:00:00Z", "1010000.000000"}, equity[3])
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	_, err := NewCSV(filepath.Join(t.TempDir(), "missing", "t.csv"), "e.csv")
	assert.Error(t, err)
}
