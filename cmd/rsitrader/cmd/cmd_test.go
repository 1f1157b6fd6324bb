package cmd

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/rustyeddy/rsitrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests share the package level flag variables and must not run in
// parallel.

var t0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func writeBars(t *testing.T, dir string, n int, from time.Time) string {
	t.Helper()

	bars := make([]market.Bar, n)
	for i := range bars {
		c := 500 + 60*math.Sin(float64(i)/5)
		bars[i] = market.Bar{Time: from.AddDate(0, 0, i), Open: c, High: c + 2, Low: c - 2, Close: c, Volume: 2e6}
	}

	path := filepath.Join(dir, "2330.TW.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, market.WriteCSV(f, bars))
	require.NoError(t, f.Close())
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBacktestJournalShow(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeBars(t, dir, 200, t0)
	db := filepath.Join(dir, "runs.db")
	org := filepath.Join(dir, "run.org")
	trades := filepath.Join(dir, "trades.csv")
	equity := filepath.Join(dir, "equity.csv")

	out, err := execute(t, "backtest", "--csv", csvPath, "--symbol", "2330.TW",
		"--db", db, "--org", org, "--trades", trades, "--equity", equity, "--oversold", "35")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Symbol:        2330.TW")
	assert.Contains(t, out, "Oversold:      35.0")

	m := regexp.MustCompile(`Run ID: (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	runID := m[1]

	for _, p := range []string{org, trades, equity} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}

	out, err = execute(t, "journal", "show", runID, "--db", db)
	require.NoError(t, err, out)
	assert.Contains(t, out, ":RUN_ID:      "+runID)
	assert.Contains(t, out, "| Oversold         | 35.0 |")

	out, err = execute(t, "journal", "list", "--db", db)
	require.NoError(t, err, out)
	assert.Contains(t, out, runID)

	_, err = execute(t, "journal", "show", "missing", "--db", db)
	assert.Error(t, err)
}

func TestBacktestRejectsBadParams(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeBars(t, dir, 50, t0)

	_, err := execute(t, "backtest", "--csv", csvPath, "--max-entries", "0", "-q",
		"--db", "", "--org", "", "--trades", "", "--equity", "", "--oversold", "30")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_entries")

	// reset for later tests sharing the flag
	_, err = execute(t, "backtest", "--csv", csvPath, "--max-entries", "5", "-q")
	require.NoError(t, err)
}

func TestSweepCommand(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeBars(t, dir, 200, t0)

	out, err := execute(t, "sweep", "--csv", csvPath, "--periods", "7,14", "--oversolds", "25,30", "--overboughts", "70", "--top", "3")
	require.NoError(t, err, out)
	assert.Contains(t, out, "period")
}

func TestConfigInitValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rsitrader.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Created default configuration")

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Strategy: RSI(14) 30/60/70")
}

func TestScanOfflineCSV(t *testing.T) {
	dir := t.TempDir()
	// the scanner only looks at the last week
	recent := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -9)
	writeBars(t, dir, 10, recent)
	cfgPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("data:\n  source: csv\n  dir: "+dir+"\njournal:\n  type: \"\"\n"), 0644))

	out, err := execute(t, "scan", "-c", cfgPath, "--source", "csv", "2330.TW", "9999.TW")
	require.NoError(t, err, out)
	assert.Contains(t, out, "2330.TW")
	assert.NotContains(t, out, "9999.TW")

	// leave the config flag empty for the other tests
	_, err = execute(t, "version", "-c", "")
	require.NoError(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "rsitrader version")
}
