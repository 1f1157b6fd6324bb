package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/rsitrader/journal"
	"github.com/rustyeddy/rsitrader/market"
	"github.com/rustyeddy/rsitrader/scan"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func waveBars(n int) []market.Bar {
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]market.Bar, n)
	for i := range out {
		c := 100 + 15*math.Sin(float64(i)/4)
		out[i] = market.Bar{Time: t0.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return out
}

type envelope struct {
	Code  int             `json:"code"`
	Count int             `json:"count"`
	RunID string          `json:"run_id"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Field string          `json:"field"`
}

func do(t *testing.T, h http.Handler, method, path string, body any) (int, envelope) {
	t.Helper()

	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func newJournaled(t *testing.T) (*Server, *journal.SQLite) {
	t.Helper()
	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return NewServer(Options{Runs: j, Scans: j}), j
}

func TestHealth(t *testing.T) {
	t.Parallel()

	code, _ := do(t, NewServer(Options{}).Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestBacktestWithoutJournal(t *testing.T) {
	t.Parallel()

	h := NewServer(Options{}).Handler()
	code, env := do(t, h, http.MethodPost, "/api/backtest", gin.H{
		"symbol": "2330.TW",
		"bars":   waveBars(120),
		"params": gin.H{"oversold_threshold": 35},
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Empty(t, env.RunID)

	var data struct {
		Params struct {
			Oversold float64 `json:"oversold_threshold"`
			Period   int     `json:"oscillator_period"`
		} `json:"params"`
		UsableBars int `json:"usable_bars"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 35.0, data.Params.Oversold)
	assert.Equal(t, 14, data.Params.Period)
	assert.Equal(t, 120-14, data.UsableBars)

	code, _ = do(t, h, http.MethodGet, "/api/runs/abc", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestBacktestConfigurationError(t *testing.T) {
	t.Parallel()

	h := NewServer(Options{}).Handler()
	code, env := do(t, h, http.MethodPost, "/api/backtest", gin.H{
		"bars":   waveBars(30),
		"params": gin.H{"max_entries": 0},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "max_entries", env.Field)

	bars := waveBars(30)
	bars[3].Close = -1
	code, env = do(t, h, http.MethodPost, "/api/backtest", gin.H{"bars": bars})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "invalid price series")

	req := httptest.NewRequest(http.MethodPost, "/api/backtest", bytes.NewBufferString("{nope"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBacktestJournaledRoundTrip(t *testing.T) {
	t.Parallel()

	srv, _ := newJournaled(t)
	h := srv.Handler()

	code, env := do(t, h, http.MethodPost, "/api/backtest", gin.H{"symbol": "2330.TW", "bars": waveBars(150)})
	require.Equal(t, http.StatusOK, code, env.Error)
	require.NotEmpty(t, env.RunID)
	runID := env.RunID

	code, env = do(t, h, http.MethodGet, "/api/runs/"+runID, nil)
	require.Equal(t, http.StatusOK, code)
	var run journal.BacktestRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, "2330.TW", run.Symbol)
	assert.Equal(t, 150-14, run.UsableBars)

	code, env = do(t, h, http.MethodGet, "/api/runs/"+runID+"/equity", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 150-14, env.Count)

	code, env = do(t, h, http.MethodGet, "/api/runs/"+runID+"/trades", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, run.Trades, env.Count)

	code, env = do(t, h, http.MethodGet, "/api/runs?symbol=2330.TW", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Count)

	code, _ = do(t, h, http.MethodGet, "/api/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, h, http.MethodGet, "/api/runs/missing/trades", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, h, http.MethodGet, "/api/runs?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetScan(t *testing.T) {
	t.Parallel()

	srv, j := newJournaled(t)
	h := srv.Handler()

	code, _ := do(t, h, http.MethodGet, "/api/scans/daily", nil)
	assert.Equal(t, http.StatusNotFound, code)

	require.NoError(t, j.Write(context.Background(), "daily", []scan.Record{
		{Date: "2024-05-02", Symbol: "2330.TW", Price: decimal.RequireFromString("645.12"), Value: decimal.RequireFromString("193.54")},
	}))

	code, env := do(t, h, http.MethodGet, "/api/scans/daily", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Count)
	assert.Contains(t, string(env.Data), `"193.54"`)
}

func TestPostSignal(t *testing.T) {
	t.Parallel()

	h := NewServer(Options{}).Handler()

	falling := make([]market.Bar, 30)
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range falling {
		c := 130 - float64(i)
		falling[i] = market.Bar{Time: t0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}

	code, env := do(t, h, http.MethodPost, "/api/signal", gin.H{"bars": falling})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Contains(t, string(env.Data), `"action":"BUY"`)

	code, _ = do(t, h, http.MethodPost, "/api/signal", gin.H{"bars": falling[:5]})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = do(t, h, http.MethodPost, "/api/signal", gin.H{"bars": falling, "rules": gin.H{"fast_ma": 40}})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodOptions, "/api/backtest", nil)
	w := httptest.NewRecorder()
	NewServer(Options{}).Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
