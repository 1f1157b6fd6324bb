// Package journal persists backtest runs, their trades and equity curves,
// and trading-value scans.
package journal

import (
	"errors"
	"time"

	"github.com/rustyeddy/rsitrader/backtest"
)

var ErrNotFound = errors.New("journal: not found")

// Journal receives the per-event output of a run.
type Journal interface {
	RecordTrade(runID string, t backtest.TradeRecord) error
	RecordEquity(runID string, e backtest.EquityPoint) error
	Close() error
}

// Record streams every trade and equity point of res into j.
func Record(j Journal, runID string, res backtest.Result) error {
	for _, t := range res.Trades {
		if err := j.RecordTrade(runID, t); err != nil {
			return err
		}
	}
	for _, e := range res.EquityCurve {
		if err := j.RecordEquity(runID, e); err != nil {
			return err
		}
	}
	return nil
}

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID   string    `json:"run_id"`
	Created time.Time `json:"created"`
	Symbol  string    `json:"symbol"`
	Dataset string    `json:"dataset"`

	Params backtest.Params `json:"params"`

	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	UsableBars int       `json:"usable_bars"`

	StartBalance float64 `json:"start_balance"`
	EndBalance   float64 `json:"end_balance"`
	NetPL        float64 `json:"net_pl"`
	ReturnPct    float64 `json:"return_pct"`
	MaxDDPct     float64 `json:"max_dd_pct"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	OpenLots     int     `json:"open_lots"`

	OrgPath     string   `json:"-"`
	Notes       []string `json:"notes,omitempty"`
	NextActions []string `json:"next_actions,omitempty"`
}

// NewBacktestRun summarises res for storage.
func NewBacktestRun(runID, symbol, dataset string, res backtest.Result) BacktestRun {
	run := BacktestRun{
		RunID:        runID,
		Created:      time.Now().UTC(),
		Symbol:       symbol,
		Dataset:      dataset,
		Params:       res.Params,
		UsableBars:   res.UsableBars,
		StartBalance: res.Params.InitialCapital,
		EndBalance:   res.FinalEquity,
		NetPL:        res.NetPL,
		ReturnPct:    res.TotalReturn * 100,
		MaxDDPct:     res.MaxDrawdown * 100,
		WinRate:      res.WinRate,
		ProfitFactor: res.ProfitFactor,
		Trades:       res.TradeCount,
		Wins:         res.Wins,
		Losses:       res.Losses,
		OpenLots:     len(res.OpenLots),
	}
	if n := len(res.EquityCurve); n > 0 {
		run.Start = res.EquityCurve[0].Time
		run.End = res.EquityCurve[n-1].Time
	}
	return run
}
