// Package backtest replays an RSI-annotated price series through a lot based
// position-sizing strategy and summarises the outcome.
//
// Each bar evaluates at most one action, in this order:
//   - stop-loss: close has fallen StopLossFraction below the average cost
//   - full exit: RSI >= OverboughtThreshold
//   - partial exit: RSI >= PartialExitThreshold, oldest lots first
//   - entry: RSI <= OversoldThreshold and fewer than MaxEntries lots open
//
// All fills happen at the bar close. A run owns its state; Run and Simulate
// are safe to call concurrently on shared input.
package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/rsitrader/indicators"
	"github.com/rustyeddy/rsitrader/market"
)

type ExitKind string

const (
	StopLoss    ExitKind = "stop-loss"
	FullExit    ExitKind = "full-exit"
	PartialExit ExitKind = "partial-exit"
)

// TradeRecord is emitted on every exit. AvgCost is the fee-inclusive cost of
// the lots sold and NetExitPrice is the close less the sell fee.
type TradeRecord struct {
	Kind           ExitKind  `json:"kind"`
	Time           time.Time `json:"time"`
	Shares         int64     `json:"shares"`
	Lots           int       `json:"lots"`
	AvgCost        float64   `json:"avg_cost"`
	ExitPrice      float64   `json:"exit_price"`
	NetExitPrice   float64   `json:"net_exit_price"`
	ReturnFraction float64   `json:"return_fraction"`
	Proceeds       float64   `json:"proceeds"`
	PnL            float64   `json:"pnl"`
}

// Entry is emitted for every lot bought.
type Entry struct {
	Time   time.Time `json:"time"`
	Shares int64     `json:"shares"`
	Price  float64   `json:"price"`
	Cost   float64   `json:"cost"`
}

// EquityPoint is cash plus open shares marked at the bar close.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Result is everything one run produces.
type Result struct {
	Params      Params        `json:"params"`
	UsableBars  int           `json:"usable_bars"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	Trades      []TradeRecord `json:"trades"`
	Entries     []Entry       `json:"entries"`
	OpenLots    []Lot         `json:"open_lots"`
	Cash        float64       `json:"cash"`

	Stats
}

// Run validates p and bars, computes the RSI and simulates the strategy.
// Bars that fall inside the RSI warmup are dropped; a series with no bars
// left returns an empty result whose FinalEquity is InitialCapital.
func Run(bars []market.Bar, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if err := market.ValidateSeries(bars); err != nil {
		return Result{}, err
	}

	series, err := indicators.Annotate(bars, p.OscillatorPeriod)
	if err != nil {
		return Result{}, fmt.Errorf("backtest: %w", err)
	}
	return Simulate(series, p)
}

// Simulate replays an already annotated series.
func Simulate(series []indicators.Point, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	pf := NewPortfolio(p.InitialCapital)
	res := Result{
		Params:      p,
		UsableBars:  len(series),
		EquityCurve: make([]EquityPoint, 0, len(series)),
		Trades:      []TradeRecord{},
		Entries:     []Entry{},
	}

	budget := p.InitialCapital * p.EntryFraction

	for _, pt := range series {
		px := pt.Close
		acted := false

		// Stop-loss and full exit read the book as of bar start.
		if avg, ok := pf.AvgCost(); ok {
			switch {
			case (px-avg)/avg <= -p.StopLossFraction:
				res.Trades = append(res.Trades, exitLots(pf, StopLoss, pt.Time, len(pf.Lots), px, p.SellFeeRate))
				acted = true
			case pt.RSI >= p.OverboughtThreshold:
				res.Trades = append(res.Trades, exitLots(pf, FullExit, pt.Time, len(pf.Lots), px, p.SellFeeRate))
				acted = true
			}
		}

		if !acted && pt.RSI >= p.PartialExitThreshold && len(pf.Lots) > 1 {
			n := len(pf.Lots)
			k := partialCount(n, p.PartialExitFraction)
			// Selling every lot would be a full exit under another name.
			if k < n {
				res.Trades = append(res.Trades, exitLots(pf, PartialExit, pt.Time, k, px, p.SellFeeRate))
				acted = true
			}
		}

		if !acted && pt.RSI <= p.OversoldThreshold && len(pf.Lots) < p.MaxEntries {
			if lot, ok := pf.Buy(pt.Time, px, budget, p.BuyFeeRate); ok {
				res.Entries = append(res.Entries, Entry{
					Time:   lot.EntryTime,
					Shares: lot.Shares,
					Price:  lot.EntryPrice,
					Cost:   float64(lot.Shares) * lot.CostPerShare,
				})
			}
		}

		res.EquityCurve = append(res.EquityCurve, EquityPoint{Time: pt.Time, Equity: pf.Equity(px)})
	}

	res.Cash = pf.Cash
	res.OpenLots = append([]Lot{}, pf.Lots...)
	res.Stats = Summarize(res.EquityCurve, res.Trades, p.InitialCapital)
	return res, nil
}

// partialCount is ceil(n*fraction), at least 1. The epsilon keeps products
// such as 10*0.3 from rounding up past the exact count.
func partialCount(n int, fraction float64) int {
	k := int(math.Ceil(float64(n)*fraction - 1e-9))
	if k < 1 {
		k = 1
	}
	return k
}

func exitLots(pf *Portfolio, kind ExitKind, t time.Time, k int, price, feeRate float64) TradeRecord {
	sold, proceeds := pf.SellOldest(k, price, feeRate)
	avg, _ := avgCost(sold)

	var shares int64
	var cost float64
	for _, l := range sold {
		shares += l.Shares
		cost += float64(l.Shares) * l.CostPerShare
	}

	net := price * (1 - feeRate)
	return TradeRecord{
		Kind:           kind,
		Time:           t,
		Shares:         shares,
		Lots:           len(sold),
		AvgCost:        avg,
		ExitPrice:      price,
		NetExitPrice:   net,
		ReturnFraction: (net - avg) / avg,
		Proceeds:       proceeds,
		PnL:            proceeds - cost,
	}
}
