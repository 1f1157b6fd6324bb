package backtest

import (
	"context"
	"errors"
	"runtime"
	"sort"

	"github.com/rustyeddy/rsitrader/indicators"
	"github.com/rustyeddy/rsitrader/market"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Grid lists the values to try for each swept parameter. An empty list keeps
// the base value.
type Grid struct {
	Periods    []int     `json:"periods" yaml:"periods"`
	Oversold   []float64 `json:"oversold" yaml:"oversold"`
	Overbought []float64 `json:"overbought" yaml:"overbought"`
}

// Expand returns every valid combination over base and how many invalid ones
// were skipped.
func (g Grid) Expand(base Params) (candidates []Params, skipped int) {
	periods := g.Periods
	if len(periods) == 0 {
		periods = []int{base.OscillatorPeriod}
	}
	oversold := g.Oversold
	if len(oversold) == 0 {
		oversold = []float64{base.OversoldThreshold}
	}
	overbought := g.Overbought
	if len(overbought) == 0 {
		overbought = []float64{base.OverboughtThreshold}
	}

	for _, per := range periods {
		for _, os := range oversold {
			for _, ob := range overbought {
				p := base
				p.OscillatorPeriod = per
				p.OversoldThreshold = os
				p.OverboughtThreshold = ob
				if p.Validate() != nil {
					skipped++
					continue
				}
				candidates = append(candidates, p)
			}
		}
	}
	return candidates, skipped
}

// SweepResult pairs a candidate with its outcome. Curves and logs are
// dropped to keep large sweeps small; rerun the winner with Run for detail.
type SweepResult struct {
	Params Params `json:"params"`
	Stats  Stats  `json:"stats"`
}

// Sweep runs every grid candidate over bars using up to workers goroutines
// (GOMAXPROCS when workers <= 0). The RSI series for each period is computed
// once and shared read-only between runs. Results come back in candidate
// order. Cancelling ctx stops new runs from starting.
func Sweep(ctx context.Context, bars []market.Bar, grid Grid, base Params, workers int) ([]SweepResult, error) {
	if err := market.ValidateSeries(bars); err != nil {
		return nil, err
	}

	candidates, skipped := grid.Expand(base)
	if len(candidates) == 0 {
		if err := base.Validate(); err != nil {
			return nil, err
		}
		return nil, errors.New("sweep: grid produced no valid candidates")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	series := map[int][]indicators.Point{}
	for _, c := range candidates {
		if _, ok := series[c.OscillatorPeriod]; ok {
			continue
		}
		s, err := indicators.Annotate(bars, c.OscillatorPeriod)
		if err != nil {
			return nil, err
		}
		series[c.OscillatorPeriod] = s
	}

	logrus.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"skipped":    skipped,
		"workers":    workers,
	}).Info("sweep start")

	out := make([]SweepResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, c := range candidates {
		if gctx.Err() != nil {
			break
		}
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := Simulate(series[c.OscillatorPeriod], c)
			if err != nil {
				return err
			}
			out[i] = SweepResult{Params: c, Stats: res.Stats}
			logrus.WithFields(logrus.Fields{
				"period":     c.OscillatorPeriod,
				"oversold":   c.OversoldThreshold,
				"overbought": c.OverboughtThreshold,
				"return":     res.TotalReturn,
			}).Debug("sweep run")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SortByReturn orders results best total return first; ties keep the
// shallower drawdown first, then candidate order.
func SortByReturn(rs []SweepResult) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Stats.TotalReturn != rs[j].Stats.TotalReturn {
			return rs[i].Stats.TotalReturn > rs[j].Stats.TotalReturn
		}
		return rs[i].Stats.MaxDrawdown > rs[j].Stats.MaxDrawdown
	})
}
