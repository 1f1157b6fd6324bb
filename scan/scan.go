// Package scan ranks a ticker universe by trading value, the day's close
// times volume expressed in units of 100 million (億).
package scan

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rustyeddy/rsitrader/market"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var hundredMillion = decimal.New(1, 8)

// Record is one ranked symbol.
type Record struct {
	Date   string          `json:"date"`
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Value  decimal.Decimal `json:"value"`
}

// Store persists scan results under a key. Write appends.
type Store interface {
	Write(ctx context.Context, key string, records []Record) error
	Read(ctx context.Context, key string) ([]Record, error)
}

// Value is close*volume/1e8 rounded to two places.
func Value(close, volume float64) decimal.Decimal {
	return decimal.NewFromFloat(close).
		Mul(decimal.NewFromFloat(volume)).
		Div(hundredMillion).
		Round(2)
}

// Scanner fetches the latest bar of each symbol and ranks them.
type Scanner struct {
	Source market.Source

	// Limit caps how many symbols are fetched; 0 means all.
	Limit int
	// Workers bounds concurrent fetches; 0 uses 4.
	Workers int
	// Lookback is how far back to ask the source for bars; 0 uses 7 days.
	Lookback time.Duration

	// Now is overridable for tests.
	Now func() time.Time
}

// Run scans symbols. A symbol whose fetch fails or returns no bars is
// logged and skipped. The result is ordered by value, highest first.
func (s *Scanner) Run(ctx context.Context, symbols []string) ([]Record, error) {
	if s.Source == nil {
		return nil, errors.New("scan: Source is required")
	}
	if s.Limit > 0 && len(symbols) > s.Limit {
		symbols = symbols[:s.Limit]
	}
	workers := s.Workers
	if workers <= 0 {
		workers = 4
	}
	lookback := s.Lookback
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	end := now().UTC()
	start := end.Add(-lookback)

	found := make([]*Record, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			bars, err := s.Source.Bars(gctx, sym, start, end)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logrus.WithError(err).WithField("symbol", sym).Warn("scan: skipping symbol")
				return nil
			}
			last, ok := market.Last(bars)
			if !ok {
				logrus.WithField("symbol", sym).Warn("scan: no bars")
				return nil
			}
			found[i] = &Record{
				Date:   end.Format("2006-01-02"),
				Symbol: sym,
				Price:  decimal.NewFromFloat(last.Close).Round(2),
				Value:  Value(last.Close, last.Volume),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(found))
	for _, r := range found {
		if r != nil {
			out = append(out, *r)
		}
	}
	Rank(out)

	logrus.WithFields(logrus.Fields{
		"symbols": len(symbols),
		"ranked":  len(out),
	}).Info("scan complete")
	return out, nil
}

// Rank sorts by value descending, symbol ascending on ties.
func Rank(rs []Record) {
	sort.SliceStable(rs, func(i, j int) bool {
		if c := rs[i].Value.Cmp(rs[j].Value); c != 0 {
			return c > 0
		}
		return rs[i].Symbol < rs[j].Symbol
	})
}
