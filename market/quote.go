package market

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/markcheno/go-quote"
)

const quoteDate = "2006-01-02"

// YahooSource downloads daily bars from Yahoo Finance. Taiwan listings use the
// ".TW" suffix, e.g. "2330.TW".
type YahooSource struct {
	// Adjust requests split/dividend adjusted prices.
	Adjust bool
}

func (s YahooSource) Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(-1, 0, 0)
	}

	q, err := quote.NewQuoteFromYahoo(symbol, start.Format(quoteDate), end.Format(quoteDate), quote.Daily, s.Adjust)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	return FromQuote(q), nil
}

// FromQuote converts a go-quote series into bars. Rows with a non-positive
// close (holidays and gaps Yahoo fills with zeros) are dropped.
func FromQuote(q quote.Quote) []Bar {
	n := len(q.Date)
	bars := make([]Bar, 0, n)
	for i := 0; i < n; i++ {
		if i >= len(q.Close) || q.Close[i] <= 0 {
			continue
		}
		bars = append(bars, Bar{
			Time:   q.Date[i].UTC(),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  q.Close[i],
			Volume: at(q.Volume, i),
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars
}

func at(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}
