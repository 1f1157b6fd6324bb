// Package market holds the price bars the backtester consumes and the
// collaborators that produce them: CSV files, Yahoo quotes and the TWSE
// ticker listing.
package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSeries is wrapped by every error ValidateSeries returns.
var ErrInvalidSeries = errors.New("invalid price series")

// Bar is one OHLCV observation of an instrument.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ValidateSeries checks that bars are strictly increasing in time, prices are
// positive and volume is not negative.
func ValidateSeries(bars []Bar) error {
	for i, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("%w: bar %d (%s) has a non-positive price", ErrInvalidSeries, i, b.Time.Format(time.RFC3339))
		}
		if b.Volume < 0 {
			return fmt.Errorf("%w: bar %d (%s) has negative volume", ErrInvalidSeries, i, b.Time.Format(time.RFC3339))
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("%w: bar %d (%s) is not after bar %d (%s)", ErrInvalidSeries,
				i, b.Time.Format(time.RFC3339), i-1, bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Closes returns the close price of every bar.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Last returns the most recent bar, ok=false when bars is empty.
func Last(bars []Bar) (Bar, bool) {
	if len(bars) == 0 {
		return Bar{}, false
	}
	return bars[len(bars)-1], true
}
