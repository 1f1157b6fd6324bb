package signals

import (
	"testing"
	"time"

	"github.com/rustyeddy/rsitrader/backtest"
	"github.com/rustyeddy/rsitrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bars(closes ...float64) []market.Bar {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Bar, len(closes))
	for i, c := range closes {
		out[i] = market.Bar{Time: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	flat := ramp(30, 100, 0)
	jump := append(ramp(29, 100, 0), 110)

	tests := []struct {
		name    string
		closes  []float64
		action  Action
		reasons int
	}{
		{"falling is oversold", ramp(30, 130, -1), Buy, 1},
		{"rising is overbought", ramp(30, 100, 1), Sell, 1},
		{"flat holds", flat, Hold, 0},
		{"cross and overbought cancel", jump, Hold, 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := bars(tt.closes...)
			sig, err := Evaluate(in, DefaultRules())
			require.NoError(t, err)
			assert.Equal(t, tt.action, sig.Action)
			assert.Len(t, sig.Reasons, tt.reasons)
			assert.Equal(t, in[len(in)-1].Time, sig.Time)
		})
	}
}

func TestEvaluateCrossDetail(t *testing.T) {
	t.Parallel()

	sig, err := Evaluate(bars(append(ramp(29, 100, 0), 110)...), DefaultRules())
	require.NoError(t, err)
	assert.InDelta(t, 102.0, sig.FastMA, 1e-9)
	assert.InDelta(t, 100.5, sig.SlowMA, 1e-9)
	assert.Equal(t, 100.0, sig.RSI)
	assert.Contains(t, sig.Reasons[0], "crossed above")
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(bars(ramp(10, 100, 1)...), DefaultRules())
	assert.ErrorIs(t, err, backtest.ErrInsufficientData)

	r := DefaultRules()
	r.FastMA = r.SlowMA
	_, err = Evaluate(bars(ramp(40, 100, 1)...), r)
	assert.Error(t, err)

	r = DefaultRules()
	r.Oversold = 80
	assert.Error(t, r.Validate())
	assert.Equal(t, 21, DefaultRules().MinBars())
}
