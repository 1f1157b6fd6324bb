// Package signals turns the latest bars of a symbol into a buy, sell or hold
// call from two rules: RSI extremes and a fast/slow moving average cross.
package signals

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/rustyeddy/rsitrader/backtest"
	"github.com/rustyeddy/rsitrader/indicators"
	"github.com/rustyeddy/rsitrader/market"
)

type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
	Hold Action = "HOLD"
)

type Rules struct {
	RSIPeriod  int     `json:"rsi_period" yaml:"rsi_period"`
	FastMA     int     `json:"fast_ma" yaml:"fast_ma"`
	SlowMA     int     `json:"slow_ma" yaml:"slow_ma"`
	Oversold   float64 `json:"oversold" yaml:"oversold"`
	Overbought float64 `json:"overbought" yaml:"overbought"`
}

func DefaultRules() Rules {
	return Rules{
		RSIPeriod:  14,
		FastMA:     5,
		SlowMA:     20,
		Oversold:   30,
		Overbought: 70,
	}
}

func (r Rules) Validate() error {
	if r.RSIPeriod < 2 {
		return fmt.Errorf("rsi_period must be >= 2, got %d", r.RSIPeriod)
	}
	if r.FastMA < 2 || r.SlowMA <= r.FastMA {
		return fmt.Errorf("moving averages need 2 <= fast_ma < slow_ma, got %d/%d", r.FastMA, r.SlowMA)
	}
	if !(r.Oversold > 0 && r.Oversold < r.Overbought && r.Overbought < 100) {
		return fmt.Errorf("thresholds need 0 < oversold < overbought < 100, got %g/%g", r.Oversold, r.Overbought)
	}
	return nil
}

// MinBars is the shortest history Evaluate accepts.
func (r Rules) MinBars() int {
	n := r.RSIPeriod
	if r.SlowMA > n {
		n = r.SlowMA
	}
	return n + 1
}

type Signal struct {
	Time    time.Time `json:"time"`
	Close   float64   `json:"close"`
	RSI     float64   `json:"rsi"`
	FastMA  float64   `json:"fast_ma"`
	SlowMA  float64   `json:"slow_ma"`
	Action  Action    `json:"action"`
	Reasons []string  `json:"reasons"`
}

// Evaluate scores the last bar. The RSI matches the backtester's; the moving
// averages are simple. Buy and sell reasons on the same bar cancel to Hold.
func Evaluate(bars []market.Bar, r Rules) (Signal, error) {
	if err := r.Validate(); err != nil {
		return Signal{}, err
	}
	if len(bars) < r.MinBars() {
		return Signal{}, fmt.Errorf("%w: need %d bars, got %d", backtest.ErrInsufficientData, r.MinBars(), len(bars))
	}

	closes := market.Closes(bars)
	rsi, err := indicators.RSIValues(closes, r.RSIPeriod)
	if err != nil {
		return Signal{}, err
	}
	fast := talib.Sma(closes, r.FastMA)
	slow := talib.Sma(closes, r.SlowMA)

	i := len(closes) - 1
	sig := Signal{
		Time:    bars[i].Time,
		Close:   closes[i],
		RSI:     rsi[len(rsi)-1],
		FastMA:  fast[i],
		SlowMA:  slow[i],
		Reasons: []string{},
	}

	var buys, sells []string
	if sig.RSI <= r.Oversold {
		buys = append(buys, fmt.Sprintf("RSI %.1f <= %.1f", sig.RSI, r.Oversold))
	}
	if sig.RSI >= r.Overbought {
		sells = append(sells, fmt.Sprintf("RSI %.1f >= %.1f", sig.RSI, r.Overbought))
	}
	// slow[i-1] is defined because len(bars) > SlowMA.
	if fast[i-1] <= slow[i-1] && fast[i] > slow[i] {
		buys = append(buys, fmt.Sprintf("MA%d crossed above MA%d", r.FastMA, r.SlowMA))
	}
	if fast[i-1] >= slow[i-1] && fast[i] < slow[i] {
		sells = append(sells, fmt.Sprintf("MA%d crossed below MA%d", r.FastMA, r.SlowMA))
	}

	switch {
	case len(buys) > 0 && len(sells) == 0:
		sig.Action = Buy
		sig.Reasons = buys
	case len(sells) > 0 && len(buys) == 0:
		sig.Action = Sell
		sig.Reasons = sells
	default:
		sig.Action = Hold
		sig.Reasons = append(sig.Reasons, buys...)
		sig.Reasons = append(sig.Reasons, sells...)
	}
	return sig, nil
}
