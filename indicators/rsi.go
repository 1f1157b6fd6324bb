package indicators

import (
	"fmt"

	"github.com/rustyeddy/rsitrader/market"
)

// RSI is Wilder's relative strength index over close prices.
//
// The first period price changes seed the average gain and loss with a
// simple mean; after that each average is carried forward as
// (avg*(period-1) + x) / period. The value is avgGain/(avgGain+avgLoss)*100,
// 100 when there are gains but no losses and 50 when the window is flat.
type RSI struct {
	period int

	prev    float64
	count   int // closes seen
	avgGain float64
	avgLoss float64
}

// NewRSI returns an RSI over period price changes. Period must be >= 2.
func NewRSI(period int) (*RSI, error) {
	if period < 2 {
		return nil, fmt.Errorf("rsi: period must be >= 2, got %d", period)
	}
	return &RSI{period: period}, nil
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI(%d)", r.period)
}

// Warmup is the number of closes needed: period changes plus the first close.
func (r *RSI) Warmup() int {
	return r.period + 1
}

func (r *RSI) Reset() {
	r.prev = 0
	r.count = 0
	r.avgGain = 0
	r.avgLoss = 0
}

func (r *RSI) Update(b market.Bar) {
	r.UpdateClose(b.Close)
}

// UpdateClose feeds a bare close price.
func (r *RSI) UpdateClose(c float64) {
	r.count++
	if r.count == 1 {
		r.prev = c
		return
	}

	delta := c - r.prev
	r.prev = c

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	p := float64(r.period)
	switch {
	case r.count <= r.period:
		r.avgGain += gain
		r.avgLoss += loss
	case r.count == r.period+1:
		r.avgGain = (r.avgGain + gain) / p
		r.avgLoss = (r.avgLoss + loss) / p
	default:
		r.avgGain = (r.avgGain*(p-1) + gain) / p
		r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	}
}

func (r *RSI) Ready() bool {
	return r.count > r.period
}

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}
		return 100
	}
	return 100 * r.avgGain / (r.avgGain + r.avgLoss)
}

// RSIValues computes the RSI for every close once the warmup is complete.
// The result has len(closes)-period entries; entry i belongs to
// closes[i+period].
func RSIValues(closes []float64, period int) ([]float64, error) {
	r, err := NewRSI(period)
	if err != nil {
		return nil, err
	}
	if len(closes) <= period {
		return []float64{}, nil
	}

	out := make([]float64, 0, len(closes)-period)
	for _, c := range closes {
		r.UpdateClose(c)
		if r.Ready() {
			out = append(out, r.Value())
		}
	}
	return out, nil
}

// Point is a bar annotated with its RSI value.
type Point struct {
	market.Bar
	RSI float64 `json:"rsi"`
}

// Annotate computes the RSI over bars and drops the warmup bars. Ordering is
// preserved; the result is empty when len(bars) <= period.
func Annotate(bars []market.Bar, period int) ([]Point, error) {
	vals, err := RSIValues(market.Closes(bars), period)
	if err != nil {
		return nil, err
	}

	out := make([]Point, len(vals))
	for i, v := range vals {
		out[i] = Point{Bar: bars[i+period], RSI: v}
	}
	return out, nil
}
