package backtest

import "time"

// Lot is one entry. CostPerShare includes the buy fee.
type Lot struct {
	Shares       int64     `json:"shares"`
	EntryPrice   float64   `json:"entry_price"`
	CostPerShare float64   `json:"cost_per_share"`
	EntryTime    time.Time `json:"entry_time"`
}

// Portfolio is the simulated cash plus open lots, oldest first.
type Portfolio struct {
	Cash float64
	Lots []Lot
}

func NewPortfolio(cash float64) *Portfolio {
	return &Portfolio{Cash: cash}
}

func (p *Portfolio) TotalShares() int64 {
	var n int64
	for _, l := range p.Lots {
		n += l.Shares
	}
	return n
}

// AvgCost is the share-weighted fee-inclusive cost of the open lots.
// ok is false when nothing is held.
func (p *Portfolio) AvgCost() (float64, bool) {
	return avgCost(p.Lots)
}

func avgCost(lots []Lot) (float64, bool) {
	var shares int64
	var cost float64
	for _, l := range lots {
		shares += l.Shares
		cost += float64(l.Shares) * l.CostPerShare
	}
	if shares == 0 {
		return 0, false
	}
	return cost / float64(shares), true
}

// Equity marks the open lots at price.
func (p *Portfolio) Equity(price float64) float64 {
	return p.Cash + float64(p.TotalShares())*price
}

// Buy spends at most budget (capped by cash) on whole shares at price.
// It returns the new lot, or ok=false when not even one share fits.
func (p *Portfolio) Buy(t time.Time, price, budget, feeRate float64) (Lot, bool) {
	if budget > p.Cash {
		budget = p.Cash
	}
	perShare := price * (1 + feeRate)
	if perShare <= 0 || budget <= 0 {
		return Lot{}, false
	}

	shares := int64(budget / perShare)
	for shares > 0 && float64(shares)*perShare > p.Cash {
		shares--
	}
	if shares <= 0 {
		return Lot{}, false
	}

	lot := Lot{
		Shares:       shares,
		EntryPrice:   price,
		CostPerShare: perShare,
		EntryTime:    t,
	}
	p.Cash -= float64(shares) * perShare
	p.Lots = append(p.Lots, lot)
	return lot, true
}

// SellOldest liquidates the first k lots at price and returns them.
func (p *Portfolio) SellOldest(k int, price, feeRate float64) (sold []Lot, proceeds float64) {
	if k > len(p.Lots) {
		k = len(p.Lots)
	}
	sold = make([]Lot, k)
	copy(sold, p.Lots[:k])

	var shares int64
	for _, l := range sold {
		shares += l.Shares
	}
	proceeds = float64(shares) * price * (1 - feeRate)

	p.Lots = append(p.Lots[:0:0], p.Lots[k:]...)
	p.Cash += proceeds
	return sold, proceeds
}

// SellAll liquidates every lot at price.
func (p *Portfolio) SellAll(price, feeRate float64) ([]Lot, float64) {
	return p.SellOldest(len(p.Lots), price, feeRate)
}
