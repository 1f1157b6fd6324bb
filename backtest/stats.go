package backtest

// Stats summarises an equity curve and trade log.
type Stats struct {
	TotalReturn  float64 `json:"total_return"`
	MaxDrawdown  float64 `json:"max_drawdown"` // <= 0
	WinRate      float64 `json:"win_rate"`
	FinalEquity  float64 `json:"final_equity"`
	NetPL        float64 `json:"net_pl"`
	TradeCount   int     `json:"trade_count"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	ProfitFactor float64 `json:"profit_factor"` // 0 when there is no losing trade
}

// Summarize reduces a finished run. It has no side effects.
func Summarize(curve []EquityPoint, trades []TradeRecord, initialCapital float64) Stats {
	s := Stats{FinalEquity: initialCapital}
	if len(curve) > 0 {
		s.FinalEquity = curve[len(curve)-1].Equity
	}
	s.NetPL = s.FinalEquity - initialCapital
	if initialCapital != 0 {
		s.TotalReturn = s.NetPL / initialCapital
	}
	s.MaxDrawdown = MaxDrawdown(curve)

	var grossProfit, grossLoss float64
	for _, t := range trades {
		if t.ReturnFraction > 0 {
			s.Wins++
		} else if t.ReturnFraction < 0 {
			s.Losses++
		}
		if t.PnL > 0 {
			grossProfit += t.PnL
		} else {
			grossLoss -= t.PnL
		}
	}
	s.TradeCount = len(trades)
	if s.TradeCount > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TradeCount)
	}
	if grossLoss > 0 {
		s.ProfitFactor = grossProfit / grossLoss
	}
	return s
}

// MaxDrawdown is the most negative (equity-peak)/peak along the curve, 0 when
// equity never falls below an earlier peak.
func MaxDrawdown(curve []EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Equity
	dd := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if d := (p.Equity - peak) / peak; d < dd {
				dd = d
			}
		}
	}
	return dd
}
