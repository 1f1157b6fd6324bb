package backtest

import (
	"fmt"
	"io"
	"time"
)

// PrintResult writes a human readable summary of res.
func PrintResult(w io.Writer, symbol string, res Result) {
	p := res.Params

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")
	if symbol != "" {
		fmt.Fprintf(w, "Symbol:        %s\n", symbol)
	}
	fmt.Fprintf(w, "Usable Bars:   %d\n", res.UsableBars)
	if n := len(res.EquityCurve); n > 0 {
		fmt.Fprintf(w, "Start:         %s\n", res.EquityCurve[0].Time.Format(time.RFC3339))
		fmt.Fprintf(w, "End:           %s\n", res.EquityCurve[n-1].Time.Format(time.RFC3339))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Strategy Configuration")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "RSI Period:    %d\n", p.OscillatorPeriod)
	fmt.Fprintf(w, "Oversold:      %.1f\n", p.OversoldThreshold)
	fmt.Fprintf(w, "Partial Exit:  %.1f (%.0f%% of lots)\n", p.PartialExitThreshold, p.PartialExitFraction*100)
	fmt.Fprintf(w, "Overbought:    %.1f\n", p.OverboughtThreshold)
	fmt.Fprintf(w, "Entry Size:    %.2f%% of capital\n", p.EntryFraction*100)
	fmt.Fprintf(w, "Max Entries:   %d\n", p.MaxEntries)
	fmt.Fprintf(w, "Stop Loss:     %.2f%%\n", p.StopLossFraction*100)
	fmt.Fprintf(w, "Fees:          buy %.4f%% / sell %.4f%%\n", p.BuyFeeRate*100, p.SellFeeRate*100)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Entries:       %d\n", len(res.Entries))
	fmt.Fprintf(w, "Exits:         %d\n", res.TradeCount)
	fmt.Fprintf(w, "Wins:          %d\n", res.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", res.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", res.WinRate*100)
	if res.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", res.ProfitFactor)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Capital: %.2f\n", p.InitialCapital)
	fmt.Fprintf(w, "Final Equity:  %.2f\n", res.FinalEquity)
	fmt.Fprintf(w, "Cash:          %.2f\n", res.Cash)
	fmt.Fprintf(w, "Open Lots:     %d\n", len(res.OpenLots))
	fmt.Fprintf(w, "Net P/L:       %.2f\n", res.NetPL)
	fmt.Fprintf(w, "Return:        %.2f%%\n", res.TotalReturn*100)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", res.MaxDrawdown*100)

	if len(res.Trades) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Exits")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, t := range res.Trades {
			fmt.Fprintf(w, "%s  %-12s %6d sh  cost %.2f  exit %.2f  %+.2f%%\n",
				t.Time.Format("2006-01-02"), t.Kind, t.Shares, t.AvgCost, t.ExitPrice, t.ReturnFraction*100)
		}
	}

	fmt.Fprintln(w)
}

// PrintSweep writes the top n sweep results as a table; n <= 0 prints all.
func PrintSweep(w io.Writer, rs []SweepResult, n int) {
	if n <= 0 || n > len(rs) {
		n = len(rs)
	}
	fmt.Fprintf(w, "%-6s %-9s %-10s %10s %10s %8s %7s\n", "period", "oversold", "overbought", "return", "max_dd", "win", "trades")
	for _, r := range rs[:n] {
		fmt.Fprintf(w, "%-6d %-9.1f %-10.1f %9.2f%% %9.2f%% %7.2f%% %7d\n",
			r.Params.OscillatorPeriod, r.Params.OversoldThreshold, r.Params.OverboughtThreshold,
			r.Stats.TotalReturn*100, r.Stats.MaxDrawdown*100, r.Stats.WinRate*100, r.Stats.TradeCount)
	}
}
