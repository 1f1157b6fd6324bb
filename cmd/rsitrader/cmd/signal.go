package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rustyeddy/rsitrader/signals"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var signalCmd = &cobra.Command{
	Use:   "signal symbol...",
	Short: "Print buy/sell/hold signals for symbols",
	Long: `Signal scores the latest bar of each symbol on two rules: RSI extremes and
a fast/slow moving average cross. A symbol with both buy and sell reasons
is a hold.

Example:
  rsitrader signal 2330.TW 2317.TW --source yahoo --start 2024-01-01`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSignal,
}

var sgData dataFlags

func init() {
	rootCmd.AddCommand(signalCmd)

	signalCmd.Flags().StringVar(&sgData.source, "source", "", "data source: csv or yahoo (default from config)")
	signalCmd.Flags().StringVar(&sgData.start, "start", "", "first date to fetch")
	signalCmd.Flags().StringVar(&sgData.end, "end", "", "last date to fetch")
}

func runSignal(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rules := cfg.Signals

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tDATE\tCLOSE\tRSI\tACTION\tREASONS")

	failed := 0
	for _, sym := range args {
		d := sgData
		d.symbol = sym
		bars, err := d.load(ctx)
		if err != nil {
			logrus.WithError(err).WithField("symbol", sym).Warn("signal: load failed")
			failed++
			continue
		}
		sig, err := signals.Evaluate(bars, rules)
		if err != nil {
			logrus.WithError(err).WithField("symbol", sym).Warn("signal: evaluate failed")
			failed++
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.1f\t%s\t%s\n",
			sym, sig.Time.Format("2006-01-02"), sig.Close, sig.RSI, sig.Action, strings.Join(sig.Reasons, "; "))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed == len(args) {
		return fmt.Errorf("no signal for any of %d symbols", len(args))
	}
	return nil
}
