package cmd

import (
	"fmt"

	"github.com/rustyeddy/rsitrader/backtest"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Search RSI period and thresholds over a grid",
	Long: `Sweep runs the backtest for every combination of RSI period, oversold and
overbought threshold and ranks the results by total return. Invalid
combinations are skipped. The grid comes from the config's sweep section
unless flags override it.

Example:
  rsitrader sweep --csv data/2330.TW.csv --periods 7,14,21 --oversolds 20,30 --overboughts 70,80`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

var (
	swData       dataFlags
	swParams     paramFlags
	swPeriods    []int
	swOversold   []float64
	swOverbought []float64
	swWorkers    int
	swTop        int
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	swData.register(sweepCmd)
	swParams.register(sweepCmd.Flags())

	sweepCmd.Flags().IntSliceVar(&swPeriods, "periods", nil, "RSI periods to try")
	sweepCmd.Flags().Float64SliceVar(&swOversold, "oversolds", nil, "oversold thresholds to try")
	sweepCmd.Flags().Float64SliceVar(&swOverbought, "overboughts", nil, "overbought thresholds to try")
	sweepCmd.Flags().IntVarP(&swWorkers, "workers", "w", 0, "parallel runs (default from config, then GOMAXPROCS)")
	sweepCmd.Flags().IntVarP(&swTop, "top", "n", 0, "rows to print (default from config)")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	base := swParams.apply(cfg.Strategy)

	grid := cfg.Sweep.Grid
	if len(swPeriods) > 0 {
		grid.Periods = swPeriods
	}
	if len(swOversold) > 0 {
		grid.Oversold = swOversold
	}
	if len(swOverbought) > 0 {
		grid.Overbought = swOverbought
	}
	workers := swWorkers
	if workers == 0 {
		workers = cfg.Sweep.Workers
	}
	top := swTop
	if top == 0 {
		top = cfg.Sweep.Top
	}

	bars, err := swData.load(ctx)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}

	results, err := backtest.Sweep(ctx, bars, grid, base, workers)
	if err != nil {
		return err
	}
	backtest.SortByReturn(results)
	backtest.PrintSweep(cmd.OutOrStdout(), results, top)
	return nil
}
