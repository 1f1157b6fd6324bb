package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rustyeddy/rsitrader/backtest"
	"github.com/rustyeddy/rsitrader/journal"
	"github.com/rustyeddy/rsitrader/pkg/id"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest the RSI lot strategy on one symbol",
	Long: `Backtest replays daily bars through the RSI lot strategy. Each bar takes at
most one action: stop-loss, full exit, partial exit, then entry.

Strategy parameters come from the config file; flags override them.

Examples:
  rsitrader backtest --csv data/2330.TW.csv
  rsitrader backtest --symbol 2330.TW --source yahoo --start 2023-01-01 --db runs.db
  rsitrader backtest --csv data/2330.TW.csv --period 9 --oversold 25 --org run.org`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

var (
	btData     dataFlags
	btParams   paramFlags
	btDBPath   string
	btOrgPath  string
	btTrades   string
	btEquity   string
	btNoReport bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	btData.register(backtestCmd)
	btParams.register(backtestCmd.Flags())

	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "SQLite journal to record the run in")
	backtestCmd.Flags().StringVar(&btOrgPath, "org", "", "write an Org report to this path (a directory uses <run-id>.org)")
	backtestCmd.Flags().StringVar(&btTrades, "trades", "", "write trades CSV")
	backtestCmd.Flags().StringVar(&btEquity, "equity", "", "write equity CSV")
	backtestCmd.Flags().BoolVarP(&btNoReport, "quiet", "q", false, "do not print the report")
}

// paramFlags overlay backtest.Params; only flags that were set apply.
type paramFlags struct {
	fs *pflag.FlagSet

	period          int
	oversold        float64
	overbought      float64
	partial         float64
	partialFraction float64
	capital         float64
	entryFraction   float64
	buyFee          float64
	sellFee         float64
	maxEntries      int
	stopLoss        float64
}

func (f *paramFlags) register(fs *pflag.FlagSet) {
	f.fs = fs
	d := backtest.DefaultParams()
	fs.IntVar(&f.period, "period", d.OscillatorPeriod, "RSI period")
	fs.Float64Var(&f.oversold, "oversold", d.OversoldThreshold, "RSI entry threshold")
	fs.Float64Var(&f.overbought, "overbought", d.OverboughtThreshold, "RSI full exit threshold")
	fs.Float64Var(&f.partial, "partial", d.PartialExitThreshold, "RSI partial exit threshold")
	fs.Float64Var(&f.partialFraction, "partial-fraction", d.PartialExitFraction, "fraction of lots sold on a partial exit")
	fs.Float64Var(&f.capital, "capital", d.InitialCapital, "starting cash")
	fs.Float64Var(&f.entryFraction, "entry-fraction", d.EntryFraction, "fraction of cash spent per entry")
	fs.Float64Var(&f.buyFee, "buy-fee", d.BuyFeeRate, "buy fee rate")
	fs.Float64Var(&f.sellFee, "sell-fee", d.SellFeeRate, "sell fee rate (fee plus tax)")
	fs.IntVar(&f.maxEntries, "max-entries", d.MaxEntries, "maximum open lots")
	fs.Float64Var(&f.stopLoss, "stop-loss", d.StopLossFraction, "stop-loss below average cost")
}

func (f *paramFlags) apply(p backtest.Params) backtest.Params {
	set := func(name string) bool { return f.fs.Changed(name) }
	if set("period") {
		p.OscillatorPeriod = f.period
	}
	if set("oversold") {
		p.OversoldThreshold = f.oversold
	}
	if set("overbought") {
		p.OverboughtThreshold = f.overbought
	}
	if set("partial") {
		p.PartialExitThreshold = f.partial
	}
	if set("partial-fraction") {
		p.PartialExitFraction = f.partialFraction
	}
	if set("capital") {
		p.InitialCapital = f.capital
	}
	if set("entry-fraction") {
		p.EntryFraction = f.entryFraction
	}
	if set("buy-fee") {
		p.BuyFeeRate = f.buyFee
	}
	if set("sell-fee") {
		p.SellFeeRate = f.sellFee
	}
	if set("max-entries") {
		p.MaxEntries = f.maxEntries
	}
	if set("stop-loss") {
		p.StopLossFraction = f.stopLoss
	}
	return p
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := btParams.apply(cfg.Strategy)
	if err := p.Validate(); err != nil {
		return err
	}

	bars, err := btData.load(ctx)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}

	res, err := backtest.Run(bars, p)
	if err != nil {
		return err
	}

	symbol := btData.symbolOr()
	if path := btData.csvPath(); path != "" && btData.symbol == "" {
		symbol = strings.TrimSuffix(filepath.Base(path), ".csv")
	}
	if !btNoReport {
		backtest.PrintResult(cmd.OutOrStdout(), symbol, res)
	}

	run := journal.NewBacktestRun(id.New(), symbol, btData.dataset(), res)

	j, err := openJournal(btDBPath)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
		if err := j.RecordBacktest(ctx, run, res); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nRun ID: %s\n", run.RunID)
	}

	if err := writeCSVJournal(run.RunID, res); err != nil {
		return err
	}

	org := btOrgPath
	if org == "" && cfg.Journal.OrgDir != "" {
		org = cfg.Journal.OrgDir
	}
	if org != "" {
		if filepath.Ext(org) != ".org" {
			org = filepath.Join(org, run.RunID+".org")
		}
		run.OrgPath = org
		if err := run.WriteBacktestOrg(res.Trades); err != nil {
			return fmt.Errorf("org report: %w", err)
		}
		logrus.WithField("path", org).Info("wrote org report")
	}
	return nil
}

// writeCSVJournal writes trades and equity when flags or the config ask for it.
func writeCSVJournal(runID string, res backtest.Result) error {
	trades, equity := btTrades, btEquity
	if trades == "" && equity == "" && cfg.Journal.Type == "csv" {
		trades, equity = cfg.Journal.TradesFile, cfg.Journal.EquityFile
	}
	if trades == "" && equity == "" {
		return nil
	}
	if trades == "" || equity == "" {
		return fmt.Errorf("--trades and --equity must be given together")
	}

	cj, err := journal.NewCSV(trades, equity)
	if err != nil {
		return fmt.Errorf("csv journal: %w", err)
	}
	if err := journal.Record(cj, runID, res); err != nil {
		_ = cj.Close()
		return fmt.Errorf("csv journal: %w", err)
	}
	return cj.Close()
}
