package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rustyeddy/rsitrader/journal"
	"github.com/rustyeddy/rsitrader/market"
	"github.com/spf13/cobra"
)

// dataFlags are shared by the commands that read bars.
type dataFlags struct {
	csv    string
	symbol string
	source string
	start  string
	end    string
}

func (d *dataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.csv, "csv", "", "bars CSV file (time,open,high,low,close[,volume])")
	cmd.Flags().StringVarP(&d.symbol, "symbol", "s", "", "symbol, e.g. 2330.TW (default from config)")
	cmd.Flags().StringVar(&d.source, "source", "", "data source: csv or yahoo (default from config)")
	cmd.Flags().StringVar(&d.start, "start", "", "first date to include")
	cmd.Flags().StringVar(&d.end, "end", "", "last date to include")
}

func (d *dataFlags) symbolOr() string {
	if d.symbol != "" {
		return d.symbol
	}
	return cfg.Data.Symbol
}

// csvPath is --csv, falling back to data.csv from the config.
func (d *dataFlags) csvPath() string {
	if d.csv != "" {
		return d.csv
	}
	return cfg.Data.CSV
}

func (d *dataFlags) dataset() string {
	if p := d.csvPath(); p != "" {
		return p
	}
	return d.sourceName() + ":" + d.symbolOr()
}

func (d *dataFlags) sourceName() string {
	if d.source != "" {
		return d.source
	}
	return cfg.Data.Source
}

func (d *dataFlags) window() (start, end time.Time, err error) {
	start, end, err = cfg.Data.Range()
	if err != nil {
		return
	}
	if d.start != "" {
		if start, err = dateparse.ParseIn(d.start, time.UTC); err != nil {
			return start, end, fmt.Errorf("--start: %w", err)
		}
	}
	if d.end != "" {
		if end, err = dateparse.ParseIn(d.end, time.UTC); err != nil {
			return start, end, fmt.Errorf("--end: %w", err)
		}
	}
	return start, end, nil
}

// marketSource returns the configured market data source.
func (d *dataFlags) marketSource() (market.Source, error) {
	switch d.sourceName() {
	case "yahoo":
		return market.YahooSource{Adjust: cfg.Data.Adjust}, nil
	case "csv":
		return market.CSVSource{Dir: cfg.Data.Dir}, nil
	default:
		return nil, fmt.Errorf("unknown source %q (supported: csv, yahoo)", d.sourceName())
	}
}

func (d *dataFlags) load(ctx context.Context) ([]market.Bar, error) {
	start, end, err := d.window()
	if err != nil {
		return nil, err
	}
	if p := d.csvPath(); p != "" {
		bars, err := market.LoadCSVFile(p)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		return market.Between(bars, start, end), nil
	}

	src, err := d.marketSource()
	if err != nil {
		return nil, err
	}
	return src.Bars(ctx, d.symbolOr(), start, end)
}

// openJournal opens the SQLite journal named by flag, falling back to the
// config. It returns nil when neither names one.
func openJournal(flag string) (*journal.SQLite, error) {
	path := flag
	if path == "" && cfg.Journal.Type == "sqlite" {
		path = cfg.Journal.DBPath
	}
	if path == "" {
		return nil, nil
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}
