package cmd

import (
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/rsitrader/market"
	"github.com/rustyeddy/rsitrader/scan"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [symbol...]",
	Short: "Rank symbols by trading value",
	Long: `Scan fetches the latest bar of each symbol and ranks them by trading value
(close x volume, in units of 100 million). With no symbols the TWSE listing
is downloaded; if that fails the 1101-1200 range is used.

Results are appended to the SQLite journal under --key when one is configured.

Examples:
  rsitrader scan --limit 50 --db runs.db
  rsitrader scan 2330.TW 2317.TW 2454.TW`,
	RunE: runScan,
}

var (
	scData     dataFlags
	scLimit    int
	scWorkers  int
	scKey      string
	scDBPath   string
	scFallback bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scData.source, "source", "yahoo", "data source: csv or yahoo")
	scanCmd.Flags().IntVarP(&scLimit, "limit", "l", 0, "scan at most this many symbols (default from config)")
	scanCmd.Flags().IntVarP(&scWorkers, "workers", "w", 0, "concurrent fetches (default from config)")
	scanCmd.Flags().StringVarP(&scKey, "key", "k", "", "result key in the journal (default from config)")
	scanCmd.Flags().StringVarP(&scDBPath, "db", "d", "", "SQLite journal to append results to")
	scanCmd.Flags().BoolVar(&scFallback, "offline", false, "skip the TWSE listing and use the fallback range")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	symbols := args
	if len(symbols) == 0 {
		if scFallback {
			symbols = market.FallbackTickers()
		} else {
			client := &http.Client{Timeout: 30 * time.Second}
			symbols = market.Tickers(ctx, client, cfg.Scan.ListingURL)
		}
	}

	src, err := scData.marketSource()
	if err != nil {
		return err
	}
	s := &scan.Scanner{
		Source:  src,
		Limit:   firstNonZero(scLimit, cfg.Scan.Limit),
		Workers: firstNonZero(scWorkers, cfg.Scan.Workers),
	}
	records, err := s.Run(ctx, symbols)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tDATE\tSYMBOL\tPRICE\tVALUE(億)")
	for i, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, r.Date, r.Symbol, r.Price.StringFixed(2), r.Value.StringFixed(2))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	j, err := openJournal(scDBPath)
	if err != nil {
		return err
	}
	if j == nil {
		return nil
	}
	defer j.Close()

	key := scKey
	if key == "" {
		key = cfg.Scan.Key
	}
	var store scan.Store = j
	if err := store.Write(ctx, key, records); err != nil {
		return fmt.Errorf("store scan: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nStored %d records under %q\n", len(records), key)
	return nil
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
