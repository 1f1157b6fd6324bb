package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/rustyeddy/rsitrader/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query recorded backtest runs",
	Long: `Query backtest runs recorded in the SQLite journal.

Subcommands:
  show - Print a stored run as an Org entry
  list - List the most recent runs

Examples:
  rsitrader journal list --symbol 2330.TW
  rsitrader journal show 01J0Z3Q6N8V5XK7M2D4B9C1A0E`,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var (
	journalDBPath string
	journalSymbol string
	journalLimit  int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalListCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default from config)")
	journalListCmd.Flags().StringVarP(&journalSymbol, "symbol", "s", "", "only runs for this symbol")
	journalListCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "maximum runs to list")
}

func mustJournal() (*journal.SQLite, error) {
	j, err := openJournal(journalDBPath)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, errors.New("no journal: pass --db or set journal.type sqlite")
	}
	return j, nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := mustJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	org, err := j.ExportBacktestOrg(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), org)
	return nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	j, err := mustJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context(), journalSymbol, journalLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tCREATED\tSYMBOL\tRETURN %\tTRADES")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d\n", r.RunID, r.Created.Format("2006-01-02 15:04"), r.Symbol, r.ReturnPct, r.Trades)
	}
	return w.Flush()
}
