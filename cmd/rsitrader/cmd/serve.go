package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/rsitrader/api"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve backtests, runs and scans over HTTP",
	Long: `Serve starts the HTTP API. With a SQLite journal, posted backtests are
recorded and stored runs and scans can be read back.

Routes:
  GET  /health
  POST /api/backtest
  POST /api/signal
  GET  /api/runs
  GET  /api/runs/:id
  GET  /api/runs/:id/trades
  GET  /api/runs/:id/equity
  GET  /api/scans/:key

Example:
  rsitrader serve --addr :8080 --db runs.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	svAddr   string
	svDBPath string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&svAddr, "addr", "a", "", "listen address (default from config)")
	serveCmd.Flags().StringVarP(&svDBPath, "db", "d", "", "SQLite journal")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := svAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	opts := api.Options{Addr: addr}
	j, err := openJournal(svDBPath)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
		opts.Runs = j
		opts.Scans = j
	} else {
		logrus.Warn("serve: no journal configured, run and scan routes disabled")
	}

	srv := api.NewServer(opts)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logrus.Info("serve: shutting down")
		return srv.Shutdown(context.Background())
	}
}
