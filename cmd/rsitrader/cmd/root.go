package cmd

import (
	"fmt"
	"os"

	"github.com/rustyeddy/rsitrader/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rsitrader",
	Short: "RSI lot-based backtesting and research for Taiwan equities",
	Long: `rsitrader backtests an RSI strategy that scales into a position in lots
and scales out on strength, with a stop-loss on the average cost.

It provides tools for:
  - Backtesting one symbol from CSV or Yahoo Finance
  - Sweeping RSI period and thresholds over a grid
  - Ranking the TWSE universe by trading value
  - Rule-based buy/sell/hold signals
  - Journaling runs to SQLite and serving them over HTTP`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfgFile  string
	logLevel string
	envFiles []string

	cfg *config.Config
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "environment files to load (default .env)")
}

func setup(cmd *cobra.Command, args []string) error {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := config.LoadEnv(envFiles...); err != nil {
		return err
	}

	if cfgFile != "" {
		c, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return err
		}
		cfg = c
	} else {
		cfg = config.Default()
		cfg.ApplyEnv()
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		logrus.SetLevel(lvl)
	}
	return nil
}
