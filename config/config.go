package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/joho/godotenv"
	"github.com/rustyeddy/rsitrader/backtest"
	"github.com/rustyeddy/rsitrader/market"
	"github.com/rustyeddy/rsitrader/signals"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the file is read.
const (
	EnvDBPath   = "RSITRADER_DB_PATH"
	EnvAddr     = "RSITRADER_ADDR"
	EnvLogLevel = "RSITRADER_LOG_LEVEL"
)

// Config represents everything the rsitrader commands read.
type Config struct {
	LogLevel string          `json:"log_level" yaml:"log_level"`
	Strategy backtest.Params `json:"strategy" yaml:"strategy"`
	Data     DataConfig      `json:"data" yaml:"data"`
	Journal  JournalConfig   `json:"journal" yaml:"journal"`
	Sweep    SweepConfig     `json:"sweep" yaml:"sweep"`
	Scan     ScanConfig      `json:"scan" yaml:"scan"`
	Signals  signals.Rules   `json:"signals" yaml:"signals"`
	Server   ServerConfig    `json:"server" yaml:"server"`
}

// DataConfig picks where bars come from.
type DataConfig struct {
	Source string `json:"source" yaml:"source"` // "csv" or "yahoo"
	CSV    string `json:"csv,omitempty" yaml:"csv,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Symbol string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Start  string `json:"start,omitempty" yaml:"start,omitempty"`
	End    string `json:"end,omitempty" yaml:"end,omitempty"`
	Adjust bool   `json:"adjust,omitempty" yaml:"adjust,omitempty"`
}

// JournalConfig contains journaling parameters. An empty Type disables it.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrgDir     string `json:"org_dir,omitempty" yaml:"org_dir,omitempty"`
}

type SweepConfig struct {
	Grid    backtest.Grid `json:"grid" yaml:"grid"`
	Workers int           `json:"workers" yaml:"workers"`
	Top     int           `json:"top" yaml:"top"`
}

type ScanConfig struct {
	Key        string `json:"key" yaml:"key"`
	Limit      int    `json:"limit" yaml:"limit"`
	Workers    int    `json:"workers" yaml:"workers"`
	ListingURL string `json:"listing_url" yaml:"listing_url"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Range parses Start and End. Missing values are zero times.
func (d DataConfig) Range() (start, end time.Time, err error) {
	if d.Start != "" {
		if start, err = dateparse.ParseIn(d.Start, time.UTC); err != nil {
			return start, end, fmt.Errorf("data.start: %w", err)
		}
	}
	if d.End != "" {
		if end, err = dateparse.ParseIn(d.End, time.UTC); err != nil {
			return start, end, fmt.Errorf("data.end: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, errors.New("data.end is before data.start")
	}
	return start, end, nil
}

// LoadFromFile reads a YAML or JSON file over Default and applies the
// environment overrides.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", jerr)
		}
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// LoadEnv loads .env style files into the process environment. Missing
// files are ignored; with no arguments ./.env is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
		logrus.WithField("file", f).Debug("loaded environment file")
	}
	return nil
}

// ApplyEnv overlays RSITRADER_* variables. Setting a database path turns
// on the sqlite journal.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Journal.Type = "sqlite"
		c.Journal.DBPath = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	switch c.Data.Source {
	case "csv", "yahoo":
	default:
		return fmt.Errorf("data.source must be 'csv' or 'yahoo', got %q", c.Data.Source)
	}
	if _, _, err := c.Data.Range(); err != nil {
		return err
	}
	switch c.Journal.Type {
	case "":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be '', 'csv' or 'sqlite'")
	}
	if c.Sweep.Workers < 0 {
		return fmt.Errorf("sweep.workers must not be negative")
	}
	if c.Scan.Limit < 0 || c.Scan.Workers < 0 {
		return fmt.Errorf("scan.limit and scan.workers must not be negative")
	}
	if err := c.Signals.Validate(); err != nil {
		return fmt.Errorf("signals: %w", err)
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Strategy: backtest.DefaultParams(),
		Data: DataConfig{
			Source: "csv",
			Dir:    "./data",
			Symbol: "2330.TW",
			Adjust: true,
		},
		Journal: JournalConfig{
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Sweep: SweepConfig{
			Grid: backtest.Grid{
				Periods:    []int{7, 14, 21},
				Oversold:   []float64{20, 25, 30},
				Overbought: []float64{70, 75, 80},
			},
			Top: 10,
		},
		Scan: ScanConfig{
			Key:        "trading-value",
			Limit:      100,
			Workers:    8,
			ListingURL: market.TWSEListingURL,
		},
		Signals: signals.DefaultRules(),
		Server:  ServerConfig{Addr: ":8080"},
	}
}
