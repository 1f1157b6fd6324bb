package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/rsitrader/backtest"
)

var (
	tradesHeader = []string{"run_id", "kind", "time", "shares", "lots", "avg_cost", "exit_price", "net_exit_price", "return_fraction", "proceeds", "pnl"}
	equityHeader = []string{"run_id", "time", "equity"}
)

type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

var _ Journal = (*CSVJournal)(nil)

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	j := &CSVJournal{csv.NewWriter(tf), csv.NewWriter(ef), tf, ef}
	if err := j.write(j.trades, tradesHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.write(j.equity, equityHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) write(w *csv.Writer, rec []string) error {
	if err := w.Write(rec); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) RecordTrade(runID string, t backtest.TradeRecord) error {
	return j.write(j.trades, []string{
		runID,
		string(t.Kind),
		t.Time.Format(time.RFC3339),
		strconv.FormatInt(t.Shares, 10),
		strconv.Itoa(t.Lots),
		f(t.AvgCost),
		f(t.ExitPrice),
		f(t.NetExitPrice),
		f(t.ReturnFraction),
		f(t.Proceeds),
		f(t.PnL),
	})
}

func (j *CSVJournal) RecordEquity(runID string, e backtest.EquityPoint) error {
	return j.write(j.equity, []string{
		runID,
		e.Time.Format(time.RFC3339),
		f(e.Equity),
	})
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
