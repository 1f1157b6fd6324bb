package journal

import (
	"bytes"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/rsitrader/backtest"
)

var backtestOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

type orgView struct {
	BacktestRun
	TradeLog []backtest.TradeRecord
}

// RenderBacktestOrg renders run, and its trades if any, as an Org entry.
func RenderBacktestOrg(run BacktestRun, trades []backtest.TradeRecord) (string, error) {
	buf := new(bytes.Buffer)
	if err := backtestOrg.Execute(buf, orgView{BacktestRun: run, TradeLog: trades}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteBacktestOrg renders the run to OrgPath.
func (v *BacktestRun) WriteBacktestOrg(trades []backtest.TradeRecord) error {
	s, err := RenderBacktestOrg(*v, trades)
	if err != nil {
		return err
	}
	return os.WriteFile(v.OrgPath, []byte(s), 0644)
}

const BacktestOrgTemplate = `
* BACKTEST: RSI lots {{.Symbol}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    rsi_lots
:SYMBOL:      {{.Symbol}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:BARS:        {{.UsableBars}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:PROFIT_FAC:  {{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(no losses){{end}}
:OPEN_LOTS:   {{.OpenLots}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter        | Value |
|------------------+-------|
| RSI period       | {{.Params.OscillatorPeriod}} |
| Oversold         | {{printf "%.1f" .Params.OversoldThreshold}} |
| Partial exit     | {{printf "%.1f" .Params.PartialExitThreshold}} |
| Overbought       | {{printf "%.1f" .Params.OverboughtThreshold}} |
| Partial fraction | {{printf "%.2f" .Params.PartialExitFraction}} |
| Entry % of cash  | {{printf "%.2f" (mul100 .Params.EntryFraction)}} |
| Max entries      | {{.Params.MaxEntries}} |
| Stop loss %      | {{printf "%.2f" (mul100 .Params.StopLossFraction)}} |
| Buy fee %        | {{printf "%.4f" (mul100 .Params.BuyFeeRate)}} |
| Sell fee %       | {{printf "%.4f" (mul100 .Params.SellFeeRate)}} |

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Win Rate:         *{{printf "%.2f" (mul100 .WinRate)}}%*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |

{{- if .TradeLog }}

** Trades
| Date | Kind | Shares | Avg Cost | Exit | Return % |
|------+------+--------+----------+------+----------|
{{- range .TradeLog }}
| {{.Time.Format "2006-01-02"}} | {{.Kind}} | {{.Shares}} | {{printf "%.2f" .AvgCost}} | {{printf "%.2f" .ExitPrice}} | {{printf "%.2f" (mul100 .ReturnFraction)}} |
{{- end }}
{{- end }}

{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}

{{- if .NextActions }}

** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`
