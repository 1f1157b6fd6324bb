package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/rsitrader/backtest"
	"github.com/rustyeddy/rsitrader/journal"
	"github.com/rustyeddy/rsitrader/market"
	"github.com/rustyeddy/rsitrader/pkg/id"
	"github.com/rustyeddy/rsitrader/scan"
	"github.com/rustyeddy/rsitrader/signals"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	runs  Runs
	scans scan.Store
}

func NewHandler(runs Runs, scans scan.Store) *Handler {
	return &Handler{runs: runs, scans: scans}
}

// BacktestRequest is the body of POST /api/backtest. Params fields that are
// left out keep their defaults.
type BacktestRequest struct {
	Symbol string          `json:"symbol"`
	Bars   []market.Bar    `json:"bars"`
	Params json.RawMessage `json:"params,omitempty"`
}

type SignalRequest struct {
	Bars  []market.Bar    `json:"bars"`
	Rules json.RawMessage `json:"rules,omitempty"`
}

// writeError maps domain errors onto status codes.
func writeError(c *gin.Context, err error) {
	var ce *backtest.ConfigurationError
	switch {
	case errors.As(err, &ce):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": ce.Field})
	case errors.Is(err, market.ErrInvalidSeries):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, backtest.ErrInsufficientData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, journal.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		logrus.WithError(err).Error("api: request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " storage is not configured"})
}

// PostBacktest runs the strategy on the posted bars and journals the run
// when a store is attached.
func (h *Handler) PostBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := backtest.DefaultParams()
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "params: " + err.Error()})
			return
		}
	}

	res, err := backtest.Run(req.Bars, p)
	if err != nil {
		writeError(c, err)
		return
	}

	body := gin.H{"code": 0, "data": res}
	if h.runs != nil {
		run := journal.NewBacktestRun(id.New(), req.Symbol, "api", res)
		if err := h.runs.RecordBacktest(c.Request.Context(), run, res); err != nil {
			writeError(c, err)
			return
		}
		body["run_id"] = run.RunID
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) PostSignal(c *gin.Context) {
	var req SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rules := signals.DefaultRules()
	if len(req.Rules) > 0 {
		if err := json.Unmarshal(req.Rules, &rules); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rules: " + err.Error()})
			return
		}
	}

	sig, err := signals.Evaluate(req.Bars, rules)
	if err != nil {
		if errors.Is(err, backtest.ErrInsufficientData) {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": sig})
}

func (h *Handler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		unavailable(c, "run")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}
	runs, err := h.runs.ListRuns(c.Request.Context(), c.Query("symbol"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "count": len(runs), "data": runs})
}

func (h *Handler) GetRun(c *gin.Context) {
	if h.runs == nil {
		unavailable(c, "run")
		return
	}
	run, err := h.runs.GetBacktestRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": run})
}

func (h *Handler) GetRunTrades(c *gin.Context) {
	if h.runs == nil {
		unavailable(c, "run")
		return
	}
	ctx := c.Request.Context()
	runID := c.Param("id")
	if _, err := h.runs.GetBacktestRun(ctx, runID); err != nil {
		writeError(c, err)
		return
	}
	trades, err := h.runs.ListTradesByRunID(ctx, runID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "count": len(trades), "data": trades})
}

func (h *Handler) GetRunEquity(c *gin.Context) {
	if h.runs == nil {
		unavailable(c, "run")
		return
	}
	ctx := c.Request.Context()
	runID := c.Param("id")
	if _, err := h.runs.GetBacktestRun(ctx, runID); err != nil {
		writeError(c, err)
		return
	}
	eq, err := h.runs.ListEquityByRunID(ctx, runID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "count": len(eq), "data": eq})
}

func (h *Handler) GetScan(c *gin.Context) {
	if h.scans == nil {
		unavailable(c, "scan")
		return
	}
	records, err := h.scans.Read(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "count": len(records), "data": records})
}
