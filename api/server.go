// Package api exposes backtests, stored runs, scans and signals over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/rsitrader/backtest"
	"github.com/rustyeddy/rsitrader/journal"
	"github.com/rustyeddy/rsitrader/scan"
	"github.com/sirupsen/logrus"
)

// Runs is the part of the journal the API reads and writes.
type Runs interface {
	RecordBacktest(ctx context.Context, run journal.BacktestRun, res backtest.Result) error
	GetBacktestRun(ctx context.Context, runID string) (journal.BacktestRun, error)
	ListRuns(ctx context.Context, symbol string, limit int) ([]journal.RunSummary, error)
	ListTradesByRunID(ctx context.Context, runID string) ([]backtest.TradeRecord, error)
	ListEquityByRunID(ctx context.Context, runID string) ([]backtest.EquityPoint, error)
}

// Options wires the optional collaborators. Nil stores disable their routes
// with 503.
type Options struct {
	Addr  string
	Runs  Runs
	Scans scan.Store
}

type Server struct {
	engine *gin.Engine
	server *http.Server
	opts   Options
}

func NewServer(opts Options) *Server {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(loggerMiddleware())

	s := &Server{
		engine: engine,
		opts:   opts,
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.setupRoutes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() {
	h := NewHandler(s.opts.Runs, s.opts.Scans)

	api := s.engine.Group("/api")
	{
		api.POST("/backtest", h.PostBacktest)
		api.POST("/signal", h.PostSignal)

		api.GET("/runs", h.ListRuns)
		api.GET("/runs/:id", h.GetRun)
		api.GET("/runs/:id/trades", h.GetRunTrades)
		api.GET("/runs/:id/equity", h.GetRunEquity)

		api.GET("/scans/:key", h.GetScan)
	}

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Start blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) Start() error {
	logrus.WithField("addr", s.server.Addr).Info("api: listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Info("api: request")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
