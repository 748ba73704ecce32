// Package server sets up the HTTP API around the scan service.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/nftsentry/internal/config"
	"github.com/mbd888/nftsentry/internal/health"
	"github.com/mbd888/nftsentry/internal/logging"
	"github.com/mbd888/nftsentry/internal/metrics"
	"github.com/mbd888/nftsentry/internal/ratelimit"
	"github.com/mbd888/nftsentry/internal/scan"
	"github.com/mbd888/nftsentry/internal/validation"
)

// Scanner is the subset of the scan service the HTTP layer needs.
type Scanner interface {
	AnalyzeWallet(ctx context.Context, address string) (*scan.WalletReport, error)
	CheckCollection(ctx context.Context, contract string) (*scan.CollectionReport, error)
	AnalyzeNFT(ctx context.Context, contract, tokenID string) (*scan.NFTAnalysis, error)
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg         *config.Config
	scanner     Scanner
	rateLimiter *ratelimit.Limiter
	healthReg   *health.Registry
	router      *gin.Engine
	httpSrv     *http.Server
	logger      *slog.Logger

	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRateLimiter replaces the default limiter (for tests).
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(s *Server) { s.rateLimiter = l }
}

// New creates a server around an initialized scan service.
func New(cfg *config.Config, scanner Scanner, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		scanner:   scanner,
		healthReg: health.NewRegistry(),
		logger:    logging.New(cfg.LogLevel, "json"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.rateLimiter == nil {
		rlCfg := ratelimit.DefaultConfig()
		rlCfg.RequestsPerMinute = cfg.RateLimitRPM
		s.rateLimiter = ratelimit.New(rlCfg)
	}

	s.healthy.Store(true)
	s.setupRouter()
	return s
}

// Health returns the health registry so callers can register checks.
func (s *Server) Health() *health.Registry { return s.healthReg }

func (s *Server) setupRouter() {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestIDMiddleware())
	r.Use(metrics.Middleware())
	r.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	r.GET("/health", s.handleHealth)
	r.GET("/ready", s.handleReady)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(s.rateLimiter.Middleware())
	api.Use(validation.AddressParamMiddleware())
	{
		api.GET("/wallet/:address/scan", s.handleScanWallet)
		api.GET("/collection/:address", s.handleCheckCollection)
		api.GET("/nft/:address/:tokenId", validation.TokenIDParamMiddleware(), s.handleAnalyzeNFT)
	}

	s.router = r
}

// Router exposes the configured engine (for tests).
func (s *Server) Router() http.Handler { return s.router }

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.ready.Store(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	}

	s.ready.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.rateLimiter.Stop()
	s.logger.Info("server stopped")
	return nil
}

// requestIDMiddleware tags every request with an ID and puts a
// request-scoped logger into the context for downstream packages.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = newRequestID()
		}
		ctx := logging.WithRequestID(c.Request.Context(), id)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func newRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}

func (s *Server) handleHealth(c *gin.Context) {
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())
	if !s.healthy.Load() {
		healthy = false
	}

	code := http.StatusOK
	status := "ok"
	if !healthy {
		code = http.StatusServiceUnavailable
		status = "degraded"
	}
	c.JSON(code, gin.H{"status": status, "checks": statuses})
}

func (s *Server) handleReady(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
