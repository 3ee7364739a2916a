package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sempower/app"
	"sempower/internal"
)

// Server exposes the power calculator and design services over HTTP
type Server struct {
	router      *gin.Engine
	power       *app.PowerService
	metrics     *Metrics
	logger      *internal.Logger
	targetPower float64
}

// ServerOptions configures a Server
type ServerOptions struct {
	TargetPower float64
	Registry    *prometheus.Registry
}

// NewServer wires the routes. A nil registry gets a fresh one so servers
// built in tests do not collide on the global registerer.
func NewServer(powerService *app.PowerService, logger *internal.Logger, opts ServerOptions) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if opts.TargetPower == 0 {
		opts.TargetPower = 0.8
	}

	s := &Server{
		router:      gin.New(),
		power:       powerService,
		metrics:     NewMetrics(reg),
		logger:      logger,
		targetPower: opts.TargetPower,
	}
	s.router.Use(gin.Recovery(), s.metrics.Middleware())
	s.setupRoutes(reg)
	return s
}

func (s *Server) setupRoutes(reg *prometheus.Registry) {
	s.router.GET("/healthz", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/v1")
	{
		v1.GET("/critical-value", s.criticalValue)
		v1.POST("/power", s.computePower)
		v1.POST("/multiplier", s.multiplier)
		v1.POST("/designs/analyze", s.analyzeDesign)
		v1.POST("/designs/plan", s.planDesign)
	}
}

// Handler returns the router for embedding or testing
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
