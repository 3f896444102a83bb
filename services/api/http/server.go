package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/gzip"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/config"
	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg      config.Config
	registry *synthesis.Registry
	features *synthesis.ModelAccess
	series   *synthesis.ModelAccess
	metrics  *Metrics
	logger   *zap.Logger
	engine   *gin.Engine
}

// New constructs a server with routes and middleware. Collectors are
// registered with reg, which also backs /metrics.
func New(cfg config.Config, registry *synthesis.Registry, logger *zap.Logger, reg *prometheus.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	installValidators()

	engine := gin.New()
	engine.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))
	engine.Use(corsMiddleware())

	if cfg.BearerToken != "" {
		engine.Use(bearerAuthMiddleware(cfg.BearerToken))
	}

	server := &Server{
		cfg:      cfg,
		registry: registry,
		features: synthesis.NewMonitoringFeatureAccess(registry, synthesis.WithLogger(logger)),
		series:   synthesis.NewTimeseriesAccess(registry, synthesis.WithLogger(logger)),
		metrics:  NewMetrics(reg),
		logger:   logger,
		engine:   engine,
	}
	server.registerRoutes(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
