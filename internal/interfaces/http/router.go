// Package http exposes the broker over a gin HTTP API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CTS-Broker/internal/application/smilesfilter"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CTS-Broker/internal/interfaces/http/handlers"
	"github.com/turtacn/CTS-Broker/internal/interfaces/http/middleware"
)

const defaultMetricsPath = "/metrics"

// RouterConfig holds the route dependencies. Filter and Registry are
// required; the rest are optional.
type RouterConfig struct {
	Filter   smilesfilter.Service
	Registry handlers.Dispatcher
	// Jobs enables POST /api/v1/pchem/jobs.
	Jobs handlers.JobSubmitter

	Checkers []handlers.HealthChecker
	Version  string

	Logger  logging.Logger
	Metrics *prometheus.BrokerMetrics
	// MetricsHandler is served on MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string

	Mode        string
	MaxBodySize int64
	CORS        *middleware.CORSConfig
	Logging     *middleware.LoggingConfig
}

// NewRouter builds the gin engine. Middleware order: request id, logging,
// recovery, metrics, body limit, CORS.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m := cfg.Metrics
	if m == nil {
		m = prometheus.NewNopBrokerMetrics()
	}
	logCfg := middleware.DefaultLoggingConfig()
	if cfg.Logging != nil {
		logCfg = *cfg.Logging
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogging(logger, logCfg),
		middleware.Recovery(logger),
		middleware.Metrics(m),
		middleware.BodyLimit(cfg.MaxBodySize),
	)
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.NoRoute(handlers.NotFound)

	handlers.NewHealthHandler(cfg.Version, cfg.Checkers...).RegisterRoutes(r)
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = defaultMetricsPath
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	v1 := r.Group("/api/v1")
	handlers.NewSMILESHandler(cfg.Filter).RegisterRoutes(v1)
	handlers.NewPchemHandler(cfg.Registry, cfg.Jobs).RegisterRoutes(v1)

	return r
}
