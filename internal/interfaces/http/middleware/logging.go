package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

const errorCodeKey = "error_code"

// SetErrorCode records the error code answered for the request so the
// request log line carries it.
func SetErrorCode(c *gin.Context, code errors.ErrorCode) {
	c.Set(errorCodeKey, code)
}

// GetErrorCode returns the code stored by SetErrorCode.
func GetErrorCode(c *gin.Context) (errors.ErrorCode, bool) {
	v, ok := c.Get(errorCodeKey)
	if !ok {
		return "", false
	}
	code, ok := v.(errors.ErrorCode)
	return code, ok
}

// LoggingConfig holds configuration for the request logging middleware.
type LoggingConfig struct {
	// SkipPaths are not logged, e.g. probes and the metrics scrape.
	SkipPaths []string

	// SlowThreshold is the duration above which a request is logged at warn.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig skips the probe and scrape endpoints.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 3 * time.Second,
	}
}

// RequestLogging logs one line per request. Server errors are logged at
// error, client errors and slow requests at warn. A code stored with
// SetErrorCode decides the class; otherwise the status does.
func RequestLogging(logger logging.Logger, config LoggingConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}
	logger = logger.Named("http")

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", path),
			logging.Int("status", status),
			logging.Duration("duration", duration),
			logging.Int("bytes", c.Writer.Size()),
			logging.String("remote_addr", c.ClientIP()),
		}
		if ua := c.Request.UserAgent(); ua != "" {
			fields = append(fields, logging.String("user_agent", ua))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		serverErr, clientErr := status >= 500, status >= 400
		if code, ok := GetErrorCode(c); ok {
			fields = append(fields,
				logging.String("error_code", code.String()),
				logging.String("error_module", errors.ModuleForCode(code)))
			serverErr, clientErr = errors.IsServerError(code), errors.IsClientError(code)
		}

		log := logger.WithContext(c.Request.Context())
		switch {
		case serverErr:
			log.Error("HTTP request completed with server error", fields...)
		case clientErr:
			log.Warn("HTTP request completed with client error", fields...)
		case config.SlowThreshold > 0 && duration >= config.SlowThreshold:
			log.Warn("HTTP request completed (slow)", fields...)
		default:
			log.Info("HTTP request completed", fields...)
		}
	}
}
