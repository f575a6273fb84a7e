package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/prometheus"
)

const unmatchedRoute = "unmatched"

// Metrics records request counts, durations and the in-flight gauge. Paths
// are labelled by route template to keep cardinality bounded.
func Metrics(m *prometheus.BrokerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := m.HTTPActiveRequests.WithLabelValues()
		active.Inc()
		start := time.Now()

		c.Next()

		active.Dec()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		prometheus.RecordHTTPRequest(m, c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
