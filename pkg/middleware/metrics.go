package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tiagodcc/ikts/pkg/metrics"
)

// MetricsMiddleware observes every request by its route template, so
// "/api/v1/rails/:railId" is one series however many rails exist
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		switch route {
		case "/metrics":
			return
		case "":
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// MetricsEndpoint serves the Prometheus registry
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	return gin.WrapH(m.Handler())
}
