package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aditpras/civil-registry-api/internal/service"
)

// Metrics times every request and feeds the outcome to the metrics
// service. Unmatched routes fall back to the raw URL path so 404s are
// still counted, at the cost of unbounded label values for them.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
