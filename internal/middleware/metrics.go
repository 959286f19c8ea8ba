package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lemore-app/lemore-api/internal/service"
)

// Metrics records method, route, status and latency for every request.
// Unmatched paths fall back to the raw URL so 404 traffic stays visible.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
