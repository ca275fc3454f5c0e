package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Aadiaditya9421/hospital-management-system/internal/metrics"
)

// Metrics records request count and latency per route template.
func Metrics(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
