package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-workflow-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics observes every routed request under its route pattern. Requests
// that match no route share one label, and the paths in skip are not
// observed at all.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		skipped[path] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
