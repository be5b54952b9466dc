package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"asset-uploader/internal/metrics"
)

// unmatchedEndpoint labels requests that hit no route, keeping label cardinality bounded.
const unmatchedEndpoint = "unmatched"

// Metrics records HTTP request metrics
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = unmatchedEndpoint
		}

		metrics.RecordRequest(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
