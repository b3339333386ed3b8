package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Middleware records one observation per HTTP request, labelled by route
// template so session ids stay out of the label set. Websocket upgrades are
// skipped: a stream lives for minutes and is tracked by the ws gauges.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if websocket.IsWebSocketUpgrade(c.Request) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
			max(c.Request.ContentLength, 0),
			int64(max(c.Writer.Size(), 0)),
		)
	}
}
