package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"ridebook/internal/logger"
)

// AccessLog writes one structured log line per request.
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		entry := log.WithContext(c.Request.Context()).WithFields(map[string]any{
			"method":      c.Request.Method,
			"path":        path,
			"route":       c.FullPath(),
			"status":      status,
			"latency_ms":  time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
			"bytes_out":   c.Writer.Size(),
			"replayed":    c.Writer.Header().Get(ReplayedHeader) == "true",
			"error_count": len(c.Errors),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}
