package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// requestLogger logs every request once it has been handled
func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("Request failed")
			return
		}
		entry.Debug("Request served")
	}
}

// noCache sets Cache-Control so browsers revalidate static files. Used
// outside production to pick up frontend changes.
func noCache(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if enabled {
			c.Header("Cache-Control", "private, no-cache")
		}
		c.Next()
	}
}
