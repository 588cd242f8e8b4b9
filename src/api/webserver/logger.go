package webserver

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/crisistruth/src/logging"
)

func requestLogger() gin.HandlerFunc {
	log := logging.Component("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"dur", time.Since(start).Round(time.Millisecond),
			"ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}
