package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sdragent/logger"
	"sdragent/middleware"
)

const requestIDKey = "request_id"

// RequestID reuses the caller's X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(middleware.HEADER_REQUEST_ID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(middleware.HEADER_REQUEST_ID, id)
		c.Next()
	}
}

// Logger logs method, path, status and latency.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", duration.String(),
			"request_id", c.GetString(requestIDKey),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request", kv...)
		case status >= 400:
			log.Warn("request", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}
