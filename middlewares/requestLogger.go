package middlewares

import (
	"log/slog"
	"strconv"
	"time"

	"civictrack-be/logger"
	"civictrack-be/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader  = "X-Request-ID"
	loggerContextKey = "logger"
)

// RequestLogger tags each request with an id, stores a request-scoped logger
// and records the access line and latency once the handler returns.
func RequestLogger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		reqLogger := l.With("request_id", requestID)
		c.Set(loggerContextKey, reqLogger)

		start := time.Now()
		c.Next()
		dur := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RequestDurationMs.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(float64(dur.Milliseconds()))

		reqLogger.Debug("http_access",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", dur.Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}

// RequestLog returns the request-scoped logger, or the default logger
// outside RequestLogger.
func RequestLog(c *gin.Context) *slog.Logger {
	return requestLogger(c)
}

func requestLogger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerContextKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return logger.L()
}
