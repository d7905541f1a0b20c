package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"lms-ai-backend/internal/logger"
)

// RequestLogger puts a request-scoped logger in the request context and logs
// one line per request once it completes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := logger.FromContext(c.Request.Context()).With("request_id", GetRequestID(c))
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), l))

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"bytes", c.Writer.Size(),
		}
		if userID := GetUserID(c); userID != "" {
			attrs = append(attrs, "user_id", userID)
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		l.Log(c.Request.Context(), level, "HTTP request", attrs...)
	}
}
