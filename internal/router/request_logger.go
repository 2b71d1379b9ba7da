package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestLogger logs each request after it has been handled. Failures and
// detection runs are logged at Info or above; reads and probes at Debug.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := []zap.Field{
			zap.String("request_id", c.GetString(RequestIDContextKey)),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("trialID", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		level, msg := requestLevel(c.Request.Method, status)
		if ce := log.Check(level, msg); ce != nil {
			ce.Write(fields...)
		}
	}
}

func requestLevel(method string, status int) (zapcore.Level, string) {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel, "Request failed"
	case status == http.StatusTooManyRequests:
		return zapcore.WarnLevel, "Request rate limited"
	case status >= 400:
		return zapcore.WarnLevel, "Request rejected"
	case method == http.MethodPost:
		return zapcore.InfoLevel, "Request handled"
	default:
		return zapcore.DebugLevel, "Request handled"
	}
}
