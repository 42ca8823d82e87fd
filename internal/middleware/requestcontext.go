package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
	"github.com/escriba-legal/escriba-backend/internal/requestdata"
)

// AttachRequestContext assigns every request an id and stashes it with the
// caller-supplied client id so handlers and services log against the same
// correlation keys.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := &requestdata.RequestData{
			RequestID: uuid.New(),
			ClientID:  c.GetHeader("X-Client-ID"),
		}
		ctx := requestdata.WithRequestData(c.Request.Context(), rd)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", rd.RequestID.String())
		c.Next()
	}
}

// RequestLogger logs one line per request after it completes.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	accessLog := log.With("component", "AccessLog")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil {
			fields = append(fields, "request_id", rd.RequestID)
			if rd.ClientID != "" {
				fields = append(fields, "client_id", rd.ClientID)
			}
		}
		if c.Writer.Status() >= 500 {
			accessLog.Error("request failed", fields...)
			return
		}
		accessLog.Info("request", fields...)
	}
}
