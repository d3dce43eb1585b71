package middleware

import (
  "time"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an id and logs completion with timing.
func RequestID(log *logger.Logger) gin.HandlerFunc {
  return func(c *gin.Context) {
    requestID := c.GetHeader(RequestIDHeader)
    if requestID == "" {
      requestID = uuid.New().String()
    }
    c.Set("request_id", requestID)
    c.Writer.Header().Set(RequestIDHeader, requestID)

    start := time.Now()
    c.Next()

    log.Info("Request completed",
      "request_id", requestID,
      "method", c.Request.Method,
      "path", c.FullPath(),
      "status", c.Writer.Status(),
      "duration_ms", time.Since(start).Milliseconds(),
      "client_ip", c.ClientIP(),
    )
  }
}
