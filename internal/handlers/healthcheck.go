package handlers

import (
  "net/http"
  "time"

  "github.com/gin-gonic/gin"

  "github.com/nexalyze/nexalyze-backend/internal/clients/rediscache"
  "github.com/nexalyze/nexalyze-backend/internal/db"
  "github.com/nexalyze/nexalyze-backend/internal/logger"
)

type HealthHandler struct {
  log      *logger.Logger
  postgres *db.PostgresService
  cache    rediscache.Client
  aiReady  bool
}

func NewHealthHandler(baseLog *logger.Logger, postgres *db.PostgresService, cache rediscache.Client, aiReady bool) *HealthHandler {
  return &HealthHandler{
    log:      baseLog.With("handler", "HealthHandler"),
    postgres: postgres,
    cache:    cache,
    aiReady:  aiReady,
  }
}

// Check handles GET /health. Returns 503 when any dependency is down.
func (h *HealthHandler) Check(c *gin.Context) {
  ctx := c.Request.Context()
  components := gin.H{}
  healthy := true

  if err := h.postgres.Ping(); err != nil {
    components["postgres"] = "down"
    healthy = false
  } else {
    components["postgres"] = "up"
  }

  if h.cache == nil {
    components["redis"] = "not configured"
  } else if err := h.cache.Ping(ctx); err != nil {
    components["redis"] = "down"
    healthy = false
  } else {
    components["redis"] = "up"
  }

  if h.aiReady {
    components["ai"] = "configured"
  } else {
    components["ai"] = "not configured"
    healthy = false
  }

  status := "healthy"
  code := http.StatusOK
  if !healthy {
    status = "degraded"
    code = http.StatusServiceUnavailable
  }
  c.JSON(code, gin.H{
    "status":     status,
    "components": components,
    "timestamp":  time.Now().UTC().Format(time.RFC3339),
  })
}

// Root handles GET /.
func (h *HealthHandler) Root(c *gin.Context) {
  c.JSON(http.StatusOK, gin.H{
    "service": "nexalyze-backend",
    "status":  "running",
    "docs":    "/api/v1",
  })
}
