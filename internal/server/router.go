package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/nexalyze/nexalyze-backend/internal/handlers"
  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/middleware"
)

type RouterConfig struct {
  Log               *logger.Logger
  RateLimiter       *middleware.RateLimiter
  HealthHandler     *handlers.HealthHandler
  ChatHandler       *handlers.ChatHandler
  ReportHandler     *handlers.ReportHandler
  CompanyHandler    *handlers.CompanyHandler
  HackerNewsHandler *handlers.HackerNewsHandler
  ScrapeHandler     *handlers.ScrapeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.New()
  router.Use(gin.Recovery())
  router.Use(middleware.RequestID(cfg.Log))

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5173",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

// ===============
// || Public    ||
// ===============
  router.GET("/", cfg.HealthHandler.Root)
  router.GET("/health", cfg.HealthHandler.Check)

// ===============
// || API v1    ||
// ===============
  api := router.Group("/api/v1")
  api.Use(middleware.RateLimit(cfg.RateLimiter))
  {
    // Chat
    api.POST("/chat", cfg.ChatHandler.Stream)
    api.GET("/chat/history/:session_id", cfg.ChatHandler.History)
    api.DELETE("/chat/history/:session_id", cfg.ChatHandler.ClearHistory)

    // Reports
    api.POST("/generate-comprehensive-report-background", cfg.ReportHandler.Generate)
    api.GET("/report-tasks", cfg.ReportHandler.List)
    api.GET("/report-tasks/:task_id", cfg.ReportHandler.TaskStatus)
    api.POST("/report-tasks/cleanup", cfg.ReportHandler.Cleanup)
    api.GET("/download-report/:filename", cfg.ReportHandler.Download)

    // Companies
    api.GET("/companies", cfg.CompanyHandler.Search)
    api.GET("/companies/:id", cfg.CompanyHandler.Details)
    api.GET("/companies/:id/knowledge-graph", cfg.CompanyHandler.KnowledgeGraph)
    api.GET("/stats", cfg.CompanyHandler.Stats)
    api.POST("/sync-data", cfg.CompanyHandler.SyncData)

    // Hacker News
    api.GET("/hackernews/mentions/:company", cfg.HackerNewsHandler.Mentions)
    api.GET("/hackernews/latest", cfg.HackerNewsHandler.Latest)

    // Scraping
    api.POST("/scrape/betalist", cfg.ScrapeHandler.BetaList)
    api.POST("/scrape/discover", cfg.ScrapeHandler.SerpDiscover)
  }

  return router
}
