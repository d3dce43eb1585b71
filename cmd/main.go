package main

import (
  "context"
  "fmt"
  "os"

  "github.com/nexalyze/nexalyze-backend/internal/clients/neo4jdb"
  "github.com/nexalyze/nexalyze-backend/internal/clients/rediscache"
  "github.com/nexalyze/nexalyze-backend/internal/config"
  "github.com/nexalyze/nexalyze-backend/internal/db"
  "github.com/nexalyze/nexalyze-backend/internal/handlers"
  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/middleware"
  "github.com/nexalyze/nexalyze-backend/internal/repos"
  "github.com/nexalyze/nexalyze-backend/internal/server"
  "github.com/nexalyze/nexalyze-backend/internal/services"
)

func main() {
  // Config
  cfg, err := config.Load()
  if err != nil {
    fmt.Printf("Failed to load config: %v\n", err)
    os.Exit(1)
  }

  // Logger
  log, err := logger.New(cfg.LogMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Redis
  cache, err := rediscache.New(log)
  if err != nil {
    log.Warn("Redis init failed, caching and chat history disabled", "error", err)
    cache = nil
  }

  // Neo4j (optional)
  graph, err := neo4jdb.NewFromEnv(log)
  if err != nil {
    log.Warn("Neo4j init failed, knowledge graph degraded", "error", err)
    graph = nil
  }

  // Repos
  log.Info("Setting up Repos from main...")
  companyRepo := repos.NewCompanyRepo(thePG, log)
  reportTaskRepo := repos.NewReportTaskRepo(thePG, log)

  // Services
  log.Info("Setting up Services from main...")
  anthropicClient, err := services.NewAnthropicClient(log, cfg.AnthropicAPIKey, cfg.AnthropicModel)
  if err != nil {
    log.Error("Could not init AnthropicClient", "error", err)
    os.Exit(1)
  }
  geminiClient, err := services.NewGeminiClient(log, cfg.GeminiAPIKey, cfg.GeminiModel)
  if err != nil {
    log.Warn("Could not init GeminiClient, report text generation degraded", "error", err)
    geminiClient = nil
  }

  dataService := services.NewCompanyDataService(thePG, log, companyRepo, cache, graph, cfg.CacheTTLSearch, cfg.CacheTTLDefault)
  researchService := services.NewResearchService(log, dataService, geminiClient, cache, cfg.CacheTTLDefault)
  chartService, err := services.NewChartService(log, cfg.ChartsDir)
  if err != nil {
    log.Error("Could not init ChartService", "error", err)
    os.Exit(1)
  }
  reportService, err := services.NewReportGenerationService(
    log,
    reportTaskRepo,
    dataService,
    researchService,
    geminiClient,
    chartService,
    cfg.ReportsDir,
    cfg.SectionConcurrency,
    cfg.TaskRetention,
    cfg.ReportCleanupDays,
  )
  if err != nil {
    log.Error("Could not init ReportGenerationService", "error", err)
    os.Exit(1)
  }
  reportService.StartWorker(context.Background())
  reportService.StartCleanup(context.Background())

  toolRegistry := services.NewChatToolRegistry(log, dataService, researchService, reportService)
  chatService := services.NewChatAgentService(log, anthropicClient, toolRegistry, cache, cfg.MaxToolRounds, cfg.ToolTimeout, cfg.ChatHistoryTTL)
  hnService := services.NewHackerNewsService(log, cache, cfg.CacheTTLDefault)
  scraperService := services.NewScraperService(log, dataService, cfg.SerpAPIKey, cfg.ScraperConcurrentRequests)

  // Handlers
  log.Info("Setting up handlers from main...")
  healthHandler := handlers.NewHealthHandler(log, postgresService, cache, cfg.AnthropicAPIKey != "")
  chatHandler := handlers.NewChatHandler(log, chatService, cache)
  reportHandler := handlers.NewReportHandler(log, reportService)
  companyHandler := handlers.NewCompanyHandler(log, dataService)
  hnHandler := handlers.NewHackerNewsHandler(log, hnService)
  scrapeHandler := handlers.NewScrapeHandler(log, scraperService)

  // Middleware
  log.Info("Setting up middleware from main...")
  rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    Log:               log,
    RateLimiter:       rateLimiter,
    HealthHandler:     healthHandler,
    ChatHandler:       chatHandler,
    ReportHandler:     reportHandler,
    CompanyHandler:    companyHandler,
    HackerNewsHandler: hnHandler,
    ScrapeHandler:     scrapeHandler,
  })

  fmt.Printf("Server listening on :%s\n", cfg.Port)
  if err := router.Run(":" + cfg.Port); err != nil {
    log.Error("Server failed", "error", err)
  }
}
