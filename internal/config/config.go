package config

import (
  "fmt"
  "time"

  "github.com/caarlos0/env/v11"
  "github.com/joho/godotenv"
)

type Config struct {
  Port    string `env:"PORT" envDefault:"8080"`
  LogMode string `env:"LOG_MODE" envDefault:"development"`

  AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
  AnthropicModel  string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-20250514"`
  GeminiAPIKey    string `env:"GEMINI_API_KEY"`
  GeminiModel     string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
  SerpAPIKey      string `env:"SERP_API_KEY"`

  MaxToolRounds      int           `env:"CHAT_MAX_TOOL_ROUNDS" envDefault:"10"`
  ToolTimeout        time.Duration `env:"CHAT_TOOL_TIMEOUT" envDefault:"30s"`
  ChatHistoryTTL     time.Duration `env:"CHAT_HISTORY_TTL" envDefault:"24h"`
  SectionConcurrency int           `env:"REPORT_SECTION_CONCURRENCY" envDefault:"5"`
  TaskRetention      time.Duration `env:"REPORT_TASK_RETENTION" envDefault:"24h"`
  ReportCleanupDays  int           `env:"REPORT_CLEANUP_DAYS" envDefault:"7"`

  ReportsDir string `env:"REPORTS_DIR" envDefault:"reports"`
  ChartsDir  string `env:"CHARTS_DIR" envDefault:"charts"`

  CacheTTLSearch  time.Duration `env:"CACHE_TTL_SEARCH" envDefault:"5m"`
  CacheTTLDefault time.Duration `env:"CACHE_TTL_DEFAULT" envDefault:"1h"`

  RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
  RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`

  ScraperConcurrentRequests int `env:"SCRAPER_CONCURRENT_REQUESTS" envDefault:"5"`
}

// Load reads .env when present, then populates Config from the environment.
func Load() (*Config, error) {
  _ = godotenv.Load()

  cfg := &Config{}
  if err := env.Parse(cfg); err != nil {
    return nil, fmt.Errorf("parse config: %w", err)
  }
  if cfg.MaxToolRounds <= 0 {
    cfg.MaxToolRounds = 10
  }
  if cfg.SectionConcurrency <= 0 {
    cfg.SectionConcurrency = 5
  }
  return cfg, nil
}
