package handlers

import (
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/services"
)

type ScrapeHandler struct {
  log     *logger.Logger
  scraper services.ScraperService
}

func NewScrapeHandler(baseLog *logger.Logger, scraper services.ScraperService) *ScrapeHandler {
  return &ScrapeHandler{
    log:     baseLog.With("handler", "ScrapeHandler"),
    scraper: scraper,
  }
}

// BetaList handles POST /scrape/betalist.
func (h *ScrapeHandler) BetaList(c *gin.Context) {
  pages, _ := strconv.Atoi(c.DefaultQuery("pages", "1"))
  result, err := h.scraper.ScrapeBetaList(c.Request.Context(), pages)
  if err != nil {
    RespondError(c, http.StatusBadGateway, "scrape_failed", err)
    return
  }
  RespondOK(c, result)
}

type serpDiscoverRequest struct {
  Query string `json:"query" binding:"required"`
  Limit int    `json:"limit"`
}

// SerpDiscover handles POST /scrape/discover.
func (h *ScrapeHandler) SerpDiscover(c *gin.Context) {
  var req serpDiscoverRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }
  result, err := h.scraper.DiscoverViaSerpAPI(c.Request.Context(), req.Query, req.Limit)
  if err != nil {
    RespondError(c, http.StatusBadGateway, "discover_failed", err)
    return
  }
  RespondOK(c, result)
}
