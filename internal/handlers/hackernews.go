package handlers

import (
  "fmt"
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/services"
)

type HackerNewsHandler struct {
  log *logger.Logger
  hn  services.HackerNewsService
}

func NewHackerNewsHandler(baseLog *logger.Logger, hn services.HackerNewsService) *HackerNewsHandler {
  return &HackerNewsHandler{
    log: baseLog.With("handler", "HackerNewsHandler"),
    hn:  hn,
  }
}

// Mentions handles GET /hackernews/mentions/:company.
func (h *HackerNewsHandler) Mentions(c *gin.Context) {
  company := c.Param("company")
  if company == "" {
    RespondError(c, http.StatusBadRequest, "missing_company", fmt.Errorf("company name required"))
    return
  }
  mentions, err := h.hn.CompanyMentions(c.Request.Context(), company)
  if err != nil {
    RespondError(c, http.StatusBadGateway, "hn_failed", err)
    return
  }
  RespondOK(c, mentions)
}

// Latest handles GET /hackernews/latest.
func (h *HackerNewsHandler) Latest(c *gin.Context) {
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
  stories, err := h.hn.LatestStories(c.Request.Context(), limit)
  if err != nil {
    RespondError(c, http.StatusBadGateway, "hn_failed", err)
    return
  }
  RespondOK(c, gin.H{"stories": stories, "count": len(stories)})
}
