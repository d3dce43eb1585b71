package handlers

import (
  "fmt"
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/services"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

type CompanyHandler struct {
  log  *logger.Logger
  data services.CompanyDataService
}

func NewCompanyHandler(baseLog *logger.Logger, data services.CompanyDataService) *CompanyHandler {
  return &CompanyHandler{
    log:  baseLog.With("handler", "CompanyHandler"),
    data: data,
  }
}

// Search handles GET /companies.
func (h *CompanyHandler) Search(c *gin.Context) {
  query := c.Query("query")
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
  if limit <= 0 || limit > 100 {
    limit = 10
  }

  filters := types.CompanyFilters{
    Industry: c.Query("industry"),
    Location: c.Query("location"),
    Stage:    c.Query("stage"),
  }
  raw := c.Query("min_year")
  if raw == "" {
    raw = c.Query("min_founded_year")
  }
  if raw != "" {
    if year, err := strconv.Atoi(raw); err == nil {
      filters.MinFoundedYear = year
    }
  }

  companies, err := h.data.SearchCompanies(c.Request.Context(), query, limit, filters)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "search_failed", err)
    return
  }
  RespondOK(c, gin.H{"companies": companies, "count": len(companies)})
}

// Details handles GET /companies/:id.
func (h *CompanyHandler) Details(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_company_id", fmt.Errorf("id must be a UUID"))
    return
  }
  company, err := h.data.GetCompanyByID(c.Request.Context(), id)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
    return
  }
  if company == nil {
    RespondError(c, http.StatusNotFound, "company_not_found", fmt.Errorf("no company with id %s", id))
    return
  }
  RespondOK(c, company)
}

// Stats handles GET /stats.
func (h *CompanyHandler) Stats(c *gin.Context) {
  stats, err := h.data.Stats(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "stats_failed", err)
    return
  }
  RespondOK(c, stats)
}

// KnowledgeGraph handles GET /companies/:id/knowledge-graph.
func (h *CompanyHandler) KnowledgeGraph(c *gin.Context) {
  raw := c.Param("id")
  ctx := c.Request.Context()

  var graph map[string]any
  if id, err := uuid.Parse(raw); err == nil {
    var gErr error
    graph, gErr = h.data.KnowledgeGraph(ctx, id)
    if gErr != nil {
      RespondError(c, http.StatusInternalServerError, "graph_failed", gErr)
      return
    }
  } else {
    var gErr error
    graph, gErr = h.data.KnowledgeGraphByName(ctx, raw)
    if gErr != nil {
      RespondError(c, http.StatusInternalServerError, "graph_failed", gErr)
      return
    }
  }
  if graph == nil {
    RespondError(c, http.StatusNotFound, "company_not_found", fmt.Errorf("no company matching %q", raw))
    return
  }
  RespondOK(c, graph)
}

// SyncData handles POST /sync-data.
func (h *CompanyHandler) SyncData(c *gin.Context) {
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

  stats, err := h.data.SyncYCData(c.Request.Context(), limit)
  if err != nil {
    RespondError(c, http.StatusBadGateway, "sync_failed", err)
    return
  }
  RespondOK(c, stats)
}
