package handlers

import (
  "errors"
  "fmt"
  "net/http"
  "path/filepath"
  "strconv"
  "strings"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/services"
)

type ReportHandler struct {
  log     *logger.Logger
  reports services.ReportGenerationService
}

func NewReportHandler(baseLog *logger.Logger, reports services.ReportGenerationService) *ReportHandler {
  return &ReportHandler{
    log:     baseLog.With("handler", "ReportHandler"),
    reports: reports,
  }
}

type generateReportRequest struct {
  Topic      string `json:"topic"`
  ReportType string `json:"report_type"`
  Format     string `json:"format"`
}

// Generate handles POST /generate-comprehensive-report-background.
func (h *ReportHandler) Generate(c *gin.Context) {
  var req generateReportRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }

  task, err := h.reports.Enqueue(c.Request.Context(), req.Topic, req.ReportType, req.Format)
  if err != nil {
    if errors.Is(err, services.ErrEmptyTopic) {
      RespondError(c, http.StatusBadRequest, "empty_topic", err)
      return
    }
    RespondError(c, http.StatusBadRequest, "enqueue_failed", err)
    return
  }

  RespondStatus(c, http.StatusAccepted, gin.H{
    "task_id": task.ID,
    "status":  task.Status,
    "message": "report generation started",
  })
}

// TaskStatus handles GET /report-tasks/:task_id.
func (h *ReportHandler) TaskStatus(c *gin.Context) {
  id, err := uuid.Parse(c.Param("task_id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_task_id", fmt.Errorf("task_id must be a UUID"))
    return
  }
  task, err := h.reports.Task(c.Request.Context(), id)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "task_lookup_failed", err)
    return
  }
  if task == nil {
    RespondError(c, http.StatusNotFound, "task_not_found", fmt.Errorf("no task with id %s", id))
    return
  }
  RespondOK(c, task)
}

// List handles GET /report-tasks.
func (h *ReportHandler) List(c *gin.Context) {
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
  tasks, err := h.reports.List(c.Request.Context(), limit)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "list_failed", err)
    return
  }
  RespondOK(c, gin.H{"tasks": tasks, "count": len(tasks)})
}

// Download handles GET /download-report/:filename.
func (h *ReportHandler) Download(c *gin.Context) {
  filename := c.Param("filename")

  path, err := h.reports.ResolveReportFile(filename)
  if err != nil {
    switch {
    case errors.Is(err, services.ErrInvalidFilename):
      RespondError(c, http.StatusBadRequest, "invalid_filename", err)
    case errors.Is(err, services.ErrReportNotFound):
      RespondError(c, http.StatusNotFound, "report_not_found", err)
    default:
      RespondError(c, http.StatusInternalServerError, "download_failed", err)
    }
    return
  }

  contentType := "application/pdf"
  if strings.EqualFold(filepath.Ext(path), ".docx") {
    contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
  }
  c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
  c.Header("Content-Type", contentType)
  c.File(path)
}

// Cleanup handles POST /report-tasks/cleanup.
func (h *ReportHandler) Cleanup(c *gin.Context) {
  tasksDeleted, filesDeleted, err := h.reports.CleanupNow(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "cleanup_failed", err)
    return
  }
  RespondOK(c, gin.H{"tasks_deleted": tasksDeleted, "files_deleted": filesDeleted})
}
