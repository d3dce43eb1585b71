package handlers

import (
  "context"
  "net/http"
  "net/http/httptest"
  "strings"
  "testing"
  "time"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/services"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
  t.Helper()
  log, err := logger.New("production")
  if err != nil {
    t.Fatalf("init logger: %v", err)
  }
  return log
}

type fakeReportService struct {
  tasks map[uuid.UUID]*types.ReportTask
}

func newFakeReportService() *fakeReportService {
  return &fakeReportService{tasks: map[uuid.UUID]*types.ReportTask{}}
}

func (f *fakeReportService) Enqueue(ctx context.Context, topic, reportType, format string) (*types.ReportTask, error) {
  if strings.TrimSpace(topic) == "" {
    return nil, services.ErrEmptyTopic
  }
  task := &types.ReportTask{
    ID:     uuid.New(),
    Topic:  topic,
    Status: types.ReportTaskStatusPending,
  }
  f.tasks[task.ID] = task
  return task, nil
}

func (f *fakeReportService) Task(ctx context.Context, id uuid.UUID) (*types.ReportTask, error) {
  return f.tasks[id], nil
}

func (f *fakeReportService) List(ctx context.Context, limit int) ([]*types.ReportTask, error) {
  out := make([]*types.ReportTask, 0, len(f.tasks))
  for _, task := range f.tasks {
    out = append(out, task)
  }
  return out, nil
}

func (f *fakeReportService) ResolveReportFile(filename string) (string, error) {
  if filename == "" || strings.Contains(filename, "..") || strings.ContainsAny(filename, "/\\") {
    return "", services.ErrInvalidFilename
  }
  return "", services.ErrReportNotFound
}

func (f *fakeReportService) StartWorker(ctx context.Context)  {}
func (f *fakeReportService) StartCleanup(ctx context.Context) {}

func (f *fakeReportService) CleanupNow(ctx context.Context) (int64, int, error) {
  return 2, 1, nil
}

func setupReportRouter(t *testing.T) (*gin.Engine, *fakeReportService) {
  t.Helper()
  gin.SetMode(gin.TestMode)
  svc := newFakeReportService()
  h := NewReportHandler(testLogger(t), svc)

  router := gin.New()
  router.POST("/generate-comprehensive-report-background", h.Generate)
  router.GET("/report-tasks/:task_id", h.TaskStatus)
  router.GET("/download-report/:filename", h.Download)
  return router, svc
}

func TestGenerate_EmptyTopicReturns400(t *testing.T) {
  router, svc := setupReportRouter(t)

  req := httptest.NewRequest("POST", "/generate-comprehensive-report-background", strings.NewReader(`{"topic":"   "}`))
  req.Header.Set("Content-Type", "application/json")
  rec := httptest.NewRecorder()
  router.ServeHTTP(rec, req)

  if rec.Code != http.StatusBadRequest {
    t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
  }
  if len(svc.tasks) != 0 {
    t.Fatalf("no task may exist after rejected request")
  }
}

func TestGenerate_ValidTopicReturns202WithTaskID(t *testing.T) {
  router, svc := setupReportRouter(t)

  req := httptest.NewRequest("POST", "/generate-comprehensive-report-background", strings.NewReader(`{"topic":"AI agents","format":"pdf"}`))
  req.Header.Set("Content-Type", "application/json")
  rec := httptest.NewRecorder()
  router.ServeHTTP(rec, req)

  if rec.Code != http.StatusAccepted {
    t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
  }
  if !strings.Contains(rec.Body.String(), `"task_id"`) {
    t.Fatalf("expected task_id in body, got %s", rec.Body.String())
  }
  if len(svc.tasks) != 1 {
    t.Fatalf("expected one task created, got %d", len(svc.tasks))
  }
}

func TestTaskStatus_UnknownTaskReturns404(t *testing.T) {
  router, _ := setupReportRouter(t)

  req := httptest.NewRequest("GET", "/report-tasks/"+uuid.New().String(), nil)
  rec := httptest.NewRecorder()
  router.ServeHTTP(rec, req)

  if rec.Code != http.StatusNotFound {
    t.Fatalf("expected 404 for unknown task, got %d", rec.Code)
  }
}

func TestTaskStatus_MalformedIDReturns400(t *testing.T) {
  router, _ := setupReportRouter(t)

  req := httptest.NewRequest("GET", "/report-tasks/not-a-uuid", nil)
  rec := httptest.NewRecorder()
  router.ServeHTTP(rec, req)

  if rec.Code != http.StatusBadRequest {
    t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
  }
}

func TestTaskStatus_KnownTaskReturnsState(t *testing.T) {
  router, svc := setupReportRouter(t)
  task := &types.ReportTask{
    ID:        uuid.New(),
    Topic:     "AI agents",
    Status:    types.ReportTaskStatusProcessing,
    Progress:  40,
    CreatedAt: time.Now(),
  }
  svc.tasks[task.ID] = task

  req := httptest.NewRequest("GET", "/report-tasks/"+task.ID.String(), nil)
  rec := httptest.NewRecorder()
  router.ServeHTTP(rec, req)

  if rec.Code != http.StatusOK {
    t.Fatalf("expected 200, got %d", rec.Code)
  }
  body := rec.Body.String()
  if !strings.Contains(body, task.ID.String()) || !strings.Contains(body, `"processing"`) {
    t.Fatalf("expected task state in body, got %s", body)
  }
}

func TestDownload_TraversalReturns400(t *testing.T) {
  router, _ := setupReportRouter(t)

  // Anything containing ".." is rejected outright, before touching the filesystem.
  for _, filename := range []string{"..", "report..2024.pdf", "..secrets.pdf"} {
    req := httptest.NewRequest("GET", "/download-report/"+filename, nil)
    rec := httptest.NewRecorder()
    router.ServeHTTP(rec, req)

    if rec.Code != http.StatusBadRequest {
      t.Fatalf("expected 400 for %q, got %d", filename, rec.Code)
    }
  }
}

func TestDownload_MissingReportReturns404(t *testing.T) {
  router, _ := setupReportRouter(t)

  req := httptest.NewRequest("GET", "/download-report/nope.pdf", nil)
  rec := httptest.NewRecorder()
  router.ServeHTTP(rec, req)

  if rec.Code != http.StatusNotFound {
    t.Fatalf("expected 404, got %d", rec.Code)
  }
}
