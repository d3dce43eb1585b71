package handlers

import (
  "context"
  "net/http"
  "net/http/httptest"
  "strings"
  "testing"

  "github.com/gin-gonic/gin"

  "github.com/nexalyze/nexalyze-backend/internal/types"
)

type fakeChatService struct {
  events []types.ChatStreamEvent
}

func (f *fakeChatService) Stream(ctx context.Context, req types.ChatRequest, emit func(types.ChatStreamEvent)) {
  for _, ev := range f.events {
    emit(ev)
  }
}

func setupChatRouter(t *testing.T, svc *fakeChatService) *gin.Engine {
  t.Helper()
  gin.SetMode(gin.TestMode)
  h := NewChatHandler(testLogger(t), svc, nil)

  router := gin.New()
  router.POST("/chat", h.Stream)
  router.GET("/chat/history/:session_id", h.History)
  return router
}

func TestChatStream_WritesSSEFrames(t *testing.T) {
  svc := &fakeChatService{events: []types.ChatStreamEvent{
    {Type: types.ChatEventStart, Data: map[string]any{"session_id": "s1"}},
    {Type: types.ChatEventContent, Content: "Hello. "},
    {Type: types.ChatEventComplete, Data: map[string]any{"session_id": "s1"}},
    {Type: types.ChatEventEnd},
  }}
  router := setupChatRouter(t, svc)

  req := httptest.NewRequest("POST", "/chat", strings.NewReader(`{"query":"hi","session_id":"s1"}`))
  req.Header.Set("Content-Type", "application/json")
  rec := httptest.NewRecorder()
  router.ServeHTTP(rec, req)

  if rec.Code != http.StatusOK {
    t.Fatalf("expected 200, got %d", rec.Code)
  }
  if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
    t.Fatalf("expected SSE content type, got %q", ct)
  }

  body := rec.Body.String()
  frames := strings.Split(strings.TrimSpace(body), "\n\n")
  if len(frames) != 4 {
    t.Fatalf("expected 4 SSE frames, got %d: %q", len(frames), body)
  }
  for _, frame := range frames {
    if !strings.HasPrefix(frame, "data: ") {
      t.Fatalf("frame missing data prefix: %q", frame)
    }
  }
  if !strings.Contains(frames[0], `"start"`) {
    t.Fatalf("first frame should be start, got %q", frames[0])
  }
  if !strings.Contains(frames[1], `"message":"Hello. "`) {
    t.Fatalf("content frame should carry the message key, got %q", frames[1])
  }
  if !strings.Contains(frames[len(frames)-1], `"end"`) {
    t.Fatalf("last frame should be end, got %q", frames[len(frames)-1])
  }
}

func TestChatStream_InvalidBodyReturns400(t *testing.T) {
  router := setupChatRouter(t, &fakeChatService{})

  req := httptest.NewRequest("POST", "/chat", strings.NewReader(`{`))
  req.Header.Set("Content-Type", "application/json")
  rec := httptest.NewRecorder()
  router.ServeHTTP(rec, req)

  if rec.Code != http.StatusBadRequest {
    t.Fatalf("expected 400, got %d", rec.Code)
  }
}

func TestChatStream_MissingQueryReturns400(t *testing.T) {
  router := setupChatRouter(t, &fakeChatService{})

  req := httptest.NewRequest("POST", "/chat", strings.NewReader(`{"session_id":"s1"}`))
  req.Header.Set("Content-Type", "application/json")
  rec := httptest.NewRecorder()
  router.ServeHTTP(rec, req)

  if rec.Code != http.StatusBadRequest {
    t.Fatalf("expected 400 for missing query, got %d", rec.Code)
  }
}

func TestChatHistory_WithoutCacheReturns503(t *testing.T) {
  router := setupChatRouter(t, &fakeChatService{})

  req := httptest.NewRequest("GET", "/chat/history/s1", nil)
  rec := httptest.NewRecorder()
  router.ServeHTTP(rec, req)

  if rec.Code != http.StatusServiceUnavailable {
    t.Fatalf("expected 503 without history storage, got %d", rec.Code)
  }
}
