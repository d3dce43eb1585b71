package handlers

import (
  "encoding/json"
  "fmt"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/nexalyze/nexalyze-backend/internal/clients/rediscache"
  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/services"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

type ChatHandler struct {
  log   *logger.Logger
  chat  services.ChatAgentService
  cache rediscache.Client
}

func NewChatHandler(baseLog *logger.Logger, chat services.ChatAgentService, cache rediscache.Client) *ChatHandler {
  return &ChatHandler{
    log:   baseLog.With("handler", "ChatHandler"),
    chat:  chat,
    cache: cache,
  }
}

// Stream handles POST /chat. Events go out as SSE data frames; the stream
// always terminates with an end event.
func (h *ChatHandler) Stream(c *gin.Context) {
  var req types.ChatRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }

  c.Writer.Header().Set("Content-Type", "text/event-stream")
  c.Writer.Header().Set("Cache-Control", "no-cache")
  c.Writer.Header().Set("Connection", "keep-alive")
  c.Writer.Header().Set("X-Accel-Buffering", "no")

  flusher, ok := c.Writer.(http.Flusher)
  if !ok {
    RespondError(c, http.StatusInternalServerError, "streaming_unsupported", fmt.Errorf("streaming unsupported"))
    return
  }

  ctx := c.Request.Context()
  h.chat.Stream(ctx, req, func(ev types.ChatStreamEvent) {
    select {
    case <-ctx.Done():
      return
    default:
    }
    payload, err := json.Marshal(ev)
    if err != nil {
      h.log.Error("Failed to encode chat event", "type", ev.Type, "error", err)
      return
    }
    fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
    flusher.Flush()
  })
}

// History handles GET /chat/history/:session_id.
func (h *ChatHandler) History(c *gin.Context) {
  sessionID := c.Param("session_id")
  if sessionID == "" {
    RespondError(c, http.StatusBadRequest, "missing_session", fmt.Errorf("session_id required"))
    return
  }
  if h.cache == nil {
    RespondError(c, http.StatusServiceUnavailable, "history_unavailable", fmt.Errorf("chat history storage not configured"))
    return
  }
  messages, err := h.cache.ChatHistory(c.Request.Context(), sessionID)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "history_failed", err)
    return
  }
  if messages == nil {
    messages = []types.ChatMessage{}
  }
  RespondOK(c, gin.H{"session_id": sessionID, "messages": messages})
}

// ClearHistory handles DELETE /chat/history/:session_id.
func (h *ChatHandler) ClearHistory(c *gin.Context) {
  sessionID := c.Param("session_id")
  if sessionID == "" {
    RespondError(c, http.StatusBadRequest, "missing_session", fmt.Errorf("session_id required"))
    return
  }
  if h.cache == nil {
    RespondError(c, http.StatusServiceUnavailable, "history_unavailable", fmt.Errorf("chat history storage not configured"))
    return
  }
  if err := h.cache.ClearChatHistory(c.Request.Context(), sessionID); err != nil {
    RespondError(c, http.StatusInternalServerError, "clear_failed", err)
    return
  }
  RespondOK(c, gin.H{"session_id": sessionID, "cleared": true})
}
