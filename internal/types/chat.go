package types

import "time"

// ChatStreamEvent kinds, in the order a stream may emit them.
const (
  ChatEventStart    = "start"
  ChatEventStatus   = "status"
  ChatEventThinking = "thinking"
  ChatEventToolCall = "tool_call"
  ChatEventTool     = "tool"
  ChatEventContent  = "content"
  ChatEventComplete = "complete"
  ChatEventEnd      = "end"
  ChatEventError    = "error"
)

type ChatStreamEvent struct {
  Type      string         `json:"type"`
  Content   string         `json:"message,omitempty"`
  Tool      string         `json:"tool,omitempty"`
  Data      map[string]any `json:"data,omitempty"`
  Timestamp time.Time      `json:"timestamp"`
}

type ChatMessage struct {
  Role      string     `json:"role"` // user|assistant|tool
  Content   string     `json:"content"`
  ToolName  string     `json:"tool_name,omitempty"`
  ToolID    string     `json:"tool_id,omitempty"`
  ToolInput string     `json:"tool_input,omitempty"`
  CreatedAt time.Time  `json:"created_at"`
}

type ChatRequest struct {
  Query     string `json:"query" binding:"required"`
  SessionID string `json:"session_id"`
}
