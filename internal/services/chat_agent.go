package services

import (
  "context"
  "encoding/json"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"

  "github.com/nexalyze/nexalyze-backend/internal/clients/rediscache"
  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

const (
  maxToolOutputChars         = 3000
  toolOutputTruncationSuffix = "\n\n[Output truncated to save context. Full result was shown above.]"

  // Rough estimate: 1 token per 4 characters.
  maxContextTokens = 100000
  outputBuffer     = 10000
)

const chatSystemPrompt = `You are Nexalyze, a competitive intelligence assistant. You help users research companies, markets, and competitive landscapes.

You have tools for searching companies, analyzing a specific company, generating background reports, and fetching database statistics. Use them when the user's question needs data; answer directly when it does not. Be concise and factual, and cite concrete numbers from tool results where available.`

type ChatAgentService interface {
  // Stream runs one chat turn and emits events in order. The final event is
  // always end, exactly once, after either complete or error.
  Stream(ctx context.Context, req types.ChatRequest, emit func(types.ChatStreamEvent))
}

type chatAgentService struct {
  log   *logger.Logger
  ai    AIClient
  tools *ChatToolRegistry
  cache rediscache.Client

  maxToolRounds int
  toolTimeout   time.Duration
  historyTTL    time.Duration
  chunkDelay    time.Duration
}

func NewChatAgentService(
  baseLog *logger.Logger,
  ai AIClient,
  tools *ChatToolRegistry,
  cache rediscache.Client,
  maxToolRounds int,
  toolTimeout time.Duration,
  historyTTL time.Duration,
) ChatAgentService {
  if maxToolRounds <= 0 {
    maxToolRounds = 10
  }
  if toolTimeout <= 0 {
    toolTimeout = 30 * time.Second
  }
  return &chatAgentService{
    log:           baseLog.With("service", "ChatAgentService"),
    ai:            ai,
    tools:         tools,
    cache:         cache,
    maxToolRounds: maxToolRounds,
    toolTimeout:   toolTimeout,
    historyTTL:    historyTTL,
    chunkDelay:    10 * time.Millisecond,
  }
}

func (s *chatAgentService) Stream(ctx context.Context, req types.ChatRequest, emit func(types.ChatStreamEvent)) {
  sessionID := strings.TrimSpace(req.SessionID)
  if sessionID == "" {
    sessionID = uuid.New().String()
  }
  log := s.log.With("session_id", sessionID)

  send := func(ev types.ChatStreamEvent) {
    ev.Timestamp = time.Now()
    emit(ev)
  }
  defer send(types.ChatStreamEvent{Type: types.ChatEventEnd})

  message := strings.TrimSpace(req.Query)
  if message == "" {
    send(types.ChatStreamEvent{Type: types.ChatEventError, Content: "query is required"})
    return
  }

  send(types.ChatStreamEvent{
    Type: types.ChatEventStart,
    Data: map[string]any{"session_id": sessionID},
  })

  messages := s.buildContext(ctx, sessionID, message)

  var toolsUsed []string
  usedSet := map[string]bool{}

  finish := func(finalText string) {
    for _, chunk := range splitSentences(finalText) {
      send(types.ChatStreamEvent{Type: types.ChatEventContent, Content: chunk})
      if s.chunkDelay > 0 {
        time.Sleep(s.chunkDelay)
      }
    }
    send(types.ChatStreamEvent{
      Type: types.ChatEventComplete,
      Data: map[string]any{
        "session_id": sessionID,
        "tools_used": toolsUsed,
      },
    })
    s.persistTurn(ctx, sessionID, message, finalText)
  }

  for round := 0; round < s.maxToolRounds; round++ {
    send(types.ChatStreamEvent{Type: types.ChatEventStatus, Content: "Thinking..."})

    result, err := s.ai.Converse(ctx, chatSystemPrompt, messages, s.tools.Defs())
    if err != nil {
      log.Error("Model call failed", "round", round+1, "error", err)
      send(types.ChatStreamEvent{Type: types.ChatEventError, Content: "The assistant is temporarily unavailable. Please try again."})
      return
    }

    if len(result.ToolUses) == 0 {
      finish(result.Text)
      return
    }

    if result.Text != "" {
      send(types.ChatStreamEvent{Type: types.ChatEventThinking, Content: result.Text})
    }

    messages = append(messages, assistantMessage(result))

    var resultBlocks []ContentBlock
    for _, use := range result.ToolUses {
      send(types.ChatStreamEvent{
        Type: types.ChatEventToolCall,
        Tool: use.Name,
        Data: use.Input,
      })

      output, toolErr := s.runTool(ctx, use)
      isError := toolErr != nil
      if isError {
        log.Warn("Tool failed", "tool", use.Name, "error", toolErr)
        output = fmt.Sprintf("Error running %s: %v", use.Name, toolErr)
      }
      output = truncateToolOutput(output)

      send(types.ChatStreamEvent{
        Type:    types.ChatEventTool,
        Tool:    use.Name,
        Content: output,
      })

      if !usedSet[use.Name] {
        usedSet[use.Name] = true
        toolsUsed = append(toolsUsed, use.Name)
      }

      resultBlocks = append(resultBlocks, ContentBlock{
        Type:      "tool_result",
        ToolUseID: use.ID,
        Content:   output,
        IsError:   isError,
      })
    }
    messages = append(messages, AnthropicMessage{Role: "user", Content: resultBlocks})
  }

  // Tool budget spent; force a final answer with no tools offered.
  log.Warn("Tool round cap reached, forcing completion", "max_rounds", s.maxToolRounds)
  result, err := s.ai.Converse(ctx, chatSystemPrompt, messages, nil)
  if err != nil {
    log.Error("Forced completion failed", "error", err)
    finish("I gathered a lot of information but ran out of analysis steps. Here is what I have so far; please ask a follow-up question to continue.")
    return
  }
  finish(result.Text)
}

func (s *chatAgentService) runTool(ctx context.Context, use ToolUse) (string, error) {
  tool, ok := s.tools.Get(use.Name)
  if !ok {
    return "", fmt.Errorf("unknown tool %q", use.Name)
  }
  toolCtx, cancel := context.WithTimeout(ctx, s.toolTimeout)
  defer cancel()
  return tool.Run(toolCtx, use.Input)
}

// buildContext converts stored history plus the new user message into model
// messages, trimming oldest-first to fit the token budget. The new user
// message is never trimmed.
func (s *chatAgentService) buildContext(ctx context.Context, sessionID, message string) []AnthropicMessage {
  var history []types.ChatMessage
  if s.cache != nil {
    stored, err := s.cache.ChatHistory(ctx, sessionID)
    if err != nil {
      s.log.Warn("Failed to load chat history", "session_id", sessionID, "error", err)
    } else {
      history = stored
    }
  }

  budget := maxContextTokens - outputBuffer - estimateTokens(chatSystemPrompt) - estimateTokens(message)
  history = trimHistory(history, budget)

  messages := make([]AnthropicMessage, 0, len(history)+1)
  for _, msg := range history {
    role := msg.Role
    if role != "user" && role != "assistant" {
      continue
    }
    if strings.TrimSpace(msg.Content) == "" {
      continue
    }
    messages = append(messages, TextMessage(role, msg.Content))
  }
  messages = append(messages, TextMessage("user", message))
  return messages
}

func (s *chatAgentService) persistTurn(ctx context.Context, sessionID, userMessage, assistantReply string) {
  if s.cache == nil {
    return
  }
  now := time.Now()
  if err := s.cache.AppendChatMessage(ctx, sessionID, types.ChatMessage{
    Role:      "user",
    Content:   userMessage,
    CreatedAt: now,
  }, s.historyTTL); err != nil {
    s.log.Warn("Failed to persist user message", "session_id", sessionID, "error", err)
    return
  }
  if assistantReply == "" {
    return
  }
  if err := s.cache.AppendChatMessage(ctx, sessionID, types.ChatMessage{
    Role:      "assistant",
    Content:   assistantReply,
    CreatedAt: now,
  }, s.historyTTL); err != nil {
    s.log.Warn("Failed to persist assistant message", "session_id", sessionID, "error", err)
  }
}

func assistantMessage(result *ConverseResult) AnthropicMessage {
  var blocks []ContentBlock
  if result.Text != "" {
    blocks = append(blocks, ContentBlock{Type: "text", Text: result.Text})
  }
  for _, use := range result.ToolUses {
    input, _ := json.Marshal(use.Input)
    blocks = append(blocks, ContentBlock{
      Type:  "tool_use",
      ID:    use.ID,
      Name:  use.Name,
      Input: input,
    })
  }
  return AnthropicMessage{Role: "assistant", Content: blocks}
}

func truncateToolOutput(content string) string {
  if len(content) <= maxToolOutputChars {
    return content
  }
  return content[:maxToolOutputChars-len(toolOutputTruncationSuffix)] + toolOutputTruncationSuffix
}

func estimateTokens(text string) int {
  return len(text) / 4
}

// trimHistory drops oldest messages until the estimate fits the budget.
func trimHistory(history []types.ChatMessage, budget int) []types.ChatMessage {
  if budget <= 0 {
    return nil
  }
  total := 0
  for _, msg := range history {
    total += estimateTokens(msg.Content)
  }
  start := 0
  for start < len(history) && total > budget {
    total -= estimateTokens(history[start].Content)
    start++
  }
  return history[start:]
}

// splitSentences chunks text on sentence boundaries, keeping the terminator
// with its sentence.
func splitSentences(text string) []string {
  text = strings.TrimSpace(text)
  if text == "" {
    return nil
  }
  var chunks []string
  var b strings.Builder
  runes := []rune(text)
  for i := 0; i < len(runes); i++ {
    b.WriteRune(runes[i])
    if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
      if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
        chunk := strings.TrimRight(b.String(), " ")
        if chunk != "" {
          chunks = append(chunks, chunk+" ")
        }
        b.Reset()
        for i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\n') {
          i++
        }
      }
    }
  }
  if rest := strings.TrimSpace(b.String()); rest != "" {
    chunks = append(chunks, rest)
  }
  if len(chunks) > 0 {
    chunks[len(chunks)-1] = strings.TrimRight(chunks[len(chunks)-1], " ")
  }
  return chunks
}
