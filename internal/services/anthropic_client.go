package services

import (
  "bytes"
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "math/rand"
  "net"
  "net/http"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
)

// ToolDef describes a tool offered to the model.
type ToolDef struct {
  Name        string         `json:"name"`
  Description string         `json:"description"`
  InputSchema map[string]any `json:"input_schema"`
}

// ToolUse is a tool invocation requested by the model.
type ToolUse struct {
  ID    string
  Name  string
  Input map[string]any
}

type ContentBlock struct {
  Type      string          `json:"type"`
  Text      string          `json:"text,omitempty"`
  ID        string          `json:"id,omitempty"`
  Name      string          `json:"name,omitempty"`
  Input     json.RawMessage `json:"input,omitempty"`
  ToolUseID string          `json:"tool_use_id,omitempty"`
  Content   string          `json:"content,omitempty"`
  IsError   bool            `json:"is_error,omitempty"`
}

type AnthropicMessage struct {
  Role    string         `json:"role"`
  Content []ContentBlock `json:"content"`
}

func TextMessage(role, text string) AnthropicMessage {
  return AnthropicMessage{Role: role, Content: []ContentBlock{{Type: "text", Text: text}}}
}

type ConverseResult struct {
  Text       string
  ToolUses   []ToolUse
  StopReason string
}

type AIClient interface {
  Converse(ctx context.Context, system string, messages []AnthropicMessage, tools []ToolDef) (*ConverseResult, error)
}

type anthropicClient struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  model      string
  maxTokens  int
  httpClient *http.Client

  maxRetries int
}

func NewAnthropicClient(log *logger.Logger, apiKey, model string) (AIClient, error) {
  if apiKey == "" {
    return nil, fmt.Errorf("missing ANTHROPIC_API_KEY")
  }

  baseURL := os.Getenv("ANTHROPIC_BASE_URL")
  if baseURL == "" {
    baseURL = "https://api.anthropic.com"
  }

  if model == "" {
    model = "claude-sonnet-4-20250514"
  }

  maxTokens := 4096
  if v := os.Getenv("ANTHROPIC_MAX_TOKENS"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
      maxTokens = parsed
    }
  }

  timeoutSec := 180
  if v := os.Getenv("ANTHROPIC_TIMEOUT_SECONDS"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
      timeoutSec = parsed
    }
  }

  maxRetries := 4
  if v := os.Getenv("ANTHROPIC_MAX_RETRIES"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
      maxRetries = parsed
    }
  }

  return &anthropicClient{
    log:        log.With("service", "AnthropicClient"),
    baseURL:    baseURL,
    apiKey:     apiKey,
    model:      model,
    maxTokens:  maxTokens,
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries: maxRetries,
  }, nil
}

type aiHTTPError struct {
  Provider   string
  StatusCode int
  Body       string
}

func (e *aiHTTPError) Error() string {
  return fmt.Sprintf("%s http %d: %s", e.Provider, e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
  if code == 408 || code == 429 {
    return true
  }
  if code >= 500 && code <= 599 {
    return true
  }
  return false
}

func isRetryableErr(err error) bool {
  if err == nil {
    return false
  }
  if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
    // if caller canceled, don't retry; if it's our timeout, we will retry anyway.
    // We can only distinguish reliably by checking ctx, which we do in call loop.
    return true
  }
  var netErr net.Error
  if errors.As(err, &netErr) {
    if netErr.Timeout() || netErr.Temporary() {
      return true
    }
  }
  var httpErr *aiHTTPError
  if errors.As(err, &httpErr) {
    return isRetryableHTTP(httpErr.StatusCode)
  }
  return false
}

func jitterSleep(base time.Duration) time.Duration {
  // +/- 20%
  if base <= 0 {
    return 0
  }
  j := 0.2
  delta := base.Seconds() * j
  low := base.Seconds() - delta
  high := base.Seconds() + delta
  if low < 0 {
    low = 0
  }
  v := low + rand.Float64()*(high-low)
  return time.Duration(v * float64(time.Second))
}

func (c *anthropicClient) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
  var buf bytes.Buffer
  if body != nil {
    if err := json.NewEncoder(&buf).Encode(body); err != nil {
      return nil, nil, err
    }
  }

  req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
  if err != nil {
    return nil, nil, err
  }
  req.Header.Set("x-api-key", c.apiKey)
  req.Header.Set("anthropic-version", "2023-06-01")
  req.Header.Set("Content-Type", "application/json")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return nil, nil, err
  }

  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return resp, nil, readErr
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return resp, raw, &aiHTTPError{Provider: "anthropic", StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return resp, raw, nil
}

func (c *anthropicClient) do(ctx context.Context, method, path string, body any, out any) error {
  // exponential backoff: 1s, 2s, 4s, 8s (cap ~10s)
  backoff := 1 * time.Second

  for attempt := 0; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }

    resp, raw, err := c.doOnce(ctx, method, path, body)
    if err == nil {
      if out == nil {
        return nil
      }
      if uErr := json.Unmarshal(raw, out); uErr != nil {
        return fmt.Errorf("anthropic decode error: %w; raw=%s", uErr, string(raw))
      }
      return nil
    }

    if !isRetryableErr(err) {
      return err
    }

    if attempt == c.maxRetries {
      return err
    }

    // Respect Retry-After when present
    sleepFor := backoff
    if resp != nil {
      ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
      if ra != "" {
        if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
          sleepFor = time.Duration(secs) * time.Second
        }
      }
    }

    // Cap + jitter
    if sleepFor > 10*time.Second {
      sleepFor = 10 * time.Second
    }
    sleepFor = jitterSleep(sleepFor)

    c.log.Warn("Anthropic request retrying",
      "path", path,
      "attempt", attempt+1,
      "max_retries", c.maxRetries,
      "sleep", sleepFor.String(),
      "error", err.Error(),
    )

    time.Sleep(sleepFor)
    backoff *= 2
  }

  return fmt.Errorf("unreachable retry loop")
}

type messagesRequest struct {
  Model     string             `json:"model"`
  MaxTokens int                `json:"max_tokens"`
  System    string             `json:"system,omitempty"`
  Messages  []AnthropicMessage `json:"messages"`
  Tools     []ToolDef          `json:"tools,omitempty"`
}

type messagesResponse struct {
  Content    []ContentBlock `json:"content"`
  StopReason string         `json:"stop_reason"`
}

func (c *anthropicClient) Converse(ctx context.Context, system string, messages []AnthropicMessage, tools []ToolDef) (*ConverseResult, error) {
  if len(messages) == 0 {
    return nil, errors.New("messages required")
  }

  req := messagesRequest{
    Model:     c.model,
    MaxTokens: c.maxTokens,
    System:    system,
    Messages:  messages,
    Tools:     tools,
  }

  var resp messagesResponse
  if err := c.do(ctx, "POST", "/v1/messages", req, &resp); err != nil {
    return nil, err
  }

  result := &ConverseResult{StopReason: resp.StopReason}
  for _, block := range resp.Content {
    switch block.Type {
    case "text":
      result.Text += block.Text
    case "tool_use":
      input := map[string]any{}
      if len(block.Input) > 0 {
        if err := json.Unmarshal(block.Input, &input); err != nil {
          return nil, fmt.Errorf("bad tool input for %s: %w", block.Name, err)
        }
      }
      result.ToolUses = append(result.ToolUses, ToolUse{
        ID:    block.ID,
        Name:  block.Name,
        Input: input,
      })
    }
  }
  return result, nil
}
