package services

import (
  "bytes"
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "net/http"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
)

// TextGenerator produces free-form text for a single prompt. Used by the
// report pipeline, which needs long-form drafting rather than tool calling.
type TextGenerator interface {
  GenerateText(ctx context.Context, prompt string, temperature float64) (string, error)
}

type geminiClient struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  model      string
  httpClient *http.Client

  maxRetries int
}

func NewGeminiClient(log *logger.Logger, apiKey, model string) (TextGenerator, error) {
  if apiKey == "" {
    return nil, fmt.Errorf("missing GEMINI_API_KEY")
  }

  baseURL := os.Getenv("GEMINI_BASE_URL")
  if baseURL == "" {
    baseURL = "https://generativelanguage.googleapis.com"
  }

  if model == "" {
    model = "gemini-1.5-flash"
  }

  timeoutSec := 120
  if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
      timeoutSec = parsed
    }
  }

  maxRetries := 4
  if v := os.Getenv("GEMINI_MAX_RETRIES"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
      maxRetries = parsed
    }
  }

  return &geminiClient{
    log:        log.With("service", "GeminiClient"),
    baseURL:    baseURL,
    apiKey:     apiKey,
    model:      model,
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries: maxRetries,
  }, nil
}

type geminiRequest struct {
  Contents []struct {
    Parts []struct {
      Text string `json:"text"`
    } `json:"parts"`
  } `json:"contents"`
  GenerationConfig struct {
    Temperature float64 `json:"temperature"`
  } `json:"generationConfig"`
}

type geminiResponse struct {
  Candidates []struct {
    Content struct {
      Parts []struct {
        Text string `json:"text"`
      } `json:"parts"`
    } `json:"content"`
    FinishReason string `json:"finishReason"`
  } `json:"candidates"`
}

func (c *geminiClient) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
  var buf bytes.Buffer
  if err := json.NewEncoder(&buf).Encode(body); err != nil {
    return nil, nil, err
  }

  req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, &buf)
  if err != nil {
    return nil, nil, err
  }
  req.Header.Set("x-goog-api-key", c.apiKey)
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
    return resp, raw, &aiHTTPError{Provider: "gemini", StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return resp, raw, nil
}

func (c *geminiClient) do(ctx context.Context, path string, body any, out any) error {
  backoff := 1 * time.Second

  for attempt := 0; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }

    resp, raw, err := c.doOnce(ctx, path, body)
    if err == nil {
      if uErr := json.Unmarshal(raw, out); uErr != nil {
        return fmt.Errorf("gemini decode error: %w; raw=%s", uErr, string(raw))
      }
      return nil
    }

    if !isRetryableErr(err) {
      return err
    }

    if attempt == c.maxRetries {
      return err
    }

    sleepFor := backoff
    if resp != nil {
      ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
      if ra != "" {
        if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
          sleepFor = time.Duration(secs) * time.Second
        }
      }
    }

    if sleepFor > 10*time.Second {
      sleepFor = 10 * time.Second
    }
    sleepFor = jitterSleep(sleepFor)

    c.log.Warn("Gemini request retrying",
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

func (c *geminiClient) GenerateText(ctx context.Context, prompt string, temperature float64) (string, error) {
  if strings.TrimSpace(prompt) == "" {
    return "", errors.New("prompt required")
  }

  var req geminiRequest
  req.Contents = make([]struct {
    Parts []struct {
      Text string `json:"text"`
    } `json:"parts"`
  }, 1)
  req.Contents[0].Parts = make([]struct {
    Text string `json:"text"`
  }, 1)
  req.Contents[0].Parts[0].Text = prompt
  req.GenerationConfig.Temperature = temperature

  path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)

  var resp geminiResponse
  if err := c.do(ctx, path, req, &resp); err != nil {
    return "", err
  }
  if len(resp.Candidates) == 0 {
    return "", fmt.Errorf("gemini returned no candidates")
  }

  var text string
  for _, part := range resp.Candidates[0].Content.Parts {
    text += part.Text
  }
  if text == "" {
    return "", fmt.Errorf("gemini returned empty text")
  }
  return text, nil
}
