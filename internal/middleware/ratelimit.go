package middleware

import (
  "fmt"
  "net/http"
  "sync"
  "time"

  "github.com/gin-gonic/gin"
)

// RateLimiter is a per-client sliding window limiter held in memory. A single
// instance serves the whole router.
type RateLimiter struct {
  mu       sync.Mutex
  requests map[string][]time.Time
  limit    int
  window   time.Duration
  lastSwep time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
  if limit <= 0 {
    limit = 100
  }
  if window <= 0 {
    window = time.Minute
  }
  return &RateLimiter{
    requests: make(map[string][]time.Time),
    limit:    limit,
    window:   window,
    lastSwep: time.Now(),
  }
}

// Allow reports whether the client may proceed and records the hit if so.
func (rl *RateLimiter) Allow(clientID string, now time.Time) bool {
  rl.mu.Lock()
  defer rl.mu.Unlock()

  cutoff := now.Add(-rl.window)

  if now.Sub(rl.lastSwep) > rl.window {
    rl.sweep(cutoff)
    rl.lastSwep = now
  }

  recent := rl.requests[clientID][:0]
  for _, t := range rl.requests[clientID] {
    if t.After(cutoff) {
      recent = append(recent, t)
    }
  }
  if len(recent) >= rl.limit {
    rl.requests[clientID] = recent
    return false
  }
  rl.requests[clientID] = append(recent, now)
  return true
}

func (rl *RateLimiter) sweep(cutoff time.Time) {
  for clientID, times := range rl.requests {
    keep := times[:0]
    for _, t := range times {
      if t.After(cutoff) {
        keep = append(keep, t)
      }
    }
    if len(keep) == 0 {
      delete(rl.requests, clientID)
      continue
    }
    rl.requests[clientID] = keep
  }
}

func RateLimit(rl *RateLimiter) gin.HandlerFunc {
  return func(c *gin.Context) {
    if !rl.Allow(c.ClientIP(), time.Now()) {
      c.Header("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
      c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
        "error": gin.H{
          "message": "rate limit exceeded",
          "code":    "rate_limited",
        },
      })
      return
    }
    c.Next()
  }
}
