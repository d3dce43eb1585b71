package rediscache

import (
  "context"
  "crypto/md5"
  "encoding/hex"
  "encoding/json"
  "fmt"
  "os"
  "strings"
  "time"

  goredis "github.com/redis/go-redis/v9"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

type Client interface {
  GetJSON(ctx context.Context, key string, out any) (bool, error)
  SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
  Delete(ctx context.Context, key string) error

  AppendChatMessage(ctx context.Context, sessionID string, msg types.ChatMessage, ttl time.Duration) error
  ChatHistory(ctx context.Context, sessionID string) ([]types.ChatMessage, error)
  ClearChatHistory(ctx context.Context, sessionID string) error

  Ping(ctx context.Context) error
  Close() error
}

type client struct {
  log *logger.Logger
  rdb *goredis.Client
}

func New(log *logger.Logger) (Client, error) {
  if log == nil {
    return nil, fmt.Errorf("logger required")
  }

  addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
  if addr == "" {
    return nil, fmt.Errorf("missing REDIS_ADDR")
  }

  rdb := goredis.NewClient(&goredis.Options{
    Addr:        addr,
    DialTimeout: 5 * time.Second,
  })

  ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
  defer cancel()
  if err := rdb.Ping(ctx).Err(); err != nil {
    _ = rdb.Close()
    return nil, fmt.Errorf("redis ping: %w", err)
  }

  return &client{
    log: log.With("service", "RedisCache"),
    rdb: rdb,
  }, nil
}

// Key builds a namespaced cache key. Long suffixes are hashed so the key stays bounded.
func Key(namespace string, parts ...string) string {
  suffix := strings.Join(parts, ":")
  if len(suffix) > 64 {
    sum := md5.Sum([]byte(suffix))
    suffix = hex.EncodeToString(sum[:])
  }
  return namespace + ":" + suffix
}

func historyKey(sessionID string) string {
  return "chat:history:" + sessionID
}

func (c *client) GetJSON(ctx context.Context, key string, out any) (bool, error) {
  raw, err := c.rdb.Get(ctx, key).Bytes()
  if err == goredis.Nil {
    return false, nil
  }
  if err != nil {
    return false, err
  }
  if err := json.Unmarshal(raw, out); err != nil {
    c.log.Warn("bad cached payload, dropping", "key", key, "error", err)
    _ = c.rdb.Del(ctx, key).Err()
    return false, nil
  }
  return true, nil
}

func (c *client) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
  raw, err := json.Marshal(val)
  if err != nil {
    return err
  }
  return c.rdb.Set(ctx, key, raw, ttl).Err()
}

func (c *client) Delete(ctx context.Context, key string) error {
  return c.rdb.Del(ctx, key).Err()
}

func (c *client) AppendChatMessage(ctx context.Context, sessionID string, msg types.ChatMessage, ttl time.Duration) error {
  if strings.TrimSpace(sessionID) == "" {
    return fmt.Errorf("session id required")
  }
  raw, err := json.Marshal(msg)
  if err != nil {
    return err
  }
  key := historyKey(sessionID)
  if err := c.rdb.RPush(ctx, key, raw).Err(); err != nil {
    return err
  }
  if ttl > 0 {
    return c.rdb.Expire(ctx, key, ttl).Err()
  }
  return nil
}

func (c *client) ChatHistory(ctx context.Context, sessionID string) ([]types.ChatMessage, error) {
  raws, err := c.rdb.LRange(ctx, historyKey(sessionID), 0, -1).Result()
  if err != nil {
    return nil, err
  }
  out := make([]types.ChatMessage, 0, len(raws))
  for _, raw := range raws {
    var msg types.ChatMessage
    if err := json.Unmarshal([]byte(raw), &msg); err != nil {
      c.log.Warn("bad chat history entry, skipping", "session_id", sessionID, "error", err)
      continue
    }
    out = append(out, msg)
  }
  return out, nil
}

func (c *client) ClearChatHistory(ctx context.Context, sessionID string) error {
  return c.rdb.Del(ctx, historyKey(sessionID)).Err()
}

func (c *client) Ping(ctx context.Context) error {
  return c.rdb.Ping(ctx).Err()
}

func (c *client) Close() error {
  return c.rdb.Close()
}
