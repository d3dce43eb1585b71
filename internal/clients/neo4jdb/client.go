package neo4jdb

import (
  "context"
  "fmt"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/neo4j/neo4j-go-driver/v5/neo4j"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
)

type Client struct {
  Driver   neo4j.DriverWithContext
  Database string
  log      *logger.Logger
}

// NewFromEnv returns (nil, nil) when NEO4J_URI is unset; the graph layer is optional.
func NewFromEnv(log *logger.Logger) (*Client, error) {
  if log == nil {
    return nil, fmt.Errorf("neo4jdb: logger required")
  }

  uri := strings.TrimSpace(os.Getenv("NEO4J_URI"))
  if uri == "" {
    return nil, nil
  }

  user := strings.TrimSpace(os.Getenv("NEO4J_USER"))
  if user == "" {
    user = "neo4j"
  }
  password := strings.TrimSpace(os.Getenv("NEO4J_PASSWORD"))
  database := strings.TrimSpace(os.Getenv("NEO4J_DATABASE"))

  timeoutSec := 10
  if v := strings.TrimSpace(os.Getenv("NEO4J_TIMEOUT_SECONDS")); v != "" {
    if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
      timeoutSec = parsed
    }
  }

  maxPool := 50
  if v := strings.TrimSpace(os.Getenv("NEO4J_MAX_POOL_SIZE")); v != "" {
    if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
      maxPool = parsed
    }
  }

  auth := neo4j.BasicAuth(user, password, "")
  driver, err := neo4j.NewDriverWithContext(uri, auth, func(cfg *neo4j.Config) {
    cfg.MaxConnectionPoolSize = maxPool
    cfg.SocketConnectTimeout = time.Duration(timeoutSec) * time.Second
  })
  if err != nil {
    return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
  }

  ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
  defer cancel()
  if err := driver.VerifyConnectivity(ctx); err != nil {
    _ = driver.Close(ctx)
    return nil, fmt.Errorf("neo4jdb: verify connectivity: %w", err)
  }

  return &Client{
    Driver:   driver,
    Database: database,
    log:      log.With("client", "Neo4jDB"),
  }, nil
}

func (c *Client) Connected() bool {
  return c != nil && c.Driver != nil
}

// Query runs a read Cypher statement and flattens each record into a map.
// Node values are flattened to their property maps.
func (c *Client) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
  if !c.Connected() {
    return nil, fmt.Errorf("neo4jdb: not connected")
  }
  session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
    AccessMode:   neo4j.AccessModeRead,
    DatabaseName: c.Database,
  })
  defer session.Close(ctx)

  records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
    result, err := tx.Run(ctx, cypher, params)
    if err != nil {
      return nil, err
    }
    return result.Collect(ctx)
  })
  if err != nil {
    return nil, err
  }

  recs, ok := records.([]*neo4j.Record)
  if !ok {
    return nil, fmt.Errorf("neo4jdb: unexpected result type")
  }
  out := make([]map[string]any, 0, len(recs))
  for _, rec := range recs {
    row := make(map[string]any, len(rec.Keys))
    for i, key := range rec.Keys {
      row[key] = flattenValue(rec.Values[i])
    }
    out = append(out, row)
  }
  return out, nil
}

// Write runs a write Cypher statement, discarding results.
func (c *Client) Write(ctx context.Context, cypher string, params map[string]any) error {
  if !c.Connected() {
    return fmt.Errorf("neo4jdb: not connected")
  }
  session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
    AccessMode:   neo4j.AccessModeWrite,
    DatabaseName: c.Database,
  })
  defer session.Close(ctx)

  _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
    result, err := tx.Run(ctx, cypher, params)
    if err != nil {
      return nil, err
    }
    return nil, result.Err()
  })
  return err
}

func flattenValue(v any) any {
  switch t := v.(type) {
  case neo4j.Node:
    return t.Props
  case neo4j.Relationship:
    return t.Props
  case []any:
    out := make([]any, 0, len(t))
    for _, item := range t {
      out = append(out, flattenValue(item))
    }
    return out
  default:
    return v
  }
}

func (c *Client) Close(ctx context.Context) error {
  if c == nil || c.Driver == nil {
    return nil
  }
  if ctx == nil {
    ctx = context.Background()
  }
  err := c.Driver.Close(ctx)
  c.Driver = nil
  return err
}
