package logger

import (
  "strings"
  "testing"
)

func TestIsRedactKey(t *testing.T) {
  for _, key := range []string{"api_key", "anthropic_api_key", "password", "auth_token", "set-cookie"} {
    if !isRedactKey(key) {
      t.Fatalf("expected %q to be redacted", key)
    }
  }
  for _, key := range []string{"topic", "company", "task_id"} {
    if isRedactKey(key) {
      t.Fatalf("expected %q to pass through", key)
    }
  }
}

func TestSanitizeValue_RedactsAndHashes(t *testing.T) {
  if got := sanitizeValue("api_key", "sk-secret"); got != "[REDACTED]" {
    t.Fatalf("expected redaction, got %v", got)
  }

  hashed, ok := sanitizeValue("session_id", "sess-123").(string)
  if !ok || !strings.HasPrefix(hashed, "hash:") {
    t.Fatalf("expected hashed session id, got %v", hashed)
  }
  if strings.Contains(hashed, "sess-123") {
    t.Fatalf("raw session id leaked: %q", hashed)
  }

  if got := sanitizeValue("topic", "AI agents"); got != "AI agents" {
    t.Fatalf("plain value must pass through, got %v", got)
  }
}

func TestSanitizeMap_WalksNestedKeys(t *testing.T) {
  out := sanitizeMap(map[string]interface{}{
    "Password": "hunter2",
    "note":     "fine",
  })
  if out["Password"] != "[REDACTED]" {
    t.Fatalf("nested password must be redacted, got %v", out["Password"])
  }
  if out["note"] != "fine" {
    t.Fatalf("unrelated key must survive, got %v", out["note"])
  }
}

func TestHashValue_Deterministic(t *testing.T) {
  a := hashValue("sess-1")
  b := hashValue("sess-1")
  if a != b {
    t.Fatalf("hashing must be deterministic: %q vs %q", a, b)
  }
  if hashValue("sess-2") == a {
    t.Fatalf("different inputs must hash differently")
  }
  if hashValue("") != "" {
    t.Fatalf("empty value stays empty")
  }
}
