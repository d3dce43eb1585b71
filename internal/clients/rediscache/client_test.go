package rediscache

import (
  "strings"
  "testing"
)

func TestKey_JoinsNamespaceAndParts(t *testing.T) {
  if got := Key("search", "acme", "10"); got != "search:acme:10" {
    t.Fatalf("unexpected key %q", got)
  }
}

func TestKey_HashesLongSuffixes(t *testing.T) {
  long := strings.Repeat("x", 200)
  got := Key("search", long)
  if !strings.HasPrefix(got, "search:") {
    t.Fatalf("namespace prefix lost: %q", got)
  }
  // md5 hex digest is 32 chars.
  if len(got) != len("search:")+32 {
    t.Fatalf("expected hashed suffix, got %q", got)
  }
  if Key("search", long) != got {
    t.Fatalf("hashing must be deterministic")
  }
}

func TestHistoryKey_Namespaced(t *testing.T) {
  if got := historyKey("abc"); got != "chat:history:abc" {
    t.Fatalf("unexpected history key %q", got)
  }
}
