package services

import (
  "context"
  "fmt"
  "strings"
  "testing"

  "github.com/google/uuid"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
  t.Helper()
  log, err := logger.New("production")
  if err != nil {
    t.Fatalf("init logger: %v", err)
  }
  return log
}

type fakeAIClient struct {
  results   []*ConverseResult
  errs      []error
  calls     int
  toolsSeen [][]ToolDef
}

func (f *fakeAIClient) Converse(ctx context.Context, system string, messages []AnthropicMessage, tools []ToolDef) (*ConverseResult, error) {
  idx := f.calls
  f.calls++
  f.toolsSeen = append(f.toolsSeen, tools)
  if idx < len(f.errs) && f.errs[idx] != nil {
    return nil, f.errs[idx]
  }
  if idx < len(f.results) {
    return f.results[idx], nil
  }
  return f.results[len(f.results)-1], nil
}

func testRegistry(tools ...*ChatTool) *ChatToolRegistry {
  r := &ChatToolRegistry{tools: map[string]*ChatTool{}}
  for _, tool := range tools {
    r.register(tool)
  }
  return r
}

func newTestAgent(t *testing.T, ai AIClient, registry *ChatToolRegistry) *chatAgentService {
  t.Helper()
  svc := NewChatAgentService(testLogger(t), ai, registry, nil, 10, 0, 0).(*chatAgentService)
  svc.chunkDelay = 0
  return svc
}

func collectEvents(t *testing.T, svc ChatAgentService, req types.ChatRequest) []types.ChatStreamEvent {
  t.Helper()
  var events []types.ChatStreamEvent
  svc.Stream(context.Background(), req, func(ev types.ChatStreamEvent) {
    events = append(events, ev)
  })
  return events
}

func eventTypes(events []types.ChatStreamEvent) []string {
  out := make([]string, len(events))
  for i, ev := range events {
    out[i] = ev.Type
  }
  return out
}

func TestChatAgentStream_EndsExactlyOnceAfterComplete(t *testing.T) {
  ai := &fakeAIClient{results: []*ConverseResult{{Text: "All done. Nothing else needed."}}}
  svc := newTestAgent(t, ai, testRegistry())

  events := collectEvents(t, svc, types.ChatRequest{Query: "hello"})

  ends := 0
  for _, ev := range events {
    if ev.Type == types.ChatEventEnd {
      ends++
    }
  }
  if ends != 1 {
    t.Fatalf("expected exactly one end event, got %d (%v)", ends, eventTypes(events))
  }
  if events[len(events)-1].Type != types.ChatEventEnd {
    t.Fatalf("expected end to be last, got %v", eventTypes(events))
  }
  if events[len(events)-2].Type != types.ChatEventComplete {
    t.Fatalf("expected complete before end, got %v", eventTypes(events))
  }
}

func TestChatAgentStream_AssignsSessionID(t *testing.T) {
  ai := &fakeAIClient{results: []*ConverseResult{{Text: "Hi."}}}
  svc := newTestAgent(t, ai, testRegistry())

  events := collectEvents(t, svc, types.ChatRequest{Query: "hello"})

  if events[0].Type != types.ChatEventStart {
    t.Fatalf("expected start first, got %v", eventTypes(events))
  }
  raw, ok := events[0].Data["session_id"].(string)
  if !ok || raw == "" {
    t.Fatalf("expected session_id in start event, got %v", events[0].Data)
  }
  if _, err := uuid.Parse(raw); err != nil {
    t.Fatalf("expected session_id to be a UUID, got %q", raw)
  }
}

func TestChatAgentStream_ReusesProvidedSessionID(t *testing.T) {
  ai := &fakeAIClient{results: []*ConverseResult{{Text: "Hi."}}}
  svc := newTestAgent(t, ai, testRegistry())

  events := collectEvents(t, svc, types.ChatRequest{Query: "hello", SessionID: "sess-42"})

  if got := events[0].Data["session_id"]; got != "sess-42" {
    t.Fatalf("expected session_id sess-42, got %v", got)
  }
}

func TestChatAgentStream_ToolErrorAbsorbed(t *testing.T) {
  registry := testRegistry(&ChatTool{
    Def: ToolDef{Name: "boom", InputSchema: map[string]any{"type": "object"}},
    Run: func(ctx context.Context, input map[string]any) (string, error) {
      return "", fmt.Errorf("backend exploded")
    },
  })
  ai := &fakeAIClient{results: []*ConverseResult{
    {ToolUses: []ToolUse{{ID: "tu_1", Name: "boom", Input: map[string]any{}}}},
    {Text: "Recovered gracefully."},
  }}
  svc := newTestAgent(t, ai, registry)

  events := collectEvents(t, svc, types.ChatRequest{Query: "go"})

  var toolEvent *types.ChatStreamEvent
  for i := range events {
    if events[i].Type == types.ChatEventTool {
      toolEvent = &events[i]
    }
    if events[i].Type == types.ChatEventError {
      t.Fatalf("tool failure must not surface as an error event: %v", eventTypes(events))
    }
  }
  if toolEvent == nil {
    t.Fatalf("expected a tool event, got %v", eventTypes(events))
  }
  if !strings.Contains(toolEvent.Content, "Error running boom") {
    t.Fatalf("expected absorbed error text, got %q", toolEvent.Content)
  }
  if events[len(events)-2].Type != types.ChatEventComplete {
    t.Fatalf("expected complete before end, got %v", eventTypes(events))
  }
}

func TestChatAgentStream_UnknownToolAbsorbed(t *testing.T) {
  ai := &fakeAIClient{results: []*ConverseResult{
    {ToolUses: []ToolUse{{ID: "tu_1", Name: "no_such_tool", Input: map[string]any{}}}},
    {Text: "Moving on."},
  }}
  svc := newTestAgent(t, ai, testRegistry())

  events := collectEvents(t, svc, types.ChatRequest{Query: "go"})
  for _, ev := range events {
    if ev.Type == types.ChatEventError {
      t.Fatalf("unknown tool must not surface as an error event: %v", eventTypes(events))
    }
  }
}

func TestChatAgentStream_ToolRoundCapForcesCompletion(t *testing.T) {
  calls := 0
  registry := testRegistry(&ChatTool{
    Def: ToolDef{Name: "lookup", InputSchema: map[string]any{"type": "object"}},
    Run: func(ctx context.Context, input map[string]any) (string, error) {
      calls++
      return "row", nil
    },
  })
  loop := &ConverseResult{ToolUses: []ToolUse{{ID: "tu", Name: "lookup", Input: map[string]any{}}}}
  results := make([]*ConverseResult, 0, 11)
  for i := 0; i < 10; i++ {
    results = append(results, loop)
  }
  results = append(results, &ConverseResult{Text: "Final answer."})
  ai := &fakeAIClient{results: results}
  svc := newTestAgent(t, ai, registry)

  events := collectEvents(t, svc, types.ChatRequest{Query: "dig deep"})

  if calls != 10 {
    t.Fatalf("expected 10 tool executions, got %d", calls)
  }
  if ai.calls != 11 {
    t.Fatalf("expected 11 model calls (10 rounds + forced completion), got %d", ai.calls)
  }
  if last := ai.toolsSeen[len(ai.toolsSeen)-1]; last != nil {
    t.Fatalf("forced completion must not offer tools, got %d", len(last))
  }
  if events[len(events)-1].Type != types.ChatEventEnd || events[len(events)-2].Type != types.ChatEventComplete {
    t.Fatalf("expected ...complete,end tail, got %v", eventTypes(events))
  }

  complete := events[len(events)-2]
  used, ok := complete.Data["tools_used"].([]string)
  if !ok {
    t.Fatalf("expected tools_used in complete data, got %v", complete.Data)
  }
  if len(used) != 1 || used[0] != "lookup" {
    t.Fatalf("expected deduplicated tools_used [lookup], got %v", used)
  }
}

func TestChatAgentStream_ProviderFailureEmitsErrorThenEnd(t *testing.T) {
  ai := &fakeAIClient{
    results: []*ConverseResult{nil},
    errs:    []error{fmt.Errorf("upstream 500")},
  }
  svc := newTestAgent(t, ai, testRegistry())

  events := collectEvents(t, svc, types.ChatRequest{Query: "hello"})

  got := eventTypes(events)
  if got[len(got)-1] != types.ChatEventEnd || got[len(got)-2] != types.ChatEventError {
    t.Fatalf("expected ...error,end tail, got %v", got)
  }
  for _, ev := range events {
    if ev.Type == types.ChatEventComplete {
      t.Fatalf("no complete event after provider failure: %v", got)
    }
  }
}

func TestChatAgentStream_EmptyMessageRejected(t *testing.T) {
  ai := &fakeAIClient{results: []*ConverseResult{{Text: "unused"}}}
  svc := newTestAgent(t, ai, testRegistry())

  events := collectEvents(t, svc, types.ChatRequest{Query: "   "})

  got := eventTypes(events)
  if got[0] != types.ChatEventError || got[len(got)-1] != types.ChatEventEnd {
    t.Fatalf("expected error,end for empty message, got %v", got)
  }
  if ai.calls != 0 {
    t.Fatalf("model must not be called for empty message")
  }
}

func TestTruncateToolOutput_CapsLengthWithSuffix(t *testing.T) {
  long := strings.Repeat("a", 10000)
  out := truncateToolOutput(long)
  if len(out) != maxToolOutputChars {
    t.Fatalf("expected %d chars, got %d", maxToolOutputChars, len(out))
  }
  if !strings.HasSuffix(out, toolOutputTruncationSuffix) {
    t.Fatalf("expected truncation suffix, got tail %q", out[len(out)-80:])
  }

  short := "short output"
  if truncateToolOutput(short) != short {
    t.Fatalf("short output must pass through unchanged")
  }
}

func TestSplitSentences_ChunksOnBoundaries(t *testing.T) {
  chunks := splitSentences("First thing. Second thing! Third?")
  if len(chunks) != 3 {
    t.Fatalf("expected 3 chunks, got %d: %q", len(chunks), chunks)
  }
  if strings.Join(chunks, "") != "First thing. Second thing! Third?" {
    t.Fatalf("chunks must reassemble to the input, got %q", strings.Join(chunks, ""))
  }
}

func TestSplitSentences_HandlesNoTerminator(t *testing.T) {
  chunks := splitSentences("just a fragment")
  if len(chunks) != 1 || chunks[0] != "just a fragment" {
    t.Fatalf("unexpected chunks: %q", chunks)
  }
  if got := splitSentences("  "); got != nil {
    t.Fatalf("expected nil for blank input, got %q", got)
  }
}

func TestTrimHistory_DropsOldestFirst(t *testing.T) {
  history := []types.ChatMessage{
    {Role: "user", Content: strings.Repeat("x", 400)},
    {Role: "assistant", Content: strings.Repeat("y", 400)},
    {Role: "user", Content: strings.Repeat("z", 400)},
  }
  // Budget fits two messages of ~100 tokens each.
  trimmed := trimHistory(history, 200)
  if len(trimmed) != 2 {
    t.Fatalf("expected 2 messages kept, got %d", len(trimmed))
  }
  if trimmed[0].Role != "assistant" || trimmed[1].Role != "user" {
    t.Fatalf("expected most recent messages kept, got %+v", trimmed)
  }

  if got := trimHistory(history, 0); got != nil {
    t.Fatalf("expected nil for zero budget, got %d messages", len(got))
  }
}
