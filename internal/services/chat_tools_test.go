package services

import (
  "context"
  "fmt"
  "strings"
  "testing"

  "github.com/google/uuid"

  "github.com/nexalyze/nexalyze-backend/internal/types"
)

type fakeDataService struct {
  companies []*types.Company
  stats     *CompanyStats
  searchErr error
}

func (f *fakeDataService) SearchCompanies(ctx context.Context, query string, limit int, filters types.CompanyFilters) ([]*types.Company, error) {
  if f.searchErr != nil {
    return nil, f.searchErr
  }
  return f.companies, nil
}

func (f *fakeDataService) GetCompanyByID(ctx context.Context, id uuid.UUID) (*types.Company, error) {
  return nil, nil
}

func (f *fakeDataService) StoreCompanies(ctx context.Context, companies []*types.Company) (int, error) {
  return len(companies), nil
}

func (f *fakeDataService) Stats(ctx context.Context) (*CompanyStats, error) {
  if f.stats == nil {
    return nil, fmt.Errorf("no stats")
  }
  return f.stats, nil
}

func (f *fakeDataService) SyncYCData(ctx context.Context, limit int) (*SyncStats, error) {
  return &SyncStats{}, nil
}

func (f *fakeDataService) KnowledgeGraph(ctx context.Context, id uuid.UUID) (map[string]any, error) {
  return nil, nil
}

func (f *fakeDataService) KnowledgeGraphByName(ctx context.Context, name string) (map[string]any, error) {
  return nil, nil
}

type fakeResearchService struct {
  analysis *CompanyAnalysis
}

func (f *fakeResearchService) AnalyzeCompany(ctx context.Context, companyName string, includeCompetitors bool) (*CompanyAnalysis, error) {
  return f.analysis, nil
}

type fakeReportService struct {
  ReportGenerationService
  task *types.ReportTask
  err  error

  gotTopic  string
  gotType   string
  gotFormat string
}

func (f *fakeReportService) Enqueue(ctx context.Context, topic, reportType, format string) (*types.ReportTask, error) {
  f.gotTopic, f.gotType, f.gotFormat = topic, reportType, format
  return f.task, f.err
}

func TestChatToolRegistry_RegistersFourToolsInOrder(t *testing.T) {
  registry := NewChatToolRegistry(testLogger(t), &fakeDataService{}, &fakeResearchService{}, &fakeReportService{})

  defs := registry.Defs()
  want := []string{"search_companies", "analyze_company", "generate_report", "get_company_statistics"}
  if len(defs) != len(want) {
    t.Fatalf("expected %d tools, got %d", len(want), len(defs))
  }
  for i, name := range want {
    if defs[i].Name != name {
      t.Fatalf("tool %d: expected %s, got %s", i, name, defs[i].Name)
    }
  }
}

func TestSearchCompaniesTool_FormatsResults(t *testing.T) {
  data := &fakeDataService{companies: []*types.Company{
    {Name: "Anthropic", Industry: "AI", Location: "San Francisco, CA", Description: "AI safety and research company", YCBatch: ""},
    {Name: "Stripe", Industry: "FinTech", Location: "San Francisco, CA", Description: "Payments infrastructure"},
  }}
  registry := NewChatToolRegistry(testLogger(t), data, &fakeResearchService{}, &fakeReportService{})

  tool, ok := registry.Get("search_companies")
  if !ok {
    t.Fatalf("search_companies not registered")
  }
  out, err := tool.Run(context.Background(), map[string]any{"query": "ai", "limit": float64(5)})
  if err != nil {
    t.Fatalf("run: %v", err)
  }
  if !strings.Contains(out, "Found 2 companies matching 'ai'") {
    t.Fatalf("missing header in %q", out)
  }
  if !strings.Contains(out, "1. **Anthropic**") || !strings.Contains(out, "2. **Stripe**") {
    t.Fatalf("missing numbered entries in %q", out)
  }
  if !strings.Contains(out, "Industry: AI") {
    t.Fatalf("missing industry line in %q", out)
  }
}

func TestSearchCompaniesTool_EmptyResultMessage(t *testing.T) {
  registry := NewChatToolRegistry(testLogger(t), &fakeDataService{}, &fakeResearchService{}, &fakeReportService{})

  tool, _ := registry.Get("search_companies")
  out, err := tool.Run(context.Background(), map[string]any{"query": "zzz", "industry": "Quantum"})
  if err != nil {
    t.Fatalf("run: %v", err)
  }
  if !strings.Contains(out, "No companies found matching 'zzz' in Quantum") {
    t.Fatalf("unexpected empty message %q", out)
  }
}

func TestAnalyzeCompanyTool_RequiresName(t *testing.T) {
  registry := NewChatToolRegistry(testLogger(t), &fakeDataService{}, &fakeResearchService{}, &fakeReportService{})

  tool, _ := registry.Get("analyze_company")
  if _, err := tool.Run(context.Background(), map[string]any{}); err == nil {
    t.Fatalf("expected error for missing company_name")
  }
}

func TestAnalyzeCompanyTool_FormatsAnalysis(t *testing.T) {
  research := &fakeResearchService{analysis: &CompanyAnalysis{
    Company: &types.Company{Name: "Anthropic", Industry: "AI", Location: "San Francisco, CA", Description: "AI safety"},
    Competitors: []*types.Company{
      {Name: "OpenAI", Industry: "AI"},
      {Name: "Cohere", Industry: "AI"},
    },
    Insights: "- Strong research brand.",
  }}
  registry := NewChatToolRegistry(testLogger(t), &fakeDataService{}, research, &fakeReportService{})

  tool, _ := registry.Get("analyze_company")
  out, err := tool.Run(context.Background(), map[string]any{"company_name": "Anthropic"})
  if err != nil {
    t.Fatalf("run: %v", err)
  }
  for _, want := range []string{
    "## Analysis of Anthropic",
    "**Company Overview:**",
    "Competitive Landscape (2 competitors found)",
    "1. OpenAI - AI",
    "**Key Insights:**",
  } {
    if !strings.Contains(out, want) {
      t.Fatalf("missing %q in %q", want, out)
    }
  }
}

func TestGenerateReportTool_PassesDefaultsAndReturnsTaskID(t *testing.T) {
  id := uuid.New()
  reports := &fakeReportService{task: &types.ReportTask{ID: id}}
  registry := NewChatToolRegistry(testLogger(t), &fakeDataService{}, &fakeResearchService{}, reports)

  tool, _ := registry.Get("generate_report")
  out, err := tool.Run(context.Background(), map[string]any{"topic": "AI agents"})
  if err != nil {
    t.Fatalf("run: %v", err)
  }
  if reports.gotType != "comprehensive" || reports.gotFormat != "pdf" {
    t.Fatalf("expected defaults comprehensive/pdf, got %s/%s", reports.gotType, reports.gotFormat)
  }
  if !strings.Contains(out, id.String()) {
    t.Fatalf("expected task id in output, got %q", out)
  }
  if !strings.Contains(out, "/report-tasks/") {
    t.Fatalf("expected poll pointer in output, got %q", out)
  }
}

func TestStatisticsTool_FormatsStats(t *testing.T) {
  data := &fakeDataService{stats: &CompanyStats{
    TotalCompanies: 1234,
    TopIndustries:  map[string]int64{"AI": 300},
    TopLocations:   map[string]int64{"San Francisco, CA": 200},
  }}
  registry := NewChatToolRegistry(testLogger(t), data, &fakeResearchService{}, &fakeReportService{})

  tool, _ := registry.Get("get_company_statistics")
  out, err := tool.Run(context.Background(), map[string]any{})
  if err != nil {
    t.Fatalf("run: %v", err)
  }
  for _, want := range []string{
    "## Database Statistics",
    "**Total Companies:** 1234",
    "- AI: 300 companies",
    "- San Francisco, CA: 200 companies",
  } {
    if !strings.Contains(out, want) {
      t.Fatalf("missing %q in %q", want, out)
    }
  }
}

func TestArgHelpers(t *testing.T) {
  input := map[string]any{
    "s":    "  padded  ",
    "n":    float64(7),
    "zero": float64(0),
    "b":    true,
  }
  if got := stringArg(input, "s"); got != "padded" {
    t.Fatalf("stringArg = %q", got)
  }
  if got := intArg(input, "n", 3); got != 7 {
    t.Fatalf("intArg = %d", got)
  }
  if got := intArg(input, "zero", 3); got != 3 {
    t.Fatalf("intArg should fall back for non-positive, got %d", got)
  }
  if got := intArg(input, "missing", 3); got != 3 {
    t.Fatalf("intArg default = %d", got)
  }
  if !boolArg(input, "b", false) {
    t.Fatalf("boolArg should read true")
  }
  if boolArg(input, "missing", false) {
    t.Fatalf("boolArg default should apply")
  }
  if got := truncate("abcdef", 3); got != "abc..." {
    t.Fatalf("truncate = %q", got)
  }
  if got := orNA(" "); got != "N/A" {
    t.Fatalf("orNA = %q", got)
  }
}
