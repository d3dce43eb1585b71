package services

import (
  "context"
  "fmt"
  "strings"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

// ChatTool pairs a model-facing definition with its executor.
type ChatTool struct {
  Def ToolDef
  Run func(ctx context.Context, input map[string]any) (string, error)
}

type ChatToolRegistry struct {
  log   *logger.Logger
  tools map[string]*ChatTool
  order []string
}

func NewChatToolRegistry(
  baseLog *logger.Logger,
  data CompanyDataService,
  research ResearchService,
  reports ReportGenerationService,
) *ChatToolRegistry {
  r := &ChatToolRegistry{
    log:   baseLog.With("service", "ChatToolRegistry"),
    tools: map[string]*ChatTool{},
  }

  r.register(&ChatTool{
    Def: ToolDef{
      Name:        "search_companies",
      Description: "Search for companies by name, industry, description, or other attributes. Returns a formatted list of companies with their key information.",
      InputSchema: map[string]any{
        "type": "object",
        "properties": map[string]any{
          "query": map[string]any{
            "type":        "string",
            "description": "Search query to find companies (name, industry, description, etc.). Can be empty to search all.",
          },
          "limit": map[string]any{
            "type":        "integer",
            "description": "Maximum number of companies to return",
          },
          "industry": map[string]any{
            "type":        "string",
            "description": "Filter by industry (e.g., AI, Healthcare, FinTech)",
          },
        },
      },
    },
    Run: func(ctx context.Context, input map[string]any) (string, error) {
      query := stringArg(input, "query")
      limit := intArg(input, "limit", 10)
      industry := stringArg(input, "industry")

      companies, err := data.SearchCompanies(ctx, query, limit, types.CompanyFilters{Industry: industry})
      if err != nil {
        return "", fmt.Errorf("searching companies: %w", err)
      }
      if len(companies) == 0 {
        desc := "all companies"
        if query != "" {
          desc = "'" + query + "'"
        }
        if industry != "" {
          desc += " in " + industry
        }
        return fmt.Sprintf("No companies found matching %s. Try a different search term or industry.", desc), nil
      }

      var b strings.Builder
      fmt.Fprintf(&b, "Found %d companies", len(companies))
      if query != "" {
        fmt.Fprintf(&b, " matching '%s'", query)
      }
      if industry != "" {
        fmt.Fprintf(&b, " in %s", industry)
      }
      b.WriteString(":\n\n")
      for i, company := range companies {
        fmt.Fprintf(&b, "%d. **%s**\n", i+1, company.Name)
        fmt.Fprintf(&b, "   - Industry: %s\n", orNA(company.Industry))
        fmt.Fprintf(&b, "   - Location: %s\n", orNA(company.Location))
        fmt.Fprintf(&b, "   - Description: %s\n", truncate(orNA(company.Description), 100))
        if company.YCBatch != "" {
          fmt.Fprintf(&b, "   - YC Batch: %s\n", company.YCBatch)
        }
        b.WriteString("\n")
      }
      return b.String(), nil
    },
  })

  r.register(&ChatTool{
    Def: ToolDef{
      Name:        "analyze_company",
      Description: "Perform comprehensive analysis of a specific company including overview, competitive landscape, market positioning, and key insights.",
      InputSchema: map[string]any{
        "type": "object",
        "properties": map[string]any{
          "company_name": map[string]any{
            "type":        "string",
            "description": "Name of the company to analyze",
          },
          "include_competitors": map[string]any{
            "type":        "boolean",
            "description": "Whether to include competitor analysis",
          },
        },
        "required": []string{"company_name"},
      },
    },
    Run: func(ctx context.Context, input map[string]any) (string, error) {
      companyName := stringArg(input, "company_name")
      if companyName == "" {
        return "", fmt.Errorf("company_name is required")
      }
      includeCompetitors := boolArg(input, "include_competitors", true)

      analysis, err := research.AnalyzeCompany(ctx, companyName, includeCompetitors)
      if err != nil {
        return "", fmt.Errorf("analyzing company: %w", err)
      }
      if analysis == nil {
        return fmt.Sprintf("Could not find or analyze company '%s'. Please check the company name.", companyName), nil
      }

      var b strings.Builder
      fmt.Fprintf(&b, "## Analysis of %s\n\n", companyName)
      if analysis.Company != nil {
        company := analysis.Company
        b.WriteString("**Company Overview:**\n")
        fmt.Fprintf(&b, "- Industry: %s\n", orNA(company.Industry))
        fmt.Fprintf(&b, "- Location: %s\n", orNA(company.Location))
        fmt.Fprintf(&b, "- Description: %s\n", orNA(company.Description))
        if company.Website != "" {
          fmt.Fprintf(&b, "- Website: %s\n", company.Website)
        }
        b.WriteString("\n")
      }
      if includeCompetitors && len(analysis.Competitors) > 0 {
        fmt.Fprintf(&b, "**Competitive Landscape (%d competitors found):**\n", len(analysis.Competitors))
        for i, competitor := range analysis.Competitors {
          if i >= 5 {
            break
          }
          fmt.Fprintf(&b, "%d. %s - %s\n", i+1, competitor.Name, orNA(competitor.Industry))
        }
        b.WriteString("\n")
      }
      if analysis.Insights != "" {
        fmt.Fprintf(&b, "**Key Insights:**\n%s\n", analysis.Insights)
      }
      return b.String(), nil
    },
  })

  r.register(&ChatTool{
    Def: ToolDef{
      Name:        "generate_report",
      Description: "Generate a comprehensive report for a topic, company, or industry. The report is produced in the background; the returned task id can be polled for status.",
      InputSchema: map[string]any{
        "type": "object",
        "properties": map[string]any{
          "topic": map[string]any{
            "type":        "string",
            "description": "Topic or company name for the report",
          },
          "report_type": map[string]any{
            "type":        "string",
            "description": "Type of report: comprehensive, executive, detailed, market_overview, competitive_analysis",
          },
          "format": map[string]any{
            "type":        "string",
            "description": "Report format: pdf or docx",
          },
        },
        "required": []string{"topic"},
      },
    },
    Run: func(ctx context.Context, input map[string]any) (string, error) {
      topic := stringArg(input, "topic")
      reportType := stringArg(input, "report_type")
      if reportType == "" {
        reportType = "comprehensive"
      }
      format := stringArg(input, "format")
      if format == "" {
        format = "pdf"
      }

      task, err := reports.Enqueue(ctx, topic, reportType, format)
      if err != nil {
        return "", fmt.Errorf("starting report generation: %w", err)
      }
      return fmt.Sprintf(
        "Report generation started.\n\n- **Topic:** %s\n- **Type:** %s\n- **Format:** %s\n- **Task ID:** %s\n\nThe report is being generated in the background. Poll /report-tasks/%s for status.",
        topic, reportType, format, task.ID, task.ID,
      ), nil
    },
  })

  r.register(&ChatTool{
    Def: ToolDef{
      Name:        "get_company_statistics",
      Description: "Get overall statistics about companies in the database: totals, industry distribution, and location distribution.",
      InputSchema: map[string]any{
        "type":       "object",
        "properties": map[string]any{},
      },
    },
    Run: func(ctx context.Context, input map[string]any) (string, error) {
      stats, err := data.Stats(ctx)
      if err != nil {
        return "", fmt.Errorf("getting statistics: %w", err)
      }

      var b strings.Builder
      b.WriteString("## Database Statistics\n\n")
      fmt.Fprintf(&b, "**Total Companies:** %d\n\n", stats.TotalCompanies)
      if len(stats.TopIndustries) > 0 {
        b.WriteString("**Top Industries:**\n")
        for industry, count := range stats.TopIndustries {
          fmt.Fprintf(&b, "- %s: %d companies\n", industry, count)
        }
        b.WriteString("\n")
      }
      if len(stats.TopLocations) > 0 {
        b.WriteString("**Top Locations:**\n")
        for location, count := range stats.TopLocations {
          fmt.Fprintf(&b, "- %s: %d companies\n", location, count)
        }
      }
      return b.String(), nil
    },
  })

  return r
}

func (r *ChatToolRegistry) register(tool *ChatTool) {
  r.tools[tool.Def.Name] = tool
  r.order = append(r.order, tool.Def.Name)
}

func (r *ChatToolRegistry) Defs() []ToolDef {
  defs := make([]ToolDef, 0, len(r.order))
  for _, name := range r.order {
    defs = append(defs, r.tools[name].Def)
  }
  return defs
}

func (r *ChatToolRegistry) Get(name string) (*ChatTool, bool) {
  tool, ok := r.tools[name]
  return tool, ok
}

func stringArg(input map[string]any, key string) string {
  if v, ok := input[key].(string); ok {
    return strings.TrimSpace(v)
  }
  return ""
}

func intArg(input map[string]any, key string, def int) int {
  switch v := input[key].(type) {
  case float64:
    if v > 0 {
      return int(v)
    }
  case int:
    if v > 0 {
      return v
    }
  }
  return def
}

func boolArg(input map[string]any, key string, def bool) bool {
  if v, ok := input[key].(bool); ok {
    return v
  }
  return def
}

func orNA(s string) string {
  if strings.TrimSpace(s) == "" {
    return "N/A"
  }
  return s
}

func truncate(s string, max int) string {
  if len(s) <= max {
    return s
  }
  return s[:max] + "..."
}
