package services

import (
  "context"
  "fmt"
  "strings"
  "time"

  "github.com/nexalyze/nexalyze-backend/internal/clients/rediscache"
  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

type CompanyAnalysis struct {
  Company     *types.Company   `json:"company"`
  Competitors []*types.Company `json:"competitors,omitempty"`
  Insights    string           `json:"insights,omitempty"`
}

type ResearchService interface {
  AnalyzeCompany(ctx context.Context, companyName string, includeCompetitors bool) (*CompanyAnalysis, error)
}

type researchService struct {
  log   *logger.Logger
  data  CompanyDataService
  gen   TextGenerator
  cache rediscache.Client

  cacheTTL time.Duration
}

func NewResearchService(baseLog *logger.Logger, data CompanyDataService, gen TextGenerator, cache rediscache.Client, cacheTTL time.Duration) ResearchService {
  return &researchService{
    log:      baseLog.With("service", "ResearchService"),
    data:     data,
    gen:      gen,
    cache:    cache,
    cacheTTL: cacheTTL,
  }
}

func (s *researchService) AnalyzeCompany(ctx context.Context, companyName string, includeCompetitors bool) (*CompanyAnalysis, error) {
  companyName = strings.TrimSpace(companyName)
  if companyName == "" {
    return nil, fmt.Errorf("company name required")
  }

  cacheKey := rediscache.Key("analysis", fmt.Sprintf("%s:%t", strings.ToLower(companyName), includeCompetitors))
  if s.cache != nil {
    var cached CompanyAnalysis
    if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
      return &cached, nil
    }
  }

  matches, err := s.data.SearchCompanies(ctx, companyName, 1, types.CompanyFilters{})
  if err != nil {
    return nil, fmt.Errorf("look up company: %w", err)
  }
  if len(matches) == 0 {
    return nil, nil
  }
  company := matches[0]

  analysis := &CompanyAnalysis{Company: company}

  if includeCompetitors && company.Industry != "" {
    competitors, err := s.data.SearchCompanies(ctx, "", 6, types.CompanyFilters{Industry: company.Industry})
    if err != nil {
      s.log.Warn("Competitor lookup failed", "company", companyName, "error", err)
    } else {
      for _, competitor := range competitors {
        if strings.EqualFold(competitor.Name, company.Name) {
          continue
        }
        analysis.Competitors = append(analysis.Competitors, competitor)
        if len(analysis.Competitors) >= 5 {
          break
        }
      }
    }
  }

  insights, err := s.generateInsights(ctx, analysis)
  if err != nil {
    s.log.Warn("Insight generation failed", "company", companyName, "error", err)
  } else {
    analysis.Insights = insights
  }

  if s.cache != nil {
    if err := s.cache.SetJSON(ctx, cacheKey, analysis, s.cacheTTL); err != nil {
      s.log.Warn("Failed to cache analysis", "error", err)
    }
  }
  return analysis, nil
}

func (s *researchService) generateInsights(ctx context.Context, analysis *CompanyAnalysis) (string, error) {
  if s.gen == nil {
    return "", fmt.Errorf("no text generator configured")
  }
  company := analysis.Company

  var b strings.Builder
  fmt.Fprintf(&b, "Provide 3-5 concise strategic insights about %s.\n\n", company.Name)
  fmt.Fprintf(&b, "Company facts:\n- Industry: %s\n- Location: %s\n- Description: %s\n", company.Industry, company.Location, company.Description)
  if company.Funding != "" {
    fmt.Fprintf(&b, "- Funding: %s\n", company.Funding)
  }
  if company.Stage != "" {
    fmt.Fprintf(&b, "- Stage: %s\n", company.Stage)
  }
  if len(analysis.Competitors) > 0 {
    names := make([]string, 0, len(analysis.Competitors))
    for _, competitor := range analysis.Competitors {
      names = append(names, competitor.Name)
    }
    fmt.Fprintf(&b, "- Known competitors: %s\n", strings.Join(names, ", "))
  }
  b.WriteString("\nReturn plain prose bullet points, no preamble.")

  return s.gen.GenerateText(ctx, b.String(), 0.3)
}
