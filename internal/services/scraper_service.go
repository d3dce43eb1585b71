package services

import (
  "context"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "net/url"
  "strings"
  "sync"
  "time"

  "github.com/PuerkitoBio/goquery"
  "golang.org/x/sync/errgroup"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

const betaListBaseURL = "https://betalist.com"

type ScrapeResult struct {
  Discovered int `json:"discovered"`
  Stored     int `json:"stored"`
}

type ScraperService interface {
  ScrapeBetaList(ctx context.Context, pages int) (*ScrapeResult, error)
  DiscoverViaSerpAPI(ctx context.Context, query string, limit int) (*ScrapeResult, error)
}

type scraperService struct {
  log        *logger.Logger
  data       CompanyDataService
  httpClient *http.Client

  serpAPIKey    string
  maxConcurrent int
}

func NewScraperService(baseLog *logger.Logger, data CompanyDataService, serpAPIKey string, maxConcurrent int) ScraperService {
  if maxConcurrent <= 0 {
    maxConcurrent = 5
  }
  return &scraperService{
    log:           baseLog.With("service", "ScraperService"),
    data:          data,
    httpClient:    &http.Client{Timeout: 30 * time.Second},
    serpAPIKey:    serpAPIKey,
    maxConcurrent: maxConcurrent,
  }
}

func (s *scraperService) ScrapeBetaList(ctx context.Context, pages int) (*ScrapeResult, error) {
  if pages <= 0 {
    pages = 1
  }
  if pages > 10 {
    pages = 10
  }

  var mu sync.Mutex
  var companies []*types.Company

  g, gctx := errgroup.WithContext(ctx)
  g.SetLimit(s.maxConcurrent)

  for page := 1; page <= pages; page++ {
    g.Go(func() error {
      pageURL := betaListBaseURL + "/startups"
      if page > 1 {
        pageURL = fmt.Sprintf("%s/startups?page=%d", betaListBaseURL, page)
      }
      found, err := s.scrapeBetaListPage(gctx, pageURL)
      if err != nil {
        s.log.Warn("BetaList page scrape failed", "url", pageURL, "error", err)
        return nil
      }
      mu.Lock()
      companies = append(companies, found...)
      mu.Unlock()
      return nil
    })
  }
  if err := g.Wait(); err != nil {
    return nil, err
  }

  stored, err := s.data.StoreCompanies(ctx, companies)
  if err != nil {
    return nil, err
  }
  result := &ScrapeResult{Discovered: len(companies), Stored: stored}
  s.log.Info("BetaList scrape completed", "discovered", result.Discovered, "stored", result.Stored)
  return result, nil
}

func (s *scraperService) scrapeBetaListPage(ctx context.Context, pageURL string) ([]*types.Company, error) {
  req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
  if err != nil {
    return nil, err
  }
  req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; nexalyze/1.0)")

  resp, err := s.httpClient.Do(req)
  if err != nil {
    return nil, err
  }
  defer resp.Body.Close()

  if resp.StatusCode != http.StatusOK {
    return nil, fmt.Errorf("status %d", resp.StatusCode)
  }

  doc, err := goquery.NewDocumentFromReader(resp.Body)
  if err != nil {
    return nil, err
  }

  var companies []*types.Company
  doc.Find("a[href^='/startups/']").Each(func(_ int, sel *goquery.Selection) {
    name := strings.TrimSpace(sel.Find("h3, .startup-name").First().Text())
    if name == "" {
      name = strings.TrimSpace(sel.AttrOr("title", ""))
    }
    pitch := strings.TrimSpace(sel.Find("p, .startup-pitch").First().Text())
    if name == "" || len(name) > 80 {
      return
    }
    href, _ := sel.Attr("href")
    companies = append(companies, &types.Company{
      Name:        name,
      Description: pitch,
      Website:     betaListBaseURL + href,
      Source:      "betalist",
      IsActive:    true,
    })
  })
  return dedupeByName(companies), nil
}

type serpResponse struct {
  OrganicResults []struct {
    Title   string `json:"title"`
    Link    string `json:"link"`
    Snippet string `json:"snippet"`
  } `json:"organic_results"`
}

func (s *scraperService) DiscoverViaSerpAPI(ctx context.Context, query string, limit int) (*ScrapeResult, error) {
  query = strings.TrimSpace(query)
  if query == "" {
    return nil, fmt.Errorf("query required")
  }
  if s.serpAPIKey == "" {
    return nil, fmt.Errorf("SERP_API_KEY not configured")
  }
  if limit <= 0 || limit > 20 {
    limit = 10
  }

  endpoint := fmt.Sprintf(
    "https://serpapi.com/search?engine=google&q=%s&num=%d&api_key=%s",
    url.QueryEscape(query+" startup company"), limit, url.QueryEscape(s.serpAPIKey),
  )

  req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
  if err != nil {
    return nil, err
  }
  resp, err := s.httpClient.Do(req)
  if err != nil {
    return nil, fmt.Errorf("serp api request: %w", err)
  }
  defer resp.Body.Close()

  if resp.StatusCode != http.StatusOK {
    return nil, fmt.Errorf("serp api returned status %d", resp.StatusCode)
  }
  raw, err := io.ReadAll(resp.Body)
  if err != nil {
    return nil, err
  }

  var parsed serpResponse
  if err := json.Unmarshal(raw, &parsed); err != nil {
    return nil, fmt.Errorf("parse serp response: %w", err)
  }

  var companies []*types.Company
  for _, item := range parsed.OrganicResults {
    name := cleanSerpTitle(item.Title)
    if name == "" {
      continue
    }
    companies = append(companies, &types.Company{
      Name:        name,
      Description: item.Snippet,
      Website:     item.Link,
      Source:      "serp",
      IsActive:    true,
    })
    if len(companies) >= limit {
      break
    }
  }
  companies = dedupeByName(companies)

  stored, err := s.data.StoreCompanies(ctx, companies)
  if err != nil {
    return nil, err
  }
  result := &ScrapeResult{Discovered: len(companies), Stored: stored}
  s.log.Info("SERP discovery completed", "query", query, "discovered", result.Discovered, "stored", result.Stored)
  return result, nil
}

// cleanSerpTitle keeps the part before common separators, which is usually the company name.
func cleanSerpTitle(title string) string {
  for _, sep := range []string{" - ", " | ", " – ", ": "} {
    if idx := strings.Index(title, sep); idx > 0 {
      title = title[:idx]
      break
    }
  }
  title = strings.TrimSpace(title)
  if len(title) > 80 {
    return ""
  }
  return title
}

func dedupeByName(companies []*types.Company) []*types.Company {
  seen := make(map[string]bool, len(companies))
  out := make([]*types.Company, 0, len(companies))
  for _, company := range companies {
    key := strings.ToLower(company.Name)
    if seen[key] {
      continue
    }
    seen[key] = true
    out = append(out, company)
  }
  return out
}
