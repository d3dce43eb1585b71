package services

import (
  "context"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/nexalyze/nexalyze-backend/internal/clients/neo4jdb"
  "github.com/nexalyze/nexalyze-backend/internal/clients/rediscache"
  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/repos"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

const ycAPIBaseURL = "https://yc-oss.github.io/api"

type SyncStats struct {
  Synced          int     `json:"synced"`
  Skipped         int     `json:"skipped"`
  Failed          int     `json:"failed"`
  TotalAvailable  int     `json:"total_available"`
  DurationSeconds float64 `json:"duration_seconds"`
}

type CompanyStats struct {
  TotalCompanies int64            `json:"total_companies"`
  TopIndustries  map[string]int64 `json:"top_industries"`
  TopLocations   map[string]int64 `json:"top_locations"`
}

type CompanyDataService interface {
  SearchCompanies(ctx context.Context, query string, limit int, filters types.CompanyFilters) ([]*types.Company, error)
  GetCompanyByID(ctx context.Context, id uuid.UUID) (*types.Company, error)
  StoreCompanies(ctx context.Context, companies []*types.Company) (int, error)
  Stats(ctx context.Context) (*CompanyStats, error)
  SyncYCData(ctx context.Context, limit int) (*SyncStats, error)
  KnowledgeGraph(ctx context.Context, id uuid.UUID) (map[string]any, error)
  KnowledgeGraphByName(ctx context.Context, name string) (map[string]any, error)
}

type companyDataService struct {
  db    *gorm.DB
  log   *logger.Logger
  repo  repos.CompanyRepo
  cache rediscache.Client
  graph *neo4jdb.Client

  searchTTL  time.Duration
  defaultTTL time.Duration
  httpClient *http.Client
}

func NewCompanyDataService(
  db *gorm.DB,
  baseLog *logger.Logger,
  repo repos.CompanyRepo,
  cache rediscache.Client,
  graph *neo4jdb.Client,
  searchTTL time.Duration,
  defaultTTL time.Duration,
) CompanyDataService {
  return &companyDataService{
    db:         db,
    log:        baseLog.With("service", "CompanyDataService"),
    repo:       repo,
    cache:      cache,
    graph:      graph,
    searchTTL:  searchTTL,
    defaultTTL: defaultTTL,
    httpClient: &http.Client{Timeout: 120 * time.Second},
  }
}

func (s *companyDataService) SearchCompanies(ctx context.Context, query string, limit int, filters types.CompanyFilters) ([]*types.Company, error) {
  query = strings.TrimSpace(query)
  if limit <= 0 {
    limit = 10
  }

  filterRaw, _ := json.Marshal(filters)
  cacheKey := rediscache.Key("search", fmt.Sprintf("%s:%d:%s", query, limit, filterRaw))

  if s.cache != nil {
    var cached []*types.Company
    if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
      s.log.Debug("Returning cached search results", "query", query)
      return cached, nil
    }
  }

  results, err := s.repo.Search(ctx, nil, query, limit, filters)
  if err != nil {
    s.log.Warn("Company search failed, falling back to sample data", "query", query, "error", err)
    results = nil
  }

  if len(results) == 0 {
    s.log.Info("No stored results, using sample data", "query", query)
    results = sampleCompanies(query, limit)
  }

  if s.cache != nil && len(results) > 0 {
    if err := s.cache.SetJSON(ctx, cacheKey, results, s.searchTTL); err != nil {
      s.log.Warn("Failed to cache search results", "error", err)
    }
  }
  return results, nil
}

func (s *companyDataService) GetCompanyByID(ctx context.Context, id uuid.UUID) (*types.Company, error) {
  if id == uuid.Nil {
    return nil, nil
  }

  cacheKey := rediscache.Key("company", id.String())
  if s.cache != nil {
    var cached types.Company
    if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
      return &cached, nil
    }
  }

  company, err := s.repo.GetByID(ctx, nil, id)
  if err != nil {
    return nil, err
  }
  if company == nil {
    return nil, nil
  }

  if s.cache != nil {
    if err := s.cache.SetJSON(ctx, cacheKey, company, s.defaultTTL); err != nil {
      s.log.Warn("Failed to cache company", "error", err)
    }
  }
  return company, nil
}

func (s *companyDataService) StoreCompanies(ctx context.Context, companies []*types.Company) (int, error) {
  if len(companies) == 0 {
    return 0, nil
  }
  now := time.Now()
  for _, company := range companies {
    if company.ID == uuid.Nil {
      company.ID = uuid.New()
    }
    if company.CreatedAt.IsZero() {
      company.CreatedAt = now
    }
    company.UpdatedAt = now
  }
  stored, err := s.repo.Upsert(ctx, nil, companies)
  if err != nil {
    return 0, fmt.Errorf("upsert companies: %w", err)
  }
  s.mirrorToGraph(ctx, companies)
  return stored, nil
}

// mirrorToGraph keeps the knowledge graph in sync, best-effort.
func (s *companyDataService) mirrorToGraph(ctx context.Context, companies []*types.Company) {
  if !s.graph.Connected() {
    return
  }
  for _, company := range companies {
    err := s.graph.Write(ctx, `
      MERGE (c:Company {name: $name})
      SET c.description = $description,
          c.industry = $industry,
          c.founded_year = $founded_year,
          c.location = $location,
          c.website = $website,
          c.yc_batch = $yc_batch,
          c.stage = $stage,
          c.updated_at = datetime()
    `, map[string]any{
      "name":         company.Name,
      "description":  company.Description,
      "industry":     company.Industry,
      "founded_year": company.FoundedYear,
      "location":     company.Location,
      "website":      company.Website,
      "yc_batch":     company.YCBatch,
      "stage":        company.Stage,
    })
    if err != nil {
      s.log.Warn("Failed to mirror company to graph", "name", company.Name, "error", err)
      return
    }
  }
}

func (s *companyDataService) Stats(ctx context.Context) (*CompanyStats, error) {
  total, err := s.repo.CountAll(ctx, nil)
  if err != nil {
    return nil, err
  }
  industries, err := s.repo.TopIndustries(ctx, nil, 10)
  if err != nil {
    return nil, err
  }
  locations, err := s.repo.TopLocations(ctx, nil, 10)
  if err != nil {
    return nil, err
  }
  return &CompanyStats{
    TotalCompanies: total,
    TopIndustries:  industries,
    TopLocations:   locations,
  }, nil
}

type ycCompany struct {
  Name            string   `json:"name"`
  OneLiner        string   `json:"one_liner"`
  LongDescription string   `json:"long_description"`
  Industries      []string `json:"industries"`
  AllLocations    string   `json:"all_locations"`
  Website         string   `json:"website"`
  Batch           string   `json:"batch"`
  TeamSize        int      `json:"team_size"`
  Status          string   `json:"status"`
  Stage           string   `json:"stage"`
  Tags            []string `json:"tags"`
}

func (s *companyDataService) SyncYCData(ctx context.Context, limit int) (*SyncStats, error) {
  start := time.Now()
  stats := &SyncStats{}

  all, err := s.fetchYCCompanies(ctx)
  if err != nil {
    return stats, err
  }

  withIndustries := make([]ycCompany, 0, len(all))
  for _, yc := range all {
    if len(yc.Industries) > 0 {
      withIndustries = append(withIndustries, yc)
    }
  }
  stats.TotalAvailable = len(withIndustries)
  s.log.Info("Fetched YC companies", "total", len(all), "with_industries", len(withIndustries))

  batch := make([]*types.Company, 0, 100)
  flush := func() {
    if len(batch) == 0 {
      return
    }
    stored, err := s.StoreCompanies(ctx, batch)
    if err != nil {
      s.log.Warn("YC batch store failed", "size", len(batch), "error", err)
      stats.Failed += len(batch)
    } else {
      stats.Synced += stored
    }
    batch = batch[:0]
  }

  for _, yc := range withIndustries {
    if limit > 0 && stats.Synced+len(batch) >= limit {
      break
    }
    company := companyFromYC(yc)
    if company == nil {
      stats.Skipped++
      continue
    }
    batch = append(batch, company)
    if len(batch) >= 100 {
      flush()
    }
  }
  flush()

  stats.DurationSeconds = time.Since(start).Seconds()
  s.log.Info("YC sync completed",
    "synced", stats.Synced,
    "skipped", stats.Skipped,
    "failed", stats.Failed,
    "duration_seconds", stats.DurationSeconds,
  )
  return stats, nil
}

func (s *companyDataService) fetchYCCompanies(ctx context.Context) ([]ycCompany, error) {
  cacheKey := rediscache.Key("yc", "all_companies")
  if s.cache != nil {
    var cached []ycCompany
    if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
      s.log.Info("Using cached YC data", "count", len(cached))
      return cached, nil
    }
  }

  req, err := http.NewRequestWithContext(ctx, "GET", ycAPIBaseURL+"/companies/all.json", nil)
  if err != nil {
    return nil, err
  }
  resp, err := s.httpClient.Do(req)
  if err != nil {
    return nil, fmt.Errorf("fetch yc companies: %w", err)
  }
  defer resp.Body.Close()

  if resp.StatusCode != http.StatusOK {
    return nil, fmt.Errorf("yc api returned status %d", resp.StatusCode)
  }
  raw, err := io.ReadAll(resp.Body)
  if err != nil {
    return nil, fmt.Errorf("read yc response: %w", err)
  }

  var all []ycCompany
  if err := json.Unmarshal(raw, &all); err != nil {
    return nil, fmt.Errorf("parse yc companies: %w", err)
  }

  if s.cache != nil {
    if err := s.cache.SetJSON(ctx, cacheKey, all, time.Hour); err != nil {
      s.log.Warn("Failed to cache YC data", "error", err)
    }
  }
  return all, nil
}

func companyFromYC(yc ycCompany) *types.Company {
  name := strings.TrimSpace(yc.Name)
  if name == "" {
    return nil
  }
  industry := ""
  if len(yc.Industries) > 0 {
    industry = yc.Industries[0]
  }
  employees := ""
  if yc.TeamSize > 0 {
    employees = fmt.Sprintf("%d", yc.TeamSize)
  }
  tags, _ := json.Marshal(yc.Tags)
  return &types.Company{
    ID:              uuid.New(),
    Name:            name,
    Description:     yc.OneLiner,
    LongDescription: yc.LongDescription,
    Industry:        industry,
    Location:        yc.AllLocations,
    Website:         yc.Website,
    YCBatch:         yc.Batch,
    Employees:       employees,
    Stage:           yc.Stage,
    IsActive:        !strings.EqualFold(yc.Status, "inactive"),
    Tags:            datatypes.JSON(tags),
    Source:          "yc",
  }
}

func (s *companyDataService) KnowledgeGraph(ctx context.Context, id uuid.UUID) (map[string]any, error) {
  company, err := s.GetCompanyByID(ctx, id)
  if err != nil {
    return nil, err
  }
  if company == nil {
    return nil, nil
  }
  return s.graphForName(ctx, company.Name), nil
}

func (s *companyDataService) KnowledgeGraphByName(ctx context.Context, name string) (map[string]any, error) {
  name = strings.TrimSpace(name)
  if name == "" {
    return nil, fmt.Errorf("company name required")
  }
  // Use the stored casing when the company is known.
  if company, err := s.repo.GetByName(ctx, nil, name); err == nil && company != nil {
    name = company.Name
  }
  return s.graphForName(ctx, name), nil
}

func (s *companyDataService) graphForName(ctx context.Context, name string) map[string]any {
  nodes := []map[string]any{{
    "id":    "main",
    "label": name,
    "group": "main_company",
    "size":  40,
  }}
  edges := []map[string]any{}

  if s.graph.Connected() {
    rows, err := s.graph.Query(ctx, `
      MATCH (c:Company)
      WHERE toLower(c.name) = toLower($name)
      OPTIONAL MATCH (c)-[r]-(related)
      RETURN type(r) AS rel_type, related
      LIMIT 20
    `, map[string]any{"name": name})
    if err != nil {
      s.log.Warn("Knowledge graph query failed", "name", name, "error", err)
    }
    for i, row := range rows {
      related, ok := row["related"].(map[string]any)
      if !ok || related == nil {
        continue
      }
      label, _ := related["name"].(string)
      if label == "" {
        label = "Related Entity"
      }
      relType, _ := row["rel_type"].(string)
      if relType == "" {
        relType = "related"
      }
      nodeID := fmt.Sprintf("related_%d", i)
      nodes = append(nodes, map[string]any{
        "id":    nodeID,
        "label": label,
        "group": "related",
        "size":  20,
      })
      edges = append(edges, map[string]any{
        "from":  "main",
        "to":    nodeID,
        "label": relType,
      })
    }
  }

  return map[string]any{
    "company_name": name,
    "nodes":        nodes,
    "edges":        edges,
    "total_nodes":  len(nodes),
    "total_edges":  len(edges),
  }
}

// Curated fallback used when the database is empty or unreachable.
func sampleCompanies(query string, limit int) []*types.Company {
  queryLower := strings.ToLower(query)

  categories := map[string][]*types.Company{
    "ai": {
      sampleCompany("OpenAI", "AI research company focused on creating safe artificial general intelligence", "Artificial Intelligence", 2015, "San Francisco, CA", "https://openai.com", "S15", "$11.3B", "Series C"),
      sampleCompany("Anthropic", "AI safety company developing Claude, a helpful AI assistant", "Artificial Intelligence", 2021, "San Francisco, CA", "https://anthropic.com", "S21", "$4.1B", "Series C"),
      sampleCompany("Cohere", "Natural language processing AI platform for enterprises", "Artificial Intelligence", 2019, "Toronto, Canada", "https://cohere.ai", "W19", "$270M", "Series C"),
    },
    "fintech": {
      sampleCompany("Stripe", "Online payment processing platform for internet businesses", "Financial Technology", 2010, "San Francisco, CA", "https://stripe.com", "S10", "$2.2B", "Series H"),
      sampleCompany("Coinbase", "Cryptocurrency exchange and digital wallet platform", "Financial Technology", 2012, "San Francisco, CA", "https://coinbase.com", "S12", "$547M", "Public"),
      sampleCompany("Plaid", "Financial data connectivity platform for fintech apps", "Financial Technology", 2013, "San Francisco, CA", "https://plaid.com", "S13", "$734M", "Acquired"),
    },
    "saas": {
      sampleCompany("Dropbox", "Cloud storage and file synchronization service", "Software as a Service", 2007, "San Francisco, CA", "https://dropbox.com", "S07", "$1.7B", "Public"),
      sampleCompany("Airbnb", "Online marketplace for short-term homestays and experiences", "Marketplace", 2008, "San Francisco, CA", "https://airbnb.com", "W08", "$6.4B", "Public"),
      sampleCompany("Twilio", "Cloud communications platform for developers", "Software as a Service", 2008, "San Francisco, CA", "https://twilio.com", "S08", "$1.2B", "Public"),
    },
    "healthcare": {
      sampleCompany("23andMe", "Personal genomics and biotechnology company", "Healthcare", 2006, "Sunnyvale, CA", "https://23andme.com", "S06", "$791M", "Public"),
    },
    "edtech": {
      sampleCompany("Khan Academy", "Free online learning platform with personalized resources", "Education Technology", 2008, "Mountain View, CA", "https://khanacademy.org", "S08", "$16M", "Non-profit"),
      sampleCompany("Duolingo", "Language learning platform with gamified lessons", "Education Technology", 2011, "Pittsburgh, PA", "https://duolingo.com", "S11", "$183M", "Public"),
    },
  }

  var matching []*types.Company
  seen := map[string]bool{}
  add := func(companies []*types.Company) {
    for _, company := range companies {
      if !seen[company.Name] {
        seen[company.Name] = true
        matching = append(matching, company)
      }
    }
  }

  for category, companies := range categories {
    if queryLower != "" && (strings.Contains(queryLower, category) || strings.Contains(category, queryLower)) {
      add(companies)
    }
  }
  if queryLower != "" {
    for _, companies := range categories {
      for _, company := range companies {
        if strings.Contains(strings.ToLower(company.Name), queryLower) ||
          strings.Contains(strings.ToLower(company.Description), queryLower) ||
          strings.Contains(strings.ToLower(company.Industry), queryLower) {
          add([]*types.Company{company})
        }
      }
    }
  }

  if len(matching) == 0 {
    keywordMap := []struct {
      keywords []string
      category string
    }{
      {[]string{"ai", "artificial", "intelligence", "machine", "learning", "ml"}, "ai"},
      {[]string{"finance", "fintech", "payment", "banking", "crypto"}, "fintech"},
      {[]string{"education", "learning", "school", "university", "edtech"}, "edtech"},
      {[]string{"health", "medical", "healthcare", "bio"}, "healthcare"},
      {[]string{"saas", "software", "platform", "cloud"}, "saas"},
    }
    for _, entry := range keywordMap {
      for _, kw := range entry.keywords {
        if strings.Contains(queryLower, kw) {
          add(categories[entry.category])
          break
        }
      }
      if len(matching) > 0 {
        break
      }
    }
  }

  if len(matching) == 0 {
    add(categories["ai"])
  }

  if limit > 0 && len(matching) > limit {
    matching = matching[:limit]
  }
  return matching
}

func sampleCompany(name, description, industry string, foundedYear int, location, website, ycBatch, funding, stage string) *types.Company {
  return &types.Company{
    ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte("sample:"+name)),
    Name:        name,
    Description: description,
    Industry:    industry,
    FoundedYear: foundedYear,
    Location:    location,
    Website:     website,
    YCBatch:     ycBatch,
    Funding:     funding,
    Stage:       stage,
    IsActive:    true,
    Source:      "sample",
  }
}
