package services

import (
  "context"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "net/url"
  "strings"
  "time"

  "github.com/nexalyze/nexalyze-backend/internal/clients/rediscache"
  "github.com/nexalyze/nexalyze-backend/internal/logger"
)

const (
  hnAlgoliaBaseURL  = "https://hn.algolia.com/api/v1"
  hnFirebaseBaseURL = "https://hacker-news.firebaseio.com/v0"
)

type HNStory struct {
  ID        int    `json:"id"`
  Title     string `json:"title"`
  URL       string `json:"url,omitempty"`
  Author    string `json:"author"`
  Points    int    `json:"points"`
  Comments  int    `json:"comments"`
  CreatedAt string `json:"created_at"`
}

// HNMentions buckets company mentions by post flavor.
type HNMentions struct {
  Company  string    `json:"company"`
  Stories  []HNStory `json:"stories"`
  Jobs     []HNStory `json:"jobs"`
  ShowHN   []HNStory `json:"show_hn"`
  AskHN    []HNStory `json:"ask_hn"`
  Total    int       `json:"total"`
}

type HackerNewsService interface {
  CompanyMentions(ctx context.Context, company string) (*HNMentions, error)
  LatestStories(ctx context.Context, limit int) ([]HNStory, error)
}

type hackerNewsService struct {
  log        *logger.Logger
  cache      rediscache.Client
  httpClient *http.Client
  cacheTTL   time.Duration
}

func NewHackerNewsService(baseLog *logger.Logger, cache rediscache.Client, cacheTTL time.Duration) HackerNewsService {
  return &hackerNewsService{
    log:        baseLog.With("service", "HackerNewsService"),
    cache:      cache,
    httpClient: &http.Client{Timeout: 30 * time.Second},
    cacheTTL:   cacheTTL,
  }
}

type algoliaHit struct {
  ObjectID    string `json:"objectID"`
  Title       string `json:"title"`
  URL         string `json:"url"`
  Author      string `json:"author"`
  Points      int    `json:"points"`
  NumComments int    `json:"num_comments"`
  CreatedAt   string `json:"created_at"`
  Tags        []string `json:"_tags"`
}

type algoliaResponse struct {
  Hits []algoliaHit `json:"hits"`
}

func (s *hackerNewsService) CompanyMentions(ctx context.Context, company string) (*HNMentions, error) {
  company = strings.TrimSpace(company)
  if company == "" {
    return nil, fmt.Errorf("company name required")
  }

  cacheKey := rediscache.Key("hn", "mentions", strings.ToLower(company))
  if s.cache != nil {
    var cached HNMentions
    if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
      return &cached, nil
    }
  }

  endpoint := fmt.Sprintf("%s/search?query=%s&tags=story&hitsPerPage=50", hnAlgoliaBaseURL, url.QueryEscape(company))
  var resp algoliaResponse
  if err := s.getJSON(ctx, endpoint, &resp); err != nil {
    return nil, fmt.Errorf("hn search: %w", err)
  }

  mentions := &HNMentions{Company: company}
  for _, hit := range resp.Hits {
    story := HNStory{
      Title:     hit.Title,
      URL:       hit.URL,
      Author:    hit.Author,
      Points:    hit.Points,
      Comments:  hit.NumComments,
      CreatedAt: hit.CreatedAt,
    }
    title := strings.ToLower(hit.Title)
    switch {
    case hasTag(hit.Tags, "job") || strings.Contains(title, "is hiring"):
      mentions.Jobs = append(mentions.Jobs, story)
    case hasTag(hit.Tags, "show_hn") || strings.HasPrefix(title, "show hn"):
      mentions.ShowHN = append(mentions.ShowHN, story)
    case hasTag(hit.Tags, "ask_hn") || strings.HasPrefix(title, "ask hn"):
      mentions.AskHN = append(mentions.AskHN, story)
    default:
      mentions.Stories = append(mentions.Stories, story)
    }
  }
  mentions.Total = len(resp.Hits)

  if s.cache != nil {
    if err := s.cache.SetJSON(ctx, cacheKey, mentions, s.cacheTTL); err != nil {
      s.log.Warn("Failed to cache HN mentions", "error", err)
    }
  }
  return mentions, nil
}

func (s *hackerNewsService) LatestStories(ctx context.Context, limit int) ([]HNStory, error) {
  if limit <= 0 || limit > 30 {
    limit = 10
  }

  cacheKey := rediscache.Key("hn", "top", fmt.Sprintf("%d", limit))
  if s.cache != nil {
    var cached []HNStory
    if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
      return cached, nil
    }
  }

  var ids []int
  if err := s.getJSON(ctx, hnFirebaseBaseURL+"/topstories.json", &ids); err != nil {
    return nil, fmt.Errorf("hn top stories: %w", err)
  }
  if len(ids) > limit {
    ids = ids[:limit]
  }

  stories := make([]HNStory, 0, len(ids))
  for _, id := range ids {
    var item struct {
      ID          int    `json:"id"`
      Title       string `json:"title"`
      URL         string `json:"url"`
      By          string `json:"by"`
      Score       int    `json:"score"`
      Descendants int    `json:"descendants"`
      Time        int64  `json:"time"`
    }
    endpoint := fmt.Sprintf("%s/item/%d.json", hnFirebaseBaseURL, id)
    if err := s.getJSON(ctx, endpoint, &item); err != nil {
      s.log.Warn("Failed to fetch HN item", "id", id, "error", err)
      continue
    }
    stories = append(stories, HNStory{
      ID:        item.ID,
      Title:     item.Title,
      URL:       item.URL,
      Author:    item.By,
      Points:    item.Score,
      Comments:  item.Descendants,
      CreatedAt: time.Unix(item.Time, 0).UTC().Format(time.RFC3339),
    })
  }

  if s.cache != nil {
    if err := s.cache.SetJSON(ctx, cacheKey, stories, s.cacheTTL); err != nil {
      s.log.Warn("Failed to cache HN stories", "error", err)
    }
  }
  return stories, nil
}

func (s *hackerNewsService) getJSON(ctx context.Context, endpoint string, out any) error {
  req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
  if err != nil {
    return err
  }
  resp, err := s.httpClient.Do(req)
  if err != nil {
    return err
  }
  defer resp.Body.Close()

  if resp.StatusCode != http.StatusOK {
    return fmt.Errorf("status %d", resp.StatusCode)
  }
  raw, err := io.ReadAll(resp.Body)
  if err != nil {
    return err
  }
  return json.Unmarshal(raw, out)
}

func hasTag(tags []string, tag string) bool {
  for _, t := range tags {
    if t == tag {
      return true
    }
  }
  return false
}
