package handlers

import (
  "context"
  "net/http"
  "net/http/httptest"
  "testing"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/nexalyze/nexalyze-backend/internal/services"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

type fakeDataSearch struct {
  gotQuery   string
  gotLimit   int
  gotFilters types.CompanyFilters
}

func (f *fakeDataSearch) SearchCompanies(ctx context.Context, query string, limit int, filters types.CompanyFilters) ([]*types.Company, error) {
  f.gotQuery = query
  f.gotLimit = limit
  f.gotFilters = filters
  return []*types.Company{}, nil
}

func (f *fakeDataSearch) GetCompanyByID(ctx context.Context, id uuid.UUID) (*types.Company, error) {
  return nil, nil
}

func (f *fakeDataSearch) StoreCompanies(ctx context.Context, companies []*types.Company) (int, error) {
  return 0, nil
}

func (f *fakeDataSearch) Stats(ctx context.Context) (*services.CompanyStats, error) {
  return &services.CompanyStats{}, nil
}

func (f *fakeDataSearch) SyncYCData(ctx context.Context, limit int) (*services.SyncStats, error) {
  return &services.SyncStats{}, nil
}

func (f *fakeDataSearch) KnowledgeGraph(ctx context.Context, id uuid.UUID) (map[string]any, error) {
  return nil, nil
}

func (f *fakeDataSearch) KnowledgeGraphByName(ctx context.Context, name string) (map[string]any, error) {
  return nil, nil
}

func setupCompanyRouter(t *testing.T, data *fakeDataSearch) *gin.Engine {
  t.Helper()
  gin.SetMode(gin.TestMode)
  h := NewCompanyHandler(testLogger(t), data)

  router := gin.New()
  router.GET("/companies", h.Search)
  return router
}

func TestCompanySearch_ParsesMinYear(t *testing.T) {
  data := &fakeDataSearch{}
  router := setupCompanyRouter(t, data)

  req := httptest.NewRequest("GET", "/companies?query=ai&min_year=2020&industry=Fintech", nil)
  rec := httptest.NewRecorder()
  router.ServeHTTP(rec, req)

  if rec.Code != http.StatusOK {
    t.Fatalf("expected 200, got %d", rec.Code)
  }
  if data.gotFilters.MinFoundedYear != 2020 {
    t.Fatalf("expected min_year parsed into filter, got %d", data.gotFilters.MinFoundedYear)
  }
  if data.gotFilters.Industry != "Fintech" {
    t.Fatalf("expected industry filter, got %q", data.gotFilters.Industry)
  }
  if data.gotQuery != "ai" {
    t.Fatalf("expected query passed through, got %q", data.gotQuery)
  }
}

func TestCompanySearch_AcceptsLongYearParam(t *testing.T) {
  data := &fakeDataSearch{}
  router := setupCompanyRouter(t, data)

  req := httptest.NewRequest("GET", "/companies?min_founded_year=2015", nil)
  rec := httptest.NewRecorder()
  router.ServeHTTP(rec, req)

  if rec.Code != http.StatusOK {
    t.Fatalf("expected 200, got %d", rec.Code)
  }
  if data.gotFilters.MinFoundedYear != 2015 {
    t.Fatalf("expected long-form year param honored, got %d", data.gotFilters.MinFoundedYear)
  }
}

func TestCompanySearch_ClampsLimit(t *testing.T) {
  data := &fakeDataSearch{}
  router := setupCompanyRouter(t, data)

  req := httptest.NewRequest("GET", "/companies?limit=500", nil)
  rec := httptest.NewRecorder()
  router.ServeHTTP(rec, req)

  if rec.Code != http.StatusOK {
    t.Fatalf("expected 200, got %d", rec.Code)
  }
  if data.gotLimit != 10 {
    t.Fatalf("expected out-of-range limit reset to default, got %d", data.gotLimit)
  }
}
