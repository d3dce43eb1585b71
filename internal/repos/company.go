package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

type CompanyRepo interface {
  Upsert(ctx context.Context, tx *gorm.DB, companies []*types.Company) (int, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Company, error)
  GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Company, error)

  // Search matches the free text query against name, description and industry,
  // then applies the structured filters. An empty query matches everything.
  Search(ctx context.Context, tx *gorm.DB, query string, limit int, filters types.CompanyFilters) ([]*types.Company, error)

  CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
  TopIndustries(ctx context.Context, tx *gorm.DB, limit int) (map[string]int64, error)
  TopLocations(ctx context.Context, tx *gorm.DB, limit int) (map[string]int64, error)
}

type companyRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCompanyRepo(db *gorm.DB, baseLog *logger.Logger) CompanyRepo {
  repoLog := baseLog.With("repo", "CompanyRepo")
  return &companyRepo{db: db, log: repoLog}
}

func (r *companyRepo) Upsert(ctx context.Context, tx *gorm.DB, companies []*types.Company) (int, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(companies) == 0 {
    return 0, nil
  }
  err := transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns: []clause.Column{{Name: "name"}},
      DoUpdates: clause.AssignmentColumns([]string{
        "description", "long_description", "industry", "founded_year", "location",
        "website", "yc_batch", "funding", "employees", "stage", "is_active",
        "tags", "source", "updated_at",
      }),
    }).
    CreateInBatches(&companies, 100).Error
  if err != nil {
    return 0, err
  }
  return len(companies), nil
}

func (r *companyRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Company, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil, nil
  }
  var company types.Company
  err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&company).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &company, nil
}

func (r *companyRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Company, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if name == "" {
    return nil, nil
  }
  var company types.Company
  err := transaction.WithContext(ctx).
    Where("LOWER(name) = LOWER(?)", name).
    First(&company).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &company, nil
}

func (r *companyRepo) Search(ctx context.Context, tx *gorm.DB, query string, limit int, filters types.CompanyFilters) ([]*types.Company, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 {
    limit = 10
  }

  q := transaction.WithContext(ctx).Model(&types.Company{})
  if query != "" {
    pattern := "%" + query + "%"
    q = q.Where(
      "name ILIKE ? OR description ILIKE ? OR industry ILIKE ? OR long_description ILIKE ?",
      pattern, pattern, pattern, pattern,
    )
  }
  if filters.Industry != "" {
    q = q.Where("industry ILIKE ?", "%"+filters.Industry+"%")
  }
  if filters.Location != "" {
    q = q.Where("location ILIKE ?", "%"+filters.Location+"%")
  }
  if filters.Stage != "" {
    q = q.Where("stage = ?", filters.Stage)
  }
  if filters.MinFoundedYear > 0 {
    q = q.Where("founded_year >= ?", filters.MinFoundedYear)
  }

  if query != "" {
    q = q.Order(clause.OrderBy{Expression: clause.Expr{
      SQL:                "CASE WHEN name ILIKE ? THEN 0 ELSE 1 END, name ASC",
      Vars:               []interface{}{"%" + query + "%"},
      WithoutParentheses: true,
    }})
  } else {
    q = q.Order("name ASC")
  }

  var results []*types.Company
  err := q.
    Limit(limit).
    Find(&results).Error
  if err != nil {
    return nil, err
  }
  return results, nil
}

func (r *companyRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var count int64
  err := transaction.WithContext(ctx).Model(&types.Company{}).Count(&count).Error
  return count, err
}

type groupCount struct {
  Key   string `gorm:"column:key"`
  Count int64  `gorm:"column:count"`
}

func (r *companyRepo) TopIndustries(ctx context.Context, tx *gorm.DB, limit int) (map[string]int64, error) {
  return r.topGrouped(ctx, tx, "industry", limit)
}

func (r *companyRepo) TopLocations(ctx context.Context, tx *gorm.DB, limit int) (map[string]int64, error) {
  return r.topGrouped(ctx, tx, "location", limit)
}

func (r *companyRepo) topGrouped(ctx context.Context, tx *gorm.DB, column string, limit int) (map[string]int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 {
    limit = 10
  }
  var rows []groupCount
  err := transaction.WithContext(ctx).
    Model(&types.Company{}).
    Select(column+" AS key, COUNT(*) AS count").
    Where(column + " IS NOT NULL AND " + column + " <> ''").
    Group(column).
    Order("count DESC").
    Limit(limit).
    Scan(&rows).Error
  if err != nil {
    return nil, err
  }
  out := make(map[string]int64, len(rows))
  for _, row := range rows {
    out[row.Key] = row.Count
  }
  return out, nil
}
