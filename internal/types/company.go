package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

type Company struct {
  ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
  Name            string         `gorm:"column:name;not null;uniqueIndex" json:"name"`
  Description     string         `gorm:"column:description" json:"description"`
  LongDescription string         `gorm:"column:long_description" json:"long_description,omitempty"`
  Industry        string         `gorm:"column:industry;index" json:"industry"`
  FoundedYear     int            `gorm:"column:founded_year" json:"founded_year,omitempty"`
  Location        string         `gorm:"column:location;index" json:"location"`
  Website         string         `gorm:"column:website" json:"website,omitempty"`
  YCBatch         string         `gorm:"column:yc_batch" json:"yc_batch,omitempty"`
  Funding         string         `gorm:"column:funding" json:"funding,omitempty"`
  Employees       string         `gorm:"column:employees" json:"employees,omitempty"`
  Stage           string         `gorm:"column:stage;index" json:"stage,omitempty"`
  IsActive        bool           `gorm:"column:is_active;default:true" json:"is_active"`
  Tags            datatypes.JSON `gorm:"type:jsonb;column:tags" json:"tags,omitempty"`
  Source          string         `gorm:"column:source" json:"source,omitempty"`
  CreatedAt       time.Time      `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt       time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
  DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Company) TableName() string { return "company" }

// CompanyFilters narrows a search beyond the free text query.
type CompanyFilters struct {
  Industry       string `json:"industry,omitempty"`
  Location       string `json:"location,omitempty"`
  Stage          string `json:"stage,omitempty"`
  MinFoundedYear int    `json:"min_founded_year,omitempty"`
}
