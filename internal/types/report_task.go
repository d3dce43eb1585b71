package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

const (
  ReportTaskStatusPending    = "pending"
  ReportTaskStatusProcessing = "processing"
  ReportTaskStatusCompleted  = "completed"
  ReportTaskStatusFailed     = "failed"
)

type ReportTask struct {
  ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"task_id"`
  Topic       string         `gorm:"column:topic;not null" json:"topic"`
  ReportType  string         `gorm:"column:report_type;not null" json:"report_type"`
  Format      string         `gorm:"column:format;not null" json:"format"`
  Status      string         `gorm:"column:status;not null;index" json:"status"` // pending|processing|completed|failed
  Progress    int            `gorm:"column:progress;not null;default:0" json:"progress"`
  Message     string         `gorm:"column:message" json:"message,omitempty"`
  Attempts    int            `gorm:"column:attempts;not null;default:0" json:"-"`
  Error       string         `gorm:"column:error" json:"error,omitempty"`
  LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"-"`
  LockedAt    *time.Time     `gorm:"column:locked_at;index" json:"-"`
  HeartbeatAt *time.Time     `gorm:"column:heartbeat_at;index" json:"-"`
  Result      datatypes.JSON `gorm:"type:jsonb;column:result" json:"result,omitempty"`
  CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt   time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
  CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
  DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ReportTask) TableName() string { return "report_task" }

func (t *ReportTask) Terminal() bool {
  return t.Status == ReportTaskStatusCompleted || t.Status == ReportTaskStatusFailed
}

// ReportResult is the payload stored on a completed task.
type ReportResult struct {
  ReportFilename    string `json:"report_filename"`
  ReportPath        string `json:"report_path"`
  SectionsGenerated int    `json:"sections_generated"`
  ChartsGenerated   int    `json:"charts_generated"`
}
