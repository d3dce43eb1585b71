package repos

import (
  "context"
  "errors"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

type ReportTaskRepo interface {
  Create(ctx context.Context, tx *gorm.DB, tasks []*types.ReportTask) ([]*types.ReportTask, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ReportTask, error)
  List(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ReportTask, error)

  // Claims the next task that is runnable:
  // - status=pending with attempts < maxAttempts, and past the retry delay when it
  //   has a prior error (retryable failures are parked back as pending, never failed)
  // - OR status=processing but heartbeat is stale (crash recovery)
  // Terminal rows (completed|failed) are never selected.
  ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleProcessing time.Duration) (*types.ReportTask, error)

  // UpdateFields never touches rows that already reached a terminal status.
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
  Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
  DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type reportTaskRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewReportTaskRepo(db *gorm.DB, baseLog *logger.Logger) ReportTaskRepo {
  repoLog := baseLog.With("repo", "ReportTaskRepo")
  return &reportTaskRepo{db: db, log: repoLog}
}

func (r *reportTaskRepo) Create(ctx context.Context, tx *gorm.DB, tasks []*types.ReportTask) ([]*types.ReportTask, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(tasks) == 0 {
    return []*types.ReportTask{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&tasks).Error; err != nil {
    return nil, err
  }
  return tasks, nil
}

func (r *reportTaskRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ReportTask, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil, nil
  }
  var task types.ReportTask
  err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&task).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &task, nil
}

func (r *reportTaskRepo) List(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ReportTask, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 {
    limit = 50
  }
  var tasks []*types.ReportTask
  err := transaction.WithContext(ctx).
    Order("created_at DESC").
    Limit(limit).
    Find(&tasks).Error
  if err != nil {
    return nil, err
  }
  return tasks, nil
}

func (r *reportTaskRepo) ClaimNextRunnable(
  ctx context.Context,
  tx *gorm.DB,
  maxAttempts int,
  retryDelay time.Duration,
  staleProcessing time.Duration,
) (*types.ReportTask, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  now := time.Now()
  retryCutoff := now.Add(-retryDelay)
  staleCutoff := now.Add(-staleProcessing)

  var claimed *types.ReportTask

  err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    var task types.ReportTask

    q := txx.
      Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
      Where(`
        (
          (
            status = ?
            AND attempts < ?
            AND (last_error_at IS NULL OR last_error_at < ?)
          )
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, types.ReportTaskStatusPending, maxAttempts, retryCutoff, types.ReportTaskStatusProcessing, staleCutoff).
      Order("created_at ASC")

    qErr := q.First(&task).Error
    if errors.Is(qErr, gorm.ErrRecordNotFound) {
      return nil
    }
    if qErr != nil {
      return qErr
    }

    // Claim it: mark processing, increment attempts, set lock/heartbeat.
    uErr := txx.Model(&types.ReportTask{}).
      Where("id = ?", task.ID).
      Updates(map[string]interface{}{
        "status":       types.ReportTaskStatusProcessing,
        "attempts":     gorm.Expr("attempts + 1"),
        "locked_at":    now,
        "heartbeat_at": now,
        "updated_at":   now,
      }).Error
    if uErr != nil {
      return uErr
    }

    claimed = &task
    return nil
  })

  if err != nil {
    return nil, err
  }
  return claimed, nil
}

func (r *reportTaskRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil
  }
  if updates == nil {
    updates = map[string]interface{}{}
  }
  if _, ok := updates["updated_at"]; !ok {
    updates["updated_at"] = time.Now()
  }
  // Terminal rows stay terminal.
  return transaction.WithContext(ctx).
    Model(&types.ReportTask{}).
    Where("id = ? AND status NOT IN ?", id, []string{types.ReportTaskStatusCompleted, types.ReportTaskStatusFailed}).
    Updates(updates).Error
}

func (r *reportTaskRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil
  }
  now := time.Now()
  return transaction.WithContext(ctx).
    Model(&types.ReportTask{}).
    Where("id = ? AND status = ?", id, types.ReportTaskStatusProcessing).
    Updates(map[string]interface{}{
      "heartbeat_at": now,
      "updated_at":   now,
    }).Error
}

func (r *reportTaskRepo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  res := transaction.WithContext(ctx).
    Where("created_at < ?", cutoff).
    Delete(&types.ReportTask{})
  return res.RowsAffected, res.Error
}
