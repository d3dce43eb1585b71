package db

import (
  "fmt"
  "gorm.io/driver/postgres"
  "gorm.io/gorm"
  "github.com/nexalyze/nexalyze-backend/internal/types"
  "github.com/nexalyze/nexalyze-backend/internal/utils"
  "github.com/nexalyze/nexalyze-backend/internal/logger"
)

type PostgresService struct {
  db *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  log.Info("Loading environment variables...")
  postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
  postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
  postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
  postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
  postgresName := utils.GetEnv("POSTGRES_NAME", "nexalyze", log)
  postgresSSL := utils.GetEnvAsBool("POSTGRES_SSL", false, log)
  maxOpenConns := utils.GetEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 25, log)
  maxIdleConns := utils.GetEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 5, log)
  log.Debug("Environment variables loaded")

  sslMode := "disable"
  if postgresSSL {
    sslMode = "require"
  }
  dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName, sslMode)

  log.Info("Connecting to Postgres...")
  db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    log.Error("Failed to connect to Postgres", "error", err)
    return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
  }

  if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
    log.Error("Failed to enable uuid-ossp extension", "error", err)
    return nil, fmt.Errorf("Failed to enable uuid-ossp extension: %w", err)
  }
  log.Info("uuid-ossp extension enabled")

  sqlDB, err := db.DB()
  if err != nil {
    return nil, fmt.Errorf("Failed to access underlying sql.DB: %w", err)
  }
  sqlDB.SetMaxOpenConns(maxOpenConns)
  sqlDB.SetMaxIdleConns(maxIdleConns)

  return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Auto migrating postgres tables...")
  err := s.db.AutoMigrate(
    &types.Company{},
    &types.ReportTask{},
  )
  if err != nil {
    s.log.Error("Auto migration failed for postgres tables", "error", err)
    return err
  }
  return nil
}

func (s *PostgresService) Ping() error {
  sqlDB, err := s.db.DB()
  if err != nil {
    return err
  }
  return sqlDB.Ping()
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}
