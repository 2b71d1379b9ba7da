package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"visme-go/internal/config"
	logging "visme-go/internal/logging"
	"visme-go/internal/models"
)

// Open connects to postgres and migrates the schema.
func Open(conf config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormLogger := logging.NewGormZapLogger(log)
	gormLogger.LogLevel = logger.Warn

	db, err := gorm.Open(postgres.Open(conf.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully.")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("Database migrations completed successfully.")
	return db, nil
}

// Migrate creates the tables and the lookup indexes.
func Migrate(db *gorm.DB) error {
	// AutoMigrate does not create the composite indexes below.
	err := db.AutoMigrate(
		&models.TrialRecord{},
		&models.DetectionRun{},
		&models.EventRecord{},
		&models.FixationRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_runs_latest ON detection_runs (trial_id, kind, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_events_channel ON event_records (run_id, channel, onset_index);`,
		`CREATE INDEX IF NOT EXISTS idx_fixations_channel ON fixation_records (run_id, channel, fixation_index);`,
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
