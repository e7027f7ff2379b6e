package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/google/uuid"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
	"eventfaces/pkg/config"
)

func NewDatabase(cfg config.DatabaseConfig, production bool) (*gorm.DB, error) {
	logLevel := gormlogger.Info
	if production {
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()+" TimeZone=UTC"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	// Enable pgvector extension for face embeddings
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	// Parents first so foreign keys resolve
	if err := db.AutoMigrate(
		&models.Event{},
		&models.Photo{},
		&models.Person{},
		&models.Face{},
	); err != nil {
		return fmt.Errorf("failed to run auto migrations: %w", err)
	}

	return runIndexMigrations(db)
}

// runIndexMigrations adds the composite indexes AutoMigrate cannot express
func runIndexMigrations(db *gorm.DB) error {
	migrations := []string{
		// Arrival order of an event's faces, and unassigned lookups
		`CREATE INDEX IF NOT EXISTS idx_faces_event_created ON faces(event_id, created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_faces_event_person ON faces(event_id, person_id)`,

		// Creation order of an event's persons
		`CREATE INDEX IF NOT EXISTS idx_persons_event_created ON persons(event_id, created_at, id)`,

		// Pending photo scans
		`CREATE INDEX IF NOT EXISTS idx_photos_event_status ON photos(event_id, face_status)`,
	}

	for _, sql := range migrations {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("migration failed: %s: %w", sql, err)
		}
	}
	return nil
}

// lockEvent takes a share lock on the event row so it cannot be deleted
// until the transaction ends. It reports false when the event is gone.
func lockEvent(tx *gorm.DB, eventID uuid.UUID) (bool, error) {
	var event models.Event
	err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
		Select("id").
		Where("id = ?", eventID).
		Take(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// notFound maps gorm's missing-row error onto the store contract
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return err
}

// Ping checks the database connection
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
