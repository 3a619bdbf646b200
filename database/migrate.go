package database

import (
	"platefuel_backend/internal/logger"
	"platefuel_backend/internal/models"

	"gorm.io/gorm"
)

// Migrate applies the schema. uuid-ossp backs the uuid_generate_v4()
// defaults on primary keys.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}

	err := db.AutoMigrate(
		&models.Profile{},
		&models.Subscription{},
		&models.WebhookEvent{},
		&models.MealPlan{},
	)
	if err != nil {
		return err
	}

	logger.Info("Database migration completed")
	return nil
}
