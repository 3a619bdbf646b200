package repositories

import (
	"time"

	"platefuel_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository interface {
	// Record inserts the event into the delivery ledger. It returns false
	// when the event ID was already recorded (duplicate delivery).
	Record(db *gorm.DB, event *models.WebhookEvent) (bool, error)
}

type WebhookEventRepositoryImpl struct{}

func NewWebhookEventRepository() WebhookEventRepository {
	return &WebhookEventRepositoryImpl{}
}

func (r *WebhookEventRepositoryImpl) Record(db *gorm.DB, event *models.WebhookEvent) (bool, error) {
	event.ProcessedAt = time.Now()

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
