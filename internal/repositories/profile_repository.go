package repositories

import (
	"errors"
	"time"

	"platefuel_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrProfileAlreadyExists = errors.New("profile already exists")
)

type ProfileRepository interface {
	FindByUserID(db *gorm.DB, userID string) (*models.Profile, error)
	Create(db *gorm.DB, profile *models.Profile) error
	// SetSubscriptionState replaces the profile's subscription summary with
	// provider-sourced data. tier and subscriptionID are nil when access is
	// revoked.
	SetSubscriptionState(db *gorm.DB, userID string, active bool, tier *string, subscriptionID *string) error
}

type ProfileRepositoryImpl struct{}

func NewProfileRepository() ProfileRepository {
	return &ProfileRepositoryImpl{}
}

func (r *ProfileRepositoryImpl) FindByUserID(db *gorm.DB, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := db.First(&profile, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepositoryImpl) Create(db *gorm.DB, profile *models.Profile) error {
	var existing models.Profile
	if err := db.Where("user_id = ?", profile.UserID).First(&existing).Error; err == nil {
		return ErrProfileAlreadyExists
	}

	return db.Create(profile).Error
}

func (r *ProfileRepositoryImpl) SetSubscriptionState(db *gorm.DB, userID string, active bool, tier *string, subscriptionID *string) error {
	result := db.Model(&models.Profile{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"subscription_active": active,
		"subscription_tier":   tier,
		"subscription_id":     subscriptionID,
		"updated_at":          time.Now(),
	})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}
