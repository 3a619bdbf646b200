package repositories

import (
	"errors"
	"time"

	"platefuel_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

type SubscriptionRepository interface {
	Create(db *gorm.DB, sub *models.Subscription) error
	FindByProviderID(db *gorm.DB, providerSubID string) (*models.Subscription, error)
	// FindCurrentPaid returns the newest row that grants access and has not
	// run past its end date.
	FindCurrentPaid(db *gorm.DB, userID string) (*models.Subscription, error)
	// FindCurrentPending returns the newest row still awaiting payment.
	FindCurrentPending(db *gorm.DB, userID string) (*models.Subscription, error)
	FindByUser(db *gorm.DB, userID string) ([]models.Subscription, error)
	Update(db *gorm.DB, sub *models.Subscription) error
	UpdateStatus(db *gorm.DB, providerSubID string, status models.SubscriptionStatus) error
	// Upsert writes a provider-sourced row keyed by the provider
	// subscription ID. Repeated application of the same provider state is
	// idempotent.
	Upsert(db *gorm.DB, sub *models.Subscription) error
	// ExpireOverdue marks access-granting rows past their end date expired
	// and returns the affected user IDs.
	ExpireOverdue(db *gorm.DB) ([]string, error)
}

type SubscriptionRepositoryImpl struct{}

func NewSubscriptionRepository() SubscriptionRepository {
	return &SubscriptionRepositoryImpl{}
}

func (r *SubscriptionRepositoryImpl) Create(db *gorm.DB, sub *models.Subscription) error {
	return db.Create(sub).Error
}

func (r *SubscriptionRepositoryImpl) FindByProviderID(db *gorm.DB, providerSubID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.First(&sub, "razorpay_subscription_id = ?", providerSubID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) FindCurrentPaid(db *gorm.DB, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.
		Where("user_id = ? AND status IN ? AND end_date >= ?",
			userID,
			[]models.SubscriptionStatus{models.SubscriptionStatusActive, models.SubscriptionStatusCompleted},
			time.Now()).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) FindCurrentPending(db *gorm.DB, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.
		Where("user_id = ? AND status IN ?",
			userID,
			[]models.SubscriptionStatus{
				models.SubscriptionStatusCreated,
				models.SubscriptionStatusAuthenticated,
				models.SubscriptionStatusPending,
			}).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) FindByUser(db *gorm.DB, userID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepositoryImpl) Update(db *gorm.DB, sub *models.Subscription) error {
	result := db.Save(sub)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) UpdateStatus(db *gorm.DB, providerSubID string, status models.SubscriptionStatus) error {
	result := db.Model(&models.Subscription{}).
		Where("razorpay_subscription_id = ?", providerSubID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) Upsert(db *gorm.DB, sub *models.Subscription) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "razorpay_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "razorpay_payment_id", "start_date", "end_date",
			"provider_meta", "updated_at",
		}),
	}).Create(sub).Error
}

func (r *SubscriptionRepositoryImpl) ExpireOverdue(db *gorm.DB) ([]string, error) {
	var userIDs []string
	err := db.Model(&models.Subscription{}).
		Where("status IN ? AND end_date < ?",
			[]models.SubscriptionStatus{models.SubscriptionStatusActive, models.SubscriptionStatusCompleted},
			time.Now()).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	err = db.Model(&models.Subscription{}).
		Where("status IN ? AND end_date < ?",
			[]models.SubscriptionStatus{models.SubscriptionStatusActive, models.SubscriptionStatusCompleted},
			time.Now()).
		Updates(map[string]interface{}{
			"status":     models.SubscriptionStatusExpired,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}
