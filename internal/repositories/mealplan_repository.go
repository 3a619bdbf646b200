package repositories

import (
	"platefuel_backend/internal/models"

	"gorm.io/gorm"
)

type MealPlanRepository interface {
	Create(db *gorm.DB, plan *models.MealPlan) error
	FindByUser(db *gorm.DB, userID string, limit int) ([]models.MealPlan, error)
}

type MealPlanRepositoryImpl struct{}

func NewMealPlanRepository() MealPlanRepository {
	return &MealPlanRepositoryImpl{}
}

func (r *MealPlanRepositoryImpl) Create(db *gorm.DB, plan *models.MealPlan) error {
	return db.Create(plan).Error
}

func (r *MealPlanRepositoryImpl) FindByUser(db *gorm.DB, userID string, limit int) ([]models.MealPlan, error) {
	if limit <= 0 {
		limit = 20
	}
	var plans []models.MealPlan
	err := db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&plans).Error
	return plans, err
}
