package models

import (
	"gorm.io/datatypes"
)

// MealPlan is one stored generation result per request. Plan holds the
// parsed JSON object keyed by day and meal slot.
type MealPlan struct {
	BaseModel
	UserID    string         `gorm:"not null;index" json:"userId"`
	DietType  string         `gorm:"not null" json:"dietType"`
	Calories  int            `gorm:"not null" json:"calories"`
	Allergies string         `json:"allergies"`
	Cuisine   string         `json:"cuisine"`
	Snacks    bool           `json:"snacks"`
	Plan      datatypes.JSON `gorm:"type:jsonb" json:"plan"`
}
