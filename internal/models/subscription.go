package models

import (
	"time"

	"gorm.io/datatypes"
)

// Subscription is one row per subscription attempt, mirroring a provider
// subscription object. History is append-style: rows are superseded, not
// deleted. At most one row per user should be in {created, authenticated,
// pending, active}; the most recently created one wins.
type Subscription struct {
	BaseModel
	UserID                 string             `gorm:"not null;index" json:"userId"`
	PlanID                 string             `gorm:"not null" json:"planId"`
	RazorpaySubscriptionID string             `gorm:"not null;uniqueIndex" json:"razorpaySubscriptionId"`
	RazorpayPaymentID      string             `json:"razorpayPaymentId"`
	Status                 SubscriptionStatus `gorm:"default:'created';index" json:"status"`
	PlanType               PlanType           `gorm:"not null" json:"planType"`
	StartDate              *time.Time         `json:"startDate"`
	EndDate                *time.Time         `json:"endDate"`
	IsRecurring            bool               `gorm:"default:false" json:"isRecurring"`
	ShortURL               string             `json:"shortUrl"`
	// ProviderMeta keeps the last raw provider snapshot for diagnostics.
	ProviderMeta datatypes.JSON `gorm:"type:jsonb" json:"-"`
}

// WebhookEvent is the duplicate-delivery ledger. Provider event IDs are
// unique; replays hit the unique index and are skipped.
type WebhookEvent struct {
	BaseModel
	EventID     string         `gorm:"not null;uniqueIndex"`
	EventType   string         `gorm:"not null"`
	Payload     datatypes.JSON `gorm:"type:jsonb"`
	ProcessedAt time.Time
}
