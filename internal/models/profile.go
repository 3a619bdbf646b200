package models

// Profile is the single persistent record per user identity. It carries the
// current subscription summary; Subscription rows keep the full history.
// Profiles are created once on first sign-in and never deleted.
type Profile struct {
	BaseModel
	UserID             string  `gorm:"not null;uniqueIndex" json:"userId"`
	Email              string  `gorm:"not null" json:"email"`
	SubscriptionActive bool    `gorm:"default:false" json:"subscriptionActive"`
	SubscriptionTier   *string `json:"subscriptionTier"`
	// SubscriptionID points at the provider subscription currently backing
	// access. It is the explicit "current subscription" pointer; query-time
	// ordering over Subscription rows is only a fallback.
	SubscriptionID *string `json:"subscriptionId"`
}
