package dto

import (
	"time"

	"platefuel_backend/internal/models"
)

type CreateSubscriptionRequest struct {
	PlanType string `json:"planType" binding:"required" validate:"required,oneof=week month year"`
}

// CheckoutResponse is returned after a provider subscription was created.
// The client redirects to ShortURL; CallbackURL embeds the provider
// subscription ID for redirect-based verification after checkout.
type CheckoutResponse struct {
	SubscriptionID string `json:"subscriptionId"`
	ShortURL       string `json:"shortUrl"`
	CallbackURL    string `json:"callbackUrl"`
}

// StatusResponse is the three-state reconciliation outcome.
type StatusResponse struct {
	IsActive         bool       `json:"isActive"`
	IsPending        bool       `json:"isPending"`
	SubscriptionTier string     `json:"subscriptionTier,omitempty"`
	SubscriptionID   string     `json:"subscriptionId,omitempty"`
	EndDate          *time.Time `json:"endDate,omitempty"`
}

type VerifyPaymentRequest struct {
	SubscriptionID string `json:"subscriptionId" binding:"required"`
}

type VerifyResponse struct {
	Success        bool   `json:"success"`
	Pending        bool   `json:"pending"`
	Message        string `json:"message"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	// ProviderStatus echoes the raw provider status on unhandled outcomes.
	ProviderStatus string `json:"providerStatus,omitempty"`
}

type CancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId" binding:"required"`
}

type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
	// AccessUntilEnd is set when the subscription had already completed at
	// the provider: access is kept until the paid period's end date.
	AccessUntilEnd *time.Time `json:"accessUntilEnd,omitempty"`
}

type ResumePaymentRequest struct {
	SubscriptionID string `json:"subscriptionId" binding:"required"`
}

type ResumeResponse struct {
	// Active means nothing was owed; RedirectURL points back into the app.
	Active         bool   `json:"active"`
	RedirectURL    string `json:"redirectUrl,omitempty"`
	ShortURL       string `json:"shortUrl,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
}

// PlanInfo is one entry of the public plan catalog.
type PlanInfo struct {
	PlanType models.PlanType `json:"planType"`
	Price    float64         `json:"price"`
	Currency string          `json:"currency"`
}
