package models

import "time"

type SubscriptionStatus string
type PlanType string

const (
	SubscriptionStatusCreated       SubscriptionStatus = "created"
	SubscriptionStatusAuthenticated SubscriptionStatus = "authenticated"
	SubscriptionStatusPending       SubscriptionStatus = "pending"
	SubscriptionStatusActive        SubscriptionStatus = "active"
	SubscriptionStatusHalted        SubscriptionStatus = "halted"
	SubscriptionStatusCancelled     SubscriptionStatus = "cancelled"
	SubscriptionStatusCompleted     SubscriptionStatus = "completed"
	SubscriptionStatusExpired       SubscriptionStatus = "expired"

	PlanTypeWeek  PlanType = "week"
	PlanTypeMonth PlanType = "month"
	PlanTypeYear  PlanType = "year"
)

// providerStatuses is the closed mapping from the provider's status strings
// to local statuses. A provider status missing here is an unhandled gap and
// surfaces via the ok flag instead of defaulting silently.
var providerStatuses = map[string]SubscriptionStatus{
	"created":       SubscriptionStatusCreated,
	"authenticated": SubscriptionStatusAuthenticated,
	"pending":       SubscriptionStatusPending,
	"active":        SubscriptionStatusActive,
	"halted":        SubscriptionStatusHalted,
	"cancelled":     SubscriptionStatusCancelled,
	"completed":     SubscriptionStatusCompleted,
	"expired":       SubscriptionStatusExpired,
}

// ParseProviderStatus maps a provider-reported status string to the local
// enumeration.
func ParseProviderStatus(raw string) (SubscriptionStatus, bool) {
	status, ok := providerStatuses[raw]
	return status, ok
}

// GrantsAccess reports whether the status entitles the user to the service.
// "completed" still grants access: a single-cycle subscription completes as
// soon as its one payment is captured, access runs until the end date.
func (s SubscriptionStatus) GrantsAccess() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusCompleted
}

// AwaitingPayment reports whether the status belongs to the pending family:
// the checkout was started but the provider has not settled it yet.
func (s SubscriptionStatus) AwaitingPayment() bool {
	return s == SubscriptionStatusCreated ||
		s == SubscriptionStatusAuthenticated ||
		s == SubscriptionStatusPending
}

// Restartable reports whether a new provider subscription must be created
// to resume payment for this one.
func (s SubscriptionStatus) Restartable() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}

// ParsePlanType validates a plan type coming from a request or from
// provider-side metadata.
func ParsePlanType(raw string) (PlanType, bool) {
	switch PlanType(raw) {
	case PlanTypeWeek, PlanTypeMonth, PlanTypeYear:
		return PlanType(raw), true
	}
	return "", false
}

// EndDateFrom computes the paid period's end for a plan type. Unrecognized
// plan types fall back to one calendar month.
func (p PlanType) EndDateFrom(start time.Time) time.Time {
	switch p {
	case PlanTypeWeek:
		return start.AddDate(0, 0, 7)
	case PlanTypeMonth:
		return start.AddDate(0, 1, 0)
	case PlanTypeYear:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}
