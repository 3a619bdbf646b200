package apperrors

import (
	"net/http"
)

/*
Factories and predefined variables for the business-logic errors of the
profile, subscription, billing and mealplan domains.
*/

// ErrNotFound converts a repository miss (gorm.ErrRecordNotFound and friends)
// into a 404.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists converts a uniqueness violation into a 409.
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrConflict is the generic conflict factory.
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation flags an operation the current state does not allow.
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrUpstream wraps a failed payment-gateway or generation-provider call.
// These surface as 500 to the caller; the wrapped error stays server-side.
func ErrUpstream(err error, domain, message string) *AppError {
	return Wrap(err, CodeExternalServiceError, domain, message, http.StatusInternalServerError)
}

// --- Subscriptions & billing ---

// ErrSubscriptionAlreadyActive rejects a second paid period for the same user.
var ErrSubscriptionAlreadyActive = New(
	CodeConflict,
	"subscription",
	"An active subscription already exists for this user",
	http.StatusConflict,
)

// ErrUnknownPlanType rejects plan types outside week/month/year.
var ErrUnknownPlanType = New(
	CodeValidationFailed,
	"subscription",
	"Unknown plan type; must be one of: week, month, year",
	http.StatusBadRequest,
)

// ErrPlanNotConfigured is returned when no provider plan is mapped for the
// requested plan type.
var ErrPlanNotConfigured = New(
	CodeInvalidOperation,
	"billing",
	"No price is configured for the requested plan",
	http.StatusBadRequest,
)

// ErrSubscriptionNotOwned masks foreign subscriptions as not found.
var ErrSubscriptionNotOwned = New(
	CodeNotFound,
	"subscription",
	"Subscription not found",
	http.StatusNotFound,
)

// ErrInvalidWebhookSignature rejects webhook deliveries whose HMAC digest
// does not match the shared secret.
var ErrInvalidWebhookSignature = New(
	CodeInvalidSignature,
	"billing",
	"Webhook signature verification failed",
	http.StatusUnauthorized,
)

// ErrCannotResume is the user-visible outcome when the provider reports a
// status the resume flow has no transition for.
var ErrCannotResume = New(
	CodeInvalidStatus,
	"subscription",
	"This subscription cannot be resumed; please start a new one",
	http.StatusBadRequest,
)

// --- Meal plans ---

// ErrGenerationMalformed is returned when the generated plan is not the
// strict JSON object the prompt asks for. The caller is told to retry.
var ErrGenerationMalformed = New(
	CodeGenerationFailed,
	"mealplan",
	"The generated meal plan was malformed; please try again",
	http.StatusInternalServerError,
)
