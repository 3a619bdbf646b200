package dto

import "platefuel_backend/internal/models"

// EnsureProfileResponse distinguishes first-time provisioning from a repeat
// call; both succeed.
type EnsureProfileResponse struct {
	Created bool            `json:"created"`
	Message string          `json:"message"`
	Profile *models.Profile `json:"profile"`
}
