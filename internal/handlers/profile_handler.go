package handlers

import (
	"net/http"

	"platefuel_backend/internal/middleware"
	"platefuel_backend/internal/services"
	"platefuel_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	*BaseHandler
	profileService services.ProfileService
}

func NewProfileHandler(base *BaseHandler, profileService services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler:    base,
		profileService: profileService,
	}
}

func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	profiles := r.Group("/profile")
	profiles.Use(middleware.AuthMiddleware())
	{
		profiles.POST("", h.EnsureProfile)
		profiles.GET("/me", h.GetMyProfile)
	}
}

// EnsureProfile provisions a profile for the authenticated user on first
// sign-in. Calling it again is a harmless no-op.
func (h *ProfileHandler) EnsureProfile(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	email := h.GetUserEmail(c)
	if email == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Token does not carry an email claim"))
		return
	}

	resp, err := h.profileService.EnsureProfile(h.GetDB(c), userID, email)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	profile, err := h.profileService.GetProfile(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
