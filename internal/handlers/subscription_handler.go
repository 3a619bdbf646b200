package handlers

import (
	"net/http"

	"platefuel_backend/internal/dto"
	"platefuel_backend/internal/middleware"
	"platefuel_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	*BaseHandler
	subscriptionService services.SubscriptionService
}

func NewSubscriptionHandler(base *BaseHandler, subscriptionService services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		BaseHandler:         base,
		subscriptionService: subscriptionService,
	}
}

func (h *SubscriptionHandler) RegisterRoutes(r *gin.RouterGroup) {
	// Plan catalog is public.
	r.GET("/plans", h.ListPlans)

	subs := r.Group("/subscriptions")
	subs.Use(middleware.AuthMiddleware())
	{
		subs.POST("", h.CreateSubscription)
		subs.GET("/status", h.CheckStatus)
		subs.POST("/verify", h.VerifyPayment)
		subs.POST("/cancel", h.CancelSubscription)
		subs.POST("/resume", h.ResumePayment)
		subs.GET("/history", h.GetHistory)
	}
}

func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": h.subscriptionService.Plans()})
}

func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.subscriptionService.Create(c.Request.Context(), h.GetDB(c), userID, h.GetUserEmail(c), req.PlanType)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *SubscriptionHandler) CheckStatus(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.subscriptionService.CheckStatus(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyPayment is the redirect-landing verification after hosted checkout.
// The subscription id comes from the request, never the payment outcome:
// the provider is consulted directly.
func (h *SubscriptionHandler) VerifyPayment(c *gin.Context) {
	var req dto.VerifyPaymentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}

	resp, err := h.subscriptionService.Verify(c.Request.Context(), h.GetDB(c), req.SubscriptionID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	var req dto.CancelSubscriptionRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.subscriptionService.Cancel(c.Request.Context(), h.GetDB(c), userID, req.SubscriptionID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) ResumePayment(c *gin.Context) {
	var req dto.ResumePaymentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.subscriptionService.Resume(c.Request.Context(), h.GetDB(c), userID, req.SubscriptionID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) GetHistory(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	subs, err := h.subscriptionService.History(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}
