package handlers

import (
	"io"
	"net/http"

	"platefuel_backend/internal/billing"
	"platefuel_backend/internal/config"
	"platefuel_backend/internal/logger"
	"platefuel_backend/internal/models"
	"platefuel_backend/internal/repositories"
	"platefuel_backend/internal/services"
	"platefuel_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

// WebhookHandler receives provider push notifications. The route is
// unauthenticated; signature verification over the raw body is the only
// gate, so it runs before anything else touches the payload.
type WebhookHandler struct {
	*BaseHandler
	subscriptionService services.SubscriptionService
	webhookEventRepo    repositories.WebhookEventRepository
	cfg                 *config.Config
}

func NewWebhookHandler(
	base *BaseHandler,
	subscriptionService services.SubscriptionService,
	webhookEventRepo repositories.WebhookEventRepository,
	cfg *config.Config,
) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:         base,
		subscriptionService: subscriptionService,
		webhookEventRepo:    webhookEventRepo,
		cfg:                 cfg,
	}
}

func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/webhooks/razorpay", h.HandleRazorpayWebhook)
}

func (h *WebhookHandler) HandleRazorpayWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Failed to read webhook body"))
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if !billing.VerifyWebhookSignature(body, signature, h.cfg.Razorpay.WebhookSecret) {
		logger.CtxWarn(ctx, "webhook signature mismatch", "ip", c.ClientIP())
		apperrors.HandleError(c, apperrors.ErrInvalidWebhookSignature)
		return
	}

	event, err := billing.ParseWebhookEvent(body)
	if err != nil {
		logger.CtxWarn(ctx, "unparseable webhook payload", "error", err.Error())
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid webhook payload"))
		return
	}
	event.ID = c.GetHeader("X-Razorpay-Event-Id")

	db := h.GetDB(c)

	// Providers redeliver; the ledger makes each delivery apply once.
	if event.ID != "" {
		fresh, err := h.webhookEventRepo.Record(db, &models.WebhookEvent{
			EventID:   event.ID,
			EventType: event.Event,
			Payload:   datatypes.JSON(body),
		})
		if err != nil {
			h.HandleServiceError(c, err)
			return
		}
		if !fresh {
			logger.CtxInfo(ctx, "duplicate webhook delivery ignored", "event_id", event.ID, "event", event.Event)
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
			return
		}
	}

	if err := h.subscriptionService.HandleWebhookEvent(db, event); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
