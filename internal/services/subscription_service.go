package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"platefuel_backend/internal/billing"
	"platefuel_backend/internal/config"
	"platefuel_backend/internal/dto"
	"platefuel_backend/internal/email"
	"platefuel_backend/internal/logger"
	"platefuel_backend/internal/models"
	"platefuel_backend/internal/repositories"
	"platefuel_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Keys carried in provider-side subscription notes. They let the
// verification paths recover the owning user and plan without a local row.
const (
	noteUserID   = "user_id"
	notePlanType = "plan_type"
	noteEmail    = "email"
)

type SubscriptionService interface {
	Plans() []dto.PlanInfo
	Create(ctx context.Context, db *gorm.DB, userID, userEmail string, planType string) (*dto.CheckoutResponse, error)
	// CheckStatus reconciles the local record against the provider and
	// answers active / pending / inactive.
	CheckStatus(ctx context.Context, db *gorm.DB, userID string) (*dto.StatusResponse, error)
	// Verify is the redirect-based verification entry point after checkout.
	Verify(ctx context.Context, db *gorm.DB, providerSubID string) (*dto.VerifyResponse, error)
	Cancel(ctx context.Context, db *gorm.DB, userID, subscriptionID string) (*dto.CancelResponse, error)
	Resume(ctx context.Context, db *gorm.DB, userID, subscriptionID string) (*dto.ResumeResponse, error)
	History(db *gorm.DB, userID string) ([]models.Subscription, error)
	// HandleWebhookEvent applies one verified provider event. Unrecognized
	// events are logged and ignored.
	HandleWebhookEvent(db *gorm.DB, event *billing.WebhookEvent) error
}

type subscriptionService struct {
	subscriptionRepo repositories.SubscriptionRepository
	profileRepo      repositories.ProfileRepository
	gateway          billing.Gateway
	emailProvider    email.Provider
	cfg              *config.Config
	now              func() time.Time
}

func NewSubscriptionService(
	subscriptionRepo repositories.SubscriptionRepository,
	profileRepo repositories.ProfileRepository,
	gateway billing.Gateway,
	emailProvider email.Provider,
	cfg *config.Config,
) SubscriptionService {
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		profileRepo:      profileRepo,
		gateway:          gateway,
		emailProvider:    emailProvider,
		cfg:              cfg,
		now:              time.Now,
	}
}

// Plans exposes the configured plan catalog, week first.
func (s *subscriptionService) Plans() []dto.PlanInfo {
	order := map[models.PlanType]int{models.PlanTypeWeek: 0, models.PlanTypeMonth: 1, models.PlanTypeYear: 2}

	var plans []dto.PlanInfo
	for raw, planCfg := range s.cfg.Plans {
		planType, ok := models.ParsePlanType(raw)
		if !ok {
			continue
		}
		plans = append(plans, dto.PlanInfo{
			PlanType: planType,
			Price:    planCfg.Price,
			Currency: planCfg.Currency,
		})
	}
	sort.Slice(plans, func(i, j int) bool {
		return order[plans[i].PlanType] < order[plans[j].PlanType]
	})
	return plans
}

func (s *subscriptionService) Create(ctx context.Context, db *gorm.DB, userID, userEmail string, rawPlanType string) (*dto.CheckoutResponse, error) {
	planType, ok := models.ParsePlanType(rawPlanType)
	if !ok {
		return nil, apperrors.ErrUnknownPlanType
	}
	planCfg, ok := s.cfg.Plans[string(planType)]
	if !ok || planCfg.ProviderPlanID == "" {
		return nil, apperrors.ErrPlanNotConfigured
	}

	// At most one active paid period per user.
	if _, err := s.subscriptionRepo.FindCurrentPaid(db, userID); err == nil {
		return nil, apperrors.ErrSubscriptionAlreadyActive
	} else if err != repositories.ErrSubscriptionNotFound {
		return nil, err
	}

	notes := map[string]string{
		noteUserID:   userID,
		notePlanType: string(planType),
		noteEmail:    userEmail,
	}
	providerSub, err := s.gateway.CreateSubscription(ctx, planCfg.ProviderPlanID, notes)
	if err != nil {
		return nil, apperrors.ErrUpstream(err, "billing", "Failed to create subscription with the payment provider")
	}

	sub := &models.Subscription{
		UserID:                 userID,
		PlanID:                 providerSub.PlanID,
		RazorpaySubscriptionID: providerSub.ID,
		Status:                 mapProviderStatus(providerSub.Status, models.SubscriptionStatusCreated),
		PlanType:               planType,
		IsRecurring:            false,
		ShortURL:               providerSub.ShortURL,
		ProviderMeta:           marshalMeta(providerSub),
	}
	if err := s.subscriptionRepo.Create(db, sub); err != nil {
		return nil, err
	}

	return &dto.CheckoutResponse{
		SubscriptionID: providerSub.ID,
		ShortURL:       providerSub.ShortURL,
		CallbackURL:    fmt.Sprintf("%s/payment/callback?subscription_id=%s", s.cfg.App.PublicOrigin, providerSub.ID),
	}, nil
}

// CheckStatus is the read-path reconciler. The provider is the source of
// truth; local storage is a cache that self-heals on every status query.
func (s *subscriptionService) CheckStatus(ctx context.Context, db *gorm.DB, userID string) (*dto.StatusResponse, error) {
	// 1. A settled, unexpired local row answers immediately.
	if paid, err := s.subscriptionRepo.FindCurrentPaid(db, userID); err == nil {
		return activeResponse(paid), nil
	} else if err != repositories.ErrSubscriptionNotFound {
		return nil, err
	}

	// 2. An unresolved row gets its live status from the provider.
	pending, err := s.subscriptionRepo.FindCurrentPending(db, userID)
	if err == repositories.ErrSubscriptionNotFound {
		return &dto.StatusResponse{}, nil
	}
	if err != nil {
		return nil, err
	}

	providerSub, err := s.gateway.FetchSubscription(ctx, pending.RazorpaySubscriptionID)
	if err != nil {
		// Provider fetch failures are swallowed on the read path and the
		// last known local state is returned. Flagged for review: this can
		// mask provider outages behind an eternally pending answer.
		logger.CtxWarn(ctx, "provider status fetch failed, returning local state",
			"subscription_id", pending.RazorpaySubscriptionID, "error", err.Error())
		return pendingResponse(pending), nil
	}

	status, known := models.ParseProviderStatus(providerSub.Status)
	switch {
	case !known:
		logger.CtxError(ctx, "unhandled provider subscription status",
			"subscription_id", pending.RazorpaySubscriptionID, "provider_status", providerSub.Status)
		return &dto.StatusResponse{}, nil
	case status.GrantsAccess():
		if err := s.activate(db, pending, providerSub); err != nil {
			return nil, err
		}
		return activeResponse(pending), nil
	case status.AwaitingPayment():
		return pendingResponse(pending), nil
	default:
		// Terminal at the provider: mirror it locally and report inactive.
		if err := s.subscriptionRepo.UpdateStatus(db, pending.RazorpaySubscriptionID, status); err != nil {
			return nil, err
		}
		return &dto.StatusResponse{}, nil
	}
}

func (s *subscriptionService) Verify(ctx context.Context, db *gorm.DB, providerSubID string) (*dto.VerifyResponse, error) {
	providerSub, err := s.gateway.FetchSubscription(ctx, providerSubID)
	if err != nil {
		return nil, apperrors.ErrUpstream(err, "billing", "Failed to fetch subscription from the payment provider")
	}

	userID := providerSub.Notes[noteUserID]
	rawPlan := providerSub.Notes[notePlanType]
	if userID == "" || rawPlan == "" {
		return nil, apperrors.NewBadRequestError("Subscription is missing required metadata")
	}

	status, known := models.ParseProviderStatus(providerSub.Status)
	if !known {
		return &dto.VerifyResponse{
			Success:        false,
			Message:        "Payment verification failed",
			ProviderStatus: providerSub.Status,
		}, nil
	}

	switch {
	case status == models.SubscriptionStatusCreated || status == models.SubscriptionStatusAuthenticated:
		return &dto.VerifyResponse{
			Pending:        true,
			Message:        "Payment is still pending",
			SubscriptionID: providerSubID,
		}, nil

	case status == models.SubscriptionStatusCancelled:
		return &dto.VerifyResponse{
			Success:        false,
			Message:        "Payment was not completed",
			SubscriptionID: providerSubID,
		}, nil

	case status.GrantsAccess():
		local, err := s.subscriptionRepo.FindByProviderID(db, providerSubID)
		if err != nil && err != repositories.ErrSubscriptionNotFound {
			return nil, err
		}
		if local != nil && local.Status == models.SubscriptionStatusCancelled {
			// A locally cancelled subscription is not resurrected by a late
			// provider confirmation.
			return &dto.VerifyResponse{
				Success:        false,
				Message:        "Subscription was cancelled",
				SubscriptionID: providerSubID,
				ProviderStatus: providerSub.Status,
			}, nil
		}
		if local == nil {
			local = s.subscriptionFromProvider(providerSub, userID, rawPlan)
		}
		if err := s.activate(db, local, providerSub); err != nil {
			return nil, err
		}
		return &dto.VerifyResponse{
			Success:        true,
			Message:        "Subscription is active",
			SubscriptionID: providerSubID,
		}, nil

	default:
		return &dto.VerifyResponse{
			Success:        false,
			Message:        "Payment verification failed",
			SubscriptionID: providerSubID,
			ProviderStatus: providerSub.Status,
		}, nil
	}
}

func (s *subscriptionService) Cancel(ctx context.Context, db *gorm.DB, userID, subscriptionID string) (*dto.CancelResponse, error) {
	sub, err := s.subscriptionRepo.FindByProviderID(db, subscriptionID)
	if err != nil {
		if err == repositories.ErrSubscriptionNotFound {
			return nil, apperrors.ErrSubscriptionNotOwned
		}
		return nil, err
	}
	if sub.UserID != userID {
		// Foreign subscriptions look like missing ones.
		return nil, apperrors.ErrSubscriptionNotOwned
	}

	providerSub, err := s.gateway.CancelSubscription(ctx, subscriptionID)
	alreadyFinalized := false
	switch {
	case err == nil:
		alreadyFinalized = providerSub.Status == string(models.SubscriptionStatusCompleted)
	case billing.IsAlreadyFinalized(err):
		alreadyFinalized = true
	default:
		return nil, apperrors.ErrUpstream(err, "billing", "Failed to cancel subscription with the payment provider")
	}

	if err := s.subscriptionRepo.UpdateStatus(db, subscriptionID, models.SubscriptionStatusCancelled); err != nil {
		return nil, err
	}

	if alreadyFinalized {
		// The paid period was already settled; access runs until its end
		// date, only the bookkeeping flips to cancelled.
		return &dto.CancelResponse{Cancelled: true, AccessUntilEnd: sub.EndDate}, nil
	}

	if err := s.profileRepo.SetSubscriptionState(db, userID, false, nil, nil); err != nil {
		return nil, err
	}
	return &dto.CancelResponse{Cancelled: true}, nil
}

func (s *subscriptionService) Resume(ctx context.Context, db *gorm.DB, userID, subscriptionID string) (*dto.ResumeResponse, error) {
	sub, err := s.subscriptionRepo.FindByProviderID(db, subscriptionID)
	if err != nil {
		if err == repositories.ErrSubscriptionNotFound {
			return nil, apperrors.ErrSubscriptionNotOwned
		}
		return nil, err
	}
	if sub.UserID != userID {
		return nil, apperrors.ErrSubscriptionNotOwned
	}

	providerSub, err := s.gateway.FetchSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, apperrors.ErrUpstream(err, "billing", "Failed to fetch subscription from the payment provider")
	}

	status, known := models.ParseProviderStatus(providerSub.Status)
	if !known {
		return nil, apperrors.ErrCannotResume
	}

	switch {
	case status.GrantsAccess():
		// Nothing is owed; reconcile and send the user back into the app.
		if err := s.activate(db, sub, providerSub); err != nil {
			return nil, err
		}
		return &dto.ResumeResponse{
			Active:      true,
			RedirectURL: s.cfg.App.PublicOrigin + "/dashboard",
		}, nil

	case status.Restartable():
		// The old subscription is dead at the provider; start a fresh one
		// carrying the same plan and metadata.
		planCfg, ok := s.cfg.Plans[string(sub.PlanType)]
		if !ok || planCfg.ProviderPlanID == "" {
			return nil, apperrors.ErrPlanNotConfigured
		}
		notes := map[string]string{
			noteUserID:   userID,
			notePlanType: string(sub.PlanType),
			noteEmail:    providerSub.Notes[noteEmail],
		}
		fresh, err := s.gateway.CreateSubscription(ctx, planCfg.ProviderPlanID, notes)
		if err != nil {
			return nil, apperrors.ErrUpstream(err, "billing", "Failed to create subscription with the payment provider")
		}
		replacement := &models.Subscription{
			UserID:                 userID,
			PlanID:                 fresh.PlanID,
			RazorpaySubscriptionID: fresh.ID,
			Status:                 mapProviderStatus(fresh.Status, models.SubscriptionStatusCreated),
			PlanType:               sub.PlanType,
			IsRecurring:            false,
			ShortURL:               fresh.ShortURL,
			ProviderMeta:           marshalMeta(fresh),
		}
		if err := s.subscriptionRepo.Create(db, replacement); err != nil {
			return nil, err
		}
		return &dto.ResumeResponse{
			ShortURL:       fresh.ShortURL,
			SubscriptionID: fresh.ID,
		}, nil

	case status.AwaitingPayment():
		shortURL := providerSub.ShortURL
		if shortURL == "" {
			shortURL = sub.ShortURL
		}
		return &dto.ResumeResponse{
			ShortURL:       shortURL,
			SubscriptionID: subscriptionID,
		}, nil

	default:
		return nil, apperrors.ErrCannotResume
	}
}

func (s *subscriptionService) History(db *gorm.DB, userID string) ([]models.Subscription, error) {
	return s.subscriptionRepo.FindByUser(db, userID)
}

func (s *subscriptionService) HandleWebhookEvent(db *gorm.DB, event *billing.WebhookEvent) error {
	switch event.Event {
	case billing.EventSubscriptionActivated:
		return s.applySubscriptionEvent(db, &event.Payload.Subscription.Entity, models.SubscriptionStatusActive)

	case billing.EventSubscriptionPending:
		return s.applySubscriptionEvent(db, &event.Payload.Subscription.Entity, models.SubscriptionStatusPending)

	case billing.EventSubscriptionHalted:
		return s.applySubscriptionEvent(db, &event.Payload.Subscription.Entity, models.SubscriptionStatusHalted)

	case billing.EventSubscriptionCancelled:
		return s.applySubscriptionEvent(db, &event.Payload.Subscription.Entity, models.SubscriptionStatusCancelled)

	case billing.EventPaymentCaptured:
		return s.applyPaymentCaptured(db, &event.Payload.Payment.Entity)

	case billing.EventPaymentFailed:
		return s.applyPaymentFailed(db, &event.Payload.Payment.Entity)

	default:
		logger.Warn("ignoring unrecognized webhook event", "event", event.Event)
		return nil
	}
}

// applySubscriptionEvent upserts the local row to the status the event
// names. Activation runs the full promotion so dates and the profile stay
// consistent.
func (s *subscriptionService) applySubscriptionEvent(db *gorm.DB, entity *billing.Subscription, status models.SubscriptionStatus) error {
	if entity.ID == "" {
		return apperrors.NewBadRequestError("Webhook payload has no subscription entity")
	}

	sub, err := s.subscriptionRepo.FindByProviderID(db, entity.ID)
	if err == repositories.ErrSubscriptionNotFound {
		userID := entity.Notes[noteUserID]
		rawPlan := entity.Notes[notePlanType]
		if userID == "" {
			logger.Warn("webhook for unknown subscription without notes, skipping", "subscription_id", entity.ID)
			return nil
		}
		sub = s.subscriptionFromProvider(entity, userID, rawPlan)
	} else if err != nil {
		return err
	}

	if status == models.SubscriptionStatusActive {
		return s.activate(db, sub, entity)
	}

	sub.Status = status
	sub.ProviderMeta = marshalMeta(entity)
	return s.subscriptionRepo.Upsert(db, sub)
}

func (s *subscriptionService) applyPaymentCaptured(db *gorm.DB, payment *billing.Payment) error {
	if payment.SubscriptionID == "" {
		logger.Warn("payment.captured without subscription reference, skipping", "payment_id", payment.ID)
		return nil
	}
	sub, err := s.subscriptionRepo.FindByProviderID(db, payment.SubscriptionID)
	if err != nil {
		if err == repositories.ErrSubscriptionNotFound {
			logger.Warn("payment.captured for unknown subscription, skipping",
				"subscription_id", payment.SubscriptionID, "payment_id", payment.ID)
			return nil
		}
		return err
	}

	sub.RazorpayPaymentID = payment.ID
	return s.activate(db, sub, nil)
}

func (s *subscriptionService) applyPaymentFailed(db *gorm.DB, payment *billing.Payment) error {
	if payment.SubscriptionID == "" {
		logger.Warn("payment.failed without subscription reference, skipping", "payment_id", payment.ID)
		return nil
	}
	sub, err := s.subscriptionRepo.FindByProviderID(db, payment.SubscriptionID)
	if err != nil {
		if err == repositories.ErrSubscriptionNotFound {
			logger.Warn("payment.failed for unknown subscription, skipping",
				"subscription_id", payment.SubscriptionID, "payment_id", payment.ID)
			return nil
		}
		return err
	}

	sub.Status = models.SubscriptionStatusHalted
	if err := s.subscriptionRepo.Upsert(db, sub); err != nil {
		return err
	}
	if err := s.profileRepo.SetSubscriptionState(db, sub.UserID, false, nil, nil); err != nil {
		return err
	}

	s.notifyPaymentFailed(db, sub.UserID)
	return nil
}

// activate promotes a subscription to active: dates are computed from the
// plan type, the profile summary is replaced, and the user is notified.
// Re-applying provider-sourced activation to an already active row is a
// no-op, which makes webhook/polling races converge.
func (s *subscriptionService) activate(db *gorm.DB, sub *models.Subscription, providerSub *billing.Subscription) error {
	if providerSub != nil {
		sub.ProviderMeta = marshalMeta(providerSub)
	}

	firstActivation := !sub.Status.GrantsAccess() || sub.EndDate == nil
	if firstActivation {
		start := s.now()
		end := sub.PlanType.EndDateFrom(start)
		sub.Status = models.SubscriptionStatusActive
		sub.StartDate = &start
		sub.EndDate = &end
	}

	if err := s.subscriptionRepo.Upsert(db, sub); err != nil {
		return err
	}

	tier := string(sub.PlanType)
	if err := s.profileRepo.SetSubscriptionState(db, sub.UserID, true, &tier, &sub.RazorpaySubscriptionID); err != nil {
		return err
	}

	if firstActivation {
		s.notifyActivated(db, sub)
	}
	return nil
}

func (s *subscriptionService) subscriptionFromProvider(providerSub *billing.Subscription, userID, rawPlan string) *models.Subscription {
	planType, ok := models.ParsePlanType(rawPlan)
	if !ok {
		// Unrecognized plan metadata falls back to the monthly duration
		// downstream; keep what the provider sent for diagnostics.
		planType = models.PlanType(rawPlan)
	}
	return &models.Subscription{
		UserID:                 userID,
		PlanID:                 providerSub.PlanID,
		RazorpaySubscriptionID: providerSub.ID,
		Status:                 mapProviderStatus(providerSub.Status, models.SubscriptionStatusCreated),
		PlanType:               planType,
		IsRecurring:            false,
		ShortURL:               providerSub.ShortURL,
		ProviderMeta:           marshalMeta(providerSub),
	}
}

// Notifications are best effort; delivery failures never fail the
// reconciliation that triggered them.
func (s *subscriptionService) notifyActivated(db *gorm.DB, sub *models.Subscription) {
	profile, err := s.profileRepo.FindByUserID(db, sub.UserID)
	if err != nil || profile.Email == "" || sub.EndDate == nil {
		return
	}
	if err := s.emailProvider.SendSubscriptionActivated(profile.Email, string(sub.PlanType), *sub.EndDate); err != nil {
		logger.Warn("activation email failed", "user_id", sub.UserID, "error", err.Error())
	}
}

func (s *subscriptionService) notifyPaymentFailed(db *gorm.DB, userID string) {
	profile, err := s.profileRepo.FindByUserID(db, userID)
	if err != nil || profile.Email == "" {
		return
	}
	if err := s.emailProvider.SendPaymentFailed(profile.Email); err != nil {
		logger.Warn("payment-failed email failed", "user_id", userID, "error", err.Error())
	}
}

func mapProviderStatus(raw string, fallback models.SubscriptionStatus) models.SubscriptionStatus {
	if status, ok := models.ParseProviderStatus(raw); ok {
		return status
	}
	return fallback
}

func marshalMeta(providerSub *billing.Subscription) datatypes.JSON {
	raw, err := json.Marshal(providerSub)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func activeResponse(sub *models.Subscription) *dto.StatusResponse {
	return &dto.StatusResponse{
		IsActive:         true,
		SubscriptionTier: string(sub.PlanType),
		SubscriptionID:   sub.RazorpaySubscriptionID,
		EndDate:          sub.EndDate,
	}
}

func pendingResponse(sub *models.Subscription) *dto.StatusResponse {
	return &dto.StatusResponse{
		IsPending:      true,
		SubscriptionID: sub.RazorpaySubscriptionID,
	}
}
