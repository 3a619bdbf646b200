package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"platefuel_backend/internal/billing"
	"platefuel_backend/internal/config"
	"platefuel_backend/internal/models"
	"platefuel_backend/internal/repositories"
	"platefuel_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- in-memory fakes ---

type fakeSubscriptionRepo struct {
	subs []*models.Subscription
	now  time.Time
}

func (f *fakeSubscriptionRepo) Create(_ *gorm.DB, sub *models.Subscription) error {
	f.subs = append(f.subs, sub)
	return nil
}

func (f *fakeSubscriptionRepo) FindByProviderID(_ *gorm.DB, providerSubID string) (*models.Subscription, error) {
	for _, sub := range f.subs {
		if sub.RazorpaySubscriptionID == providerSubID {
			return sub, nil
		}
	}
	return nil, repositories.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionRepo) FindCurrentPaid(_ *gorm.DB, userID string) (*models.Subscription, error) {
	for i := len(f.subs) - 1; i >= 0; i-- {
		sub := f.subs[i]
		if sub.UserID == userID && sub.Status.GrantsAccess() && sub.EndDate != nil && !sub.EndDate.Before(f.now) {
			return sub, nil
		}
	}
	return nil, repositories.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionRepo) FindCurrentPending(_ *gorm.DB, userID string) (*models.Subscription, error) {
	for i := len(f.subs) - 1; i >= 0; i-- {
		sub := f.subs[i]
		if sub.UserID == userID && sub.Status.AwaitingPayment() {
			return sub, nil
		}
	}
	return nil, repositories.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionRepo) FindByUser(_ *gorm.DB, userID string) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range f.subs {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeSubscriptionRepo) Update(_ *gorm.DB, sub *models.Subscription) error {
	return f.Upsert(nil, sub)
}

func (f *fakeSubscriptionRepo) UpdateStatus(_ *gorm.DB, providerSubID string, status models.SubscriptionStatus) error {
	sub, err := f.FindByProviderID(nil, providerSubID)
	if err != nil {
		return err
	}
	sub.Status = status
	return nil
}

func (f *fakeSubscriptionRepo) Upsert(_ *gorm.DB, sub *models.Subscription) error {
	for i, existing := range f.subs {
		if existing.RazorpaySubscriptionID == sub.RazorpaySubscriptionID {
			f.subs[i] = sub
			return nil
		}
	}
	f.subs = append(f.subs, sub)
	return nil
}

func (f *fakeSubscriptionRepo) ExpireOverdue(_ *gorm.DB) ([]string, error) {
	var userIDs []string
	for _, sub := range f.subs {
		if sub.Status.GrantsAccess() && sub.EndDate != nil && sub.EndDate.Before(f.now) {
			sub.Status = models.SubscriptionStatusExpired
			userIDs = append(userIDs, sub.UserID)
		}
	}
	return userIDs, nil
}

type fakeProfileRepo struct {
	profiles map[string]*models.Profile
}

func (f *fakeProfileRepo) FindByUserID(_ *gorm.DB, userID string) (*models.Profile, error) {
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, repositories.ErrProfileNotFound
}

func (f *fakeProfileRepo) Create(_ *gorm.DB, profile *models.Profile) error {
	if _, ok := f.profiles[profile.UserID]; ok {
		return repositories.ErrProfileAlreadyExists
	}
	f.profiles[profile.UserID] = profile
	return nil
}

func (f *fakeProfileRepo) SetSubscriptionState(_ *gorm.DB, userID string, active bool, tier *string, subscriptionID *string) error {
	p, ok := f.profiles[userID]
	if !ok {
		return repositories.ErrProfileNotFound
	}
	p.SubscriptionActive = active
	p.SubscriptionTier = tier
	p.SubscriptionID = subscriptionID
	return nil
}

type fakeGateway struct {
	createFn func(planID string, notes map[string]string) (*billing.Subscription, error)
	fetchFn  func(subscriptionID string) (*billing.Subscription, error)
	cancelFn func(subscriptionID string) (*billing.Subscription, error)

	createCalls int
	fetchCalls  int
	cancelCalls int
}

func (f *fakeGateway) CreateSubscription(_ context.Context, planID string, notes map[string]string) (*billing.Subscription, error) {
	f.createCalls++
	return f.createFn(planID, notes)
}

func (f *fakeGateway) FetchSubscription(_ context.Context, subscriptionID string) (*billing.Subscription, error) {
	f.fetchCalls++
	return f.fetchFn(subscriptionID)
}

func (f *fakeGateway) CancelSubscription(_ context.Context, subscriptionID string) (*billing.Subscription, error) {
	f.cancelCalls++
	return f.cancelFn(subscriptionID)
}

type fakeEmail struct {
	activated []string
	failed    []string
}

func (f *fakeEmail) SendSubscriptionActivated(to, _ string, _ time.Time) error {
	f.activated = append(f.activated, to)
	return nil
}

func (f *fakeEmail) SendPaymentFailed(to string) error {
	f.failed = append(f.failed, to)
	return nil
}

// --- harness ---

type subFixture struct {
	svc     *subscriptionService
	subs    *fakeSubscriptionRepo
	profs   *fakeProfileRepo
	gateway *fakeGateway
	email   *fakeEmail
	now     time.Time
}

func newSubFixture(t *testing.T) *subFixture {
	t.Helper()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cfg := &config.Config{}
	cfg.App.PublicOrigin = "https://app.platefuel.test"
	cfg.Plans = map[string]config.PlanConfig{
		"week":  {ProviderPlanID: "plan_week", Price: 199, Currency: "INR"},
		"month": {ProviderPlanID: "plan_month", Price: 499, Currency: "INR"},
		"year":  {ProviderPlanID: "plan_year", Price: 3999, Currency: "INR"},
	}

	subs := &fakeSubscriptionRepo{now: now}
	profs := &fakeProfileRepo{profiles: map[string]*models.Profile{
		"user-1": {UserID: "user-1", Email: "u1@example.com"},
	}}
	gateway := &fakeGateway{
		createFn: func(planID string, notes map[string]string) (*billing.Subscription, error) {
			return &billing.Subscription{
				ID:       "sub_new",
				PlanID:   planID,
				Status:   "created",
				ShortURL: "https://rzp.io/i/new",
				Notes:    notes,
			}, nil
		},
		fetchFn: func(string) (*billing.Subscription, error) {
			return nil, errors.New("unexpected fetch")
		},
		cancelFn: func(string) (*billing.Subscription, error) {
			return nil, errors.New("unexpected cancel")
		},
	}
	mail := &fakeEmail{}

	svc := &subscriptionService{
		subscriptionRepo: subs,
		profileRepo:      profs,
		gateway:          gateway,
		emailProvider:    mail,
		cfg:              cfg,
		now:              func() time.Time { return now },
	}

	return &subFixture{svc: svc, subs: subs, profs: profs, gateway: gateway, email: mail, now: now}
}

func (fx *subFixture) seedSubscription(sub *models.Subscription) *models.Subscription {
	fx.subs.subs = append(fx.subs.subs, sub)
	return sub
}

// --- Plans ---

func TestPlans_OrderedWeekFirst(t *testing.T) {
	fx := newSubFixture(t)

	plans := fx.svc.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, models.PlanTypeWeek, plans[0].PlanType)
	assert.Equal(t, models.PlanTypeMonth, plans[1].PlanType)
	assert.Equal(t, models.PlanTypeYear, plans[2].PlanType)
	assert.Equal(t, 499.0, plans[1].Price)
}

// --- Create ---

func TestCreate_UnknownPlanType(t *testing.T) {
	fx := newSubFixture(t)

	_, err := fx.svc.Create(context.Background(), nil, "user-1", "u1@example.com", "decade")
	assert.ErrorIs(t, err, apperrors.ErrUnknownPlanType)
	assert.Zero(t, fx.gateway.createCalls)
}

func TestCreate_PlanNotConfigured(t *testing.T) {
	fx := newSubFixture(t)
	fx.svc.cfg.Plans = map[string]config.PlanConfig{}

	_, err := fx.svc.Create(context.Background(), nil, "user-1", "u1@example.com", "month")
	assert.ErrorIs(t, err, apperrors.ErrPlanNotConfigured)
}

func TestCreate_RejectsSecondActiveSubscription(t *testing.T) {
	fx := newSubFixture(t)
	end := fx.now.Add(10 * 24 * time.Hour)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_live",
		Status:                 models.SubscriptionStatusActive,
		PlanType:               models.PlanTypeMonth,
		EndDate:                &end,
	})

	_, err := fx.svc.Create(context.Background(), nil, "user-1", "u1@example.com", "month")
	assert.ErrorIs(t, err, apperrors.ErrSubscriptionAlreadyActive)
	assert.Zero(t, fx.gateway.createCalls)
}

func TestCreate_PersistsAndReturnsCheckout(t *testing.T) {
	fx := newSubFixture(t)

	resp, err := fx.svc.Create(context.Background(), nil, "user-1", "u1@example.com", "year")
	require.NoError(t, err)

	assert.Equal(t, "sub_new", resp.SubscriptionID)
	assert.Equal(t, "https://rzp.io/i/new", resp.ShortURL)
	assert.Equal(t, "https://app.platefuel.test/payment/callback?subscription_id=sub_new", resp.CallbackURL)

	stored, err := fx.subs.FindByProviderID(nil, "sub_new")
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, models.PlanTypeYear, stored.PlanType)
	assert.Equal(t, models.SubscriptionStatusCreated, stored.Status)
	assert.Nil(t, stored.EndDate)
}

func TestCreate_ExpiredHistoryDoesNotBlockNewCheckout(t *testing.T) {
	fx := newSubFixture(t)
	end := fx.now.Add(-24 * time.Hour)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_old",
		Status:                 models.SubscriptionStatusActive,
		PlanType:               models.PlanTypeWeek,
		EndDate:                &end,
	})

	_, err := fx.svc.Create(context.Background(), nil, "user-1", "u1@example.com", "month")
	assert.NoError(t, err)
}

// --- CheckStatus ---

func TestCheckStatus_NoSubscription(t *testing.T) {
	fx := newSubFixture(t)

	resp, err := fx.svc.CheckStatus(context.Background(), nil, "user-1")
	require.NoError(t, err)
	assert.False(t, resp.IsActive)
	assert.False(t, resp.IsPending)
	assert.Zero(t, fx.gateway.fetchCalls)
}

func TestCheckStatus_ActiveLocalAnswersWithoutGateway(t *testing.T) {
	fx := newSubFixture(t)
	end := fx.now.Add(20 * 24 * time.Hour)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_live",
		Status:                 models.SubscriptionStatusActive,
		PlanType:               models.PlanTypeMonth,
		EndDate:                &end,
	})

	resp, err := fx.svc.CheckStatus(context.Background(), nil, "user-1")
	require.NoError(t, err)
	assert.True(t, resp.IsActive)
	assert.Equal(t, "month", resp.SubscriptionTier)
	assert.Equal(t, "sub_live", resp.SubscriptionID)
	assert.Zero(t, fx.gateway.fetchCalls)
}

func TestCheckStatus_PendingStaysPending(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_wait",
		Status:                 models.SubscriptionStatusCreated,
		PlanType:               models.PlanTypeMonth,
	})
	fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
		return &billing.Subscription{ID: "sub_wait", Status: "authenticated"}, nil
	}

	resp, err := fx.svc.CheckStatus(context.Background(), nil, "user-1")
	require.NoError(t, err)
	assert.True(t, resp.IsPending)
	assert.Equal(t, "sub_wait", resp.SubscriptionID)
}

func TestCheckStatus_PromotesWhenProviderReportsActive(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_wait",
		Status:                 models.SubscriptionStatusCreated,
		PlanType:               models.PlanTypeMonth,
	})
	fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
		return &billing.Subscription{ID: "sub_wait", Status: "active"}, nil
	}

	resp, err := fx.svc.CheckStatus(context.Background(), nil, "user-1")
	require.NoError(t, err)
	assert.True(t, resp.IsActive)

	stored, err := fx.subs.FindByProviderID(nil, "sub_wait")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
	require.NotNil(t, stored.StartDate)
	require.NotNil(t, stored.EndDate)
	assert.Equal(t, fx.now, *stored.StartDate)
	assert.Equal(t, fx.now.AddDate(0, 1, 0), *stored.EndDate)

	profile := fx.profs.profiles["user-1"]
	assert.True(t, profile.SubscriptionActive)
	require.NotNil(t, profile.SubscriptionTier)
	assert.Equal(t, "month", *profile.SubscriptionTier)
	require.NotNil(t, profile.SubscriptionID)
	assert.Equal(t, "sub_wait", *profile.SubscriptionID)

	assert.Equal(t, []string{"u1@example.com"}, fx.email.activated)
}

func TestCheckStatus_GatewayErrorReturnsLocalPending(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_wait",
		Status:                 models.SubscriptionStatusPending,
		PlanType:               models.PlanTypeWeek,
	})
	fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
		return nil, errors.New("gateway timeout")
	}

	resp, err := fx.svc.CheckStatus(context.Background(), nil, "user-1")
	require.NoError(t, err)
	assert.True(t, resp.IsPending)
	assert.False(t, resp.IsActive)
}

func TestCheckStatus_TerminalProviderStatusMirroredLocally(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_wait",
		Status:                 models.SubscriptionStatusCreated,
		PlanType:               models.PlanTypeMonth,
	})
	fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
		return &billing.Subscription{ID: "sub_wait", Status: "cancelled"}, nil
	}

	resp, err := fx.svc.CheckStatus(context.Background(), nil, "user-1")
	require.NoError(t, err)
	assert.False(t, resp.IsActive)
	assert.False(t, resp.IsPending)

	stored, err := fx.subs.FindByProviderID(nil, "sub_wait")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCancelled, stored.Status)
}

func TestCheckStatus_UnknownProviderStatusReportsInactive(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_wait",
		Status:                 models.SubscriptionStatusCreated,
		PlanType:               models.PlanTypeMonth,
	})
	fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
		return &billing.Subscription{ID: "sub_wait", Status: "paused"}, nil
	}

	resp, err := fx.svc.CheckStatus(context.Background(), nil, "user-1")
	require.NoError(t, err)
	assert.False(t, resp.IsActive)
	assert.False(t, resp.IsPending)

	// Local state is left untouched rather than guessed at.
	stored, _ := fx.subs.FindByProviderID(nil, "sub_wait")
	assert.Equal(t, models.SubscriptionStatusCreated, stored.Status)
}

// --- Verify ---

func TestVerify_ActiveActivatesIdempotently(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_wait",
		Status:                 models.SubscriptionStatusCreated,
		PlanType:               models.PlanTypeMonth,
	})
	fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
		return &billing.Subscription{
			ID:     "sub_wait",
			Status: "active",
			Notes:  map[string]string{"user_id": "user-1", "plan_type": "month"},
		}, nil
	}

	resp, err := fx.svc.Verify(context.Background(), nil, "sub_wait")
	require.NoError(t, err)
	assert.True(t, resp.Success)

	stored, _ := fx.subs.FindByProviderID(nil, "sub_wait")
	firstEnd := *stored.EndDate

	// Webhook raced the redirect: a second verification must not move dates
	// or send another email.
	resp, err = fx.svc.Verify(context.Background(), nil, "sub_wait")
	require.NoError(t, err)
	assert.True(t, resp.Success)

	stored, _ = fx.subs.FindByProviderID(nil, "sub_wait")
	assert.Equal(t, firstEnd, *stored.EndDate)
	assert.Len(t, fx.email.activated, 1)
}

func TestVerify_UnknownLocalRowIsCreatedFromNotes(t *testing.T) {
	fx := newSubFixture(t)
	fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
		return &billing.Subscription{
			ID:       "sub_webhookless",
			PlanID:   "plan_week",
			Status:   "active",
			ShortURL: "https://rzp.io/i/x",
			Notes:    map[string]string{"user_id": "user-1", "plan_type": "week"},
		}, nil
	}

	resp, err := fx.svc.Verify(context.Background(), nil, "sub_webhookless")
	require.NoError(t, err)
	assert.True(t, resp.Success)

	stored, err := fx.subs.FindByProviderID(nil, "sub_webhookless")
	require.NoError(t, err)
	assert.Equal(t, models.PlanTypeWeek, stored.PlanType)
	assert.Equal(t, fx.now.AddDate(0, 0, 7), *stored.EndDate)
}

func TestVerify_PendingProviderStates(t *testing.T) {
	fx := newSubFixture(t)
	for _, status := range []string{"created", "authenticated"} {
		fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
			return &billing.Subscription{
				ID:     "sub_wait",
				Status: status,
				Notes:  map[string]string{"user_id": "user-1", "plan_type": "month"},
			}, nil
		}

		resp, err := fx.svc.Verify(context.Background(), nil, "sub_wait")
		require.NoError(t, err)
		assert.True(t, resp.Pending, "status %s", status)
		assert.False(t, resp.Success)
	}
}

func TestVerify_CancelledLocallyIsNotResurrected(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_dead",
		Status:                 models.SubscriptionStatusCancelled,
		PlanType:               models.PlanTypeMonth,
	})
	fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
		return &billing.Subscription{
			ID:     "sub_dead",
			Status: "active",
			Notes:  map[string]string{"user_id": "user-1", "plan_type": "month"},
		}, nil
	}

	resp, err := fx.svc.Verify(context.Background(), nil, "sub_dead")
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.False(t, fx.profs.profiles["user-1"].SubscriptionActive)
}

func TestVerify_MissingNotesRejected(t *testing.T) {
	fx := newSubFixture(t)
	fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
		return &billing.Subscription{ID: "sub_x", Status: "active"}, nil
	}

	_, err := fx.svc.Verify(context.Background(), nil, "sub_x")
	require.Error(t, err)
}

// --- Cancel ---

func TestCancel_ForeignSubscriptionLooksMissing(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-2",
		RazorpaySubscriptionID: "sub_other",
		Status:                 models.SubscriptionStatusActive,
		PlanType:               models.PlanTypeMonth,
	})

	_, err := fx.svc.Cancel(context.Background(), nil, "user-1", "sub_other")
	assert.ErrorIs(t, err, apperrors.ErrSubscriptionNotOwned)
	assert.Zero(t, fx.gateway.cancelCalls)
}

func TestCancel_ActiveRevokesAccess(t *testing.T) {
	fx := newSubFixture(t)
	end := fx.now.Add(15 * 24 * time.Hour)
	tier := "month"
	subID := "sub_live"
	fx.profs.profiles["user-1"].SubscriptionActive = true
	fx.profs.profiles["user-1"].SubscriptionTier = &tier
	fx.profs.profiles["user-1"].SubscriptionID = &subID
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_live",
		Status:                 models.SubscriptionStatusActive,
		PlanType:               models.PlanTypeMonth,
		EndDate:                &end,
	})
	fx.gateway.cancelFn = func(string) (*billing.Subscription, error) {
		return &billing.Subscription{ID: "sub_live", Status: "cancelled"}, nil
	}

	resp, err := fx.svc.Cancel(context.Background(), nil, "user-1", "sub_live")
	require.NoError(t, err)
	assert.True(t, resp.Cancelled)
	assert.Nil(t, resp.AccessUntilEnd)

	stored, _ := fx.subs.FindByProviderID(nil, "sub_live")
	assert.Equal(t, models.SubscriptionStatusCancelled, stored.Status)

	profile := fx.profs.profiles["user-1"]
	assert.False(t, profile.SubscriptionActive)
	assert.Nil(t, profile.SubscriptionTier)
	assert.Nil(t, profile.SubscriptionID)
}

func TestCancel_CompletedKeepsAccessUntilEnd(t *testing.T) {
	fx := newSubFixture(t)
	end := fx.now.Add(5 * 24 * time.Hour)
	fx.profs.profiles["user-1"].SubscriptionActive = true
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_done",
		Status:                 models.SubscriptionStatusCompleted,
		PlanType:               models.PlanTypeWeek,
		EndDate:                &end,
	})
	fx.gateway.cancelFn = func(string) (*billing.Subscription, error) {
		return nil, errors.New("BAD_REQUEST_ERROR: subscription is completed and not cancellable")
	}

	resp, err := fx.svc.Cancel(context.Background(), nil, "user-1", "sub_done")
	require.NoError(t, err)
	assert.True(t, resp.Cancelled)
	require.NotNil(t, resp.AccessUntilEnd)
	assert.Equal(t, end, *resp.AccessUntilEnd)

	// Bookkeeping flips but the paid period keeps granting access.
	stored, _ := fx.subs.FindByProviderID(nil, "sub_done")
	assert.Equal(t, models.SubscriptionStatusCancelled, stored.Status)
	assert.True(t, fx.profs.profiles["user-1"].SubscriptionActive)
}

func TestCancel_GatewayFailurePropagates(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_live",
		Status:                 models.SubscriptionStatusActive,
		PlanType:               models.PlanTypeMonth,
	})
	fx.gateway.cancelFn = func(string) (*billing.Subscription, error) {
		return nil, errors.New("gateway down")
	}

	_, err := fx.svc.Cancel(context.Background(), nil, "user-1", "sub_live")
	require.Error(t, err)

	// Local state stays untouched when the provider call fails.
	stored, _ := fx.subs.FindByProviderID(nil, "sub_live")
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
}

// --- Resume ---

func TestResume_ActiveAtProviderRedirectsBack(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_live",
		Status:                 models.SubscriptionStatusHalted,
		PlanType:               models.PlanTypeMonth,
	})
	fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
		return &billing.Subscription{ID: "sub_live", Status: "active"}, nil
	}

	resp, err := fx.svc.Resume(context.Background(), nil, "user-1", "sub_live")
	require.NoError(t, err)
	assert.True(t, resp.Active)
	assert.Equal(t, "https://app.platefuel.test/dashboard", resp.RedirectURL)
}

func TestResume_CancelledStartsFreshSubscription(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_dead",
		Status:                 models.SubscriptionStatusCancelled,
		PlanType:               models.PlanTypeYear,
	})
	fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
		return &billing.Subscription{ID: "sub_dead", Status: "cancelled"}, nil
	}

	resp, err := fx.svc.Resume(context.Background(), nil, "user-1", "sub_dead")
	require.NoError(t, err)
	assert.False(t, resp.Active)
	assert.Equal(t, "sub_new", resp.SubscriptionID)
	assert.Equal(t, "https://rzp.io/i/new", resp.ShortURL)

	replacement, err := fx.subs.FindByProviderID(nil, "sub_new")
	require.NoError(t, err)
	assert.Equal(t, models.PlanTypeYear, replacement.PlanType)
}

func TestResume_AwaitingPaymentReturnsCheckoutLink(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_wait",
		Status:                 models.SubscriptionStatusCreated,
		PlanType:               models.PlanTypeMonth,
		ShortURL:               "https://rzp.io/i/stored",
	})
	fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
		return &billing.Subscription{ID: "sub_wait", Status: "created"}, nil
	}

	resp, err := fx.svc.Resume(context.Background(), nil, "user-1", "sub_wait")
	require.NoError(t, err)
	assert.Equal(t, "https://rzp.io/i/stored", resp.ShortURL)
	assert.Zero(t, fx.gateway.createCalls)
}

func TestResume_HaltedIsNotResumable(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_halt",
		Status:                 models.SubscriptionStatusHalted,
		PlanType:               models.PlanTypeMonth,
	})
	fx.gateway.fetchFn = func(string) (*billing.Subscription, error) {
		return &billing.Subscription{ID: "sub_halt", Status: "halted"}, nil
	}

	_, err := fx.svc.Resume(context.Background(), nil, "user-1", "sub_halt")
	assert.ErrorIs(t, err, apperrors.ErrCannotResume)
}

// --- Webhook events ---

func TestHandleWebhookEvent_ActivatedPromotes(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_wait",
		Status:                 models.SubscriptionStatusCreated,
		PlanType:               models.PlanTypeMonth,
	})

	event := &billing.WebhookEvent{Event: billing.EventSubscriptionActivated}
	event.Payload.Subscription.Entity = billing.Subscription{ID: "sub_wait", Status: "active"}

	require.NoError(t, fx.svc.HandleWebhookEvent(nil, event))

	stored, _ := fx.subs.FindByProviderID(nil, "sub_wait")
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
	assert.True(t, fx.profs.profiles["user-1"].SubscriptionActive)
	assert.Len(t, fx.email.activated, 1)
}

func TestHandleWebhookEvent_HaltedAndCancelled(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_live",
		Status:                 models.SubscriptionStatusActive,
		PlanType:               models.PlanTypeMonth,
	})

	event := &billing.WebhookEvent{Event: billing.EventSubscriptionHalted}
	event.Payload.Subscription.Entity = billing.Subscription{ID: "sub_live", Status: "halted"}
	require.NoError(t, fx.svc.HandleWebhookEvent(nil, event))

	stored, _ := fx.subs.FindByProviderID(nil, "sub_live")
	assert.Equal(t, models.SubscriptionStatusHalted, stored.Status)

	event = &billing.WebhookEvent{Event: billing.EventSubscriptionCancelled}
	event.Payload.Subscription.Entity = billing.Subscription{ID: "sub_live", Status: "cancelled"}
	require.NoError(t, fx.svc.HandleWebhookEvent(nil, event))

	stored, _ = fx.subs.FindByProviderID(nil, "sub_live")
	assert.Equal(t, models.SubscriptionStatusCancelled, stored.Status)
}

func TestHandleWebhookEvent_PaymentCapturedActivates(t *testing.T) {
	fx := newSubFixture(t)
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_wait",
		Status:                 models.SubscriptionStatusPending,
		PlanType:               models.PlanTypeWeek,
	})

	event := &billing.WebhookEvent{Event: billing.EventPaymentCaptured}
	event.Payload.Payment.Entity = billing.Payment{ID: "pay_1", SubscriptionID: "sub_wait"}

	require.NoError(t, fx.svc.HandleWebhookEvent(nil, event))

	stored, _ := fx.subs.FindByProviderID(nil, "sub_wait")
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
	assert.Equal(t, "pay_1", stored.RazorpayPaymentID)
}

func TestHandleWebhookEvent_PaymentFailedHaltsAndNotifies(t *testing.T) {
	fx := newSubFixture(t)
	fx.profs.profiles["user-1"].SubscriptionActive = true
	fx.seedSubscription(&models.Subscription{
		UserID:                 "user-1",
		RazorpaySubscriptionID: "sub_live",
		Status:                 models.SubscriptionStatusActive,
		PlanType:               models.PlanTypeMonth,
	})

	event := &billing.WebhookEvent{Event: billing.EventPaymentFailed}
	event.Payload.Payment.Entity = billing.Payment{ID: "pay_2", SubscriptionID: "sub_live"}

	require.NoError(t, fx.svc.HandleWebhookEvent(nil, event))

	stored, _ := fx.subs.FindByProviderID(nil, "sub_live")
	assert.Equal(t, models.SubscriptionStatusHalted, stored.Status)
	assert.False(t, fx.profs.profiles["user-1"].SubscriptionActive)
	assert.Equal(t, []string{"u1@example.com"}, fx.email.failed)
}

func TestHandleWebhookEvent_UnknownEventIgnored(t *testing.T) {
	fx := newSubFixture(t)

	event := &billing.WebhookEvent{Event: "subscription.paused"}
	assert.NoError(t, fx.svc.HandleWebhookEvent(nil, event))
}

func TestHandleWebhookEvent_UnknownSubscriptionWithoutNotesSkipped(t *testing.T) {
	fx := newSubFixture(t)

	event := &billing.WebhookEvent{Event: billing.EventSubscriptionActivated}
	event.Payload.Subscription.Entity = billing.Subscription{ID: "sub_ghost", Status: "active"}

	assert.NoError(t, fx.svc.HandleWebhookEvent(nil, event))
	_, err := fx.subs.FindByProviderID(nil, "sub_ghost")
	assert.ErrorIs(t, err, repositories.ErrSubscriptionNotFound)
}
