package workers

import (
	"context"
	"time"

	"platefuel_backend/internal/logger"
	"platefuel_backend/internal/repositories"

	"gorm.io/gorm"
)

// SubscriptionWorker sweeps active subscriptions whose paid period has
// run out. Webhooks and status polling catch most transitions; the sweep
// covers users who never come back.
type SubscriptionWorker struct {
	db               *gorm.DB
	subscriptionRepo repositories.SubscriptionRepository
	profileRepo      repositories.ProfileRepository
	interval         time.Duration
}

func NewSubscriptionWorker(
	db *gorm.DB,
	subscriptionRepo repositories.SubscriptionRepository,
	profileRepo repositories.ProfileRepository,
) *SubscriptionWorker {
	return &SubscriptionWorker{
		db:               db,
		subscriptionRepo: subscriptionRepo,
		profileRepo:      profileRepo,
		interval:         6 * time.Hour,
	}
}

func (w *SubscriptionWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *SubscriptionWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// One sweep at startup so a long downtime does not leave stale access.
	w.sweep()

	for {
		select {
		case <-ctx.Done():
			logger.WorkerLog("subscription", "stopped", nil)
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *SubscriptionWorker) sweep() {
	userIDs, err := w.subscriptionRepo.ExpireOverdue(w.db)
	if err != nil {
		logger.WorkerLog("subscription", "expire sweep failed", err)
		return
	}
	if len(userIDs) == 0 {
		return
	}

	for _, userID := range userIDs {
		if err := w.profileRepo.SetSubscriptionState(w.db, userID, false, nil, nil); err != nil {
			logger.WorkerLog("subscription", "profile deactivation failed", err, "user_id", userID)
		}
	}
	logger.WorkerLog("subscription", "expired subscriptions swept", nil, "count", len(userIDs))
}
