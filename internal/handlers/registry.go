package handlers

// AppHandlers contains every handler in the application.
type AppHandlers struct {
	HealthHandler       *HealthHandler
	ProfileHandler      *ProfileHandler
	SubscriptionHandler *SubscriptionHandler
	WebhookHandler      *WebhookHandler
	MealPlanHandler     *MealPlanHandler
}
