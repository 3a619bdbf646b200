package repositories

// RepositoryContainer bundles the repository implementations for wiring.
type RepositoryContainer struct {
	Profile      ProfileRepository
	Subscription SubscriptionRepository
	WebhookEvent WebhookEventRepository
	MealPlan     MealPlanRepository
}

func NewRepositoryContainer() *RepositoryContainer {
	return &RepositoryContainer{
		Profile:      NewProfileRepository(),
		Subscription: NewSubscriptionRepository(),
		WebhookEvent: NewWebhookEventRepository(),
		MealPlan:     NewMealPlanRepository(),
	}
}
