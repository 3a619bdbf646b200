package services

import (
	"platefuel_backend/internal/billing"
	"platefuel_backend/internal/config"
	"platefuel_backend/internal/email"
	"platefuel_backend/internal/genai"
	"platefuel_backend/internal/repositories"
)

// ServiceContainer holds all service implementations for dependency
// injection into the handler layer.
type ServiceContainer struct {
	Profile      ProfileService
	Subscription SubscriptionService
	MealPlan     MealPlanService
}

func NewServiceContainer(
	repos *repositories.RepositoryContainer,
	gateway billing.Gateway,
	generator genai.TextGenerator,
	emailProvider email.Provider,
	cfg *config.Config,
) *ServiceContainer {
	return &ServiceContainer{
		Profile:      NewProfileService(repos.Profile),
		Subscription: NewSubscriptionService(repos.Subscription, repos.Profile, gateway, emailProvider, cfg),
		MealPlan:     NewMealPlanService(repos.MealPlan, generator),
	}
}
