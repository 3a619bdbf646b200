package routes

import (
	"platefuel_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all HTTP routes.
func RegisterRoutes(ginRouter *gin.Engine, appHandlers *handlers.AppHandlers) {
	appHandlers.HealthHandler.RegisterRoutes(ginRouter)

	api := ginRouter.Group("/api/v1")
	{
		appHandlers.ProfileHandler.RegisterRoutes(api)
		appHandlers.SubscriptionHandler.RegisterRoutes(api)
		appHandlers.MealPlanHandler.RegisterRoutes(api)
		appHandlers.WebhookHandler.RegisterRoutes(api)
	}
}
