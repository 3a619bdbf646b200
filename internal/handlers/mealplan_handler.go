package handlers

import (
	"net/http"

	"platefuel_backend/internal/dto"
	"platefuel_backend/internal/middleware"
	"platefuel_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type MealPlanHandler struct {
	*BaseHandler
	mealPlanService services.MealPlanService
}

func NewMealPlanHandler(base *BaseHandler, mealPlanService services.MealPlanService) *MealPlanHandler {
	return &MealPlanHandler{
		BaseHandler:     base,
		mealPlanService: mealPlanService,
	}
}

func (h *MealPlanHandler) RegisterRoutes(r *gin.RouterGroup) {
	plans := r.Group("/mealplans")
	plans.Use(middleware.AuthMiddleware())
	{
		plans.POST("/generate", h.GenerateMealPlan)
		plans.GET("", h.ListMealPlans)
	}
}

func (h *MealPlanHandler) GenerateMealPlan(c *gin.Context) {
	var req dto.GenerateMealPlanRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	plan, err := h.mealPlanService.Generate(c.Request.Context(), h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

func (h *MealPlanHandler) ListMealPlans(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	limit := ParseQueryInt(c, "limit", 20)
	plans, err := h.mealPlanService.List(h.GetDB(c), userID, limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"meal_plans": plans})
}
