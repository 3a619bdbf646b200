package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"platefuel_backend/internal/dto"
	"platefuel_backend/internal/genai"
	"platefuel_backend/internal/logger"
	"platefuel_backend/internal/models"
	"platefuel_backend/internal/repositories"
	"platefuel_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MealPlanService interface {
	Generate(ctx context.Context, db *gorm.DB, userID string, req *dto.GenerateMealPlanRequest) (json.RawMessage, error)
	List(db *gorm.DB, userID string, limit int) ([]models.MealPlan, error)
}

type mealPlanService struct {
	mealPlanRepo repositories.MealPlanRepository
	generator    genai.TextGenerator
}

func NewMealPlanService(mealPlanRepo repositories.MealPlanRepository, generator genai.TextGenerator) MealPlanService {
	return &mealPlanService{
		mealPlanRepo: mealPlanRepo,
		generator:    generator,
	}
}

// Generate asks the model for a weekly plan and persists the validated
// result. The model must answer with a bare JSON object; anything else is
// rejected rather than repaired.
func (s *mealPlanService) Generate(ctx context.Context, db *gorm.DB, userID string, req *dto.GenerateMealPlanRequest) (json.RawMessage, error) {
	prompt := buildMealPlanPrompt(req)

	raw, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		return nil, apperrors.ErrUpstream(err, "genai", "Meal plan generation failed")
	}

	plan, err := extractPlanJSON(raw)
	if err != nil {
		logger.CtxError(ctx, "model returned malformed meal plan", "user_id", userID, "error", err.Error())
		return nil, apperrors.ErrGenerationMalformed
	}

	record := &models.MealPlan{
		UserID:    userID,
		DietType:  req.DietType,
		Calories:  req.Calories,
		Allergies: req.Allergies,
		Cuisine:   req.Cuisine,
		Snacks:    req.Snacks,
		Plan:      datatypes.JSON(plan),
	}
	if err := s.mealPlanRepo.Create(db, record); err != nil {
		return nil, err
	}

	return plan, nil
}

func (s *mealPlanService) List(db *gorm.DB, userID string, limit int) ([]models.MealPlan, error) {
	return s.mealPlanRepo.FindByUser(db, userID, limit)
}

func buildMealPlanPrompt(req *dto.GenerateMealPlanRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a 7-day meal plan for a %s diet targeting %d calories per day.", req.DietType, req.Calories)
	if req.Allergies != "" {
		fmt.Fprintf(&b, " Exclude the following allergens: %s.", req.Allergies)
	}
	if req.Cuisine != "" {
		fmt.Fprintf(&b, " Prefer %s cuisine.", req.Cuisine)
	}
	if req.Snacks {
		b.WriteString(" Include snacks between meals.")
	} else {
		b.WriteString(" Do not include snacks.")
	}
	b.WriteString(` Respond with ONLY a valid JSON object, no markdown and no commentary. The object must have a "days" array of 7 entries; each entry has "day", "meals" (array of objects with "name", "type", "calories", "ingredients", "instructions") and "totalCalories".`)
	return b.String()
}

// extractPlanJSON strips markdown code fences the model may wrap the answer
// in and requires the remainder to be a single JSON object.
func extractPlanJSON(raw string) (json.RawMessage, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	if !strings.HasPrefix(text, "{") {
		return nil, fmt.Errorf("response is not a JSON object")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if len(probe) == 0 {
		return nil, fmt.Errorf("empty JSON object")
	}

	return json.RawMessage(text), nil
}
