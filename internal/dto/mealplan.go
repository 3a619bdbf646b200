package dto

type GenerateMealPlanRequest struct {
	DietType  string `json:"dietType" binding:"required"`
	Calories  int    `json:"calories" binding:"required" validate:"required,min=800,max=10000"`
	Allergies string `json:"allergies"`
	Cuisine   string `json:"cuisine"`
	Snacks    bool   `json:"snacks"`
}
