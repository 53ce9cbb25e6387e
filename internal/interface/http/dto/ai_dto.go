package dto

import "github.com/ignatzorin/feedreach-backend/internal/domain/entity"

type AnalyzeFoodRequest struct {
	ImageURL string `json:"image_url" binding:"required"`
}

type SuggestRecipesRequest struct {
	Ingredients []string `json:"ingredients" binding:"required,min=1"`
}

type FoodAnalysisResponse struct {
	FoodName   string  `json:"food_name"`
	Freshness  string  `json:"freshness"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes"`
	Provider   string  `json:"provider,omitempty"`
	Fallback   bool    `json:"fallback"`
}

type RecipeResponse struct {
	Name         string   `json:"name"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	PrepMinutes  int      `json:"prep_minutes,omitempty"`
}

func ToFoodAnalysisResponse(a *entity.FoodAnalysis) FoodAnalysisResponse {
	return FoodAnalysisResponse{
		FoodName:   a.FoodName,
		Freshness:  a.Freshness,
		Confidence: a.Confidence,
		Notes:      a.Notes,
		Provider:   a.Provider,
		Fallback:   a.Fallback,
	}
}

func ToRecipeResponses(recipes []entity.Recipe) []RecipeResponse {
	result := make([]RecipeResponse, 0, len(recipes))
	for _, r := range recipes {
		ingredients := r.Ingredients
		if ingredients == nil {
			ingredients = []string{}
		}
		instructions := r.Instructions
		if instructions == nil {
			instructions = []string{}
		}
		result = append(result, RecipeResponse{
			Name:         r.Name,
			Ingredients:  ingredients,
			Instructions: instructions,
			PrepMinutes:  r.PrepMinutes,
		})
	}
	return result
}
