package entity

// FoodAnalysis результат анализа фотографии еды.
type FoodAnalysis struct {
	FoodName   string
	Freshness  string
	Confidence float64
	Notes      string
	Provider   string
	Fallback   bool
}

// ManualVerificationAnalysis результат, когда ни один провайдер не ответил.
func ManualVerificationAnalysis() *FoodAnalysis {
	return &FoodAnalysis{
		FoodName:   "Manual Verification",
		Freshness:  "Unknown",
		Confidence: 0,
		Notes:      "AI service unavailable. Please verify manually.",
		Fallback:   true,
	}
}

// Recipe предложенный рецепт из имеющихся продуктов.
type Recipe struct {
	Name         string
	Ingredients  []string
	Instructions []string
	PrepMinutes  int
}
