package ai

import (
	"context"
	"strings"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/repository"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

const (
	maxIngredients      = 20
	maxIngredientLength = 60
)

type AnalyzeFoodUseCase struct {
	analyzer repository.FoodAnalyzer
}

func NewAnalyzeFoodUseCase(analyzer repository.FoodAnalyzer) *AnalyzeFoodUseCase {
	return &AnalyzeFoodUseCase{analyzer: analyzer}
}

// Execute без настроенного анализатора сразу отдаёт результат ручной проверки.
func (uc *AnalyzeFoodUseCase) Execute(ctx context.Context, imageURL string) (*entity.FoodAnalysis, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "изображение обязательно")
	}
	if !strings.HasPrefix(imageURL, "data:image/") &&
		!strings.HasPrefix(imageURL, "https://") && !strings.HasPrefix(imageURL, "http://") {
		return nil, apperror.New(apperror.ErrCodeValidation, "изображение должно быть ссылкой или data URL")
	}
	if uc.analyzer == nil {
		return entity.ManualVerificationAnalysis(), nil
	}

	analysis, err := uc.analyzer.AnalyzeFoodImage(ctx, imageURL)
	if err != nil || analysis == nil {
		return entity.ManualVerificationAnalysis(), nil
	}
	return analysis, nil
}

type SuggestRecipesUseCase struct {
	analyzer repository.FoodAnalyzer
}

func NewSuggestRecipesUseCase(analyzer repository.FoodAnalyzer) *SuggestRecipesUseCase {
	return &SuggestRecipesUseCase{analyzer: analyzer}
}

func (uc *SuggestRecipesUseCase) Execute(ctx context.Context, ingredients []string) ([]entity.Recipe, error) {
	cleaned := make([]string, 0, len(ingredients))
	seen := make(map[string]struct{}, len(ingredients))
	for _, ing := range ingredients {
		ing = strings.TrimSpace(ing)
		if ing == "" {
			continue
		}
		if len([]rune(ing)) > maxIngredientLength {
			return nil, apperror.New(apperror.ErrCodeValidation, "слишком длинное название продукта")
		}
		key := strings.ToLower(ing)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, ing)
	}
	if len(cleaned) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите хотя бы один продукт")
	}
	if len(cleaned) > maxIngredients {
		return nil, apperror.New(apperror.ErrCodeValidation, "слишком много продуктов")
	}

	if uc.analyzer == nil {
		return []entity.Recipe{}, nil
	}
	recipes, err := uc.analyzer.SuggestRecipes(ctx, cleaned)
	if err != nil || recipes == nil {
		return []entity.Recipe{}, nil
	}
	return recipes, nil
}
