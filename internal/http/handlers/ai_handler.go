package handlers

import (
	"encoding/base64"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/feedreach-backend/internal/http/handlers/common"
	"github.com/ignatzorin/feedreach-backend/internal/interface/http/dto"
	"github.com/ignatzorin/feedreach-backend/internal/interface/http/response"
	aiuc "github.com/ignatzorin/feedreach-backend/internal/usecase/ai"
)

// maxAnalyzeImageBytes предел фото для анализа, оно уходит провайдеру целиком в data URL.
const maxAnalyzeImageBytes = 5 << 20

// AIHandler анализ фото еды и подбор рецептов.
type AIHandler struct {
	analyze *aiuc.AnalyzeFoodUseCase
	recipes *aiuc.SuggestRecipesUseCase
}

func NewAIHandler(analyze *aiuc.AnalyzeFoodUseCase, recipes *aiuc.SuggestRecipesUseCase) *AIHandler {
	return &AIHandler{analyze: analyze, recipes: recipes}
}

// AnalyzeFood POST /ai/analyze: multipart поле file или JSON {"image_url": ...}.
// При недоступности провайдеров возвращает результат для ручной проверки.
func (h *AIHandler) AnalyzeFood(c *gin.Context) {
	imageURL, err := h.imageFromRequest(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	analysis, err := h.analyze.Execute(c.Request.Context(), imageURL)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToFoodAnalysisResponse(analysis))
}

// SuggestRecipes POST /ai/recipes
func (h *AIHandler) SuggestRecipes(c *gin.Context) {
	var req dto.SuggestRecipesRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		response.BadRequest(c, "укажите хотя бы один продукт")
		return
	}

	recipes, err := h.recipes.Execute(c.Request.Context(), req.Ingredients)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToRecipeResponses(recipes))
}

func (h *AIHandler) imageFromRequest(c *gin.Context) (string, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req dto.AnalyzeFoodRequest
		if err := common.BindAndValidate(c, &req); err != nil {
			return "", errImageRequired
		}
		return req.ImageURL, nil
	}

	file, err := c.FormFile("file")
	if err != nil {
		return "", errImageRequired
	}
	if file.Size > maxAnalyzeImageBytes {
		return "", errImageTooLarge
	}
	src, err := file.Open()
	if err != nil {
		return "", errImageUnreadable
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxAnalyzeImageBytes+1))
	if err != nil {
		return "", errImageUnreadable
	}
	if len(data) > maxAnalyzeImageBytes {
		return "", errImageTooLarge
	}
	kind, err := filetype.Match(data)
	if err != nil || !filetype.IsImage(data) {
		return "", errImageNotImage
	}
	return "data:" + kind.MIME.Value + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

type imageError string

func (e imageError) Error() string { return string(e) }

const (
	errImageRequired   imageError = "нужен файл file или поле image_url"
	errImageTooLarge   imageError = "изображение больше 5 МБ"
	errImageUnreadable imageError = "не удалось прочитать файл"
	errImageNotImage   imageError = "файл не является изображением"
)
