package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ignatzorin/feedreach-backend/internal/config"
	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/metrics"
)

const (
	appReferer = "https://feedreach.app"
	appTitle   = "FeedReach"

	analysisTemperature = 0.2
	recipeMaxTokens     = 1200
)

var errNoProviders = errors.New("ai: нет настроенных провайдеров")

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Provider одна пара «API + модель» в цепочке перебора.
type Provider struct {
	Name  string
	Model string
	api   chatCompleter
}

// Client анализ фотографий еды и подбор рецептов через OpenAI-совместимые API (OpenRouter, Groq).
type Client struct {
	vision  []Provider
	recipes []Provider
}

// NewClient собирает цепочки провайдеров из конфигурации. Провайдеры без ключа пропускаются.
func NewClient(cfg config.AIConfig) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	c := &Client{}

	if cfg.OpenRouterAPIKey != "" {
		orCfg := openai.DefaultConfig(cfg.OpenRouterAPIKey)
		orCfg.BaseURL = cfg.OpenRouterBaseURL
		orCfg.HTTPClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: refererTransport{base: http.DefaultTransport},
		}
		api := openai.NewClientWithConfig(orCfg)

		c.vision = append(c.vision, Provider{Name: "openrouter", Model: cfg.VisionModel, api: api})
		if cfg.VisionFallbackModel != "" && cfg.VisionFallbackModel != cfg.VisionModel {
			c.vision = append(c.vision, Provider{Name: "openrouter-fallback", Model: cfg.VisionFallbackModel, api: api})
		}
	}

	if cfg.GroqAPIKey != "" {
		groqCfg := openai.DefaultConfig(cfg.GroqAPIKey)
		groqCfg.BaseURL = cfg.GroqBaseURL
		groqCfg.HTTPClient = httpClient
		c.recipes = append(c.recipes, Provider{Name: "groq", Model: cfg.RecipeModel, api: openai.NewClientWithConfig(groqCfg)})
	}

	return c
}

// NewClientWithProviders клиент с явными цепочками; api должен реализовывать CreateChatCompletion.
func NewClientWithProviders(vision, recipes []Provider) *Client {
	return &Client{vision: vision, recipes: recipes}
}

// NewProvider провайдер поверх готового go-openai клиента.
func NewProvider(name, model string, api *openai.Client) Provider {
	return Provider{Name: name, Model: model, api: api}
}

// AnalysisEnabled есть ли хотя бы один провайдер анализа фото.
func (c *Client) AnalysisEnabled() bool {
	return len(c.vision) > 0
}

// RecipesEnabled настроен ли провайдер рецептов.
func (c *Client) RecipesEnabled() bool {
	return len(c.recipes) > 0
}

// AnalyzeFoodImage перебирает провайдеров по порядку. Если ни один не ответил,
// возвращает результат ручной проверки без ошибки.
func (c *Client) AnalyzeFoodImage(ctx context.Context, imageURL string) (*entity.FoodAnalysis, error) {
	req := openai.ChatCompletionRequest{
		Temperature: analysisTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: analysisPrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    imageURL,
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		}},
	}

	var lastErr error = errNoProviders
	for _, p := range c.vision {
		content, err := c.complete(ctx, p, req)
		if err == nil {
			var analysis *entity.FoodAnalysis
			analysis, err = parseAnalysis(content)
			if err == nil {
				analysis.Provider = p.Name
				return analysis, nil
			}
		}
		lastErr = err
		logger.Component("ai").WithFields(map[string]interface{}{
			"provider": p.Name,
			"model":    p.Model,
			"error":    err.Error(),
		}).Warn("провайдер анализа изображения не ответил")

		if ctx.Err() != nil {
			break
		}
	}

	logger.Component("ai").WithField("error", lastErr.Error()).Warn("анализ недоступен, требуется ручная проверка")
	return entity.ManualVerificationAnalysis(), nil
}

// SuggestRecipes рецепты из указанных продуктов. При любой ошибке возвращает пустой список.
func (c *Client) SuggestRecipes(ctx context.Context, ingredients []string) ([]entity.Recipe, error) {
	req := openai.ChatCompletionRequest{
		Temperature: analysisTemperature,
		MaxTokens:   recipeMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(recipePrompt, strings.Join(ingredients, ", ")),
		}},
	}

	for _, p := range c.recipes {
		content, err := c.complete(ctx, p, req)
		if err == nil {
			var recipes []entity.Recipe
			recipes, err = parseRecipes(content)
			if err == nil {
				return recipes, nil
			}
		}
		logger.Component("ai").WithFields(map[string]interface{}{
			"provider": p.Name,
			"error":    err.Error(),
		}).Warn("не удалось получить рецепты")
	}
	return []entity.Recipe{}, nil
}

func (c *Client) complete(ctx context.Context, p Provider, req openai.ChatCompletionRequest) (string, error) {
	req.Model = p.Model
	resp, err := p.api.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.AIRequest(p.Name, false)
		return "", fmt.Errorf("ai: %s (%s) %w", p.Name, p.Model, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.AIRequest(p.Name, false)
		return "", fmt.Errorf("ai: %s (%s) пустой ответ", p.Name, p.Model)
	}
	metrics.AIRequest(p.Name, true)
	return resp.Choices[0].Message.Content, nil
}

type analysisPayload struct {
	FoodName   string  `json:"foodName"`
	Freshness  string  `json:"freshness"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes"`
}

func parseAnalysis(content string) (*entity.FoodAnalysis, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, errors.New("ai: ответ не содержит JSON")
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("ai: разбор анализа %w", err)
	}
	if strings.TrimSpace(payload.FoodName) == "" {
		return nil, errors.New("ai: в ответе нет foodName")
	}

	confidence := payload.Confidence
	// некоторые модели отдают проценты
	if confidence > 1 {
		confidence /= 100
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	freshness := strings.TrimSpace(payload.Freshness)
	if freshness == "" {
		freshness = "Unknown"
	}

	return &entity.FoodAnalysis{
		FoodName:   strings.TrimSpace(payload.FoodName),
		Freshness:  freshness,
		Confidence: confidence,
		Notes:      strings.TrimSpace(payload.Notes),
	}, nil
}

type recipePayload struct {
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	PrepMinutes  int      `json:"prepMinutes"`
}

func parseRecipes(content string) ([]entity.Recipe, error) {
	items, err := decodeRecipes(content)
	if err != nil {
		return nil, err
	}

	recipes := make([]entity.Recipe, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			name = strings.TrimSpace(it.Title)
		}
		if name == "" {
			continue
		}
		recipes = append(recipes, entity.Recipe{
			Name:         name,
			Ingredients:  it.Ingredients,
			Instructions: it.Instructions,
			PrepMinutes:  it.PrepMinutes,
		})
	}
	return recipes, nil
}

// decodeRecipes принимает и {"recipes": [...]}, и голый массив.
func decodeRecipes(content string) ([]recipePayload, error) {
	if raw := extractJSON(content); raw != "" {
		var wrapped struct {
			Recipes []recipePayload `json:"recipes"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && wrapped.Recipes != nil {
			return wrapped.Recipes, nil
		}
	}
	if raw := extractJSONArray(content); raw != "" {
		var items []recipePayload
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, fmt.Errorf("ai: разбор рецептов %w", err)
		}
		return items, nil
	}
	return nil, errors.New("ai: ответ не содержит рецептов")
}

// refererTransport добавляет заголовки атрибуции, которые просит OpenRouter.
type refererTransport struct {
	base http.RoundTripper
}

func (t refererTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("HTTP-Referer", appReferer)
	r.Header.Set("X-Title", appTitle)
	return t.base.RoundTrip(r)
}
