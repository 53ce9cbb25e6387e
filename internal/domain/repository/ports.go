package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
)

// Notifier отправляет уведомление пользователю.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message, kind, link string) error
}

// DonationEvents публикует факт изменения пожертвования для живых подписок.
type DonationEvents interface {
	DonationChanged(ctx context.Context, donation *entity.Donation) error
}

// ChangeFeed источник событий об изменениях пожертвований.
type ChangeFeed interface {
	SubscribeDonations(handler func(donationID uuid.UUID)) (unsubscribe func())
}

// FoodAnalyzer внешний сервис распознавания еды и подбора рецептов.
type FoodAnalyzer interface {
	AnalyzeFoodImage(ctx context.Context, imageURL string) (*entity.FoodAnalysis, error)
	SuggestRecipes(ctx context.Context, ingredients []string) ([]entity.Recipe, error)
}
