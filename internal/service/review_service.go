package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/metrics"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	"github.com/ignatzorin/feedreach-backend/internal/repository"
	"github.com/ignatzorin/feedreach-backend/internal/validation"
)

type ReviewRepository interface {
	CreateWithStats(ctx context.Context, review *models.Review) (*models.UserStats, error)
	ListByTarget(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]models.Review, error)
}

// DonationLookup источник пожертвований для проверки участников сделки.
type DonationLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Donation, error)
}

// UserLookup загружает пользователя по идентификатору.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier отправляет личное уведомление.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message, kind, link string) error
}

type ReviewService struct {
	repo      ReviewRepository
	donations DonationLookup
	users     UserLookup
	notifier  Notifier
}

func NewReviewService(repo ReviewRepository, donations DonationLookup, users UserLookup, notifier Notifier) *ReviewService {
	return &ReviewService{repo: repo, donations: donations, users: users, notifier: notifier}
}

// ReviewInput данные нового отзыва.
type ReviewInput struct {
	ReviewerID   uuid.UUID
	TargetUserID uuid.UUID
	DonationID   uuid.UUID
	Rating       int
	Comment      string
}

// ReviewResult отзыв и статистика получателя после его учёта.
type ReviewResult struct {
	Review *models.Review    `json:"review"`
	Stats  *models.UserStats `json:"stats"`
}

// SubmitReview сохраняет отзыв по завершённому пожертвованию. Оценка
// добавляется к статистике получателя SQL-инкрементами в той же транзакции.
func (s *ReviewService) SubmitReview(ctx context.Context, in ReviewInput) (*ReviewResult, error) {
	if err := validation.ValidateRating(in.Rating); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	comment := strings.TrimSpace(in.Comment)
	if err := validation.ValidateLength("комментарий", comment, 0, validation.MaxReviewComment); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.ReviewerID == in.TargetUserID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя оставить отзыв о себе")
	}

	donation, err := s.donations.FindByID(ctx, in.DonationID)
	if err != nil {
		return nil, err
	}
	if donation.Status != valueobject.DonationStatusCompleted {
		return nil, apperror.New(apperror.ErrCodeConflict, "отзыв можно оставить только после завершения пожертвования")
	}
	if !isDonationParty(donation, in.ReviewerID) || !isDonationParty(donation, in.TargetUserID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "отзыв могут оставить только участники пожертвования")
	}

	reviewer, err := s.users.GetByID(ctx, in.ReviewerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить пользователя")
	}

	review := &models.Review{
		ReviewerID:   in.ReviewerID,
		ReviewerName: reviewer.DisplayName,
		TargetUserID: in.TargetUserID,
		DonationID:   in.DonationID,
		Rating:       in.Rating,
		Comment:      comment,
	}

	stats, err := s.repo.CreateWithStats(ctx, review)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReviewExists):
			return nil, apperror.New(apperror.ErrCodeConflict, "вы уже оставили отзыв на это пожертвование")
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, apperror.ErrUserNotFound
		default:
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить отзыв")
		}
	}

	metrics.ReviewSubmitted()
	if s.notifier != nil {
		msg := fmt.Sprintf("%s оценил(а) пожертвование «%s» на %d из 5.", reviewer.DisplayName, donation.Title, in.Rating)
		if err := s.notifier.Notify(ctx, in.TargetUserID, "Новый отзыв", msg, models.NotificationInfo, "/profile/"+in.TargetUserID.String()); err != nil {
			logger.Component("reviews").WithFields(map[string]interface{}{
				"review_id": review.ID,
				"error":     err.Error(),
			}).Warn("не удалось отправить уведомление об отзыве")
		}
	}

	return &ReviewResult{Review: review, Stats: stats}, nil
}

// ListUserReviews возвращает отзывы о пользователе, новые первыми.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	reviews, err := s.repo.ListByTarget(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить отзывы")
	}
	return reviews, nil
}

func isDonationParty(d *entity.Donation, userID uuid.UUID) bool {
	return d.IsOwnedBy(userID) || d.IsAcceptedBy(userID)
}
