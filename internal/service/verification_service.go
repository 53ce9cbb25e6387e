package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	"github.com/ignatzorin/feedreach-backend/internal/repository"
	"github.com/ignatzorin/feedreach-backend/internal/validation"
)

// VerificationRepository хранилище статусов верификации.
type VerificationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetVerification(ctx context.Context, userID uuid.UUID, status string, documentURL, note *string) error
	ListByVerificationStatus(ctx context.Context, status string, limit int) ([]models.User, error)
}

// VerificationService проверка документов организаций и доноров модератором.
type VerificationService struct {
	repo     VerificationRepository
	notifier Notifier
}

func NewVerificationService(repo VerificationRepository, notifier Notifier) *VerificationService {
	return &VerificationService{repo: repo, notifier: notifier}
}

// Submit отправляет документ на проверку. Уже подтверждённый пользователь не может подать повторно.
func (s *VerificationService) Submit(ctx context.Context, userID uuid.UUID, documentURL string) (*models.User, error) {
	documentURL = strings.TrimSpace(documentURL)
	if err := validation.ValidateNonEmpty("документ", documentURL); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateAppLink(&documentURL); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.VerificationStatus == models.VerificationVerified {
		return nil, apperror.New(apperror.ErrCodeConflict, "аккаунт уже подтверждён")
	}

	if err := s.repo.SetVerification(ctx, userID, models.VerificationPending, &documentURL, nil); err != nil {
		return nil, s.wrap(err)
	}
	user.VerificationStatus = models.VerificationPending
	user.VerificationDocumentURL = &documentURL
	user.VerificationNote = nil
	return user, nil
}

// Pending заявки, ожидающие проверки, старые первыми.
func (s *VerificationService) Pending(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	users, err := s.repo.ListByVerificationStatus(ctx, models.VerificationPending, limit)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить заявки")
	}
	return users, nil
}

// Approve подтверждает заявку и уведомляет пользователя.
func (s *VerificationService) Approve(ctx context.Context, userID uuid.UUID) error {
	if err := s.decide(ctx, userID, models.VerificationVerified, nil); err != nil {
		return err
	}
	s.notify(ctx, userID, "Верификация одобрена",
		"Ваш аккаунт подтверждён. Спасибо, что помогаете с FeedReach!", models.NotificationSuccess)
	return nil
}

// Reject отклоняет заявку с указанием причины.
func (s *VerificationService) Reject(ctx context.Context, userID uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if err := validation.ValidateNonEmpty("причина", reason); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := s.decide(ctx, userID, models.VerificationRejected, &reason); err != nil {
		return err
	}
	s.notify(ctx, userID, "Верификация отклонена", "Причина: "+reason, models.NotificationWarning)
	return nil
}

func (s *VerificationService) decide(ctx context.Context, userID uuid.UUID, status string, note *string) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if user.VerificationStatus != models.VerificationPending {
		return apperror.New(apperror.ErrCodeConflict, "заявка на верификацию не ожидает решения")
	}
	if err := s.repo.SetVerification(ctx, userID, status, nil, note); err != nil {
		return s.wrap(err)
	}
	return nil
}

func (s *VerificationService) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, s.wrap(err)
	}
	return user, nil
}

func (s *VerificationService) wrap(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperror.ErrUserNotFound
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка хранилища верификации")
}

func (s *VerificationService) notify(ctx context.Context, userID uuid.UUID, title, message, kind string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, message, kind, "/profile"); err != nil {
		logger.Component("verification").WithFields(map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("не удалось отправить уведомление о верификации")
	}
}
