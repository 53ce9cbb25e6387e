package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/repository"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	legacy "github.com/ignatzorin/feedreach-backend/internal/repository"
)

const (
	adminUserListLimit   = 100
	adminHistoryLimit    = 50
	maxSuspensionDays    = 365
	defaultSuspendPeriod = 7
)

// AdminUserRepository операции модерации над пользователями.
type AdminUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	SetAccountStatus(ctx context.Context, userID uuid.UUID, status string, until *time.Time) error
	AddWarning(ctx context.Context, userID uuid.UUID) (int, error)
	SetAdminByEmail(ctx context.Context, email string, isAdmin bool) error
	CountByRole(ctx context.Context) (map[string]int, error)
	DeleteAllSessions(ctx context.Context, userID uuid.UUID) error
}

// PlatformStats сводка для панели администратора.
type PlatformStats struct {
	UsersByRole       map[string]int `json:"users_by_role"`
	DonationsByStatus map[string]int `json:"donations_by_status"`
	TotalUsers        int            `json:"total_users"`
	TotalDonations    int            `json:"total_donations"`
}

// AdminService консоль администратора: модерация, рассылки, статистика.
type AdminService struct {
	users         AdminUserRepository
	donations     repository.DonationRepository
	notifications *NotificationService
	now           func() time.Time
}

func NewAdminService(users AdminUserRepository, donations repository.DonationRepository, notifications *NotificationService) *AdminService {
	return &AdminService{users: users, donations: donations, notifications: notifications, now: time.Now}
}

// ListUsers последние зарегистрированные пользователи.
func (s *AdminService) ListUsers(ctx context.Context, offset int) ([]models.User, error) {
	if offset < 0 {
		offset = 0
	}
	users, err := s.users.List(ctx, adminUserListLimit, offset)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить пользователей")
	}
	return users, nil
}

// SetAccountStatus меняет статус аккаунта. Для suspended days задаёт срок блокировки.
// Блокировка завершает все сессии пользователя.
func (s *AdminService) SetAccountStatus(ctx context.Context, adminID, userID uuid.UUID, status string, days int) (*models.User, error) {
	if _, ok := models.ValidAccountStatuses[status]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус аккаунта")
	}
	if adminID == userID && status != models.AccountActive {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "нельзя заблокировать собственный аккаунт")
	}

	var until *time.Time
	if status == models.AccountSuspended {
		if days <= 0 {
			days = defaultSuspendPeriod
		}
		if days > maxSuspensionDays {
			return nil, apperror.New(apperror.ErrCodeValidation, "срок блокировки не может превышать год")
		}
		t := s.now().Add(time.Duration(days) * 24 * time.Hour)
		until = &t
	}

	if err := s.users.SetAccountStatus(ctx, userID, status, until); err != nil {
		return nil, wrapUserErr(err)
	}
	if status != models.AccountActive {
		if err := s.users.DeleteAllSessions(ctx, userID); err != nil && !errors.Is(err, legacy.ErrUserNotFound) {
			logger.Component("admin").WithFields(map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			}).Warn("не удалось завершить сессии заблокированного пользователя")
		}
	}

	logger.Component("admin").WithFields(map[string]interface{}{
		"admin_id": adminID,
		"user_id":  userID,
		"status":   status,
	}).Info("статус аккаунта изменён")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	return user, nil
}

// IssueWarning увеличивает счётчик предупреждений и уведомляет пользователя.
func (s *AdminService) IssueWarning(ctx context.Context, userID uuid.UUID, reason string) (int, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return 0, apperror.New(apperror.ErrCodeValidation, "укажите причину предупреждения")
	}

	count, err := s.users.AddWarning(ctx, userID)
	if err != nil {
		return 0, wrapUserErr(err)
	}

	if err := s.notifications.Notify(ctx, userID, "Предупреждение от модератора", reason, models.NotificationWarning, ""); err != nil {
		logger.Component("admin").WithFields(map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("не удалось отправить предупреждение")
	}
	return count, nil
}

// Broadcast рассылает уведомление всем пользователям.
func (s *AdminService) Broadcast(ctx context.Context, title, message, kind, link string) (*models.Notification, error) {
	return s.notifications.Send(ctx, SendInput{
		Target:  models.BroadcastTarget,
		Title:   title,
		Message: message,
		Type:    kind,
		Link:    link,
	})
}

// NotificationHistory последние уведомления платформы.
func (s *AdminService) NotificationHistory(ctx context.Context) ([]models.Notification, error) {
	return s.notifications.History(ctx, adminHistoryLimit)
}

// Promote выдаёт права администратора по email.
func (s *AdminService) Promote(ctx context.Context, email string, isAdmin bool) error {
	if err := s.users.SetAdminByEmail(ctx, normalizeEmail(email), isAdmin); err != nil {
		return wrapUserErr(err)
	}
	return nil
}

// Stats количество пользователей по ролям и пожертвований по статусам.
func (s *AdminService) Stats(ctx context.Context) (*PlatformStats, error) {
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать пользователей")
	}
	byStatus, err := s.donations.CountByStatus(ctx, repository.DonationFilter{})
	if err != nil {
		return nil, err
	}

	stats := &PlatformStats{
		UsersByRole:       byRole,
		DonationsByStatus: make(map[string]int, len(byStatus)),
	}
	for _, n := range byRole {
		stats.TotalUsers += n
	}
	for status, n := range byStatus {
		stats.DonationsByStatus[status.String()] = n
		stats.TotalDonations += n
	}
	return stats, nil
}

func wrapUserErr(err error) error {
	if errors.Is(err, legacy.ErrUserNotFound) {
		return apperror.ErrUserNotFound
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка хранилища пользователей")
}
