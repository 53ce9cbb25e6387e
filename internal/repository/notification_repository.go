package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/repository/common"
)

// ErrNotificationNotFound возвращается, когда уведомление не найдено.
var ErrNotificationNotFound = fmt.Errorf("notification: %w", common.ErrNotFound)

const notificationColumns = `id, user_id, title, message, type, link, is_read, created_at`

// NotificationRepository отвечает за работу с уведомлениями.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository создаёт экземпляр репозитория.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создаёт новое уведомление.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, title, message, type, link, is_read)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(ctx, query,
		n.UserID, n.Title, n.Message, n.Type, n.Link, n.IsRead,
	).Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("notification repository: create %w", err)
	}

	return nil
}

// GetByID возвращает уведомление по идентификатору.
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("notification repository: get by id %w", err)
	}

	return &n, nil
}

// ListForUser возвращает личные и широковещательные уведомления одним запросом.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	items := []models.Notification{}
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 OR user_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	if err := r.db.SelectContext(ctx, &items, query, userID.String(), models.BroadcastTarget, limit); err != nil {
		return nil, fmt.Errorf("notification repository: list for user %w", err)
	}
	return items, nil
}

// ListRecent возвращает последние уведомления платформы (история для администратора).
func (r *NotificationRepository) ListRecent(ctx context.Context, limit int) ([]models.Notification, error) {
	items := []models.Notification{}
	query := `SELECT ` + notificationColumns + ` FROM notifications ORDER BY created_at DESC, id DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &items, query, limit); err != nil {
		return nil, fmt.Errorf("notification repository: list recent %w", err)
	}
	return items, nil
}

// CountUnread считает непрочитанные уведомления, видимые пользователю.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE (user_id = $1 OR user_id = $2) AND is_read = FALSE`
	if err := r.db.GetContext(ctx, &count, query, userID.String(), models.BroadcastTarget); err != nil {
		return 0, fmt.Errorf("notification repository: count unread %w", err)
	}
	return count, nil
}

// MarkAsRead помечает уведомление прочитанным и возвращает его.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 RETURNING ` + notificationColumns
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("notification repository: mark as read %w", err)
	}
	return &n, nil
}

// MarkAllAsRead помечает прочитанными все личные уведомления пользователя.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID.String())
	if err != nil {
		return 0, fmt.Errorf("notification repository: mark all as read %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Delete удаляет личное уведомление пользователя.
func (r *NotificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID.String())
	if err != nil {
		return fmt.Errorf("notification repository: delete %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
