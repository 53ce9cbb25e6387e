package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/metrics"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	"github.com/ignatzorin/feedreach-backend/internal/realtime"
	"github.com/ignatzorin/feedreach-backend/internal/repository"
	"github.com/ignatzorin/feedreach-backend/internal/validation"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
	ListRecent(ctx context.Context, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// EventBus шина живых событий.
type EventBus interface {
	Publish(ctx context.Context, topic string, v any) error
	Subscribe(topic string, h realtime.Handler) func()
}

// Операции в событиях уведомлений.
const (
	NotificationCreated = "created"
	NotificationUpdated = "updated"
	NotificationDeleted = "deleted"
	NotificationReadAll = "read_all"
)

// NotificationEvent событие в топике notifications.<target>.
type NotificationEvent struct {
	Op           string               `json:"op"`
	Notification *models.Notification `json:"notification,omitempty"`
	ID           uuid.UUID            `json:"id,omitempty"`
}

// NotificationService содержит бизнес-логику работы с уведомлениями.
type NotificationService struct {
	repo NotificationRepository
	bus  EventBus
}

// NewNotificationService создаёт новый сервис уведомлений. bus может быть nil.
func NewNotificationService(repo NotificationRepository, bus EventBus) *NotificationService {
	return &NotificationService{repo: repo, bus: bus}
}

// SendInput новое уведомление. Target: UUID пользователя или "all".
type SendInput struct {
	Target  string
	Title   string
	Message string
	Type    string
	Link    string
}

// Send сохраняет уведомление и публикует его подписчикам адресата.
func (s *NotificationService) Send(ctx context.Context, in SendInput) (*models.Notification, error) {
	target := strings.TrimSpace(in.Target)
	if target != models.BroadcastTarget {
		id, err := uuid.Parse(target)
		if err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "адресат должен быть UUID пользователя или all")
		}
		target = id.String()
	}

	title := strings.TrimSpace(in.Title)
	message := strings.TrimSpace(in.Message)
	if err := validation.ValidateNonEmpty("заголовок", title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNonEmpty("текст", message); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("заголовок", title, 0, validation.MaxNotificationTitle); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("текст", message, 0, validation.MaxNotificationBody); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	kind := in.Type
	if kind == "" {
		kind = models.NotificationInfo
	}
	if _, ok := models.ValidNotificationTypes[kind]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный тип уведомления")
	}

	n := &models.Notification{
		UserID:  target,
		Title:   title,
		Message: message,
		Type:    kind,
	}
	if link := strings.TrimSpace(in.Link); link != "" {
		if err := validation.ValidateAppLink(&link); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
		n.Link = &link
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить уведомление")
	}

	metrics.NotificationSent(n.IsBroadcast())
	s.publish(ctx, n.UserID, NotificationEvent{Op: NotificationCreated, Notification: n})
	return n, nil
}

// Notify отправляет личное уведомление. Используется сценариями пожертвований.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, title, message, kind, link string) error {
	_, err := s.Send(ctx, SendInput{
		Target:  userID.String(),
		Title:   title,
		Message: message,
		Type:    kind,
		Link:    link,
	})
	return err
}

// List возвращает личные и широковещательные уведомления, новые сверху.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	items, err := s.repo.ListForUser(ctx, userID, clampNotificationLimit(limit))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить уведомления")
	}
	models.SortNotifications(items)
	return items, nil
}

// History последние уведомления платформы для администратора.
func (s *NotificationService) History(ctx context.Context, limit int) ([]models.Notification, error) {
	items, err := s.repo.ListRecent(ctx, clampNotificationLimit(limit))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить историю уведомлений")
	}
	return items, nil
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать уведомления")
	}
	return count, nil
}

// MarkAsRead отмечает уведомление прочитанным. Широковещательное уведомление
// хранится одной записью, поэтому отметка общая для всех получателей.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	n, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !n.IsVisibleTo(userID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "у вас нет прав на это уведомление")
	}
	if n.IsRead {
		return n, nil
	}

	updated, err := s.repo.MarkAsRead(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return nil, apperror.ErrNotificationNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить уведомление")
	}

	s.publish(ctx, updated.UserID, NotificationEvent{Op: NotificationUpdated, Notification: updated})
	return updated, nil
}

// MarkAllAsRead отмечает прочитанными личные уведомления пользователя.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить уведомления")
	}
	if n > 0 {
		s.publish(ctx, userID.String(), NotificationEvent{Op: NotificationReadAll})
	}
	return n, nil
}

// Delete удаляет личное уведомление. Широковещательные удаляет только администратор через БД.
func (s *NotificationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	n, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if n.IsBroadcast() || n.UserID != userID.String() {
		return apperror.New(apperror.ErrCodeForbidden, "у вас нет прав на это уведомление")
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return apperror.ErrNotificationNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить уведомление")
	}

	s.publish(ctx, n.UserID, NotificationEvent{Op: NotificationDeleted, ID: id})
	return nil
}

func (s *NotificationService) load(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return nil, apperror.ErrNotificationNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить уведомление")
	}
	return n, nil
}

func (s *NotificationService) publish(ctx context.Context, target string, event NotificationEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, realtime.NotificationTopic(target), event); err != nil {
		logger.Component("notifications").WithFields(map[string]interface{}{
			"target": target,
			"op":     event.Op,
			"error":  err.Error(),
		}).Warn("не удалось опубликовать уведомление")
	}
}

// NotificationSubscription живая лента уведомлений пользователя.
type NotificationSubscription struct {
	mu      sync.Mutex
	user    uuid.UUID
	userID  string
	limit   int
	items   map[uuid.UUID]models.Notification
	deleted map[uuid.UUID]struct{}
	ready   bool
	closed  bool
	handler func([]models.Notification)
	unsubs  []func()
}

// Subscribe объединяет личный топик пользователя и топик "all".
// handler получает полный отсортированный список при каждом изменении
// и не должен вызывать Close.
func (s *NotificationService) Subscribe(ctx context.Context, userID uuid.UUID, limit int, handler func([]models.Notification)) (*NotificationSubscription, error) {
	if s.bus == nil {
		return nil, apperror.New(apperror.ErrCodeUnavailable, "живые уведомления недоступны")
	}

	sub := &NotificationSubscription{
		user:    userID,
		userID:  userID.String(),
		limit:   clampNotificationLimit(limit),
		items:   make(map[uuid.UUID]models.Notification),
		deleted: make(map[uuid.UUID]struct{}),
		handler: handler,
	}

	// Подписываемся до чтения снимка: события во время чтения попадут в items.
	sub.unsubs = append(sub.unsubs,
		s.bus.Subscribe(realtime.NotificationTopic(sub.userID), sub.onEvent),
		s.bus.Subscribe(realtime.NotificationTopic(models.BroadcastTarget), sub.onEvent),
	)

	snapshot, err := s.repo.ListForUser(ctx, userID, sub.limit)
	if err != nil {
		sub.Close()
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить уведомления")
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	for _, n := range snapshot {
		if _, gone := sub.deleted[n.ID]; gone {
			continue
		}
		if _, seen := sub.items[n.ID]; !seen {
			sub.items[n.ID] = n
		}
	}
	sub.ready = true
	sub.deliverLocked()
	return sub, nil
}

// Close отписывает оба источника. Повторный вызов безопасен.
func (sub *NotificationSubscription) Close() {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.closed = true
	unsubs := sub.unsubs
	sub.mu.Unlock()

	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
}

func (sub *NotificationSubscription) onEvent(payload []byte) {
	var event NotificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}

	switch event.Op {
	case NotificationCreated, NotificationUpdated:
		if event.Notification == nil || !event.Notification.IsVisibleTo(sub.user) {
			return
		}
		sub.items[event.Notification.ID] = *event.Notification
	case NotificationDeleted:
		delete(sub.items, event.ID)
		sub.deleted[event.ID] = struct{}{}
	case NotificationReadAll:
		for id, n := range sub.items {
			if !n.IsBroadcast() {
				n.IsRead = true
				sub.items[id] = n
			}
		}
	default:
		return
	}

	if sub.ready {
		sub.deliverLocked()
	}
}

func (sub *NotificationSubscription) deliverLocked() {
	merged := make([]models.Notification, 0, len(sub.items))
	for _, n := range sub.items {
		merged = append(merged, n)
	}
	models.SortNotifications(merged)
	if len(merged) > sub.limit {
		for _, n := range merged[sub.limit:] {
			delete(sub.items, n.ID)
		}
		merged = merged[:sub.limit]
	}
	sub.handler(merged)
}

func clampNotificationLimit(limit int) int {
	if limit <= 0 {
		return defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		return maxNotificationLimit
	}
	return limit
}
