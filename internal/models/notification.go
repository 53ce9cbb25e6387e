package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Notification уведомление пользователю или всем (UserID == BroadcastTarget).
type Notification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	Link      *string   `db:"link" json:"link,omitempty"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsBroadcast сообщает, адресовано ли уведомление всем.
func (n *Notification) IsBroadcast() bool {
	return n.UserID == BroadcastTarget
}

// IsVisibleTo проверяет, видит ли пользователь уведомление.
func (n *Notification) IsVisibleTo(userID uuid.UUID) bool {
	return n.IsBroadcast() || n.UserID == userID.String()
}

// SortNotifications упорядочивает по created_at убыванию, при равенстве по id убыванию.
func SortNotifications(items []Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID.String() > items[j].ID.String()
	})
}
