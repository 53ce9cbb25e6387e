package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает пользователя платформы: донора или НКО.
type User struct {
	ID                      uuid.UUID  `db:"id" json:"id"`
	Email                   string     `db:"email" json:"email"`
	PasswordHash            string     `db:"password_hash" json:"-"`
	FirebaseUID             *string    `db:"firebase_uid" json:"-"`
	DisplayName             string     `db:"display_name" json:"display_name"`
	Role                    string     `db:"role" json:"role"`
	IsAdmin                 bool       `db:"is_admin" json:"is_admin"`
	Phone                   *string    `db:"phone" json:"phone,omitempty"`
	Address                 *string    `db:"address" json:"address,omitempty"`
	OrganizationName        *string    `db:"organization_name" json:"organization_name,omitempty"`
	PhotoURL                *string    `db:"photo_url" json:"photo_url,omitempty"`
	Bio                     *string    `db:"bio" json:"bio,omitempty"`
	VerificationStatus      string     `db:"verification_status" json:"verification_status"`
	VerificationDocumentURL *string    `db:"verification_document_url" json:"verification_document_url,omitempty"`
	VerificationNote        *string    `db:"verification_note" json:"verification_note,omitempty"`
	AccountStatus           string     `db:"account_status" json:"account_status"`
	SuspendedUntil          *time.Time `db:"suspended_until" json:"suspended_until,omitempty"`
	WarningCount            int        `db:"warning_count" json:"warning_count"`
	LastLoginAt             *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at" json:"updated_at"`

	UserStats `json:"stats"`
}

// UserStats агрегированная статистика пользователя.
type UserStats struct {
	TotalDonations int `db:"total_donations" json:"total_donations"`
	PeopleFed      int `db:"people_fed" json:"people_fed"`
	KarmaPoints    int `db:"karma_points" json:"karma_points"`
	RatingSum      int `db:"rating_sum" json:"rating_sum"`
	ReviewCount    int `db:"review_count" json:"review_count"`
}

// KarmaBoost возвращает прирост кармы за отзыв с указанной оценкой.
func KarmaBoost(rating int) int {
	return 10 + rating*2
}

// ApplyReview возвращает статистику после учёта нового отзыва.
func (s UserStats) ApplyReview(rating int) UserStats {
	s.RatingSum += rating
	s.ReviewCount++
	s.KarmaPoints += KarmaBoost(rating)
	return s
}

// AverageRating средняя оценка, 0 если отзывов нет.
func (s UserStats) AverageRating() float64 {
	if s.ReviewCount == 0 {
		return 0
	}
	return float64(s.RatingSum) / float64(s.ReviewCount)
}

// IsNGO сообщает, является ли пользователь НКО.
func (u *User) IsNGO() bool {
	return u.Role == RoleNGO
}

// CanSignIn проверяет статус аккаунта на момент now.
// Истёкшая блокировка на время не мешает входу.
func (u *User) CanSignIn(now time.Time) bool {
	switch u.AccountStatus {
	case AccountBanned:
		return false
	case AccountSuspended:
		return u.SuspendedUntil != nil && !now.Before(*u.SuspendedUntil)
	default:
		return true
	}
}

// PublicProfile публичная часть профиля пользователя.
type PublicProfile struct {
	ID                 uuid.UUID `json:"id"`
	DisplayName        string    `json:"display_name"`
	Role               string    `json:"role"`
	OrganizationName   *string   `json:"organization_name,omitempty"`
	PhotoURL           *string   `json:"photo_url,omitempty"`
	Bio                *string   `json:"bio,omitempty"`
	VerificationStatus string    `json:"verification_status"`
	Stats              UserStats `json:"stats"`
	AverageRating      float64   `json:"average_rating"`
	CreatedAt          time.Time `json:"created_at"`
}

// ToPublic формирует публичный профиль.
func (u *User) ToPublic() PublicProfile {
	return PublicProfile{
		ID:                 u.ID,
		DisplayName:        u.DisplayName,
		Role:               u.Role,
		OrganizationName:   u.OrganizationName,
		PhotoURL:           u.PhotoURL,
		Bio:                u.Bio,
		VerificationStatus: u.VerificationStatus,
		Stats:              u.UserStats,
		AverageRating:      u.AverageRating(),
		CreatedAt:          u.CreatedAt,
	}
}

// LeaderboardEntry строка таблицы лидеров.
type LeaderboardEntry struct {
	ID               uuid.UUID `db:"id" json:"id"`
	DisplayName      string    `db:"display_name" json:"display_name"`
	Role             string    `db:"role" json:"role"`
	OrganizationName *string   `db:"organization_name" json:"organization_name,omitempty"`
	PhotoURL         *string   `db:"photo_url" json:"photo_url,omitempty"`
	TotalDonations   int       `db:"total_donations" json:"total_donations"`
	PeopleFed        int       `db:"people_fed" json:"people_fed"`
	KarmaPoints      int       `db:"karma_points" json:"karma_points"`
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PasswordResetToken одноразовый токен сброса пароля. Хранится только хеш.
type PasswordResetToken struct {
	TokenHash string    `db:"token_hash" json:"-"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
