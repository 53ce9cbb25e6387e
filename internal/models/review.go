package models

import (
	"time"

	"github.com/google/uuid"
)

// Review отзыв одного пользователя о другом по итогам пожертвования.
type Review struct {
	ID           uuid.UUID `db:"id" json:"id"`
	ReviewerID   uuid.UUID `db:"reviewer_id" json:"reviewer_id"`
	ReviewerName string    `db:"reviewer_name" json:"reviewer_name"`
	TargetUserID uuid.UUID `db:"target_user_id" json:"target_user_id"`
	DonationID   uuid.UUID `db:"donation_id" json:"donation_id"`
	Rating       int       `db:"rating" json:"rating"`
	Comment      string    `db:"comment" json:"comment"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
