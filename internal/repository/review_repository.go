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

// ErrReviewExists отзыв на это пожертвование от этого пользователя уже оставлен.
var ErrReviewExists = fmt.Errorf("review: %w", common.ErrAlreadyExists)

const reviewColumns = `id, reviewer_id, reviewer_name, target_user_id, donation_id, rating, comment, created_at`

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// CreateWithStats в одной транзакции сохраняет отзыв и атомарно добавляет
// оценку к статистике получателя. Возвращает статистику после обновления.
func (r *ReviewRepository) CreateWithStats(ctx context.Context, review *models.Review) (*models.UserStats, error) {
	var stats models.UserStats

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		insert := `
			INSERT INTO reviews (reviewer_id, reviewer_name, target_user_id, donation_id, rating, comment)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`
		if err := tx.QueryRowxContext(ctx, insert,
			review.ReviewerID, review.ReviewerName, review.TargetUserID, review.DonationID, review.Rating, review.Comment,
		).Scan(&review.ID, &review.CreatedAt); err != nil {
			if common.IsUniqueViolation(err) {
				return ErrReviewExists
			}
			return fmt.Errorf("review repository: create %w", err)
		}

		update := `
			UPDATE users
			SET rating_sum = rating_sum + $2,
			    review_count = review_count + 1,
			    karma_points = karma_points + $3,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING total_donations, people_fed, karma_points, rating_sum, review_count
		`
		if err := tx.GetContext(ctx, &stats, update, review.TargetUserID, review.Rating, models.KarmaBoost(review.Rating)); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("review repository: apply stats %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// ListByTarget возвращает отзывы о пользователе, новые первыми.
func (r *ReviewRepository) ListByTarget(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]models.Review, error) {
	reviews := []models.Review{}
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE target_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &reviews, query, targetID, limit, offset); err != nil {
		return nil, fmt.Errorf("review repository: list by target %w", err)
	}
	return reviews, nil
}
