package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/repository"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	"github.com/ignatzorin/feedreach-backend/internal/repository/common"
)

const donationColumns = `id, donor_id, donor_name, donor_phone, title, description, food_type, quantity,
	expiry_time, image_urls, contact_phone, contact_country_code, latitude, longitude, address,
	status, accepted_by, accepted_by_name, accepted_by_phone, created_at, updated_at`

type donationRow struct {
	ID                 uuid.UUID      `db:"id"`
	DonorID            uuid.UUID      `db:"donor_id"`
	DonorName          string         `db:"donor_name"`
	DonorPhone         string         `db:"donor_phone"`
	Title              string         `db:"title"`
	Description        string         `db:"description"`
	FoodType           string         `db:"food_type"`
	Quantity           string         `db:"quantity"`
	ExpiryTime         time.Time      `db:"expiry_time"`
	ImageURLs          pq.StringArray `db:"image_urls"`
	ContactPhone       string         `db:"contact_phone"`
	ContactCountryCode string         `db:"contact_country_code"`
	Latitude           float64        `db:"latitude"`
	Longitude          float64        `db:"longitude"`
	Address            string         `db:"address"`
	Status             string         `db:"status"`
	AcceptedBy         *uuid.UUID     `db:"accepted_by"`
	AcceptedByName     *string        `db:"accepted_by_name"`
	AcceptedByPhone    *string        `db:"accepted_by_phone"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (r donationRow) toEntity() *entity.Donation {
	images := []string(r.ImageURLs)
	if images == nil {
		images = []string{}
	}
	return &entity.Donation{
		ID:                 r.ID,
		DonorID:            r.DonorID,
		DonorName:          r.DonorName,
		DonorPhone:         r.DonorPhone,
		Title:              r.Title,
		Description:        r.Description,
		FoodType:           r.FoodType,
		Quantity:           r.Quantity,
		ExpiryTime:         r.ExpiryTime,
		ImageURLs:          images,
		ContactPhone:       r.ContactPhone,
		ContactCountryCode: r.ContactCountryCode,
		Location: valueobject.Location{
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Address:   r.Address,
		},
		Status:          valueobject.DonationStatus(r.Status),
		AcceptedBy:      r.AcceptedBy,
		AcceptedByName:  r.AcceptedByName,
		AcceptedByPhone: r.AcceptedByPhone,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type DonationRepositoryAdapter struct {
	db *sqlx.DB
}

func NewDonationRepositoryAdapter(db *sqlx.DB) *DonationRepositoryAdapter {
	return &DonationRepositoryAdapter{db: db}
}

func (r *DonationRepositoryAdapter) Create(ctx context.Context, d *entity.Donation) error {
	query := `
		INSERT INTO donations (` + donationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.DonorID,
		d.DonorName,
		d.DonorPhone,
		d.Title,
		d.Description,
		d.FoodType,
		d.Quantity,
		d.ExpiryTime,
		pq.StringArray(d.ImageURLs),
		d.ContactPhone,
		d.ContactCountryCode,
		d.Location.Latitude,
		d.Location.Longitude,
		d.Location.Address,
		string(d.Status),
		d.AcceptedBy,
		d.AcceptedByName,
		d.AcceptedByPhone,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать пожертвование")
	}
	return nil
}

// Update выполняет условное обновление: строка меняется только при статусе expected.
// Две НКО, одновременно принимающие одно пожертвование, не перезапишут друг друга.
func (r *DonationRepositoryAdapter) Update(ctx context.Context, d *entity.Donation, expected valueobject.DonationStatus) error {
	return r.update(ctx, r.db, d, expected)
}

// Complete сохраняет завершение и приращение статистики донора атомарно.
func (r *DonationRepositoryAdapter) Complete(ctx context.Context, d *entity.Donation, peopleFed int) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.update(ctx, tx, d, valueobject.DonationStatusAccepted); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `
			UPDATE users
			SET total_donations = total_donations + 1, people_fed = people_fed + $2, updated_at = NOW()
			WHERE id = $1`, d.DonorID, peopleFed)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статистику донора")
		}
		if rows, err := result.RowsAffected(); err == nil && rows == 0 {
			return apperror.ErrUserNotFound
		}
		return nil
	})
}

func (r *DonationRepositoryAdapter) update(ctx context.Context, exec sqlx.ExecerContext, d *entity.Donation, expected valueobject.DonationStatus) error {
	query := `
		UPDATE donations
		SET title = $2, description = $3, food_type = $4, quantity = $5, expiry_time = $6,
		    image_urls = $7, contact_phone = $8, contact_country_code = $9,
		    latitude = $10, longitude = $11, address = $12, status = $13,
		    accepted_by = $14, accepted_by_name = $15, accepted_by_phone = $16, updated_at = $17
		WHERE id = $1 AND status = $18
	`

	result, err := exec.ExecContext(ctx, query,
		d.ID,
		d.Title,
		d.Description,
		d.FoodType,
		d.Quantity,
		d.ExpiryTime,
		pq.StringArray(d.ImageURLs),
		d.ContactPhone,
		d.ContactCountryCode,
		d.Location.Latitude,
		d.Location.Longitude,
		d.Location.Address,
		string(d.Status),
		d.AcceptedBy,
		d.AcceptedByName,
		d.AcceptedByPhone,
		d.UpdatedAt,
		string(expected),
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить пожертвование")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат обновления")
	}
	if rows == 0 {
		if _, findErr := r.FindByID(ctx, d.ID); findErr != nil {
			return findErr
		}
		return apperror.New(apperror.ErrCodeConflict, "пожертвование было изменено другим пользователем")
	}
	return nil
}

// Delete условное удаление: принятое НКО пожертвование не удаляется.
func (r *DonationRepositoryAdapter) Delete(ctx context.Context, id uuid.UUID, expected valueobject.DonationStatus) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM donations WHERE id = $1 AND status = $2`, id, string(expected))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить пожертвование")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат удаления")
	}
	if rows == 0 {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return findErr
		}
		return apperror.New(apperror.ErrCodeConflict, "удалить можно только ожидающее пожертвование")
	}
	return nil
}

func (r *DonationRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Donation, error) {
	var row donationRow
	err := r.db.GetContext(ctx, &row, `SELECT `+donationColumns+` FROM donations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrDonationNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить пожертвование")
	}
	return row.toEntity(), nil
}

func (r *DonationRepositoryAdapter) List(ctx context.Context, filter repository.DonationFilter) ([]*entity.Donation, error) {
	where, args := buildDonationWhere(filter)

	orderBy := "created_at DESC, id DESC"
	if filter.OrderBy == repository.OrderByUpdatedDesc {
		orderBy = "updated_at DESC, id DESC"
	}

	query := `SELECT ` + donationColumns + ` FROM donations` + where + ` ORDER BY ` + orderBy
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []donationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить список пожертвований")
	}

	donations := make([]*entity.Donation, 0, len(rows))
	for _, row := range rows {
		donations = append(donations, row.toEntity())
	}
	return donations, nil
}

func (r *DonationRepositoryAdapter) CountByStatus(ctx context.Context, filter repository.DonationFilter) (map[valueobject.DonationStatus]int, error) {
	where, args := buildDonationWhere(filter)

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM donations` + where + ` GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать пожертвования")
	}

	counts := make(map[valueobject.DonationStatus]int, len(rows))
	for _, row := range rows {
		counts[valueobject.DonationStatus(row.Status)] = row.Count
	}
	return counts, nil
}

func buildDonationWhere(filter repository.DonationFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.DonorID != nil {
		args = append(args, *filter.DonorID)
		conditions = append(conditions, fmt.Sprintf("donor_id = $%d", len(args)))
	}
	if filter.AcceptedBy != nil {
		args = append(args, *filter.AcceptedBy)
		conditions = append(conditions, fmt.Sprintf("accepted_by = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
