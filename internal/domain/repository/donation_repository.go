package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
)

type DonationRepository interface {
	Create(ctx context.Context, donation *entity.Donation) error
	// Update сохраняет изменения только если текущий статус в БД равен expected.
	// Иначе возвращает apperror с кодом CONFLICT.
	Update(ctx context.Context, donation *entity.Donation, expected valueobject.DonationStatus) error
	// Complete переводит accepted -> completed и начисляет донору статистику
	// в одной транзакции. Если статус уже не accepted, возвращает CONFLICT.
	Complete(ctx context.Context, donation *entity.Donation, peopleFed int) error
	// Delete удаляет строку только при статусе expected, иначе CONFLICT.
	Delete(ctx context.Context, id uuid.UUID, expected valueobject.DonationStatus) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Donation, error)
	List(ctx context.Context, filter DonationFilter) ([]*entity.Donation, error)
	CountByStatus(ctx context.Context, filter DonationFilter) (map[valueobject.DonationStatus]int, error)
}

// DonationFilter фильтр выборки. Пустые поля не ограничивают выборку.
type DonationFilter struct {
	DonorID    *uuid.UUID
	AcceptedBy *uuid.UUID
	Status     valueobject.DonationStatus
	OrderBy    DonationOrder
	Limit      int
	Offset     int
}

type DonationOrder string

const (
	OrderByCreatedDesc DonationOrder = "created_desc"
	OrderByUpdatedDesc DonationOrder = "updated_desc"
)

// UserDirectory сведения о пользователях, нужные сценариям пожертвований.
type UserDirectory interface {
	FindParty(ctx context.Context, userID uuid.UUID) (*entity.Party, error)
}
