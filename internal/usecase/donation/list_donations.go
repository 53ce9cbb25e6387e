package donation

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/repository"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

// Scope набор пожертвований, который видит пользователь.
type Scope string

const (
	// ScopeMine пожертвования донора, новые сверху.
	ScopeMine Scope = "mine"
	// ScopeAvailable все ожидающие пожертвования, новые сверху.
	ScopeAvailable Scope = "available"
	// ScopePickups принятые НКО, по времени последнего изменения.
	ScopePickups Scope = "pickups"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type ListDonationsInput struct {
	Scope  Scope
	UserID uuid.UUID
	Status valueobject.DonationStatus
	Limit  int
	Offset int
}

type ListDonationsUseCase struct {
	donationRepo repository.DonationRepository
}

func NewListDonationsUseCase(donationRepo repository.DonationRepository) *ListDonationsUseCase {
	return &ListDonationsUseCase{donationRepo: donationRepo}
}

func (uc *ListDonationsUseCase) Execute(ctx context.Context, input ListDonationsInput) ([]*entity.Donation, error) {
	filter, err := FilterFor(input)
	if err != nil {
		return nil, err
	}
	return uc.donationRepo.List(ctx, filter)
}

// FilterFor строит фильтр репозитория для области видимости.
func FilterFor(input ListDonationsInput) (repository.DonationFilter, error) {
	filter := repository.DonationFilter{
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if input.Status != "" && !input.Status.IsValid() {
		return filter, apperror.New(apperror.ErrCodeValidation, "неизвестный статус пожертвования")
	}

	userID := input.UserID
	switch input.Scope {
	case ScopeMine:
		filter.DonorID = &userID
		filter.Status = input.Status
		filter.OrderBy = repository.OrderByCreatedDesc
	case ScopeAvailable:
		filter.Status = valueobject.DonationStatusPending
		filter.OrderBy = repository.OrderByCreatedDesc
	case ScopePickups:
		filter.AcceptedBy = &userID
		filter.Status = input.Status
		filter.OrderBy = repository.OrderByUpdatedDesc
	default:
		return filter, apperror.New(apperror.ErrCodeBadRequest, "неизвестная область выборки")
	}
	return filter, nil
}

type GetDonationUseCase struct {
	donationRepo repository.DonationRepository
}

func NewGetDonationUseCase(donationRepo repository.DonationRepository) *GetDonationUseCase {
	return &GetDonationUseCase{donationRepo: donationRepo}
}

func (uc *GetDonationUseCase) Execute(ctx context.Context, id uuid.UUID) (*entity.Donation, error) {
	return uc.donationRepo.FindByID(ctx, id)
}
