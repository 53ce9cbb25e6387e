package donation

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/repository"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

type UpdateDonationInput struct {
	DonationID uuid.UUID
	DonorID    uuid.UUID
	Patch      entity.DonationPatch
}

type UpdateDonationUseCase struct {
	donationRepo repository.DonationRepository
	events       repository.DonationEvents
}

func NewUpdateDonationUseCase(donationRepo repository.DonationRepository, events repository.DonationEvents) *UpdateDonationUseCase {
	return &UpdateDonationUseCase{donationRepo: donationRepo, events: events}
}

func (uc *UpdateDonationUseCase) Execute(ctx context.Context, input UpdateDonationInput) (*entity.Donation, error) {
	donation, err := uc.donationRepo.FindByID(ctx, input.DonationID)
	if err != nil {
		return nil, err
	}

	if !donation.IsOwnedBy(input.DonorID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "редактировать может только автор пожертвования")
	}

	if err := donation.Update(input.Patch); err != nil {
		return nil, err
	}

	if err := uc.donationRepo.Update(ctx, donation, valueobject.DonationStatusPending); err != nil {
		return nil, err
	}

	publish(ctx, uc.events, donation)
	return donation, nil
}

type DeleteDonationUseCase struct {
	donationRepo repository.DonationRepository
	events       repository.DonationEvents
}

func NewDeleteDonationUseCase(donationRepo repository.DonationRepository, events repository.DonationEvents) *DeleteDonationUseCase {
	return &DeleteDonationUseCase{donationRepo: donationRepo, events: events}
}

func (uc *DeleteDonationUseCase) Execute(ctx context.Context, donationID, donorID uuid.UUID) error {
	donation, err := uc.donationRepo.FindByID(ctx, donationID)
	if err != nil {
		return err
	}

	if !donation.IsOwnedBy(donorID) {
		return apperror.New(apperror.ErrCodeForbidden, "удалить может только автор пожертвования")
	}

	if !donation.CanDelete() {
		return apperror.New(apperror.ErrCodeConflict, "удалить можно только ожидающее пожертвование")
	}

	if err := uc.donationRepo.Delete(ctx, donationID, valueobject.DonationStatusPending); err != nil {
		return err
	}

	publish(ctx, uc.events, donation)
	return nil
}
