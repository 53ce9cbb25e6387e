package donation

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/repository"
	"github.com/ignatzorin/feedreach-backend/internal/metrics"
)

type CreateDonationInput struct {
	DonorID uuid.UUID
	Form    entity.DonationForm
}

type CreateDonationUseCase struct {
	donationRepo repository.DonationRepository
	users        repository.UserDirectory
	events       repository.DonationEvents
}

func NewCreateDonationUseCase(
	donationRepo repository.DonationRepository,
	users repository.UserDirectory,
	events repository.DonationEvents,
) *CreateDonationUseCase {
	return &CreateDonationUseCase{donationRepo: donationRepo, users: users, events: events}
}

// Execute проверяет форму до любой записи и сохраняет пожертвование в статусе pending.
func (uc *CreateDonationUseCase) Execute(ctx context.Context, input CreateDonationInput) (*entity.Donation, error) {
	donor, err := uc.users.FindParty(ctx, input.DonorID)
	if err != nil {
		return nil, err
	}

	donation, err := entity.NewDonation(*donor, input.Form)
	if err != nil {
		return nil, err
	}

	if err := uc.donationRepo.Create(ctx, donation); err != nil {
		return nil, err
	}

	metrics.DonationTransition(donation.Status.String())
	publish(ctx, uc.events, donation)
	return donation, nil
}
