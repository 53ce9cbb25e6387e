package donation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/repository"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
	"github.com/ignatzorin/feedreach-backend/internal/metrics"
	"github.com/ignatzorin/feedreach-backend/internal/models"
)

type AcceptDonationInput struct {
	DonationID uuid.UUID
	NGOID      uuid.UUID
}

type AcceptDonationUseCase struct {
	donationRepo repository.DonationRepository
	users        repository.UserDirectory
	notifier     repository.Notifier
	events       repository.DonationEvents
}

func NewAcceptDonationUseCase(
	donationRepo repository.DonationRepository,
	users repository.UserDirectory,
	notifier repository.Notifier,
	events repository.DonationEvents,
) *AcceptDonationUseCase {
	return &AcceptDonationUseCase{donationRepo: donationRepo, users: users, notifier: notifier, events: events}
}

// Execute переводит pending -> accepted. Из двух одновременных попыток
// успешна одна, вторая получает CONFLICT.
func (uc *AcceptDonationUseCase) Execute(ctx context.Context, input AcceptDonationInput) (*entity.Donation, error) {
	donation, err := uc.donationRepo.FindByID(ctx, input.DonationID)
	if err != nil {
		return nil, err
	}

	ngo, err := uc.users.FindParty(ctx, input.NGOID)
	if err != nil {
		return nil, err
	}

	if err := donation.Accept(*ngo); err != nil {
		return nil, err
	}

	if err := uc.donationRepo.Update(ctx, donation, valueobject.DonationStatusPending); err != nil {
		return nil, err
	}

	metrics.DonationTransition(donation.Status.String())
	notify(ctx, uc.notifier, donation.DonorID,
		"Пожертвование принято",
		fmt.Sprintf("%s принимает «%s» и скоро заберёт его.", ngo.Name, donation.Title),
		models.NotificationSuccess, donation)
	publish(ctx, uc.events, donation)

	return donation, nil
}
