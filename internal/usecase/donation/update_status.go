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
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

type UpdateStatusInput struct {
	DonationID uuid.UUID
	ActorID    uuid.UUID
	Status     valueobject.DonationStatus
}

type UpdateDonationStatusUseCase struct {
	donationRepo repository.DonationRepository
	notifier     repository.Notifier
	events       repository.DonationEvents
}

func NewUpdateDonationStatusUseCase(
	donationRepo repository.DonationRepository,
	notifier repository.Notifier,
	events repository.DonationEvents,
) *UpdateDonationStatusUseCase {
	return &UpdateDonationStatusUseCase{donationRepo: donationRepo, notifier: notifier, events: events}
}

// Execute переводит accepted -> completed|cancelled. Доступно только принявшей НКО.
// Завершение и начисление донору total_donations и people_fed проходят одной транзакцией.
func (uc *UpdateDonationStatusUseCase) Execute(ctx context.Context, input UpdateStatusInput) (*entity.Donation, error) {
	donation, err := uc.donationRepo.FindByID(ctx, input.DonationID)
	if err != nil {
		return nil, err
	}

	if !donation.IsAcceptedBy(input.ActorID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "изменить статус может только принявшая пожертвование организация")
	}

	if err := donation.Advance(input.Status); err != nil {
		return nil, err
	}

	if donation.Status == valueobject.DonationStatusCompleted {
		err = uc.donationRepo.Complete(ctx, donation, donation.PeopleFed())
	} else {
		err = uc.donationRepo.Update(ctx, donation, valueobject.DonationStatusAccepted)
	}
	if err != nil {
		return nil, err
	}

	metrics.DonationTransition(donation.Status.String())

	switch donation.Status {
	case valueobject.DonationStatusCompleted:
		notify(ctx, uc.notifier, donation.DonorID,
			"Пожертвование доставлено",
			fmt.Sprintf("«%s» получено и распределено. Спасибо!", donation.Title),
			models.NotificationSuccess, donation)
	case valueobject.DonationStatusCancelled:
		notify(ctx, uc.notifier, donation.DonorID,
			"Самовывоз отменён",
			fmt.Sprintf("Организация отменила самовывоз «%s».", donation.Title),
			models.NotificationWarning, donation)
	}

	publish(ctx, uc.events, donation)
	return donation, nil
}
