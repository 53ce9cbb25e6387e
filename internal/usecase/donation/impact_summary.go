package donation

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/repository"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
)

// ImpactSummary сводка по пожертвованиям пользователя для личного кабинета.
type ImpactSummary struct {
	Total       int     `json:"total"`
	Pending     int     `json:"pending"`
	Accepted    int     `json:"accepted"`
	Completed   int     `json:"completed"`
	Cancelled   int     `json:"cancelled"`
	TotalWeight float64 `json:"total_weight"`
	PeopleFed   int     `json:"people_fed"`
}

type ImpactSummaryUseCase struct {
	donationRepo repository.DonationRepository
}

func NewImpactSummaryUseCase(donationRepo repository.DonationRepository) *ImpactSummaryUseCase {
	return &ImpactSummaryUseCase{donationRepo: donationRepo}
}

// Execute считает сводку для донора (scope mine) или НКО (scope pickups).
func (uc *ImpactSummaryUseCase) Execute(ctx context.Context, scope Scope, userID uuid.UUID) (*ImpactSummary, error) {
	filter, err := FilterFor(ListDonationsInput{Scope: scope, UserID: userID})
	if err != nil {
		return nil, err
	}

	counts, err := uc.donationRepo.CountByStatus(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := &ImpactSummary{
		Pending:   counts[valueobject.DonationStatusPending],
		Accepted:  counts[valueobject.DonationStatusAccepted],
		Completed: counts[valueobject.DonationStatusCompleted],
		Cancelled: counts[valueobject.DonationStatusCancelled],
	}
	summary.Total = summary.Pending + summary.Accepted + summary.Completed + summary.Cancelled

	if summary.Completed == 0 {
		return summary, nil
	}

	filter.Status = valueobject.DonationStatusCompleted
	filter.Limit = summary.Completed
	filter.Offset = 0
	completed, err := uc.donationRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, d := range completed {
		summary.TotalWeight += d.Weight()
	}
	summary.PeopleFed = valueobject.EstimatePeopleFed(summary.TotalWeight)
	return summary, nil
}
