package valueobject

import "github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"

type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusAccepted  DonationStatus = "accepted"
	DonationStatusCompleted DonationStatus = "completed"
	DonationStatusCancelled DonationStatus = "cancelled"
)

var donationTransitions = map[DonationStatus][]DonationStatus{
	DonationStatusPending:   {DonationStatusAccepted},
	DonationStatusAccepted:  {DonationStatusCompleted, DonationStatusCancelled},
	DonationStatusCompleted: {},
	DonationStatusCancelled: {},
}

func (s DonationStatus) IsValid() bool {
	_, ok := donationTransitions[s]
	return ok
}

func (s DonationStatus) CanTransitionTo(newStatus DonationStatus) bool {
	for _, status := range donationTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

func (s DonationStatus) String() string {
	return string(s)
}

func NewDonationStatus(status string) (DonationStatus, error) {
	s := DonationStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус пожертвования")
	}
	return s, nil
}
