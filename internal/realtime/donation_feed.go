package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
)

// DonationFeed публикует и раздаёт события об изменениях пожертвований.
type DonationFeed struct {
	broker *Broker
}

func NewDonationFeed(broker *Broker) *DonationFeed {
	return &DonationFeed{broker: broker}
}

// DonationChanged публикует событие изменения пожертвования.
func (f *DonationFeed) DonationChanged(ctx context.Context, donation *entity.Donation) error {
	return f.broker.Publish(ctx, TopicDonations, DonationEvent{
		ID:     donation.ID,
		Status: donation.Status.String(),
	})
}

// SubscribeDonations вызывает handler на каждое изменение пожертвования.
func (f *DonationFeed) SubscribeDonations(handler func(donationID uuid.UUID)) func() {
	return f.broker.Subscribe(TopicDonations, func(payload []byte) {
		var event DonationEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return
		}
		handler(event.ID)
	})
}
