package donation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/repository"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
)

// publish и notify не влияют на результат операции: ошибки только логируются.

func publish(ctx context.Context, events repository.DonationEvents, d *entity.Donation) {
	if events == nil {
		return
	}
	if err := events.DonationChanged(ctx, d); err != nil {
		logger.Component("donation").WithFields(map[string]interface{}{
			"donation_id": d.ID,
			"error":       err.Error(),
		}).Warn("не удалось опубликовать изменение пожертвования")
	}
}

func notify(ctx context.Context, notifier repository.Notifier, userID uuid.UUID, title, message, kind string, d *entity.Donation) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, userID, title, message, kind, donationLink(d)); err != nil {
		logger.Component("donation").WithFields(map[string]interface{}{
			"donation_id": d.ID,
			"user_id":     userID,
			"error":       err.Error(),
		}).Warn("не удалось отправить уведомление")
	}
}

func donationLink(d *entity.Donation) string {
	return fmt.Sprintf("/donations/%s", d.ID)
}
