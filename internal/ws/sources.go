package ws

import (
	"context"

	"github.com/ignatzorin/feedreach-backend/internal/authz"
	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/interface/http/dto"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	"github.com/ignatzorin/feedreach-backend/internal/service"
	"github.com/ignatzorin/feedreach-backend/internal/usecase/donation"
)

const liveNotificationLimit = 50

// NotificationSource канал notifications: личные и широковещательные уведомления одним списком.
func NotificationSource(notifications *service.NotificationService) Source {
	return func(ctx context.Context, p Principal, emit func(any)) (func(), error) {
		sub, err := notifications.Subscribe(ctx, p.UserID, liveNotificationLimit, func(items []models.Notification) {
			if items == nil {
				items = []models.Notification{}
			}
			emit(items)
		})
		if err != nil {
			return nil, err
		}
		return sub.Close, nil
	}
}

// DonationSource канал живой выборки пожертвований для области scope.
// Выборки available и pickups доступны только НКО.
func DonationSource(watch *donation.WatchDonationsUseCase, scope donation.Scope) Source {
	return func(ctx context.Context, p Principal, emit func(any)) (func(), error) {
		if scope != donation.ScopeMine && !authz.Can(authz.Subject{Role: p.Role, IsAdmin: p.IsAdmin}, authz.DonationBrowse) {
			return nil, apperror.New(apperror.ErrCodeForbidden, "канал доступен только НКО")
		}

		sub, err := watch.Execute(ctx, donation.ListDonationsInput{Scope: scope, UserID: p.UserID}, func(items []*entity.Donation) {
			emit(dto.ToDonationResponses(items))
		})
		if err != nil {
			return nil, err
		}
		return sub.Close, nil
	}
}
