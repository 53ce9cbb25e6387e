package donation

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/repository"
	"github.com/ignatzorin/feedreach-backend/internal/goroutine"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
)

// Subscription живая выборка пожертвований. Пока она открыта, обработчик
// получает полный актуальный список после каждого изменения.
type Subscription struct {
	cancel      context.CancelFunc
	unsubscribe func()
	once        sync.Once
	done        chan struct{}
}

// Close останавливает доставку. После возврата обработчик больше не вызывается.
// Не вызывать из самого обработчика.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.unsubscribe()
		s.cancel()
		<-s.done
	})
}

type WatchDonationsUseCase struct {
	donationRepo repository.DonationRepository
	feed         repository.ChangeFeed
}

func NewWatchDonationsUseCase(donationRepo repository.DonationRepository, feed repository.ChangeFeed) *WatchDonationsUseCase {
	return &WatchDonationsUseCase{donationRepo: donationRepo, feed: feed}
}

// Execute отдаёт первый снимок сразу и затем перечитывает выборку при каждом
// событии. События, пришедшие во время чтения, схлопываются в одно.
func (uc *WatchDonationsUseCase) Execute(
	ctx context.Context,
	input ListDonationsInput,
	handler func([]*entity.Donation),
) (*Subscription, error) {
	filter, err := FilterFor(input)
	if err != nil {
		return nil, err
	}

	// Подписка до первого чтения: изменение во время List оставит сигнал в changed.
	changed := make(chan struct{}, 1)
	unsubscribe := uc.feed.SubscribeDonations(func(uuid.UUID) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	initial, err := uc.donationRepo.List(ctx, filter)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	handler(initial)

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, unsubscribe: unsubscribe, done: make(chan struct{})}

	goroutine.SafeGo(func() {
		defer close(sub.done)
		log := logger.Component("donation-watch").WithField("scope", input.Scope)
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
			}

			items, err := uc.donationRepo.List(ctx, filter)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.WithField("error", err.Error()).Warn("не удалось обновить выборку пожертвований")
				continue
			}
			if ctx.Err() != nil {
				return
			}
			handler(items)
		}
	})

	return sub, nil
}
