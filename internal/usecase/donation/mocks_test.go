package donation_test

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/repository"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

type memoryDonationRepository struct {
	mu        sync.Mutex
	donations map[uuid.UUID]entity.Donation
	onChange  []func(uuid.UUID)
	// stats получает начисления донору при завершении; statsErr имитирует сбой внутри транзакции.
	stats    *memoryUsers
	statsErr error
}

func newMemoryDonationRepository() *memoryDonationRepository {
	return &memoryDonationRepository{donations: make(map[uuid.UUID]entity.Donation)}
}

func (m *memoryDonationRepository) Create(ctx context.Context, d *entity.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.donations[d.ID] = *d
	return nil
}

func (m *memoryDonationRepository) Update(ctx context.Context, d *entity.Donation, expected valueobject.DonationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.donations[d.ID]
	if !ok {
		return apperror.ErrDonationNotFound
	}
	if current.Status != expected {
		return apperror.New(apperror.ErrCodeConflict, "пожертвование было изменено другим пользователем")
	}
	m.donations[d.ID] = *d
	return nil
}

func (m *memoryDonationRepository) Complete(ctx context.Context, d *entity.Donation, peopleFed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.donations[d.ID]
	if !ok {
		return apperror.ErrDonationNotFound
	}
	if current.Status != valueobject.DonationStatusAccepted {
		return apperror.New(apperror.ErrCodeConflict, "пожертвование было изменено другим пользователем")
	}
	if m.statsErr != nil {
		return m.statsErr
	}
	if m.stats != nil {
		if err := m.stats.AddDonationStats(ctx, d.DonorID, 1, peopleFed); err != nil {
			return err
		}
	}
	m.donations[d.ID] = *d
	return nil
}

func (m *memoryDonationRepository) Delete(ctx context.Context, id uuid.UUID, expected valueobject.DonationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.donations[id]
	if !ok {
		return apperror.ErrDonationNotFound
	}
	if current.Status != expected {
		return apperror.New(apperror.ErrCodeConflict, "удалить можно только ожидающее пожертвование")
	}
	delete(m.donations, id)
	return nil
}

func (m *memoryDonationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[id]
	if !ok {
		return nil, apperror.ErrDonationNotFound
	}
	return &d, nil
}

func (m *memoryDonationRepository) matching(filter repository.DonationFilter) []*entity.Donation {
	var result []*entity.Donation
	for _, d := range m.donations {
		if filter.DonorID != nil && d.DonorID != *filter.DonorID {
			continue
		}
		if filter.AcceptedBy != nil && (d.AcceptedBy == nil || *d.AcceptedBy != *filter.AcceptedBy) {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		result = append(result, &d)
	}
	return result
}

func (m *memoryDonationRepository) List(ctx context.Context, filter repository.DonationFilter) ([]*entity.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := m.matching(filter)
	sort.Slice(result, func(i, j int) bool {
		if filter.OrderBy == repository.OrderByUpdatedDesc {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Offset >= len(result) {
		return []*entity.Donation{}, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *memoryDonationRepository) CountByStatus(ctx context.Context, filter repository.DonationFilter) (map[valueobject.DonationStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[valueobject.DonationStatus]int)
	for _, d := range m.matching(filter) {
		counts[d.Status]++
	}
	return counts, nil
}

type memoryUsers struct {
	parties map[uuid.UUID]entity.Party
	mu      sync.Mutex
	stats   map[uuid.UUID][2]int
}

func newMemoryUsers(parties ...entity.Party) *memoryUsers {
	u := &memoryUsers{parties: make(map[uuid.UUID]entity.Party), stats: make(map[uuid.UUID][2]int)}
	for _, p := range parties {
		u.parties[p.ID] = p
	}
	return u
}

func (u *memoryUsers) FindParty(ctx context.Context, id uuid.UUID) (*entity.Party, error) {
	p, ok := u.parties[id]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}
	return &p, nil
}

func (u *memoryUsers) AddDonationStats(ctx context.Context, userID uuid.UUID, donations, peopleFed int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	s := u.stats[userID]
	s[0] += donations
	s[1] += peopleFed
	u.stats[userID] = s
	return nil
}

func (u *memoryUsers) statsOf(userID uuid.UUID) (donations, peopleFed int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	s := u.stats[userID]
	return s[0], s[1]
}

type sentNotification struct {
	UserID uuid.UUID
	Title  string
	Kind   string
	Link   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, title, message, kind, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Title: title, Kind: kind, Link: link})
	return nil
}

func (n *recordingNotifier) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

// localFeed синхронная реализация DonationEvents и ChangeFeed.
type localFeed struct {
	mu       sync.Mutex
	handlers map[int]func(uuid.UUID)
	next     int
}

func newLocalFeed() *localFeed {
	return &localFeed{handlers: make(map[int]func(uuid.UUID))}
}

func (f *localFeed) DonationChanged(ctx context.Context, d *entity.Donation) error {
	f.mu.Lock()
	handlers := make([]func(uuid.UUID), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(d.ID)
	}
	return nil
}

func (f *localFeed) SubscribeDonations(handler func(uuid.UUID)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.handlers[id] = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

// interleavingRepository выполняет between один раз сразу после первого
// чтения (FindByID или List), имитируя параллельную запись другого пользователя.
type interleavingRepository struct {
	*memoryDonationRepository
	once    sync.Once
	between func()
}

func (r *interleavingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Donation, error) {
	d, err := r.memoryDonationRepository.FindByID(ctx, id)
	r.once.Do(r.between)
	return d, err
}

func (r *interleavingRepository) List(ctx context.Context, filter repository.DonationFilter) ([]*entity.Donation, error) {
	items, err := r.memoryDonationRepository.List(ctx, filter)
	r.once.Do(r.between)
	return items, err
}
