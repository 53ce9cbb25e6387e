package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/repository"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	legacy "github.com/ignatzorin/feedreach-backend/internal/repository"
)

type seedUsers struct {
	*memoryUserStore
	stats map[uuid.UUID]int
}

func (s *seedUsers) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = uuid.New()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *seedUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, legacy.ErrUserNotFound
}

func (s *seedUsers) AddDonationStats(ctx context.Context, userID uuid.UUID, donations, peopleFed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[userID] += donations
	return nil
}

type seedDonations struct {
	repository.DonationRepository
	mu    sync.Mutex
	items map[uuid.UUID]valueobject.DonationStatus
}

func (s *seedDonations) Create(ctx context.Context, d *entity.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[d.ID] = d.Status
	return nil
}

func (s *seedDonations) Update(ctx context.Context, d *entity.Donation, expected valueobject.DonationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items[d.ID] != expected {
		return assert.AnError
	}
	s.items[d.ID] = d.Status
	return nil
}

func TestSeedService_CreatesLifecycleMix(t *testing.T) {
	users := &seedUsers{memoryUserStore: newMemoryUserStore(), stats: map[uuid.UUID]int{}}
	donations := &seedDonations{items: map[uuid.UUID]valueobject.DonationStatus{}}
	svc := NewSeedService(users, donations, 42)

	result, err := svc.Seed(context.Background(), 3, 2, 40)
	require.NoError(t, err)
	assert.Equal(t, &SeedResult{Donors: 3, NGOs: 2, Donations: 40}, result)
	assert.Len(t, donations.items, 40)

	completed := 0
	for _, status := range donations.items {
		assert.True(t, status.IsValid())
		if status == valueobject.DonationStatusCompleted {
			completed++
		}
	}
	total := 0
	for _, n := range users.stats {
		total += n
	}
	assert.Equal(t, completed, total)

	// повторный запуск не плодит аккаунты
	_, err = svc.Seed(context.Background(), 3, 2, 0)
	require.NoError(t, err)
	assert.Len(t, users.users, 5)
}
