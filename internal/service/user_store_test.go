package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/repository"
)

// memoryUserStore общий фейк пользователей для сервисов модерации и профиля.
type memoryUserStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	sessions map[uuid.UUID]int
}

func newMemoryUserStore(users ...*models.User) *memoryUserStore {
	s := &memoryUserStore{
		users:    make(map[uuid.UUID]*models.User),
		sessions: make(map[uuid.UUID]int),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memoryUserStore) get(id uuid.UUID) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *memoryUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memoryUserStore) UpdateProfile(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memoryUserStore) SetVerification(ctx context.Context, userID uuid.UUID, status string, documentURL, note *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.VerificationStatus = status
	if documentURL != nil {
		u.VerificationDocumentURL = documentURL
	}
	u.VerificationNote = note
	return nil
}

func (s *memoryUserStore) ListByVerificationStatus(ctx context.Context, status string, limit int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if u.VerificationStatus == status {
			out = append(out, *u)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryUserStore) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryUserStore) SetAccountStatus(ctx context.Context, userID uuid.UUID, status string, until *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.AccountStatus = status
	u.SuspendedUntil = until
	return nil
}

func (s *memoryUserStore) AddWarning(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	u.WarningCount++
	return u.WarningCount, nil
}

func (s *memoryUserStore) SetAdminByEmail(ctx context.Context, email string, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			u.IsAdmin = isAdmin
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (s *memoryUserStore) CountByRole(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, u := range s.users {
		out[u.Role]++
	}
	return out, nil
}

func (s *memoryUserStore) DeleteAllSessions(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func newUser(role string) *models.User {
	u := &models.User{
		ID:                 uuid.New(),
		Email:              uuid.NewString()[:8] + "@feedreach.test",
		DisplayName:        "Пользователь",
		Role:               role,
		VerificationStatus: models.VerificationNone,
		AccountStatus:      models.AccountActive,
		CreatedAt:          time.Now(),
	}
	if role == models.RoleNGO {
		org := "Фудбанк"
		u.OrganizationName = &org
	}
	return u
}
