package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	"github.com/ignatzorin/feedreach-backend/internal/repository"
)

// UserDirectoryAdapter отдаёт сценариям пожертвований данные пользователей
// из общего UserRepository.
type UserDirectoryAdapter struct {
	users *repository.UserRepository
}

func NewUserDirectoryAdapter(users *repository.UserRepository) *UserDirectoryAdapter {
	return &UserDirectoryAdapter{users: users}
}

func (a *UserDirectoryAdapter) FindParty(ctx context.Context, userID uuid.UUID) (*entity.Party, error) {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить пользователя")
	}

	party := &entity.Party{ID: user.ID, Name: user.DisplayName}
	if user.IsNGO() && user.OrganizationName != nil && *user.OrganizationName != "" {
		party.Name = *user.OrganizationName
	}
	if user.Phone != nil {
		party.Phone = *user.Phone
	}
	return party, nil
}
