package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	"github.com/ignatzorin/feedreach-backend/internal/validation"
)

// ProfileRepository чтение и обновление профиля.
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
}

// UpdateProfileInput частичное обновление. nil поле не меняется, пустая строка очищает его.
type UpdateProfileInput struct {
	DisplayName      *string `json:"display_name"`
	Phone            *string `json:"phone"`
	Address          *string `json:"address"`
	OrganizationName *string `json:"organization_name"`
	PhotoURL         *string `json:"photo_url"`
	Bio              *string `json:"bio"`
}

type ProfileService struct {
	repo ProfileRepository
}

func NewProfileService(repo ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

func (s *ProfileService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	return user, nil
}

// Public профиль для других пользователей со статистикой и средней оценкой.
func (s *ProfileService) Public(ctx context.Context, userID uuid.UUID) (*models.PublicProfile, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	profile := user.ToPublic()
	return &profile, nil
}

func (s *ProfileService) UpdateMe(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapUserErr(err)
	}

	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if err := validation.ValidateDisplayName(name); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
		user.DisplayName = name
	}
	if input.Phone != nil {
		user.Phone = trimmedOrNil(input.Phone)
		if err := validation.ValidatePhone(user.Phone); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if input.Address != nil {
		user.Address = trimmedOrNil(input.Address)
		if err := validation.ValidateOptional("адрес", user.Address, validation.MaxAddressLength); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if input.OrganizationName != nil {
		user.OrganizationName = trimmedOrNil(input.OrganizationName)
		if user.IsNGO() && user.OrganizationName == nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "название организации обязательно для НКО")
		}
		if err := validation.ValidateOptional("название организации", user.OrganizationName, validation.MaxOrganizationLength); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if input.PhotoURL != nil {
		user.PhotoURL = trimmedOrNil(input.PhotoURL)
		if err := validation.ValidateAppLink(user.PhotoURL); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if input.Bio != nil {
		user.Bio = trimmedOrNil(input.Bio)
		if err := validation.ValidateOptional("о себе", user.Bio, validation.MaxBioLength); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, wrapUserErr(err)
	}
	return user, nil
}
