package service

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	"github.com/ignatzorin/feedreach-backend/internal/repository"
	"github.com/ignatzorin/feedreach-backend/internal/storage"
)

// MediaPrefix путь, по которому раздаются загруженные файлы.
const MediaPrefix = "/media/"

type MediaRepository interface {
	Create(ctx context.Context, media *models.MediaFile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MediaFile, error)
	Delete(ctx context.Context, mediaID, userID uuid.UUID) error
}

type FileStore interface {
	Save(ctx context.Context, userID uuid.UUID, r io.Reader) (*storage.StoredFile, error)
	Delete(ctx context.Context, relativePath string) error
}

type MediaService struct {
	repo    MediaRepository
	files   FileStore
	baseURL string
}

func NewMediaService(repo MediaRepository, files FileStore, publicBaseURL string) *MediaService {
	return &MediaService{repo: repo, files: files, baseURL: publicBaseURL}
}

// Upload сохраняет изображение и регистрирует его. kind: avatar, donation или verification.
func (s *MediaService) Upload(ctx context.Context, userID uuid.UUID, kind string, r io.Reader) (*models.MediaFile, error) {
	if kind == "" {
		kind = models.MediaKindDonation
	}
	if _, ok := models.ValidMediaKinds[kind]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестное назначение файла")
	}

	stored, err := s.files.Save(ctx, userID, r)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmptyFile):
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "файл не может быть пустым")
		case errors.Is(err, storage.ErrFileTooLarge):
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "файл слишком большой")
		case errors.Is(err, storage.ErrUnsupportedType):
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "разрешены только изображения JPEG, PNG, GIF и WebP")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сохранить файл")
	}

	media := &models.MediaFile{
		UserID:   userID,
		Kind:     kind,
		FilePath: stored.RelativePath,
		FileType: stored.MIME,
		FileSize: stored.Size,
	}
	if err := s.repo.Create(ctx, media); err != nil {
		if delErr := s.files.Delete(ctx, stored.RelativePath); delErr != nil {
			logger.Component("media").WithField("error", delErr.Error()).Warn("не удалось удалить осиротевший файл")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить файл")
	}
	media.URL = s.URLFor(media.FilePath)
	return media, nil
}

// Delete удаляет файл владельца.
func (s *MediaService) Delete(ctx context.Context, mediaID, userID uuid.UUID) error {
	media, err := s.repo.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "файл не найден")
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить файл")
	}
	if media.UserID != userID {
		return apperror.New(apperror.ErrCodeForbidden, "у вас нет прав на удаление этого файла")
	}

	if err := s.repo.Delete(ctx, mediaID, userID); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "файл не найден")
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить файл")
	}
	if err := s.files.Delete(ctx, media.FilePath); err != nil {
		logger.Component("media").WithFields(map[string]interface{}{
			"media_id": mediaID,
			"error":    err.Error(),
		}).Warn("запись удалена, но файл остался на диске")
	}
	return nil
}

func (s *MediaService) URLFor(relativePath string) string {
	return s.baseURL + MediaPrefix + relativePath
}
