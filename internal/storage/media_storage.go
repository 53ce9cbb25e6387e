package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// Размер заголовка, которого filetype хватает для распознавания изображений.
const sniffLen = 512

var (
	ErrEmptyFile       = errors.New("storage: файл пустой")
	ErrFileTooLarge    = errors.New("storage: размер файла превышает лимит")
	ErrUnsupportedType = errors.New("storage: неподдерживаемый тип файла")
)

// Разрешены только растровые изображения, определённые по магическим байтам.
var allowedMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// StoredFile результат сохранения.
type StoredFile struct {
	RelativePath string
	MIME         string
	Size         int64
}

// MediaStorage файловое хранилище изображений пожертвований, аватаров и документов.
type MediaStorage struct {
	rootPath       string
	maxUploadBytes int64
}

func NewMediaStorage(rootPath string, maxUploadMB int64) (*MediaStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &MediaStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

func (s *MediaStorage) Root() string {
	return s.rootPath
}

func (s *MediaStorage) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Save определяет тип по содержимому и сохраняет файл в каталог пользователя.
// Имя файла генерируется, исходное имя клиента не используется.
func (s *MediaStorage) Save(ctx context.Context, userID uuid.UUID, r io.Reader) (*StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("storage: чтение файла %w", err)
	}
	if n == 0 {
		return nil, ErrEmptyFile
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return nil, ErrUnsupportedType
	}
	if _, ok := allowedMimeTypes[kind.MIME.Value]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, kind.MIME.Value)
	}

	userDir := filepath.Join(s.rootPath, userID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог пользователя: %w", err)
	}

	fileName := uuid.NewString() + "." + kind.Extension
	targetPath := filepath.Join(userDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limited := io.LimitedReader{R: io.MultiReader(bytes.NewReader(head), r), N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limited)
	if err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return nil, ErrFileTooLarge
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return nil, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return &StoredFile{
		RelativePath: filepath.ToSlash(filepath.Join(userID.String(), fileName)),
		MIME:         kind.MIME.Value,
		Size:         written,
	}, nil
}

// Delete удаляет файл. Путь вне корня хранилища отклоняется.
func (s *MediaStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.rootPath, filepath.FromSlash(relativePath))
	rel, err := filepath.Rel(s.rootPath, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("storage: недопустимый путь %q", relativePath)
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}
