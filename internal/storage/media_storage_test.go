package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader минимальная сигнатура PNG с IHDR.
var pngHeader = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
}

func TestMediaStorage_SaveDetectsType(t *testing.T) {
	s, err := NewMediaStorage(t.TempDir(), 1)
	require.NoError(t, err)
	user := uuid.New()

	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x01}, 2048)...)
	stored, err := s.Save(context.Background(), user, bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "image/png", stored.MIME)
	assert.Equal(t, int64(len(payload)), stored.Size)
	assert.Equal(t, ".png", filepath.Ext(stored.RelativePath))

	onDisk, err := os.ReadFile(filepath.Join(s.Root(), filepath.FromSlash(stored.RelativePath)))
	require.NoError(t, err)
	assert.Equal(t, payload, onDisk)

	require.NoError(t, s.Delete(context.Background(), stored.RelativePath))
	_, err = os.Stat(filepath.Join(s.Root(), filepath.FromSlash(stored.RelativePath)))
	assert.True(t, os.IsNotExist(err))
}

func TestMediaStorage_Rejects(t *testing.T) {
	s, err := NewMediaStorage(t.TempDir(), 1)
	require.NoError(t, err)
	user := uuid.New()
	ctx := context.Background()

	_, err = s.Save(ctx, user, bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = s.Save(ctx, user, bytes.NewReader([]byte("<svg xmlns='http://www.w3.org/2000/svg'></svg>")))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	big := append(append([]byte{}, pngHeader...), make([]byte, 1024*1024)...)
	_, err = s.Save(ctx, user, bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	entries, err := os.ReadDir(filepath.Join(s.Root(), user.String()))
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Error(t, s.Delete(ctx, "../outside.png"))
}
