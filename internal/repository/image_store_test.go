package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugAndExt(t *testing.T) {
	assert.Equal(t, "ay_e_y_lmaz", Slug("Ayşe Yılmaz"))
	assert.Equal(t, "contact", Slug("   "))
	assert.Equal(t, ".png", NormalizeExt("PNG"))
	assert.Equal(t, ".webp", NormalizeExt(".webp"))
	assert.Equal(t, ".jpg", NormalizeExt("../../etc"))
	assert.Equal(t, ".jpg", NormalizeExt(""))
}

func TestImageStoreSaveAndRemove(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileImageStore(t.TempDir(), 1024)
	require.NoError(t, err)
	store.now = func() time.Time { return time.UnixMilli(42) }

	url, err := store.Save(ctx, "Ali Veli", ".png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/contact_images/ali_veli_42.png", url)

	data, err := os.ReadFile(filepath.Join(store.Dir(), "ali_veli_42.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Remove(ctx, url))
	_, err = os.Stat(filepath.Join(store.Dir(), "ali_veli_42.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Remove(ctx, url), "already gone")
	assert.NoError(t, store.Remove(ctx, "data:image/png;base64,AAAA"))
	assert.ErrorIs(t, store.Remove(ctx, "/contact_images/../db.json"), ErrInvalidImagePath)
}

func TestImageStoreSameMillisecondGetsDistinctNames(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileImageStore(t.TempDir(), 1024)
	require.NoError(t, err)
	store.now = func() time.Time { return time.UnixMilli(42) }

	first, err := store.Save(ctx, "Ali", ".png", strings.NewReader("one"))
	require.NoError(t, err)
	second, err := store.Save(ctx, "Ali", ".png", strings.NewReader("two"))
	require.NoError(t, err)

	assert.Equal(t, "/contact_images/ali_42.png", first)
	assert.NotEqual(t, first, second)
	assert.Regexp(t, `^/contact_images/ali_42_[0-9a-f]{8}\.png$`, second)

	data, err := os.ReadFile(filepath.Join(store.Dir(), strings.TrimPrefix(second, ImagesURLPrefix)))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
	require.NoError(t, store.Remove(ctx, second))
}

func TestImageStoreRejectsOversized(t *testing.T) {
	store, err := NewFileImageStore(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "x", ".jpg", strings.NewReader("too many bytes"))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
