package storage

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bazar/internal/config"
	"bazar/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_PutURLDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "/static/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.png", bytes.NewReader([]byte("data")), 4, "image/png"))
	got, err := os.ReadFile(filepath.Join(dir, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	u, err := store.URL(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, "/static/uploads/a.png", u)

	require.NoError(t, store.Delete(ctx, "a.png"))
	_, err = os.Stat(filepath.Join(dir, "a.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, "a.png"), "deleting a missing object is not an error")
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "/static/uploads")
	require.NoError(t, err)

	for _, key := range []string{"../evil.png", "sub/x.png", "", ".."} {
		err := store.Put(context.Background(), key, bytes.NewReader(nil), 0, "")
		assert.Error(t, err, key)
	}
}

func TestNewFromConfig(t *testing.T) {
	store, err := NewFromConfig(&config.Config{StorageDriver: config.StorageLocal, UploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, store.Backend())

	_, err = NewFromConfig(&config.Config{StorageDriver: "ftp"})
	assert.Error(t, err)
}

func TestDetectImageType(t *testing.T) {
	png := testutil.TinyPNG(t, 2, 2)
	jpg := testutil.TinyJPEG(t, 2, 2)
	gif := testutil.TinyGIF(t, 2, 2)

	mime, err := DetectImageType("photo.PNG", png)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	mime, err = DetectImageType("photo.jpeg", jpg)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	mime, err = DetectImageType("anim.gif", gif)
	require.NoError(t, err)
	assert.Equal(t, "image/gif", mime)

	_, err = DetectImageType("photo.webp", png)
	assert.ErrorIs(t, err, ErrExtensionNotAllowed)

	_, err = DetectImageType("script.jpg", []byte("#!/bin/sh\necho hi"))
	assert.ErrorIs(t, err, ErrContentNotImage)
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"My cool photo.jpg":    "My_cool_photo.jpg",
		"../../etc/passwd":     "etc_passwd",
		"auto škoda.png":       "auto_koda.png",
		"..hidden.gif":         "hidden.gif",
		`C:\Users\me\pic.jpeg`: "C_Users_me_pic.jpeg",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestStoredFilename(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 123456000, time.UTC)
	assert.Equal(t, "20240309140507123456_bike.jpg", StoredFilename(ts, "bike.jpg"))
	assert.Equal(t, "20240309140507123456_image.png", StoredFilename(ts, "čšž.PNG"))
}

func TestThumbnail_BoundsLongestSide(t *testing.T) {
	thumb, err := Thumbnail(testutil.TinyPNG(t, 800, 200))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, ThumbnailMaxSize, cfg.Width)
	assert.Equal(t, 100, cfg.Height)
}

func TestThumbnail_SmallImageKeepsSize(t *testing.T) {
	thumb, err := Thumbnail(testutil.TinyGIF(t, 30, 40))
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, 40, cfg.Height)
}

func TestThumbnail_InvalidContent(t *testing.T) {
	_, err := Thumbnail([]byte("nope"))
	assert.Error(t, err)
}
