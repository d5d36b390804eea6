package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"bazar/internal/featureflags"
	"bazar/internal/middleware"
	"bazar/internal/models"
	"bazar/internal/observability"
	"bazar/internal/repository"
	"bazar/internal/storage"
)

// Upload is one file received from a listing form.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService stores listing images and resolves their public URLs.
type ImageService struct {
	store              storage.ObjectStore
	repo               repository.ImageRepository
	flags              *featureflags.Manager
	maxUploadSizeBytes int64
	now                func() time.Time
}

// NewImageService creates an ImageService. maxUploadSizeMB <= 0 means 5MB.
func NewImageService(store storage.ObjectStore, repo repository.ImageRepository, flags *featureflags.Manager, maxUploadSizeMB int) *ImageService {
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = 5
	}
	return &ImageService{
		store:              store,
		repo:               repo,
		flags:              flags,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		now:                time.Now,
	}
}

// Validate checks every upload before anything is written.
func (s *ImageService) Validate(uploads []Upload) ([]string, error) {
	mimes := make([]string, len(uploads))
	for i, up := range uploads {
		if len(up.Content) == 0 {
			return nil, models.NewValidationError("Súbor " + up.Filename + " je prázdny.").WithField("images")
		}
		if int64(len(up.Content)) > s.maxUploadSizeBytes {
			return nil, models.NewValidationError(
				fmt.Sprintf("Súbor %s je príliš veľký (max %dMB).", up.Filename, s.maxUploadSizeBytes/(1024*1024)),
			).WithField("images")
		}
		mime, err := storage.DetectImageType(up.Filename, up.Content)
		if err != nil {
			return nil, models.NewValidationError("Len obrázky sú povolené (jpg, jpeg, png, gif)!").WithField("images")
		}
		mimes[i] = mime
	}
	return mimes, nil
}

// StoreAll validates and writes uploads, returning unsaved Image rows.
// When a write fails, files already written are removed.
func (s *ImageService) StoreAll(ctx context.Context, uploads []Upload) ([]models.Image, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	mimes, err := s.Validate(uploads)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "ImageService", "StoreAll")
	defer func() { observability.EndSpan(span, err) }()

	ts := s.now()
	images := make([]models.Image, 0, len(uploads))
	for i, up := range uploads {
		name := storage.StoredFilename(ts.Add(time.Duration(i)*time.Microsecond), up.Filename)
		if err = s.store.Put(ctx, name, bytes.NewReader(up.Content), int64(len(up.Content)), mimes[i]); err != nil {
			observability.ImagesStored.WithLabelValues(s.store.Backend(), "error").Inc()
			s.RemoveFiles(ctx, images)
			return nil, models.NewInternalError(err)
		}
		observability.ImagesStored.WithLabelValues(s.store.Backend(), "ok").Inc()
		images = append(images, models.Image{Filename: name})

		if s.flags.Enabled(featureflags.ImageThumbnails, 0) {
			s.storeThumbnail(ctx, name, up.Content)
		}
	}
	return images, nil
}

func (s *ImageService) storeThumbnail(ctx context.Context, name string, content []byte) {
	thumb, err := storage.Thumbnail(content)
	if err == nil {
		err = s.store.Put(ctx, storage.ThumbnailPrefix+name, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg")
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "thumbnail generation failed",
			slog.String("filename", name), slog.String("error", err.Error()))
	}
}

// RemoveFiles deletes stored files for images, logging failures.
func (s *ImageService) RemoveFiles(ctx context.Context, images []models.Image) {
	for _, img := range images {
		for _, key := range []string{img.Filename, storage.ThumbnailPrefix + img.Filename} {
			if err := s.store.Delete(ctx, key); err != nil {
				middleware.Logger.WarnContext(ctx, "failed to remove stored image",
					slog.String("filename", key), slog.String("error", err.Error()))
			}
		}
	}
}

// URLFor returns the browser-facing URL of a stored file, or "" when it cannot be resolved.
func (s *ImageService) URLFor(ctx context.Context, filename string) string {
	u, err := s.store.URL(ctx, filename)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to resolve image url",
			slog.String("filename", filename), slog.String("error", err.Error()))
		return ""
	}
	return u
}

// CoverURL returns the URL of the listing's cover image, or nil when it has none.
func (s *ImageService) CoverURL(ctx context.Context, l *models.Listing) *string {
	cover := l.CoverImage()
	if cover == nil {
		return nil
	}
	u := s.URLFor(ctx, cover.Filename)
	if u == "" {
		return nil
	}
	return &u
}

// Decorate fills Image.URL on every image of every listing.
func (s *ImageService) Decorate(ctx context.Context, listings ...*models.Listing) {
	for _, l := range listings {
		for i := range l.Images {
			l.Images[i].URL = s.URLFor(ctx, l.Images[i].Filename)
		}
	}
}

// DecorateAll is Decorate for a slice of values.
func (s *ImageService) DecorateAll(ctx context.Context, listings []models.Listing) {
	for i := range listings {
		s.Decorate(ctx, &listings[i])
	}
}

// DeleteFromListing removes one image of listingID. The image must belong to the listing.
func (s *ImageService) DeleteFromListing(ctx context.Context, listingID, imageID uint) error {
	images, err := s.repo.ListByListing(ctx, listingID)
	if err != nil {
		return err
	}
	for i := range images {
		if images[i].ID != imageID {
			continue
		}
		if err := s.repo.Delete(ctx, &images[i]); err != nil {
			return err
		}
		s.RemoveFiles(ctx, images[i:i+1])
		return nil
	}
	return models.NewNotFoundError("Image", imageID)
}

