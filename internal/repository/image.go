package repository

import (
	"context"

	"bazar/internal/cache"
	"bazar/internal/models"

	"gorm.io/gorm"
)

// ImageRepository defines persistence operations for listing images.
type ImageRepository interface {
	ListByListing(ctx context.Context, listingID uint) ([]models.Image, error)
	Delete(ctx context.Context, image *models.Image) error
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository returns a new ImageRepository implementation.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) ListByListing(ctx context.Context, listingID uint) ([]models.Image, error) {
	images := []models.Image{}
	if err := readDB(r.db).WithContext(ctx).Where("listing_id = ?", listingID).Order("id ASC").Find(&images).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return images, nil
}

func (r *imageRepository) Delete(ctx context.Context, image *models.Image) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Image{}, image.ID)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Image", image.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateListing(ctx, image.ListingID)
	return nil
}
