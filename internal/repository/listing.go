package repository

import (
	"context"
	"strings"

	"bazar/internal/cache"
	"bazar/internal/models"
	"bazar/internal/observability"

	"gorm.io/gorm"
)

// ListingRepository defines persistence operations for listings and their images.
type ListingRepository interface {
	// Search returns up to limit active listings matching f, skipping offset, plus
	// the total number of matches. limit <= 0 only counts.
	Search(ctx context.Context, f models.ListingFilter, limit, offset int) ([]models.Listing, int64, error)
	Latest(ctx context.Context, limit int) ([]models.Listing, error)
	GetByID(ctx context.Context, id uint) (*models.Listing, error)
	Similar(ctx context.Context, listing *models.Listing, limit int) ([]models.Listing, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Listing, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	TitlesByIDs(ctx context.Context, ids []uint) (map[uint]string, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Create(ctx context.Context, listing *models.Listing) error
	Update(ctx context.Context, listing *models.Listing, newImages []models.Image) error
	// Delete removes the listing and its image rows, returning the removed images.
	Delete(ctx context.Context, id uint) ([]models.Image, error)
}

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository returns a new ListingRepository implementation.
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func preloadImages(db *gorm.DB) *gorm.DB {
	return db.Order("images.id ASC")
}

func withAssociations(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Preload("Category").Preload("Images", preloadImages)
}

func (r *listingRepository) Search(ctx context.Context, f models.ListingFilter, limit, offset int) ([]models.Listing, int64, error) {
	defer observability.TrackQuery("search", "listings")()

	q := readDB(r.db).WithContext(ctx).Model(&models.Listing{}).
		Where("listings.status = ?", models.ListingStatusActive)

	if text := strings.TrimSpace(f.Query); text != "" {
		pattern := "%" + escapeLike(text) + "%"
		q = q.Where("("+foldedLike("listings.title")+" OR "+foldedLike("listings.description")+")", pattern, pattern)
	}
	if f.CategoryID != nil {
		q = q.Where("listings.category_id = ?", *f.CategoryID)
	}
	if f.MinPrice != nil {
		q = q.Where("listings.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("listings.price <= ?", *f.MaxPrice)
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		q = q.Where(foldedLike("listings.location"), "%"+escapeLike(loc)+"%")
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	items := []models.Listing{}
	if limit <= 0 || total == 0 || int64(offset) >= total {
		return items, total, nil
	}

	if err := withAssociations(q.Session(&gorm.Session{})).
		Order("listings.created_at DESC, listings.id DESC").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return items, total, nil
}

func (r *listingRepository) Latest(ctx context.Context, limit int) ([]models.Listing, error) {
	defer observability.TrackQuery("latest", "listings")()

	items := []models.Listing{}
	if err := withAssociations(readDB(r.db).WithContext(ctx)).
		Where("status = ?", models.ListingStatusActive).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

// GetByID loads a listing with owner, category and images, cached per listing.
func (r *listingRepository) GetByID(ctx context.Context, id uint) (*models.Listing, error) {
	var listing models.Listing
	err := cache.Aside(ctx, cache.ListingKey(id), &listing, cache.ListingTTL, func() error {
		if err := withAssociations(readDB(r.db).WithContext(ctx)).First(&listing, id).Error; err != nil {
			return notFoundOr(err, "Listing", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) Similar(ctx context.Context, listing *models.Listing, limit int) ([]models.Listing, error) {
	items := []models.Listing{}
	if err := readDB(r.db).WithContext(ctx).
		Preload("Images", preloadImages).
		Where("category_id = ? AND status = ? AND id <> ?", listing.CategoryID, models.ListingStatusActive, listing.ID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

// ListByUser returns every listing owned by userID regardless of status, newest first.
func (r *listingRepository) ListByUser(ctx context.Context, userID uint) ([]models.Listing, error) {
	items := []models.Listing{}
	if err := readDB(r.db).WithContext(ctx).
		Preload("Category").Preload("Images", preloadImages).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

func (r *listingRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Listing{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *listingRepository) TitlesByIDs(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID    uint
		Title string
	}
	if err := readDB(r.db).WithContext(ctx).Model(&models.Listing{}).
		Select("id", "title").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.ID] = row.Title
	}
	return out, nil
}

func (r *listingRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Create inserts the listing and listing.Images in one transaction.
func (r *listingRepository) Create(ctx context.Context, listing *models.Listing) error {
	images := listing.Images
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User", "Category", "Images").Create(listing).Error; err != nil {
			return err
		}
		for i := range images {
			images[i].ListingID = listing.ID
		}
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	listing.Images = images
	cache.Invalidate(ctx, cache.LatestListingsKey)
	return nil
}

// Update saves the editable fields and appends newImages in one transaction.
func (r *listingRepository) Update(ctx context.Context, listing *models.Listing, newImages []models.Image) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Listing{}).Where("id = ?", listing.ID).Updates(map[string]interface{}{
			"title":       listing.Title,
			"description": listing.Description,
			"price":       listing.Price,
			"location":    listing.Location,
			"category_id": listing.CategoryID,
			"status":      listing.Status,
		})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Listing", listing.ID)
		}
		for i := range newImages {
			newImages[i].ListingID = listing.ID
		}
		if len(newImages) > 0 {
			if err := tx.Create(&newImages).Error; err != nil {
				return models.NewInternalError(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	listing.Images = append(listing.Images, newImages...)
	cache.InvalidateListing(ctx, listing.ID)
	return nil
}

func (r *listingRepository) Delete(ctx context.Context, id uint) ([]models.Image, error) {
	var images []models.Image
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", id).Find(&images).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("listing_id = ?", id).Delete(&models.Image{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		res := tx.Delete(&models.Listing{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Listing", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateListing(ctx, id)
	return images, nil
}
