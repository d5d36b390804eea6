package repository

import (
	"context"
	"errors"
	"time"

	"bazar/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteListing is a favorited listing plus when it was favorited.
type FavoriteListing struct {
	Listing     models.Listing
	FavoritedAt time.Time
}

// FavoriteRepository defines persistence operations for favorites.
type FavoriteRepository interface {
	// Toggle flips the favorite state of (userID, listingID) and reports the new state.
	Toggle(ctx context.Context, userID, listingID uint) (bool, error)
	Exists(ctx context.Context, userID, listingID uint) (bool, error)
	ListForUser(ctx context.Context, userID uint) ([]FavoriteListing, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository returns a new FavoriteRepository implementation.
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

// errFavoriteRace marks an insert that lost to a concurrent toggle.
var errFavoriteRace = errors.New("favorite inserted concurrently")

func (r *favoriteRepository) Toggle(ctx context.Context, userID, listingID uint) (bool, error) {
	favorited, err := r.toggleOnce(ctx, userID, listingID)
	if errors.Is(err, errFavoriteRace) || isUniqueConstraintError(err) {
		// The pair was inserted by a concurrent request; the toggle becomes a removal.
		if err := r.remove(ctx, userID, listingID); err != nil {
			return false, models.NewInternalError(err)
		}
		return false, nil
	}
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return favorited, nil
}

func (r *favoriteRepository) toggleOnce(ctx context.Context, userID, listingID uint) (bool, error) {
	favorited := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Favorite
		err := tx.Where("user_id = ? AND listing_id = ?", userID, listingID).Take(&existing).Error
		switch {
		case err == nil:
			return tx.Delete(&models.Favorite{}, existing.ID).Error
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Favorite{UserID: userID, ListingID: listingID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errFavoriteRace
		}
		favorited = true
		return nil
	})
	return favorited, err
}

func (r *favoriteRepository) remove(ctx context.Context, userID, listingID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("user_id = ? AND listing_id = ?", userID, listingID).Delete(&models.Favorite{}).Error
	})
}

func (r *favoriteRepository) Exists(ctx context.Context, userID, listingID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND listing_id = ?", userID, listingID).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// ListForUser returns favorites whose listing still exists, newest favorite first.
func (r *favoriteRepository) ListForUser(ctx context.Context, userID uint) ([]FavoriteListing, error) {
	var favs []models.Favorite
	db := readDB(r.db).WithContext(ctx)
	if err := db.
		Joins("JOIN listings ON listings.id = favorites.listing_id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at DESC, favorites.id DESC").
		Find(&favs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	out := make([]FavoriteListing, 0, len(favs))
	if len(favs) == 0 {
		return out, nil
	}

	ids := make([]uint, 0, len(favs))
	for _, f := range favs {
		ids = append(ids, f.ListingID)
	}
	var listings []models.Listing
	if err := withAssociations(db).Where("id IN ?", ids).Find(&listings).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	byID := make(map[uint]models.Listing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}

	for _, f := range favs {
		l, ok := byID[f.ListingID]
		if !ok {
			continue
		}
		out = append(out, FavoriteListing{Listing: l, FavoritedAt: f.CreatedAt})
	}
	return out, nil
}

func (r *favoriteRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Favorite{}).
		Joins("JOIN listings ON listings.id = favorites.listing_id").
		Where("favorites.user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
