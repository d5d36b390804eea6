package service

import (
	"context"

	"bazar/internal/models"
	"bazar/internal/observability"
	"bazar/internal/repository"
)

// FavoriteService toggles and lists a user's favorite listings.
type FavoriteService struct {
	favorites repository.FavoriteRepository
	listings  repository.ListingRepository
	images    *ImageService
}

func NewFavoriteService(favorites repository.FavoriteRepository, listings repository.ListingRepository, images *ImageService) *FavoriteService {
	return &FavoriteService{favorites: favorites, listings: listings, images: images}
}

// Toggle flips the favorite state and returns the new one.
func (s *FavoriteService) Toggle(ctx context.Context, userID, listingID uint) (favorited bool, err error) {
	ctx, span := observability.StartSpan(ctx, "FavoriteService", "Toggle")
	defer func() { observability.EndSpan(span, err) }()

	ok, err := s.listings.Exists(ctx, listingID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, models.NewNotFoundError("Listing", listingID)
	}

	favorited, err = s.favorites.Toggle(ctx, userID, listingID)
	if err != nil {
		return false, err
	}
	outcome := "removed"
	if favorited {
		outcome = "added"
	}
	observability.FavoritesToggled.WithLabelValues(outcome).Inc()
	return favorited, nil
}

// Check reports whether userID has favorited listingID.
func (s *FavoriteService) Check(ctx context.Context, userID, listingID uint) (bool, error) {
	return s.favorites.Exists(ctx, userID, listingID)
}

// FavoriteItem is a row of the dashboard's favorites table.
type FavoriteItem struct {
	ID           uint    `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Location     string  `json:"location"`
	Status       string  `json:"status"`
	Author       string  `json:"author"`
	CategoryName string  `json:"category_name"`
	ImageURL     *string `json:"image_url"`
	FavoritedAt  string  `json:"favorited_at"`
}

// MyFavorites lists the caller's favorites whose listing still exists, newest favorite first.
func (s *FavoriteService) MyFavorites(ctx context.Context, userID uint) ([]FavoriteItem, error) {
	favs, err := s.favorites.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]FavoriteItem, 0, len(favs))
	for i := range favs {
		l := &favs[i].Listing
		out = append(out, FavoriteItem{
			ID:           l.ID,
			Title:        l.Title,
			Description:  l.Description,
			Price:        l.Price,
			Location:     l.Location,
			Status:       l.Status,
			Author:       l.AuthorName(),
			CategoryName: l.CategoryName(),
			ImageURL:     s.images.CoverURL(ctx, l),
			FavoritedAt:  formatDate(favs[i].FavoritedAt, models.DisplayDateFormat),
		})
	}
	return out, nil
}

// CountByUser is the number of live favorites of userID.
func (s *FavoriteService) CountByUser(ctx context.Context, userID uint) (int64, error) {
	return s.favorites.CountByUser(ctx, userID)
}
