// Package service holds the marketplace business logic between HTTP handlers and repositories.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"bazar/internal/cache"
	"bazar/internal/featureflags"
	"bazar/internal/middleware"
	"bazar/internal/models"
	"bazar/internal/observability"
	"bazar/internal/repository"
	"bazar/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	// HomeListingCount is the number of newest listings on the home page.
	HomeListingCount = 6
	// SimilarListingCount bounds the suggestions on a detail page.
	SimilarListingCount = 4

	// maxSearchPage keeps the offset within int32; later pages are always empty.
	maxSearchPage = math.MaxInt32 / models.ListingPageSize
)

// ListingService implements listing search, reads and owner-only writes.
type ListingService struct {
	listings   repository.ListingRepository
	categories repository.CategoryRepository
	favorites  repository.FavoriteRepository
	images     *ImageService
	flags      *featureflags.Manager
}

// NewListingService creates a ListingService.
func NewListingService(
	listings repository.ListingRepository,
	categories repository.CategoryRepository,
	favorites repository.FavoriteRepository,
	images *ImageService,
	flags *featureflags.Manager,
) *ListingService {
	return &ListingService{listings: listings, categories: categories, favorites: favorites, images: images, flags: flags}
}

// SearchInput is a parsed /listings query.
type SearchInput struct {
	Filter models.ListingFilter
	Page   int
}

// SearchResult is one results page plus everything the search form needs.
type SearchResult struct {
	models.ListingPage
	Categories []models.Category `json:"categories"`
}

// Search returns one page of active listings matching in.Filter, newest first.
// Pages outside 1..TotalPages are empty; the total is always reported.
func (s *ListingService) Search(ctx context.Context, in SearchInput) (_ *SearchResult, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "ListingService", "Search",
		attribute.Int("page", in.Page), attribute.String("query", in.Filter.Query))
	defer func() {
		observability.ObserveSearch(start)
		observability.EndSpan(span, err)
	}()

	limit, offset := 0, 0
	if in.Page >= 1 && in.Page <= maxSearchPage {
		limit = models.ListingPageSize
		offset = (in.Page - 1) * models.ListingPageSize
	}

	items, total, err := s.listings.Search(ctx, in.Filter, limit, offset)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	s.images.DecorateAll(ctx, items)

	totalPages := int((total + models.ListingPageSize - 1) / models.ListingPageSize)
	return &SearchResult{
		ListingPage: models.ListingPage{
			Items:      items,
			Total:      total,
			Page:       in.Page,
			PerPage:    models.ListingPageSize,
			TotalPages: totalPages,
			HasPrev:    in.Page > 1,
			HasNext:    in.Page >= 1 && in.Page < totalPages,
		},
		Categories: categories,
	}, nil
}

// HomeResult is the landing page payload.
type HomeResult struct {
	Latest     []models.Listing  `json:"latest_listings"`
	Categories []models.Category `json:"categories"`
}

// Home loads the newest listings and the categories concurrently.
func (s *ListingService) Home(ctx context.Context) (*HomeResult, error) {
	var out HomeResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cache.Aside(gctx, cache.LatestListingsKey, &out.Latest, cache.LatestListingsTTL, func() error {
			latest, err := s.listings.Latest(gctx, HomeListingCount)
			out.Latest = latest
			return err
		})
	})
	g.Go(func() error {
		categories, err := s.categories.List(gctx)
		out.Categories = categories
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if out.Latest == nil {
		out.Latest = []models.Listing{}
	}
	s.images.DecorateAll(ctx, out.Latest)
	return &out, nil
}

// ListingDetail is a listing with suggestions and the viewer's favorite state.
type ListingDetail struct {
	Listing    *models.Listing  `json:"listing"`
	Similar    []models.Listing `json:"similar_listings"`
	IsFavorite bool             `json:"is_favorite"`
}

// Detail loads one listing. viewerID 0 means an anonymous viewer.
func (s *ListingService) Detail(ctx context.Context, id, viewerID uint) (*ListingDetail, error) {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &ListingDetail{Listing: listing, Similar: []models.Listing{}}

	if s.flags.Enabled(featureflags.SimilarListings, viewerID) {
		similar, err := s.listings.Similar(ctx, listing, SimilarListingCount)
		if err != nil {
			return nil, err
		}
		out.Similar = similar
	}
	if viewerID != 0 {
		fav, err := s.favorites.Exists(ctx, viewerID, id)
		if err != nil {
			return nil, err
		}
		out.IsFavorite = fav
	}

	s.images.Decorate(ctx, listing)
	s.images.DecorateAll(ctx, out.Similar)
	return out, nil
}

// GetOwned loads a listing for editing; only its owner may.
func (s *ListingService) GetOwned(ctx context.Context, userID, id uint) (*models.Listing, error) {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.UserID != userID {
		return nil, models.NewForbiddenError("Nemáte oprávnenie upravovať tento inzerát.")
	}
	s.images.Decorate(ctx, listing)
	return listing, nil
}

// Categories lists every category.
func (s *ListingService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

// CreateListingInput is a submitted new-listing form.
type CreateListingInput struct {
	UserID  uint
	Fields  validation.ListingFields
	Uploads []Upload
}

func (s *ListingService) validateFields(ctx context.Context, f validation.ListingFields) error {
	if err := validation.ValidateListing(f); err != nil {
		return fieldValidationError(err)
	}
	if _, err := s.categories.GetByID(ctx, f.CategoryID); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return models.NewValidationError("Neplatná kategória.").WithField("category_id")
		}
		return err
	}
	return nil
}

// Create stores the uploads, then inserts the listing and its images in one transaction.
// Stored files are removed again when the insert fails.
func (s *ListingService) Create(ctx context.Context, in CreateListingInput) (*models.Listing, error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Prihláste sa, prosím.")
	}
	if err := s.validateFields(ctx, in.Fields); err != nil {
		return nil, err
	}

	images, err := s.images.StoreAll(ctx, in.Uploads)
	if err != nil {
		return nil, err
	}

	listing := &models.Listing{
		Title:       trimmed(in.Fields.Title),
		Description: trimmed(in.Fields.Description),
		Price:       *in.Fields.Price,
		Location:    trimmed(in.Fields.Location),
		UserID:      in.UserID,
		CategoryID:  in.Fields.CategoryID,
		Status:      models.ListingStatusActive,
		Images:      images,
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		s.images.RemoveFiles(ctx, images)
		middleware.Logger.ErrorContext(ctx, "listing create failed", slog.String("error", err.Error()))
		return nil, err
	}

	observability.ListingsWritten.WithLabelValues("create").Inc()
	s.images.Decorate(ctx, listing)
	return listing, nil
}

// UpdateListingInput is a submitted edit form. An empty Status keeps the current one.
type UpdateListingInput struct {
	UserID    uint
	ListingID uint
	Fields    validation.ListingFields
	Status    string
	Uploads   []Upload
}

// Update applies an owner's edit and appends new images in one transaction.
func (s *ListingService) Update(ctx context.Context, in UpdateListingInput) (*models.Listing, error) {
	listing, err := s.GetOwned(ctx, in.UserID, in.ListingID)
	if err != nil {
		return nil, err
	}
	if err := s.validateFields(ctx, in.Fields); err != nil {
		return nil, err
	}
	status := listing.Status
	if in.Status != "" {
		if !models.IsValidListingStatus(in.Status) {
			return nil, models.NewValidationError("Neplatný stav inzerátu.").WithField("status")
		}
		status = in.Status
	}

	images, err := s.images.StoreAll(ctx, in.Uploads)
	if err != nil {
		return nil, err
	}

	listing.Title = trimmed(in.Fields.Title)
	listing.Description = trimmed(in.Fields.Description)
	listing.Price = *in.Fields.Price
	listing.Location = trimmed(in.Fields.Location)
	listing.CategoryID = in.Fields.CategoryID
	listing.Category = nil
	listing.Status = status

	if err := s.listings.Update(ctx, listing, images); err != nil {
		s.images.RemoveFiles(ctx, images)
		return nil, err
	}

	observability.ListingsWritten.WithLabelValues("update").Inc()
	s.images.Decorate(ctx, listing)
	return listing, nil
}

// Delete removes an owner's listing with its images. Messages and favorites
// that reference it are left in place.
func (s *ListingService) Delete(ctx context.Context, userID, listingID uint) error {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.UserID != userID {
		return models.NewForbiddenError("Nemáte oprávnenie vymazať tento inzerát.")
	}

	removed, err := s.listings.Delete(ctx, listingID)
	if err != nil {
		return err
	}
	s.images.RemoveFiles(ctx, removed)
	observability.ListingsWritten.WithLabelValues("delete").Inc()
	return nil
}

// DeleteImage removes one image from an owner's listing.
func (s *ListingService) DeleteImage(ctx context.Context, userID, listingID, imageID uint) error {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.UserID != userID {
		return models.NewForbiddenError("Nemáte oprávnenie upravovať tento inzerát.")
	}
	return s.images.DeleteFromListing(ctx, listingID, imageID)
}

// MyListingItem is a row of the dashboard's "my listings" table.
type MyListingItem struct {
	ID           uint    `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Location     string  `json:"location"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
	CategoryName string  `json:"category_name"`
	ImageURL     *string `json:"image_url"`
}

// MyListings returns every listing owned by userID, newest first.
func (s *ListingService) MyListings(ctx context.Context, userID uint) ([]MyListingItem, error) {
	listings, err := s.listings.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]MyListingItem, 0, len(listings))
	for i := range listings {
		l := &listings[i]
		out = append(out, MyListingItem{
			ID:           l.ID,
			Title:        l.Title,
			Description:  l.Description,
			Price:        l.Price,
			Location:     l.Location,
			Status:       l.Status,
			CreatedAt:    formatDate(l.CreatedAt, models.DisplayDateFormat),
			CategoryName: l.CategoryName(),
			ImageURL:     s.images.CoverURL(ctx, l),
		})
	}
	return out, nil
}

// CountByUser is the number of listings userID owns.
func (s *ListingService) CountByUser(ctx context.Context, userID uint) (int64, error) {
	return s.listings.CountByUser(ctx, userID)
}
