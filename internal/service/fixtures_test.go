package service

import (
	"testing"

	"bazar/internal/featureflags"
	"bazar/internal/models"
	"bazar/internal/repository"
	"bazar/internal/testutil"

	"gorm.io/gorm"
)

// testFixtures wires the services against an in-memory database.
type testFixtures struct {
	db       *gorm.DB
	store    *testutil.MemoryStore
	seller   *models.User
	buyer    *models.User
	category *models.Category

	images    *ImageService
	listings  *ListingService
	favorites *FavoriteService
}

func newTestFixtures(t *testing.T, flags ...string) *testFixtures {
	t.Helper()
	raw := ""
	if len(flags) > 0 {
		raw = flags[0]
	}
	db := testutil.NewSQLiteDB(t)
	store := testutil.NewMemoryStore()
	ff := featureflags.NewManager(raw)

	listingRepo := repository.NewListingRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	images := NewImageService(store, repository.NewImageRepository(db), ff, 1)

	return &testFixtures{
		db:        db,
		store:     store,
		seller:    testutil.CreateUser(t, db, "predajca"),
		buyer:     testutil.CreateUser(t, db, "kupec"),
		category:  testutil.CreateCategory(t, db, "Elektronika"),
		images:    images,
		listings:  NewListingService(listingRepo, repository.NewCategoryRepository(db), favoriteRepo, images, ff),
		favorites: NewFavoriteService(favoriteRepo, listingRepo, images),
	}
}

func floatPtr(v float64) *float64 { return &v }
