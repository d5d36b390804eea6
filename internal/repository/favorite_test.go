package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"bazar/internal/models"
	"bazar/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteRepository_ToggleTwiceRestoresState(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	user := testutil.CreateUser(t, db, "kupec")
	owner := testutil.CreateUser(t, db, "predajca")
	cat := testutil.CreateCategory(t, db, "Autá")
	listing := testutil.CreateListing(t, db, owner, cat, "Škoda Octavia")
	repo := NewFavoriteRepository(db)
	ctx := context.Background()

	on, err := repo.Toggle(ctx, user.ID, listing.ID)
	require.NoError(t, err)
	assert.True(t, on)

	exists, err := repo.Exists(ctx, user.ID, listing.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	off, err := repo.Toggle(ctx, user.ID, listing.ID)
	require.NoError(t, err)
	assert.False(t, off)

	exists, err = repo.Exists(ctx, user.ID, listing.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFavoriteRepository_ConcurrentTogglesNeverDuplicate(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	user := testutil.CreateUser(t, db, "kupec")
	cat := testutil.CreateCategory(t, db, "Autá")
	listing := testutil.CreateListing(t, db, user, cat, "Škoda Fabia")
	repo := NewFavoriteRepository(db)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Toggle(context.Background(), user.ID, listing.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var rows int64
	require.NoError(t, db.Model(&models.Favorite{}).Where("user_id = ? AND listing_id = ?", user.ID, listing.ID).Count(&rows).Error)
	assert.LessOrEqual(t, rows, int64(1))
}

func TestFavoriteRepository_UniqueIndexRejectsDuplicates(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	user := testutil.CreateUser(t, db, "kupec")
	cat := testutil.CreateCategory(t, db, "Autá")
	listing := testutil.CreateListing(t, db, user, cat, "Škoda Superb")

	require.NoError(t, db.Create(&models.Favorite{UserID: user.ID, ListingID: listing.ID}).Error)
	err := db.Create(&models.Favorite{UserID: user.ID, ListingID: listing.ID}).Error
	require.Error(t, err)
	assert.True(t, isUniqueConstraintError(err))
}

func TestFavoriteRepository_ListForUserSkipsDeletedListings(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	user := testutil.CreateUser(t, db, "kupec")
	owner := testutil.CreateUser(t, db, "predajca")
	cat := testutil.CreateCategory(t, db, "Šport")
	first := testutil.CreateListing(t, db, owner, cat, "Korčule")
	second := testutil.CreateListing(t, db, owner, cat, "Hokejka")
	gone := testutil.CreateListing(t, db, owner, cat, "Prilba")

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, l := range []*models.Listing{first, second, gone} {
		require.NoError(t, db.Create(&models.Favorite{UserID: user.ID, ListingID: l.ID, CreatedAt: base.Add(time.Duration(i) * time.Minute)}).Error)
	}
	_, err := NewListingRepository(db).Delete(context.Background(), gone.ID)
	require.NoError(t, err)

	repo := NewFavoriteRepository(db)
	favs, err := repo.ListForUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, "Hokejka", favs[0].Listing.Title)
	assert.Equal(t, "Korčule", favs[1].Listing.Title)
	assert.Equal(t, "predajca", favs[0].Listing.AuthorName())

	count, err := repo.CountByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	var dangling int64
	require.NoError(t, db.Model(&models.Favorite{}).Where("listing_id = ?", gone.ID).Count(&dangling).Error)
	assert.Equal(t, int64(1), dangling, "deleting a listing leaves its favorites in place")
}
