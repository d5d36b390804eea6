package repository

import (
	"context"
	"testing"
	"time"

	"bazar/internal/models"
	"bazar/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listingFixture struct {
	repo        ListingRepository
	owner       *models.User
	electronics *models.Category
	furniture   *models.Category
	byTitle     map[string]*models.Listing
}

func seedListings(t *testing.T) *listingFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	owner := testutil.CreateUser(t, db, "predajca")
	el := testutil.CreateCategory(t, db, "Elektronika")
	fu := testutil.CreateCategory(t, db, "Nábytok")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := &listingFixture{repo: NewListingRepository(db), owner: owner, electronics: el, furniture: fu, byTitle: map[string]*models.Listing{}}
	add := func(title string, cat *models.Category, offset int, opts ...testutil.ListingOption) {
		opts = append(opts, testutil.WithCreatedAt(base.Add(time.Duration(offset)*time.Hour)))
		f.byTitle[title] = testutil.CreateListing(t, db, owner, cat, title, opts...)
	}
	add("iPhone 12 Pro", el, 1, testutil.WithPrice(450), testutil.WithLocation("Bratislava"))
	add("Samsung televízor", el, 2, testutil.WithPrice(300), testutil.WithLocation("Košice"))
	add("Dubový stôl", fu, 3, testutil.WithPrice(120), testutil.WithLocation("Žilina"))
	add("Predaný notebook", el, 4, testutil.WithStatus(models.ListingStatusSold))
	add("Zľava 100% dnes", el, 5, testutil.WithPrice(10), testutil.WithDescription("nabíjačka a_b kábel"))
	return f
}

func titles(items []models.Listing) []string {
	out := make([]string, 0, len(items))
	for _, l := range items {
		out = append(out, l.Title)
	}
	return out
}

func ptrF(v float64) *float64 { return &v }

func TestListingRepository_Search_Filters(t *testing.T) {
	f := seedListings(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter models.ListingFilter
		want   []string
	}{
		{"no filters, active only, newest first", models.ListingFilter{},
			[]string{"Zľava 100% dnes", "Dubový stôl", "Samsung televízor", "iPhone 12 Pro"}},
		{"text matches title case-insensitively", models.ListingFilter{Query: "IPHONE"}, []string{"iPhone 12 Pro"}},
		{"text matches description", models.ListingFilter{Query: "nabíjačka"}, []string{"Zľava 100% dnes"}},
		{"category", models.ListingFilter{CategoryID: &f.furniture.ID}, []string{"Dubový stôl"}},
		{"price range", models.ListingFilter{MinPrice: ptrF(100), MaxPrice: ptrF(300)}, []string{"Dubový stôl", "Samsung televízor"}},
		{"location substring", models.ListingFilter{Location: "košic"}, []string{"Samsung televízor"}},
		{"conjunctive", models.ListingFilter{CategoryID: &f.electronics.ID, MaxPrice: ptrF(100)}, []string{"Zľava 100% dnes"}},
		{"sold listings never returned", models.ListingFilter{Query: "notebook"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := f.repo.Search(ctx, tt.filter, models.ListingPageSize, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(items))
			assert.Equal(t, int64(len(tt.want)), total)
		})
	}
}

func TestListingRepository_Search_LikeMetacharactersAreLiteral(t *testing.T) {
	f := seedListings(t)
	ctx := context.Background()

	items, _, err := f.repo.Search(ctx, models.ListingFilter{Query: "%"}, models.ListingPageSize, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zľava 100% dnes"}, titles(items))

	items, _, err = f.repo.Search(ctx, models.ListingFilter{Query: "a_b"}, models.ListingPageSize, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zľava 100% dnes"}, titles(items))

	items, _, err = f.repo.Search(ctx, models.ListingFilter{Query: "_"}, models.ListingPageSize, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1, "underscore must not act as a single-character wildcard")
}

func TestListingRepository_Search_FoldsNonASCIICase(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	owner := testutil.CreateUser(t, db, "predajca")
	cars := testutil.CreateCategory(t, db, "Auto-moto")
	testutil.CreateListing(t, db, owner, cars, "Škoda Octavia 2018",
		testutil.WithLocation("Žilina"), testutil.WithDescription("Športový paket, ťažné zariadenie."))
	repo := NewListingRepository(db)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter models.ListingFilter
	}{
		{"location same case", models.ListingFilter{Location: "Žilina"}},
		{"location lower case", models.ListingFilter{Location: "žilina"}},
		{"location upper case", models.ListingFilter{Location: "ŽILINA"}},
		{"title same case", models.ListingFilter{Query: "Škoda"}},
		{"title lower case", models.ListingFilter{Query: "škoda"}},
		{"description upper case", models.ListingFilter{Query: "ŠPORTOVÝ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := repo.Search(ctx, tt.filter, models.ListingPageSize, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(1), total)
			assert.Equal(t, []string{"Škoda Octavia 2018"}, titles(items))
		})
	}
}

func TestListingRepository_Search_Pagination(t *testing.T) {
	f := seedListings(t)
	ctx := context.Background()

	items, total, err := f.repo.Search(ctx, models.ListingFilter{}, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, []string{"iPhone 12 Pro"}, titles(items))

	items, total, err = f.repo.Search(ctx, models.ListingFilter{}, 3, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Empty(t, items)

	items, total, err = f.repo.Search(ctx, models.ListingFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Empty(t, items)
}

func TestListingRepository_LatestAndSimilar(t *testing.T) {
	f := seedListings(t)
	ctx := context.Background()

	latest, err := f.repo.Latest(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zľava 100% dnes", "Dubový stôl"}, titles(latest))

	iphone := f.byTitle["iPhone 12 Pro"]
	similar, err := f.repo.Similar(ctx, iphone, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zľava 100% dnes", "Samsung televízor"}, titles(similar))
	for _, l := range similar {
		assert.NotEqual(t, iphone.ID, l.ID)
	}
}

func TestListingRepository_GetByID(t *testing.T) {
	f := seedListings(t)
	ctx := context.Background()

	got, err := f.repo.GetByID(ctx, f.byTitle["Dubový stôl"].ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	require.NotNil(t, got.Category)
	assert.Equal(t, "predajca", got.User.Username)
	assert.Equal(t, "Nábytok", got.Category.Name)

	_, err = f.repo.GetByID(ctx, 9999)
	assert.Equal(t, 404, models.StatusFor(err))
}

func TestListingRepository_CreateUpdateDelete(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	owner := testutil.CreateUser(t, db, "novak")
	cat := testutil.CreateCategory(t, db, "Šport")
	repo := NewListingRepository(db)
	ctx := context.Background()

	listing := &models.Listing{
		Title: "Horský bicykel", Description: "Málo používaný bicykel", Price: 250,
		Location: "Nitra", UserID: owner.ID, CategoryID: cat.ID, Status: models.ListingStatusActive,
		Images: []models.Image{{Filename: "a.jpg"}, {Filename: "b.jpg"}},
	}
	require.NoError(t, repo.Create(ctx, listing))
	require.NotZero(t, listing.ID)
	for _, img := range listing.Images {
		assert.Equal(t, listing.ID, img.ListingID)
	}

	listing.Title = "Horský bicykel 29"
	listing.Status = models.ListingStatusSold
	listing.Price = 0
	require.NoError(t, repo.Update(ctx, listing, []models.Image{{Filename: "c.jpg"}}))

	got, err := repo.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Horský bicykel 29", got.Title)
	assert.Equal(t, models.ListingStatusSold, got.Status)
	assert.Zero(t, got.Price)
	assert.Len(t, got.Images, 3)

	count, err := repo.CountByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	removed, err := repo.Delete(ctx, listing.ID)
	require.NoError(t, err)
	assert.Len(t, removed, 3)

	var imageRows int64
	require.NoError(t, db.Model(&models.Image{}).Count(&imageRows).Error)
	assert.Zero(t, imageRows)

	_, err = repo.Delete(ctx, listing.ID)
	assert.Equal(t, 404, models.StatusFor(err))
}

func TestListingRepository_CreateRollsBackOnImageFailure(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	owner := testutil.CreateUser(t, db, "novak")
	cat := testutil.CreateCategory(t, db, "Šport")
	repo := NewListingRepository(db)

	// sqlite ignores VARCHAR sizes, so a trigger makes the image insert fail.
	require.NoError(t, db.Exec("CREATE TRIGGER fail_images BEFORE INSERT ON images BEGIN SELECT RAISE(ABORT, 'boom'); END;").Error)

	listing := &models.Listing{
		Title: "Lyže", Description: "Zjazdové lyže 170cm", Price: 80, Location: "Poprad",
		UserID: owner.ID, CategoryID: cat.ID, Images: []models.Image{{Filename: "lyze.jpg"}},
	}
	err := repo.Create(context.Background(), listing)
	require.Error(t, err)
	assert.Equal(t, 500, models.StatusFor(err))

	var count int64
	require.NoError(t, db.Model(&models.Listing{}).Count(&count).Error)
	assert.Zero(t, count, "listing insert must roll back with its images")
}

func TestListingRepository_ListByUserAndTitles(t *testing.T) {
	f := seedListings(t)
	ctx := context.Background()

	mine, err := f.repo.ListByUser(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 5, "own listings include every status")
	assert.Equal(t, "Zľava 100% dnes", mine[0].Title)

	ids := []uint{f.byTitle["Dubový stôl"].ID, 4242}
	got, err := f.repo.TitlesByIDs(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{ids[0]: "Dubový stôl"}, got)

	ok, err := f.repo.Exists(ctx, 4242)
	require.NoError(t, err)
	assert.False(t, ok)
}
