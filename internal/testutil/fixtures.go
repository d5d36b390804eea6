// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"bazar/internal/database"
	"bazar/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB returns a migrated in-memory database closed at test cleanup.
// The pool is pinned to one connection so every query sees the same database.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(database.OpenSQLite(":memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// TestPassword is the plain-text password of users created by CreateUser.
const TestPassword = "secret123"

var (
	hashOnce sync.Once
	hashed   string
)

// CreateUser inserts a user whose password is TestPassword.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	hashOnce.Do(func() {
		b, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		hashed = string(b)
	})
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		Role:     models.RoleUser,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateCategory inserts a category.
func CreateCategory(t testing.TB, db *gorm.DB, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c
}

// ListingOption customizes a listing built by CreateListing.
type ListingOption func(*models.Listing)

func WithPrice(p float64) ListingOption { return func(l *models.Listing) { l.Price = p } }

func WithLocation(loc string) ListingOption { return func(l *models.Listing) { l.Location = loc } }

func WithStatus(s string) ListingOption { return func(l *models.Listing) { l.Status = s } }

func WithDescription(d string) ListingOption { return func(l *models.Listing) { l.Description = d } }

// WithCreatedAt pins the creation time, useful for ordering assertions.
func WithCreatedAt(ts time.Time) ListingOption { return func(l *models.Listing) { l.CreatedAt = ts } }

// CreateListing inserts an active listing owned by owner in category.
func CreateListing(t testing.TB, db *gorm.DB, owner *models.User, category *models.Category, title string, opts ...ListingOption) *models.Listing {
	t.Helper()
	l := &models.Listing{
		Title:       title,
		Description: "Popis inzerátu " + title,
		Price:       100,
		Location:    "Bratislava",
		UserID:      owner.ID,
		CategoryID:  category.ID,
		Status:      models.ListingStatusActive,
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := db.Create(l).Error; err != nil {
		t.Fatalf("create listing %s: %v", title, err)
	}
	return l
}

// CreateMessage inserts a message at the given time.
func CreateMessage(t testing.TB, db *gorm.DB, from, to *models.User, listingID *uint, content string, at time.Time) *models.Message {
	t.Helper()
	m := &models.Message{
		Content:    content,
		SenderID:   from.ID,
		ReceiverID: to.ID,
		ListingID:  listingID,
		CreatedAt:  at,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("create message: %v", err)
	}
	return m
}

// UintPtr returns a pointer to v.
func UintPtr(v uint) *uint { return &v }

// TinyPNG returns an in-memory PNG with the requested dimensions.
func TinyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// TinyJPEG returns an in-memory JPEG with the requested dimensions.
func TinyJPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// TinyGIF returns an in-memory GIF with the requested dimensions.
func TinyGIF(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, solid(w, h), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	return img
}

// ErrStoreFailure is returned by MemoryStore.Put when FailPut is set.
var ErrStoreFailure = errors.New("memory store: put failed")

// MemoryStore is an in-memory object store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	// FailPut makes every Put fail with ErrStoreFailure.
	FailPut bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if s.FailPut {
		return ErrStoreFailure
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) URL(_ context.Context, key string) (string, error) {
	return "/static/uploads/" + key, nil
}

func (s *MemoryStore) Backend() string { return "memory" }

// Has reports whether key is stored.
func (s *MemoryStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Len is the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
