// Package seed fills a database with demo marketplace data for development and tests.
package seed

import (
	"fmt"
	"strings"
	"time"

	"bazar/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the password of every generated user.
const DefaultPassword = "password123"

// Factory builds unsaved demo entities. A fixed seed gives a reproducible data set.
type Factory struct {
	faker     *gofakeit.Faker
	locations []string
	maxDays   int
	now       func() time.Time
	seq       int
}

// NewFactory creates a Factory. seed 0 picks a random seed.
func NewFactory(seed int64, locations []string, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 30
	}
	return &Factory{
		faker:     gofakeit.New(seed),
		locations: locations,
		maxDays:   maxDays,
		now:       time.Now,
	}
}

// createdAt spreads timestamps over the last maxDays days.
func (f *Factory) createdAt() time.Time {
	now := f.now()
	return f.faker.DateRange(now.AddDate(0, 0, -f.maxDays), now).Truncate(time.Second)
}

// User builds a regular user with a unique username of at most 20 characters.
func (f *Factory) User(passwordHash string) *models.User {
	f.seq++
	base := strings.ToLower(f.faker.Username())
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return -1
	}, base)
	suffix := fmt.Sprintf("%d", f.seq)
	if len(base) > 20-len(suffix) {
		base = base[:20-len(suffix)]
	}
	if base == "" {
		base = "user"
	}
	username := base + suffix
	return &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  passwordHash,
		Role:      models.RoleUser,
		CreatedAt: f.createdAt(),
	}
}

// Listing builds a listing owned by owner in category.
func (f *Factory) Listing(owner *models.User, category *models.Category) *models.Listing {
	title := f.faker.ProductName()
	if len([]rune(title)) < 5 {
		title += " " + f.faker.ProductMaterial()
	}
	status := models.ListingStatusActive
	// roughly one in ten demo listings is already sold
	if f.faker.Number(1, 10) == 1 {
		status = models.ListingStatusSold
	}
	return &models.Listing{
		Title:       title,
		Description: f.faker.Paragraph(1, 3, 8, " "),
		Price:       f.faker.Price(5, 2500),
		Location:    f.faker.RandomString(f.locations),
		UserID:      owner.ID,
		CategoryID:  category.ID,
		Status:      status,
		CreatedAt:   f.createdAt(),
	}
}

// Message builds a message from one user to another about listing.
func (f *Factory) Message(from, to *models.User, listing *models.Listing) *models.Message {
	m := &models.Message{
		Content:    f.faker.Sentence(f.faker.Number(4, 14)),
		SenderID:   from.ID,
		ReceiverID: to.ID,
		IsRead:     f.faker.Bool(),
		CreatedAt:  f.createdAt(),
	}
	if listing != nil {
		id := listing.ID
		m.ListingID = &id
	}
	return m
}

// Pick returns a pseudo-random index in [0, n).
func (f *Factory) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return f.faker.Number(0, n-1)
}
