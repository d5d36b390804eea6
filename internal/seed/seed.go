package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bazar/internal/middleware"
	"bazar/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options controls how much demo data Run creates.
type Options struct {
	// Users is the number of generated users on top of the catalog accounts.
	Users int
	// ListingsPerUser is the number of generated listings per generated user.
	ListingsPerUser int
	// Messages is the number of generated messages between random users.
	Messages int
	// Favorites is the number of generated favorites.
	Favorites int
	// Clean deletes all marketplace rows first.
	Clean bool
	// Seed makes the generated data reproducible. 0 is random.
	Seed int64
	// MaxDays bounds how far back generated timestamps go.
	MaxDays int
	// HashCost is the bcrypt cost for demo passwords; 0 means bcrypt.DefaultCost.
	HashCost int
	// BatchSize bounds multi-row inserts.
	BatchSize int
}

// Summary reports what Run inserted.
type Summary struct {
	Users      int
	Categories int
	Listings   int
	Messages   int
	Favorites  int
}

// Seeder writes the catalog and generated data.
type Seeder struct {
	db      *gorm.DB
	catalog *Catalog
	opts    Options
	factory *Factory
}

// NewSeeder creates a Seeder over the embedded catalog.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &Seeder{
		db:      db,
		catalog: catalog,
		opts:    opts,
		factory: NewFactory(opts.Seed, catalog.Locations, opts.MaxDays),
	}, nil
}

// Run seeds everything in one transaction.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	var sum Summary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.opts.Clean {
			if err := clearAll(tx); err != nil {
				return fmt.Errorf("clear: %w", err)
			}
		}

		categories, err := s.categories(tx)
		if err != nil {
			return fmt.Errorf("categories: %w", err)
		}
		sum.Categories = len(categories)

		accounts, err := s.accounts(tx)
		if err != nil {
			return fmt.Errorf("accounts: %w", err)
		}
		generated, err := s.users(tx)
		if err != nil {
			return fmt.Errorf("users: %w", err)
		}
		users := append(accounts, generated...)
		sum.Users = len(users)

		listings, err := s.listings(tx, accounts, generated, categories)
		if err != nil {
			return fmt.Errorf("listings: %w", err)
		}
		sum.Listings = len(listings)

		if sum.Messages, err = s.messages(tx, users, listings); err != nil {
			return fmt.Errorf("messages: %w", err)
		}
		if sum.Favorites, err = s.favorites(tx, users, listings); err != nil {
			return fmt.Errorf("favorites: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "seed completed",
		slog.Int("users", sum.Users),
		slog.Int("categories", sum.Categories),
		slog.Int("listings", sum.Listings),
		slog.Int("messages", sum.Messages),
		slog.Int("favorites", sum.Favorites),
		slog.Duration("elapsed", time.Since(start)),
	)
	return &sum, nil
}

// ClearAll deletes every marketplace row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(clearAll)
}

func clearAll(tx *gorm.DB) error {
	for _, m := range []any{&models.Favorite{}, &models.Message{}, &models.Image{}, &models.Listing{}, &models.Category{}, &models.User{}} {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}

// categories creates missing catalog categories; existing ones are matched by name.
func (s *Seeder) categories(tx *gorm.DB) (map[string]*models.Category, error) {
	out := make(map[string]*models.Category, len(s.catalog.Categories))
	for _, spec := range s.catalog.Categories {
		cat := &models.Category{}
		if err := tx.Where(models.Category{Name: spec.Name}).
			Attrs(models.Category{Description: spec.Description}).
			FirstOrCreate(cat).Error; err != nil {
			return nil, err
		}
		out[spec.Name] = cat
	}
	return out, nil
}

func (s *Seeder) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.HashCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// accounts ensures the fixed demo logins exist.
func (s *Seeder) accounts(tx *gorm.DB) ([]*models.User, error) {
	out := make([]*models.User, 0, len(s.catalog.Accounts))
	for _, acc := range s.catalog.Accounts {
		var u models.User
		err := tx.Where("email = ?", acc.Email).First(&u).Error
		switch {
		case err == nil:
			out = append(out, &u)
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
		hash, err := s.hash(acc.Password)
		if err != nil {
			return nil, err
		}
		role := acc.Role
		if role == "" {
			role = models.RoleUser
		}
		u = models.User{Username: acc.Username, Email: acc.Email, Password: hash, Role: role}
		if err := tx.Create(&u).Error; err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, nil
}

func (s *Seeder) users(tx *gorm.DB) ([]*models.User, error) {
	if s.opts.Users <= 0 {
		return nil, nil
	}
	hash, err := s.hash(DefaultPassword)
	if err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		users = append(users, s.factory.User(hash))
	}
	if err := tx.CreateInBatches(users, s.opts.BatchSize).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// listings writes the catalog listings, alternating between the demo accounts,
// then ListingsPerUser generated listings per generated user.
func (s *Seeder) listings(tx *gorm.DB, accounts, generated []*models.User, categories map[string]*models.Category) ([]*models.Listing, error) {
	var out []*models.Listing
	if len(accounts) > 0 {
		for i, spec := range s.catalog.Listings {
			out = append(out, &models.Listing{
				Title:       spec.Title,
				Description: spec.Description,
				Price:       spec.Price,
				Location:    spec.Location,
				UserID:      accounts[i%len(accounts)].ID,
				CategoryID:  categories[spec.Category].ID,
				Status:      models.ListingStatusActive,
				CreatedAt:   s.factory.createdAt(),
			})
		}
	}

	cats := make([]*models.Category, 0, len(categories))
	for _, spec := range s.catalog.Categories {
		cats = append(cats, categories[spec.Name])
	}
	for _, u := range generated {
		for j := 0; j < s.opts.ListingsPerUser; j++ {
			out = append(out, s.factory.Listing(u, cats[s.factory.Pick(len(cats))]))
		}
	}

	if len(out) == 0 {
		return nil, nil
	}
	if err := tx.CreateInBatches(out, s.opts.BatchSize).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// messages writes buyer-to-owner messages about random listings.
func (s *Seeder) messages(tx *gorm.DB, users []*models.User, listings []*models.Listing) (int, error) {
	if s.opts.Messages <= 0 || len(users) < 2 || len(listings) == 0 {
		return 0, nil
	}
	owners := make(map[uint]*models.User, len(users))
	for _, u := range users {
		owners[u.ID] = u
	}

	msgs := make([]*models.Message, 0, s.opts.Messages)
	for len(msgs) < s.opts.Messages {
		listing := listings[s.factory.Pick(len(listings))]
		owner := owners[listing.UserID]
		buyer := users[s.factory.Pick(len(users))]
		if owner == nil || buyer.ID == owner.ID {
			continue
		}
		if s.factory.Pick(2) == 0 {
			msgs = append(msgs, s.factory.Message(buyer, owner, listing))
		} else {
			msgs = append(msgs, s.factory.Message(owner, buyer, listing))
		}
	}
	if err := tx.CreateInBatches(msgs, s.opts.BatchSize).Error; err != nil {
		return 0, err
	}
	return len(msgs), nil
}

// favorites writes distinct (user, listing) pairs. Owners never favorite their own listings.
func (s *Seeder) favorites(tx *gorm.DB, users []*models.User, listings []*models.Listing) (int, error) {
	if s.opts.Favorites <= 0 || len(users) == 0 || len(listings) == 0 {
		return 0, nil
	}
	type pair struct{ user, listing uint }
	seen := make(map[pair]bool)
	favs := make([]*models.Favorite, 0, s.opts.Favorites)
	for attempts := 0; len(favs) < s.opts.Favorites && attempts < s.opts.Favorites*10; attempts++ {
		u := users[s.factory.Pick(len(users))]
		l := listings[s.factory.Pick(len(listings))]
		p := pair{u.ID, l.ID}
		if l.UserID == u.ID || seen[p] {
			continue
		}
		seen[p] = true
		favs = append(favs, &models.Favorite{UserID: u.ID, ListingID: l.ID, CreatedAt: s.factory.createdAt()})
	}
	if len(favs) == 0 {
		return 0, nil
	}
	if err := tx.CreateInBatches(favs, s.opts.BatchSize).Error; err != nil {
		return 0, err
	}
	return len(favs), nil
}
