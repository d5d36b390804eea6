// Command seed fills the database with demo marketplace data.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"bazar/internal/config"
	"bazar/internal/database"
	"bazar/internal/middleware"
	"bazar/internal/seed"
)

func main() {
	users := flag.Int("users", 20, "Number of generated users")
	listingsPerUser := flag.Int("listings", 3, "Generated listings per generated user")
	messages := flag.Int("messages", 60, "Number of generated messages")
	favorites := flag.Int("favorites", 40, "Number of generated favorites")
	clean := flag.Bool("clean", false, "Delete all marketplace data before seeding")
	seedValue := flag.Int64("seed", 0, "Random seed for reproducible data (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	middleware.Logger = middleware.NewLogger(cfg.Env, os.Getenv("LOG_LEVEL"), os.Stdout)

	db, err := database.Connect(cfg)
	if err != nil {
		middleware.Logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	s, err := seed.NewSeeder(db, seed.Options{
		Users:           *users,
		ListingsPerUser: *listingsPerUser,
		Messages:        *messages,
		Favorites:       *favorites,
		Clean:           *clean,
		Seed:            *seedValue,
	})
	if err != nil {
		middleware.Logger.Error("failed to load seed catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sum, err := s.Run(context.Background())
	if err != nil {
		middleware.Logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	middleware.Logger.Info("database populated",
		slog.Int("users", sum.Users),
		slog.Int("listings", sum.Listings),
		slog.String("generated_user_password", seed.DefaultPassword),
	)
}
