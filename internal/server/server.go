// Package server contains the HTTP handlers for the marketplace pages and JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "bazar/docs" // swagger docs
	"bazar/internal/cache"
	"bazar/internal/config"
	"bazar/internal/database"
	"bazar/internal/featureflags"
	"bazar/internal/middleware"
	"bazar/internal/models"
	"bazar/internal/observability"
	"bazar/internal/repository"
	"bazar/internal/service"
	"bazar/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	store          storage.ObjectStore
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	featureFlags   *featureflags.Manager

	userService     *service.UserService
	listingService  *service.ListingService
	favoriteService *service.FavoriteService
	messageService  *service.MessageService
	imageService    *service.ImageService
}

// NewServer connects the database, Redis and object storage and builds a Server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	store, err := storage.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("object storage init failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, cache.GetClient(), store)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, rate limiting and token revocation are then skipped.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.ObjectStore) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if store == nil {
		return nil, errors.New("object store is required")
	}

	flags := featureflags.NewManager(cfg.FeatureFlags)

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	listingRepo := repository.NewListingRepository(db)
	imageRepo := repository.NewImageRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	images := service.NewImageService(store, imageRepo, flags, cfg.UploadMaxSizeMB)

	return &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		store:           store,
		promMiddleware:  middleware.InitMetrics(observability.ServiceName),
		featureFlags:    flags,
		userService:     service.NewUserService(userRepo),
		listingService:  service.NewListingService(listingRepo, categoryRepo, favoriteRepo, images, flags),
		favoriteService: service.NewFavoriteService(favoriteRepo, listingRepo, images),
		messageService:  service.NewMessageService(messageRepo, userRepo, listingRepo),
		imageService:    images,
	}, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5000,http://127.0.0.1:5000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Message: "Príliš veľa požiadaviek, skúste to neskôr.",
				Code:    "RATE_LIMITED",
			})
		},
	}))

	app.Use(s.OptionalAuth())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	if !s.config.IsProduction() {
		app.Get("/monitor", monitor.New(monitor.Config{Title: "Bazar Metrics"}))
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	if fs, ok := s.store.(*storage.FileStore); ok {
		app.Static("/static/uploads", fs.Dir(), fiber.Static{MaxAge: 3600})
	}

	auth := s.AuthRequired()

	// Pages
	app.Get("/", s.Home)
	app.Get("/register", s.RegisterPage)
	app.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	app.Get("/login", s.LoginPage)
	app.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	app.Get("/logout", s.Logout)
	app.Get("/dashboard", auth, s.Dashboard)
	app.Post("/change-password", auth, s.ChangePasswordForm)

	// Specific /listings/* routes before generic /listings/:id
	listings := app.Group("/listings")
	listings.Get("/", s.SearchListings)
	listings.Get("/new", auth, s.NewListingPage)
	listings.Post("/new", auth, middleware.RateLimit(s.redis, 10, 10*time.Minute, "create_listing"), s.CreateListing)
	listings.Get("/:id/edit", auth, s.EditListingPage)
	listings.Post("/:id/edit", auth, s.UpdateListing)
	listings.Post("/:id/delete", auth, s.DeleteListing)
	listings.Delete("/:listing_id/images/:image_id/delete", auth, s.DeleteListingImage)
	listings.Get("/:id", s.ListingDetail)

	sendLimit := middleware.RateLimit(s.redis, 20, time.Minute, "send_message")
	app.Post("/send-message", auth, sendLimit, s.SendMessageForm)
	app.Post("/toggle-favorite", auth, s.ToggleFavoriteForm)

	api := app.Group("/api", auth)
	api.Post("/favorite/:listing_id", s.ToggleFavorite)
	api.Get("/check-favorite/:listing_id", s.CheckFavorite)
	api.Get("/my-favorites", s.MyFavorites)
	api.Get("/my-listings", s.MyListings)
	api.Post("/send-message", sendLimit, s.SendMessage)
	api.Get("/my-messages", s.MyMessages)
	api.Get("/conversations", s.Conversations)
	api.Get("/conversation/:other_user_id", s.ConversationThread)
	api.Get("/conversation/:other_user_id/:listing_id", s.ConversationThread)
	api.Get("/unread-messages-count", s.UnreadMessagesCount)
	api.Post("/messages/:message_id/read", s.MarkMessageRead)
	api.Post("/change-password", s.ChangePassword)
	api.Post("/validate-password", s.ValidatePassword)

	admin := api.Group("/admin", s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// NewApp builds the Fiber app with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	bodyLimit := (s.config.UploadMaxSizeMB*10 + 1) * 1024 * 1024
	if s.config.UploadMaxSizeMB <= 0 {
		bodyLimit = 16 * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:   "Bazar",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code := models.CodeInternal
				switch fe.Code {
				case fiber.StatusNotFound:
					code = models.CodeNotFound
				case fiber.StatusMethodNotAllowed, fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
					code = models.CodeValidation
				}
				return c.Status(fe.Code).JSON(models.ErrorResponse{Message: fe.Message, Code: code})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// LivenessCheck reports that the process is up.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	} else if redisStatus != "healthy" {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"storage":  s.store.Backend(),
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP server and closes the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
