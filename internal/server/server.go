package server

import (
	"context"
	"log"
	"time"

	"github.com/fieldbook-id/fieldbook/internal/config"
	"github.com/fieldbook-id/fieldbook/internal/domain"
	"github.com/fieldbook-id/fieldbook/internal/handler"
	"github.com/fieldbook-id/fieldbook/internal/middleware"
	"github.com/fieldbook-id/fieldbook/internal/repository"
	"github.com/fieldbook-id/fieldbook/internal/service"
	"github.com/fieldbook-id/fieldbook/internal/telemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	AuthClient  service.FirebaseAuthClient
	Payments    service.PaymentProvider
}

// App bundles the HTTP app with the services that background jobs need.
type App struct {
	Fiber    *fiber.App
	Packages *service.PackageService
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *App {
	// Initialize repositories
	redisRepo := repository.NewRedisCacheRepository(deps.RedisClient)
	userRepo := repository.NewMongoUserRepository(deps.MongoDB)
	refreshTokenRepo := repository.NewMongoRefreshTokenRepository(deps.MongoDB)
	fieldRepo := repository.NewMongoFieldRepository(deps.MongoDB)
	scheduleMongoRepo := repository.NewMongoFieldScheduleRepository(deps.MongoDB)
	scheduleRepo := repository.NewCachedFieldScheduleRepository(scheduleMongoRepo, redisRepo)
	packageRepo := repository.NewMongoBookingPackageRepository(deps.MongoDB)
	sessionRepo := repository.NewMongoPackageSessionRepository(deps.MongoDB)

	// S3 is optional; field photo upload degrades when storage is absent
	var fileStorage service.FileStorage
	if deps.Config.S3.Endpoint != "" {
		s3Repo, err := repository.NewSeaweedS3Repository(context.Background(), deps.Config.S3)
		if err != nil {
			log.Printf("Warning: Failed to initialize S3 repository: %v", err)
		} else {
			fileStorage = s3Repo
		}
	}

	// Initialize services
	payments := deps.Payments
	if payments == nil {
		payments = service.NewPaymentProvider()
	}
	refundService := service.NewRefundService(scheduleRepo, payments)
	packageService := service.NewPackageService(
		packageRepo,
		sessionRepo,
		scheduleRepo,
		fieldRepo,
		refundService,
		service.BookingConfig{
			ReconcileStagger: time.Duration(deps.Config.Booking.ReconcileStaggerMS) * time.Millisecond,
			ReconcileRetries: deps.Config.Booking.ReconcileRetries,
			DefaultSlotPrice: deps.Config.Booking.DefaultSlotPrice,
		},
	)
	fieldService := service.NewFieldService(fieldRepo, scheduleRepo, fileStorage)
	tokenService := service.NewTokenService(deps.Config.JWT, refreshTokenRepo, userRepo)
	authService := service.NewAuthService(userRepo, deps.AuthClient, tokenService)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, tokenService)
	fieldHandler := handler.NewFieldHandler(fieldService, deps.Config.Server.MaxUploadSizeMB)
	bookingHandler := handler.NewBookingHandler(packageService)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Fieldbook API",
		BodyLimit:    int(deps.Config.Server.MaxUploadSizeMB * 1024 * 1024),
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(telemetry.FiberMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "fieldbook",
		})
	})

	// API v1 routes
	v1 := app.Group("/v1")

	// Auth endpoints (public)
	auth := v1.Group("/auth")
	auth.Post("/login", authHandler.LoginOrRegister)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)

	// Public field catalogue
	v1.Get("/fields", fieldHandler.ListFields)
	v1.Get("/fields/:id", fieldHandler.GetField)
	v1.Get("/fields/:id/availability", fieldHandler.Availability)

	// ===========================================
	// BOOKING API - /v1/bookings/* (requires 'customer' or 'admin' role)
	// ===========================================
	bookings := v1.Group("/bookings")
	bookings.Use(middleware.VerifyFieldbookToken(deps.Config.JWT.Secret))
	bookings.Use(middleware.AuthorizeRole(domain.RoleCustomer, domain.RoleAdmin))
	bookings.Use(middleware.IdempotencyMiddleware(deps.RedisClient, 10*time.Minute))

	bookings.Post("/quote", bookingHandler.Quote)
	bookings.Post("/", bookingHandler.CreatePackage)
	bookings.Get("/", bookingHandler.ListPackages)
	bookings.Get("/:id", bookingHandler.GetPackage)
	bookings.Post("/:id/confirm", bookingHandler.ConfirmPackage)
	bookings.Post("/:id/cancel", bookingHandler.CancelPackage)
	bookings.Post("/sessions/:id/cancel", bookingHandler.CancelSession)

	// Completing a package is an operator action
	bookings.Post("/:id/complete", middleware.AuthorizeRole(domain.RoleAdmin), bookingHandler.CompletePackage)

	// ===========================================
	// ADMIN API - /v1/admin/* (requires 'admin' role)
	// ===========================================
	admin := v1.Group("/admin")
	admin.Use(middleware.VerifyFieldbookToken(deps.Config.JWT.Secret))
	admin.Use(middleware.AuthorizeRole(domain.RoleAdmin))

	adminFields := admin.Group("/fields")
	adminFields.Post("/", fieldHandler.CreateField)
	adminFields.Put("/:id/rates", fieldHandler.SetSlotRates)
	adminFields.Post("/:id/photo", fieldHandler.UploadPhoto)
	adminFields.Post("/:id/schedules", fieldHandler.BulkCreateSchedules)

	return &App{
		Fiber:    app,
		Packages: packageService,
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	log.Printf("Error: %v", err)
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
