package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tailorcv/tailorcv-backend/internal/config"
	"github.com/tailorcv/tailorcv-backend/internal/handler"
	"github.com/tailorcv/tailorcv-backend/internal/middleware"
	"github.com/tailorcv/tailorcv-backend/internal/models"
	"github.com/tailorcv/tailorcv-backend/internal/repository"
	"github.com/tailorcv/tailorcv-backend/internal/service"
	"github.com/tailorcv/tailorcv-backend/pkg/database"
	"github.com/tailorcv/tailorcv-backend/pkg/email"
	"github.com/tailorcv/tailorcv-backend/pkg/llm"
	"github.com/tailorcv/tailorcv-backend/pkg/payment"
	"github.com/tailorcv/tailorcv-backend/pkg/storage"
	"github.com/tailorcv/tailorcv-backend/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.LoadConfig()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zapLogger.Sync()

	// Database
	db := database.NewDatabase()
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)
	resumeRepo := repository.NewResumeRepository(db)
	generationRepo := repository.NewGenerationRepository(db)

	// Resume file storage (R2)
	r2Storage, err := storage.NewCloudflareStorage(cfg)
	if err != nil {
		log.Fatal("Failed to initialize R2 storage:", err)
	}

	// Email service
	emailService := email.NewEmailService()

	// Stripe service and plan catalog
	stripeService := payment.NewStripeService(cfg.Stripe.SecretKey, cfg.FrontendURL)
	planCatalog := models.NewPlanCatalog(
		cfg.Stripe.PriceMonthly,
		cfg.Stripe.PriceYearly,
		cfg.Stripe.PriceCreditPack,
	)

	// LLM client
	llmClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)

	// Services
	authService := service.NewAuthService(userRepo, emailService)
	userService := service.NewUserService(userRepo)
	resumeService := service.NewResumeService(resumeRepo, r2Storage)
	generationService := service.NewGenerationService(generationRepo, resumeRepo, llmClient, zapLogger)
	paymentService := service.NewPaymentService(
		stripeService,
		userRepo,
		purchaseRepo,
		webhookRepo,
		planCatalog,
		emailService,
		zapLogger,
	)

	validator := utils.NewValidator()

	// Handlers
	authHandler := handler.NewAuthHandler(authService, validator)
	userHandler := handler.NewUserHandler(userService, validator)
	resumeHandler := handler.NewResumeHandler(resumeService, validator)
	generationHandler := handler.NewGenerationHandler(generationService, validator)
	paymentHandler := handler.NewPaymentHandler(paymentService, validator, cfg.Stripe.WebhookSecret)

	// Router
	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "https://tailorcv.app, https://www.tailorcv.app, http://localhost:5173",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE",
		AllowCredentials: true,
	}))
	app.Use(logger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        20,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	api := app.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/verify-email", authHandler.VerifyEmail)
	auth.Post("/forgot-password", authHandler.ForgotPassword)
	auth.Post("/reset-password", authHandler.ResetPassword)

	// Stripe webhook (public, authenticated by its signature)
	api.Post("/payments/webhook", paymentHandler.HandleStripeWebhook)

	// Public pricing
	api.Get("/payments/plans", paymentHandler.GetPlans)

	// Protected routes
	api.Use(middleware.AuthMiddleware())
	{
		user := api.Group("/user")
		user.Get("/profile", userHandler.GetMyProfile)
		user.Put("/profile", userHandler.UpdateProfile)
		user.Post("/change-password", userHandler.ChangePassword)

		resumes := api.Group("/resumes")
		resumes.Post("/", resumeHandler.CreateResume)
		resumes.Get("/", resumeHandler.GetUserResumes)
		resumes.Get("/:id", resumeHandler.GetResume)
		resumes.Put("/:id", resumeHandler.UpdateResume)
		resumes.Delete("/:id", resumeHandler.DeleteResume)
		resumes.Post("/:id/file", resumeHandler.UploadResumeFile)

		generations := api.Group("/generations")
		generations.Post("/", generationHandler.Generate)
		generations.Get("/", generationHandler.GetUserGenerations)
		generations.Get("/:id", generationHandler.GetGeneration)

		payments := api.Group("/payments")
		payments.Post("/checkout", paymentHandler.CreateCheckoutSession)
		payments.Get("/history", paymentHandler.GetPurchaseHistory)
	}

	log.Fatal(app.Listen(":" + cfg.Port))
}
