package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskchat/internal/config"
	"taskchat/internal/database"
	"taskchat/internal/gateway"
	"taskchat/internal/handlers"
	"taskchat/internal/jobs"
	"taskchat/internal/logging"
	"taskchat/internal/middleware"
	"taskchat/internal/models"
	"taskchat/internal/orchestrator"
	"taskchat/internal/preflight"
	"taskchat/internal/resolver"
	"taskchat/internal/services"
	"taskchat/internal/store"
	"taskchat/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting TaskChat Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Printf("📋 Configuration loaded (Port: %s, Env: %s)", cfg.Port, cfg.Environment)

	// Initialize database (SQLite file path or mysql:// DSN)
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Run pre-flight checks
	checker := preflight.NewChecker(db, cfg)
	if results := checker.RunAll(); preflight.HasFailures(results) {
		log.Fatal("❌ Pre-flight checks failed, refusing to start")
	}

	// Initialize metrics
	services.InitMetrics()

	// Initialize JWT auth (nil in dev mode when no secret is set)
	var jwtAuth *auth.LocalJWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
		log.Println("✅ JWT auth initialized")
	} else {
		log.Println("⚠️  JWT_SECRET not set - auth runs in development bypass mode")
	}

	// Initialize Redis (optional: shared rate-limiter storage)
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (falling back to in-memory rate limiting)", err)
		} else {
			defer redisService.Close()
		}
	}

	// Initialize stores
	taskStore := store.NewTaskStore(db)
	conversationStore := store.NewConversationStore(db)
	userService := services.NewUserService(db)

	// Tool gateway: the single authorization-checked path to tasks
	taskGateway := gateway.New(taskStore)

	// Optional custom intent rules
	var extraRules []models.IntentRule
	if cfg.IntentRulesPath != "" {
		rulesConfig, err := config.LoadIntentRules(cfg.IntentRulesPath)
		if err != nil {
			log.Fatalf("❌ Failed to load intent rules: %v", err)
		}
		extraRules = rulesConfig.Rules
		log.Printf("✅ Loaded %d custom intent rules", len(extraRules))
	}

	// Intent resolver over the gateway's list view and the tool-call log
	intentResolver, err := resolver.New(taskGateway, conversationStore, extraRules)
	if err != nil {
		log.Fatalf("❌ Failed to build intent resolver: %v", err)
	}

	// Turn orchestrator
	orch := orchestrator.New(conversationStore, taskGateway, intentResolver, cfg.HistoryLimit, cfg.HistoryMaxAge)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "TaskChat v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
		BodyLimit:    1 * 1024 * 1024, // chat turns are small; 1MB is generous
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("taskchat")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Rate limiting
	rateLimitConfig := middleware.LoadRateLimitConfig()
	if redisService != nil {
		rateLimitConfig.Storage = redisService.LimiterStorage()
		log.Println("🛡️  [RATE-LIMIT] Using Redis-backed rate limiting")
	}
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Chat=%d/min, Login=%d/15min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.ChatMax,
		rateLimitConfig.LoginMax,
	)

	// CORS configuration with environment-based origins
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))

	// Global API rate limiter - first line of defense
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	authHandler := handlers.NewLocalAuthHandler(jwtAuth, userService)
	chatHandler := handlers.NewChatHandler(orch, conversationStore, cfg.HistoryLimit, cfg.HistoryMaxAge)
	taskHandler := handlers.NewTaskHandler(taskGateway)

	// Routes
	app.Get("/health", healthHandler.Handle)

	authRoutes := app.Group("/api/auth")
	authRoutes.Post("/register", middleware.LoginRateLimiter(rateLimitConfig), authHandler.Register)
	authRoutes.Post("/login", middleware.LoginRateLimiter(rateLimitConfig), authHandler.Login)
	authRoutes.Post("/refresh", authHandler.RefreshToken)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/me", middleware.LocalAuthMiddleware(jwtAuth), authHandler.GetCurrentUser)

	chatRoutes := app.Group("/api/chat", middleware.LocalAuthMiddleware(jwtAuth))
	chatRoutes.Post("/", middleware.ChatRateLimiter(rateLimitConfig), chatHandler.Chat)
	chatRoutes.Get("/history", chatHandler.History)

	taskRoutes := app.Group("/api/tasks", middleware.LocalAuthMiddleware(jwtAuth))
	taskRoutes.Get("/", taskHandler.List)
	taskRoutes.Post("/", taskHandler.Create)
	taskRoutes.Get("/:id", taskHandler.Get)
	taskRoutes.Put("/:id", taskHandler.Update)
	taskRoutes.Post("/:id/complete", taskHandler.Complete)
	taskRoutes.Delete("/:id", taskHandler.Delete)

	// Background jobs
	jobScheduler := jobs.NewJobScheduler()
	jobScheduler.Register("store-health", jobs.NewStoreHealthChecker(db, 1*time.Minute))
	jobScheduler.Register("history-retention", jobs.NewHistoryRetentionJob(conversationStore, 30*24*time.Hour))
	if err := jobScheduler.Start(); err != nil {
		log.Printf("⚠️ Failed to start job scheduler: %v", err)
	}

	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("💬 Chat endpoint: http://localhost:%s/api/chat", cfg.Port)
	log.Printf("🕐 Background jobs: store health (every 1m), history retention (every 6h)")

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		jobScheduler.Stop()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
