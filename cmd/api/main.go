package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"recruitflow/internal/config"
	"recruitflow/internal/handlers"
	"recruitflow/internal/repositories"
	"recruitflow/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	zapLogger, err := newLogger(cfg.Server.Env)
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize repositories
	candidateRepo := repositories.NewCandidateRepository(db)
	logRepo := repositories.NewOperationLogRepository(db)
	log.Println("✅ Repositories initialized successfully")

	// Initialize services
	audit := services.NewAuditWriter(logRepo, zapLogger)
	tokenCache := services.NewMemoryTokenCache()

	smsGateway := services.NewAliyunSmsGateway(cfg.Sms)
	oaGateway := services.NewOAGateway(cfg.OAPush)

	flowService := services.NewInterviewFlowService(candidateRepo, audit, zapLogger)
	offerService := services.NewOfferService(candidateRepo, audit, zapLogger)
	smsService := services.NewSmsDispatchService(cfg.Sms, candidateRepo, smsGateway, audit, zapLogger)
	oaPushService := services.NewOAPushService(cfg.OAPush, candidateRepo, oaGateway, tokenCache, audit, zapLogger)
	log.Println("✅ Services initialized successfully")

	// Start recovery worker
	ctx := context.Background()
	worker := services.NewRecoveryWorker(cfg.Worker, candidateRepo, oaPushService, zapLogger)
	worker.Start(ctx)
	log.Println("✅ Recovery worker started successfully")

	// Initialize handlers
	interviewHandler := handlers.NewInterviewHandler(candidateRepo, flowService, smsService, zapLogger)
	hireHandler := handlers.NewHireHandler(offerService, oaPushService, zapLogger)
	dispatchHandler := handlers.NewDispatchHandler(smsService, oaPushService)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "RecruitFlow API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// API endpoints
	api.Get("/candidates/:id", interviewHandler.HandleGetCandidate)
	api.Post("/candidates/:id/schedule", interviewHandler.HandleSchedule)
	api.Post("/candidates/:id/cancel-schedule", interviewHandler.HandleCancelSchedule)
	api.Post("/candidates/:id/result", interviewHandler.HandleRecordResult)
	api.Post("/candidates/:id/confirm-hire", hireHandler.HandleConfirmHire)
	api.Post("/candidates/:id/offer-status", hireHandler.HandleOfferStatus)
	api.Post("/candidates/:id/sms/send", dispatchHandler.HandleSendSms)
	api.Post("/candidates/:id/sms/retry", dispatchHandler.HandleRetrySms)
	api.Post("/candidates/:id/oa-push", dispatchHandler.HandleOAPush)
	api.Post("/candidates/:id/oa-push/retry", dispatchHandler.HandleRetryOAPush)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "RecruitFlow API",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /api/v1/candidates/:id",
				"POST /api/v1/candidates/:id/schedule",
				"POST /api/v1/candidates/:id/cancel-schedule",
				"POST /api/v1/candidates/:id/result",
				"POST /api/v1/candidates/:id/confirm-hire",
				"POST /api/v1/candidates/:id/offer-status",
				"POST /api/v1/candidates/:id/sms/send",
				"POST /api/v1/candidates/:id/sms/retry",
				"POST /api/v1/candidates/:id/oa-push",
				"POST /api/v1/candidates/:id/oa-push/retry",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
