package main

import (
	"context"
	"log"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"cadence/config"
	"cadence/middleware"
	"cadence/routes"
	"cadence/utils"
	"cadence/worker"
)

func main() {
	logger := log.New(os.Stdout, "CADENCE: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Error reporting
	if dsn := config.AppConfig.SentryDSN; dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scheduling worker: walks active sequences and books pending emails
	schedulerWorker := worker.NewSchedulerWorker(config.DB, log.New(os.Stdout, "SCHEDULER: ", log.LstdFlags))
	go schedulerWorker.Start(ctx)

	// Dispatch worker: renders and sends due emails
	mailer := utils.NewMailer(config.DB)
	renderer := utils.NewRenderer(config.DB)
	dispatchWorker := worker.NewDispatchWorker(config.DB, mailer, renderer, logrus.StandardLogger())
	go dispatchWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
