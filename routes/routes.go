package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	controller "cadence/controllers"
	"cadence/middleware"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Google OAuth routes
	auth.Get("/google", controller.GoogleOAuth)
	auth.Get("/google/callback", controller.GoogleOAuthCallback)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Get("/me", controller.GetCurrentUser)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	scheduleController := controller.NewScheduleController(db, log.New(os.Stdout, "SCHEDULE: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Sender routes
	sender := api.Group("/senders")
	sender.Post("/", controller.CreateSender)
	sender.Get("/", controller.GetSenders)
	sender.Get("/:id", controller.GetSender)
	sender.Put("/:id", controller.UpdateSender)
	sender.Delete("/:id", controller.DeleteSender)
	sender.Post("/:id/test", middleware.SenderTestLimiter(), controller.TestSender)

	// Sequence routes
	sequence := api.Group("/sequences")
	sequence.Post("/", controller.CreateSequence)
	sequence.Get("/", controller.GetSequences)
	sequence.Get("/:id", controller.GetSequence)
	sequence.Put("/:id", controller.UpdateSequence)
	sequence.Delete("/:id", controller.DeleteSequence)
	sequence.Post("/:id/activate", controller.ActivateSequence)
	sequence.Post("/:id/pause", controller.PauseSequence)

	// Scheduling routes
	sequence.Post("/:id/run-schedule", middleware.ScheduleRunLimiter(), scheduleController.RunSchedule)
	sequence.Get("/:id/emails", scheduleController.GetScheduledEmails)
	sequence.Get("/:id/stats", scheduleController.GetSequenceStats)

	// Template routes
	sequence.Get("/:id/templates", controller.GetTemplates)
	api.Post("/templates", controller.CreateTemplate)
	api.Put("/templates/:id", controller.UpdateTemplate)
	api.Delete("/templates/:id", controller.DeleteTemplate)

	// Recipient list routes
	list := api.Group("/recipient-lists")
	list.Post("/", controller.CreateRecipientList)
	list.Get("/", controller.GetRecipientLists)
	list.Delete("/:id", controller.DeleteRecipientList)
	list.Post("/:id/recipients", controller.AddRecipient)
	list.Post("/:id/recipients/bulk", controller.BulkAddRecipients)
	list.Get("/:id/recipients", controller.GetRecipients)

	// Recipient routes
	api.Put("/recipients/:id", controller.UpdateRecipient)
	api.Delete("/recipients/:id", controller.DeleteRecipient)

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app, db)
	SetupAPIRoutes(app, db)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
