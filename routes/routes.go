package routes

import (
	"log"
	"os"

	"loanpilot/config"
	controller "loanpilot/controllers"
	"loanpilot/mfa"
	"loanpilot/middleware"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize logger
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Get("/me", controller.GetCurrentUser)

	// MFA routes. Setup/activate/disable require a full session; validate
	// accepts only the short-lived pending token issued at login.
	mfaController := controller.NewMFAController(db, newMFAManager(), log.New(os.Stdout, "MFA: ", log.LstdFlags))
	mfaGroup := auth.Group("/mfa")
	mfaGroup.Post("/setup", middleware.Protected(), mfaController.Setup)
	mfaGroup.Post("/activate", middleware.Protected(), mfaController.Activate)
	mfaGroup.Post("/validate", middleware.MFAPending(), mfaController.Validate)
	mfaGroup.Post("/disable", middleware.Protected(), mfaController.Disable)

	// Log initialization
	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize controllers with their respective loggers
	leadController := controller.NewLeadController(db, log.New(os.Stdout, "LEAD: ", log.LstdFlags))
	clientController := controller.NewClientController(db, log.New(os.Stdout, "CLIENT: ", log.LstdFlags))
	pipelineController := controller.NewPipelineController(db, log.New(os.Stdout, "PIPELINE: ", log.LstdFlags))
	auditController := controller.NewAuditController(db, logrus.StandardLogger())

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Lead routes
	lead := api.Group("/leads")
	lead.Post("/", leadController.CreateLead)
	lead.Get("/", leadController.GetLeads)
	lead.Get("/:id", leadController.GetLead)
	lead.Put("/:id", leadController.UpdateLead)
	lead.Delete("/:id", leadController.DeleteLead)
	lead.Post("/import", leadController.ImportLeads)
	lead.Get("/:id/validate", leadController.ValidateLead)
	lead.Post("/:id/convert", leadController.ConvertLead)
	lead.Post("/:id/secure", leadController.SecureLead)

	// Client routes
	client := api.Group("/clients")
	client.Get("/", clientController.GetClients)
	client.Get("/:id", clientController.GetClient)
	client.Put("/:id/status", clientController.UpdateClientStatus)
	client.Get("/:id/validate", clientController.ValidateClient)

	// Pipeline routes
	pipeline := api.Group("/pipeline")
	pipeline.Post("/", pipelineController.CreateEntry)
	pipeline.Get("/", pipelineController.GetEntries)
	pipeline.Put("/:id", pipelineController.UpdateEntry)
	pipeline.Delete("/:id", pipelineController.DeleteEntry)
	pipeline.Get("/:id/validate", pipelineController.ValidateEntry)

	// Audit routes with rate limiting on the expensive full run
	auditGroup := api.Group("/audit")
	auditGroup.Post("/run", middleware.AuditRateLimiter(), auditController.RunAudit)
	auditGroup.Get("/reports", auditController.GetReports)
	auditGroup.Get("/reports/latest", auditController.GetLatestReport)
	auditGroup.Get("/duplicates", auditController.GetDuplicates)

	// Log initialization
	log.Println("API routes initialized successfully")
}

// newMFAManager wires TOTP secret storage to Redis when it is configured
// and falls back to in-process storage otherwise.
func newMFAManager() *mfa.Manager {
	var store mfa.SecretStore
	if config.AppConfig.Redis.Enabled {
		store = mfa.NewRedisSecretStore(redis.NewClient(&redis.Options{
			Addr:     config.AppConfig.Redis.Address,
			Password: config.AppConfig.Redis.Password,
			DB:       config.AppConfig.Redis.DB,
		}))
	} else {
		store = mfa.NewMemorySecretStore()
	}
	return mfa.NewManager(store, logrus.StandardLogger())
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app, db)

	// Setup API routes
	SetupAPIRoutes(app, db)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
