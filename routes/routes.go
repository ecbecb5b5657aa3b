package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"immoflow/config"
	controller "immoflow/controllers"
	"immoflow/middleware"
	"immoflow/services/whatsapp"
	"immoflow/store"
)

const logFormat = "[${time}] ${status} - ${latency} ${method} ${path}\n"

// Deps carries what the HTTP surface needs. Store backs the chatbot API,
// SessionStore the dashboard sessions; a nil SessionStore runs sessions on
// demo data. A nil Media disables attachment uploads.
type Deps struct {
	Config           config.Config
	Store            store.Remote
	SessionStore     store.Remote
	RateLimitStorage fiber.Storage
	Media            controller.MediaStore
	Logger           *logrus.Entry
}

func (d Deps) whatsapp() whatsapp.Config {
	return whatsapp.Config{
		BaseURL:  d.Config.Evolution.URL,
		APIKey:   d.Config.Evolution.APIKey,
		Instance: d.Config.Evolution.Instance,
	}
}

// SetupChatbotRoutes mounts the REST facade used by the chatbot automation.
func SetupChatbotRoutes(app *fiber.App, deps Deps) {
	propertyController := controller.NewPropertyController(deps.Store, deps.Logger)
	appointmentController := controller.NewAppointmentController(deps.Store, deps.Logger)
	userController := controller.NewUserController(deps.Store, deps.Logger)

	api := app.Group("/api",
		middleware.APIKey(deps.Config.APIKey),
		middleware.APIRateLimiter(deps.Config.RateLimitMax, deps.RateLimitStorage),
		logger.New(logger.Config{Format: logFormat}),
	)

	properties := api.Group("/properties")
	properties.Post("/search", propertyController.Search)
	properties.Get("/:id", propertyController.GetByID)

	appointments := api.Group("/appointments")
	appointments.Post("/create", appointmentController.Create)
	appointments.Get("/client/:phone", appointmentController.ByClientPhone)
	appointments.Patch("/:id/cancel", appointmentController.Cancel)

	users := api.Group("/users")
	users.Get("/available", userController.Available)
	users.Get("/:id", userController.GetByID)

	deps.Logger.Info("Chatbot API routes initialized successfully")
}

// SetupDashboardRoutes mounts the authenticated dashboard session gateway.
func SetupDashboardRoutes(app *fiber.App, deps Deps) {
	if deps.Config.SessionSecret == "" {
		deps.Logger.Warn("⚠️ SESSION_SECRET is not set, dashboard routes are disabled")
		return
	}

	gateway := controller.NewDashboardGateway(deps.SessionStore, deps.whatsapp(), deps.Logger)
	mediaController := controller.NewMediaController(deps.Media, deps.Logger)
	protected := middleware.Protected(deps.Config.SessionSecret, deps.SessionStore)

	app.Get("/ws/dashboard", protected, gateway.Upgrade, gateway.Handler())

	dashboard := app.Group("/dashboard", protected, logger.New(logger.Config{Format: logFormat}))
	dashboard.Post("/media", mediaController.Upload)

	deps.Logger.Info("Dashboard routes initialized successfully")
}

func SetupRoutes(app *fiber.App, deps Deps) {
	if deps.Logger == nil {
		deps.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   middleware.DefaultCORSConfig().AllowedMethods,
		AllowedHeaders:   middleware.DefaultCORSConfig().AllowedHeaders,
		ExposedHeaders:   middleware.DefaultCORSConfig().ExposedHeaders,
		MaxAge:           middleware.DefaultCORSConfig().MaxAge,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	SetupChatbotRoutes(app, deps)
	SetupDashboardRoutes(app, deps)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
