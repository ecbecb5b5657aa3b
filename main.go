package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"immoflow/config"
	controller "immoflow/controllers"
	"immoflow/middleware"
	"immoflow/models"
	"immoflow/routes"
	"immoflow/services/media"
	"immoflow/services/whatsapp"
	"immoflow/state"
	"immoflow/store"
	"immoflow/store/memory"
	"immoflow/store/postgres"
	"immoflow/utils"
	"immoflow/worker"
)

func main() {
	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.AppConfig

	flush, err := utils.InitLogging(cfg.Environment, cfg.SentryDSN)
	if err != nil {
		logrus.WithError(err).Warn("Sentry disabled")
	}
	defer flush()
	log := logrus.WithField("service", "immoflow")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	remote, sessions, closeStore := openStore(cfg, log)
	defer closeStore()

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		BodyLimit:    20 * 1024 * 1024,
	})
	app.Use(recover.New())

	// Task reminders
	mailer := utils.NewMailer(utils.SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		FromEmail: cfg.FromEmail,
		FromName:  "ImmoFlow CRM",
	})
	reminders := worker.NewTaskReminderWorker(remote, mailer, cfg.ReminderLookahead, log)
	go reminders.Start(ctx)

	checkWhatsApp(ctx, cfg, log)

	routes.SetupRoutes(app, routes.Deps{
		Config:           cfg,
		Store:            remote,
		SessionStore:     sessions,
		RateLimitStorage: middleware.NewRateLimitStorage(cfg.Redis),
		Media:            openMedia(ctx, cfg, log),
		Logger:           log,
	})

	go func() {
		<-ctx.Done()
		log.Info("Shutting down server...")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	// Start server
	log.Infof("🚀 Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// openStore returns the store behind the chatbot API and the one behind
// dashboard sessions. Demo mode leaves sessions without a remote.
func openStore(cfg config.Config, log *logrus.Entry) (store.Remote, store.Remote, func()) {
	if cfg.UsesDatabase() {
		if err := config.ConnectDB(); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		pg := postgres.New(config.DB, cfg.DSN(), log)
		return pg, pg, pg.Close
	}

	mem := memory.New(memory.WithReferences(models.References...))
	if err := seedDemo(mem, state.DemoTree(time.Now())); err != nil {
		log.Fatalf("Failed to seed demo data: %v", err)
	}
	log.WithField("demo_mode", cfg.DemoMode).Warn("⚠️ Running on the in-memory store, data is not persisted")
	if cfg.DemoMode {
		return mem, nil, func() {}
	}
	return mem, mem, func() {}
}

func seedDemo(mem *memory.Store, t state.Tree) error {
	return errors.Join(
		seedTable(mem, state.Users.Table, t.Users),
		seedTable(mem, state.Projects.Table, t.Projects),
		seedTable(mem, state.Stages.Table, t.Stages),
		seedTable(mem, state.LeadSources.Table, t.LeadSources),
		seedTable(mem, state.Leads.Table, t.Leads),
		seedTable(mem, state.Properties.Table, t.Properties),
		seedTable(mem, state.Tasks.Table, t.Tasks),
		seedTable(mem, state.Sales.Table, t.Sales),
		seedTable(mem, state.IncomeExpenses.Table, t.IncomeExpenses),
	)
}

func seedTable[T any](mem *memory.Store, table string, items []T) error {
	for _, item := range items {
		row, err := store.Encode(item)
		if err != nil {
			return err
		}
		if err := mem.Seed(table, row); err != nil {
			return err
		}
	}
	return nil
}

func openMedia(ctx context.Context, cfg config.Config, log *logrus.Entry) controller.MediaStore {
	if cfg.Media.Endpoint == "" {
		log.Info("Media storage not configured, chat attachments disabled")
		return nil
	}
	uploader, err := media.New(media.Config{
		Endpoint:  cfg.Media.Endpoint,
		AccessKey: cfg.Media.AccessKey,
		SecretKey: cfg.Media.SecretKey,
		Bucket:    cfg.Media.Bucket,
		UseSSL:    cfg.Media.UseSSL,
		PublicURL: cfg.Media.PublicURL,
	})
	if err != nil {
		log.WithError(err).Error("Media storage unavailable")
		return nil
	}
	if err := uploader.EnsureBucket(ctx); err != nil {
		log.WithError(err).Warn("Could not verify media bucket")
	}
	return uploader
}

func checkWhatsApp(ctx context.Context, cfg config.Config, log *logrus.Entry) {
	client := whatsapp.New(whatsapp.Config{
		BaseURL:  cfg.Evolution.URL,
		APIKey:   cfg.Evolution.APIKey,
		Instance: cfg.Evolution.Instance,
	})
	connected, err := client.Connected(ctx)
	switch {
	case errors.Is(err, whatsapp.ErrNotConfigured):
		log.Info("WhatsApp not configured in the environment, relying on saved settings")
	case err != nil:
		log.WithError(err).Warn("WhatsApp instance unreachable")
	case !connected:
		log.Warn("⚠️ WhatsApp instance is not paired")
	default:
		log.Info("✅ WhatsApp instance connected")
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		utils.LogError("unhandled_error", err, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		})
		return utils.ErrorResponse(c, code, "Error interno del servidor", nil)
	}
	return utils.ErrorResponse(c, code, fe.Message, nil)
}
