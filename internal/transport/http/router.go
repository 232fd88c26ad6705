package http

import (
	"runtime"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/mongodesk/backend/internal/config"
	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/core/services"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
	"github.com/mongodesk/backend/internal/infrastructure/mongodb"
	"github.com/mongodesk/backend/internal/infrastructure/runner"
	"github.com/mongodesk/backend/internal/transport/http/handlers"
)

type RouterConfig struct {
	Logger *logger.Logger
	Config *config.Config
}

// AppServices exposes the wired core services to cmd/server for lifecycle
// management (auto-connect at startup, disconnect at shutdown).
type AppServices struct {
	Installer ports.InstallerService
	Detector  ports.DetectorService
	Documents ports.DocumentService
	Mongo     *mongodb.Client
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) *AppServices {
	// The hub is the single event sink; everything downstream publishes
	// through it. The broker is wired back in so credential responses
	// arriving on the websocket find their waiters.
	hub := handlers.NewEventHub(cfg.Logger)
	broker := services.NewCredentialBroker(hub, cfg.Logger, cfg.Config.Installer.CredentialTimeout)
	hub.SetBroker(broker)

	execRunner := runner.New(cfg.Logger)
	downloader := services.NewDownloadService(hub, cfg.Logger, services.DownloadConfig{
		MaxRetries: cfg.Config.Installer.DownloadRetries,
		Backoff:    cfg.Config.Installer.DownloadBackoff,
		BackoffMax: cfg.Config.Installer.DownloadBackoffMax,
	})

	provider := services.NewPlanProvider(runtime.GOOS, execRunner, downloader, hub, cfg.Logger, cfg.Config.Installer)
	installerService := services.NewInstallerService(provider, broker, hub, cfg.Logger)
	detectorService := services.NewDetectorService(cfg.Logger)

	mongoClient := mongodb.NewClient(cfg.Logger, cfg.Config.Mongo.Database)
	documentService := services.NewDocumentService(mongoClient, cfg.Logger)

	// Initialize handlers
	installHandler := handlers.NewInstallHandler(installerService, detectorService, cfg.Logger)
	documentHandler := handlers.NewDocumentHandler(documentService, cfg.Config, cfg.Logger)

	// Event stream route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/events", websocket.New(hub.Handle))

	// API v1 routes
	api := app.Group("/api/v1")

	// Installation routes
	mongo := api.Group("/mongodb")
	mongo.Get("/installed", installHandler.IsInstalled)
	mongo.Post("/install", installHandler.StartInstall)
	mongo.Get("/install/status", installHandler.GetStatus)
	mongo.Post("/install/cancel", installHandler.CancelInstall)
	mongo.Get("/runtime", installHandler.GetRuntime)

	// Database routes
	mongo.Post("/connect", documentHandler.Connect)
	mongo.Post("/disconnect", documentHandler.Disconnect)
	mongo.Get("/collections", documentHandler.ListCollections)

	collections := mongo.Group("/collections/:collection")
	collections.Post("/documents", documentHandler.InsertDocument)
	collections.Post("/documents/query", documentHandler.FindDocuments)
	collections.Put("/documents/:id", documentHandler.UpdateDocument)
	collections.Delete("/documents/:id", documentHandler.DeleteDocument)

	return &AppServices{
		Installer: installerService,
		Detector:  detectorService,
		Documents: documentService,
		Mongo:     mongoClient,
	}
}
