package app

import (
	"context"
	"fmt"

	"github.com/remixlab/remixd/internal/common"
	"github.com/remixlab/remixd/internal/handlers"
	"github.com/remixlab/remixd/internal/interfaces"
	"github.com/remixlab/remixd/internal/jobs"
	"github.com/remixlab/remixd/internal/services/media"
	"github.com/remixlab/remixd/internal/storage/badger"
	"github.com/ternarybob/arbor"
)

// App holds all application components and dependencies
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	ctx       context.Context
	cancelCtx context.CancelFunc

	// Storage
	DB              *badger.BadgerDB
	ArtifactStorage interfaces.ArtifactStorage

	// Media pipeline collaborators
	Fetcher     interfaces.Fetcher
	Transformer interfaces.Transformer
	Publisher   interfaces.Publisher

	// Job orchestration
	Connections *handlers.ConnectionRegistry
	Registry    *jobs.Registry
	Janitor     *jobs.Janitor

	// Handlers
	WSHandler       *handlers.WebSocketHandler
	APIHandler      *handlers.APIHandler
	ArtifactHandler *handlers.ArtifactHandler
	PageHandler     *handlers.PageHandler
}

// New creates and wires the application
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	if err := app.initStorage(); err != nil {
		cancel()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		cancel()
		app.closeStorage()
		return nil, err
	}

	if err := app.initHandlers(); err != nil {
		cancel()
		app.Registry.Close()
		app.closeStorage()
		return nil, err
	}

	app.Janitor.Start()

	logger.Info().
		Int("workers", cfg.Jobs.Workers).
		Str("eviction_schedule", cfg.Jobs.EvictionSchedule).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the storage layer (Badger)
func (a *App) initStorage() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	a.DB = db
	a.ArtifactStorage = badger.NewArtifactStorage(db, a.Logger)
	return nil
}

// initServices initializes the media pipeline and the job registry
func (a *App) initServices() error {
	fetcher, err := media.NewYtDlpFetcher(&a.Config.Media, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize fetcher: %w", err)
	}
	a.Fetcher = fetcher

	transformer, err := media.NewFFmpegTransformer(&a.Config.Transform, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize transformer: %w", err)
	}
	a.Transformer = transformer

	publisher, err := media.NewLocalPublisher(&a.Config.Publish, a.ArtifactStorage, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize publisher: %w", err)
	}
	a.Publisher = publisher

	a.Connections = handlers.NewConnectionRegistry(a.Logger)

	a.Registry = jobs.NewRegistry(a.ctx, a.Fetcher, a.Transformer, a.Publisher,
		a.Connections, a.Config.Jobs.Workers, a.Logger)

	janitor, err := jobs.NewJanitor(a.Registry, a.Config.Jobs.EvictionSchedule,
		a.Config.Jobs.RetainFor, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize janitor: %w", err)
	}
	a.Janitor = janitor

	return nil
}

// initHandlers initializes the HTTP and WebSocket handlers
func (a *App) initHandlers() error {
	dispatcher := handlers.NewDispatcher(a.Registry, media.NewYouTubeResolver(), a.Logger)

	a.WSHandler = handlers.NewWebSocketHandler(a.Connections, dispatcher, a.Registry, a.Logger)
	a.APIHandler = handlers.NewAPIHandler(a.Registry, media.VariantNames(), a.Logger)
	a.ArtifactHandler = handlers.NewArtifactHandler(a.ArtifactStorage, a.Config.Publish.ArtifactsDir, a.Logger)
	a.PageHandler = handlers.NewPageHandler()

	return nil
}

func (a *App) closeStorage() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}

// Close shuts down the application components in dependency order
func (a *App) Close() error {
	if a.cancelCtx != nil {
		a.Logger.Info().Msg("Cancelling background goroutines")
		a.cancelCtx()
	}

	// Stop the eviction janitor
	if a.Janitor != nil {
		a.Janitor.Stop()
		a.Logger.Info().Msg("Janitor stopped")
	}

	// Drain running pipelines
	if a.Registry != nil {
		a.Registry.Close()
		a.Logger.Info().Msg("Job registry stopped")
	}

	// Disconnect remaining clients
	if a.Connections != nil {
		a.Connections.CloseAll()
	}

	// Close storage
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
