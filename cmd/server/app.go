package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/coursegen/internal/config"
	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/generation"
	"github.com/phrazzld/coursegen/internal/platform/claude"
	"github.com/phrazzld/coursegen/internal/platform/gemini"
	"github.com/phrazzld/coursegen/internal/platform/memory"
	"github.com/phrazzld/coursegen/internal/platform/metrics"
	"github.com/phrazzld/coursegen/internal/platform/notion"
	"github.com/phrazzld/coursegen/internal/platform/postgres"
	"github.com/phrazzld/coursegen/internal/prompt"
	"github.com/phrazzld/coursegen/internal/publishing"
	"github.com/phrazzld/coursegen/internal/service"
	"github.com/phrazzld/coursegen/internal/service/auth"
	"github.com/phrazzld/coursegen/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil in demo mode.
	db    *sql.DB
	store store.ContentStore

	metrics    *metrics.Metrics
	registry   *generation.Registry
	service    service.GenerationService
	jwtService auth.JWTService
}

// newApplication creates a new application instance with all dependencies initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	if cfg.Server.DemoMode {
		app.store = memory.NewContentStore()
		logger.Warn("Demo mode enabled, content is kept in memory only")
	} else {
		app.db, err = setupAppDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		app.store = postgres.NewPostgresContentStore(app.db, logger)
	}

	app.registry = generation.NewRegistry(ctx, logger, providerFactories(cfg.LLM, logger, app.metrics))
	if len(app.registry.Available()) == 0 {
		logger.Warn("No AI provider is configured, generation requests will fail")
	}

	catalog, err := prompt.Load(cfg.Content.PromptCatalogPath)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to load prompt catalog: %w", err)
	}

	publisher, err := newPublisher(cfg.Publishing, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize publisher: %w", err)
	}

	app.service, err = service.NewGenerationService(service.Dependencies{
		Store:     app.store,
		Providers: app.registry,
		Prompts:   catalog,
		Publisher: publisher,
		Recorder:  app.metrics,
		Logger:    logger,
	}, service.Config{MaxVersions: cfg.Content.MaxVersions})
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}

	logger.Info("Application initialized successfully",
		"providers", app.registry.Available(),
		"notion_export", cfg.Publishing.NotionEnabled())
	return app, nil
}

// providerFactories builds one factory per supported provider. A provider
// without an API key fails with generation.ErrInvalidConfig and stays
// unavailable.
func providerFactories(
	cfg config.LLMConfig,
	logger *slog.Logger,
	observer generation.Observer,
) map[domain.ProviderName]generation.Factory {
	opts := []generation.AdapterOption{
		generation.WithObserver(observer),
		generation.WithDefaultRetryPolicy(cfg.RetryPolicy()),
		generation.WithHealthCheckTimeout(cfg.HealthCheckTimeout()),
	}

	return map[domain.ProviderName]generation.Factory{
		domain.ProviderGemini: func(ctx context.Context) (generation.Provider, error) {
			return gemini.NewProvider(ctx, logger, gemini.Config{
				APIKey:            cfg.GeminiAPIKey,
				Model:             cfg.GeminiModel,
				RequestTimeout:    cfg.RequestTimeout(),
				RequestsPerMinute: cfg.GeminiRequestsPerMinute,
				TokensPerMinute:   cfg.GeminiTokensPerMinute,
			}, opts...)
		},
		domain.ProviderClaude: func(context.Context) (generation.Provider, error) {
			return claude.NewProvider(logger, claude.Config{
				APIKey:  cfg.ClaudeAPIKey,
				BaseURL: cfg.ClaudeBaseURL,
				Model:   cfg.ClaudeModel,
				Timeout: cfg.RequestTimeout(),
			}, opts...)
		},
	}
}

// newPublisher returns the Notion publisher when configured and a disabled
// publisher otherwise.
func newPublisher(cfg config.PublishingConfig, logger *slog.Logger) (publishing.Publisher, error) {
	if !cfg.NotionEnabled() {
		return publishing.Disabled{}, nil
	}
	return notion.New(notionConfig(cfg), logger)
}

func notionConfig(cfg config.PublishingConfig) notion.Config {
	return notion.Config{
		Token:        cfg.NotionToken,
		ParentPageID: cfg.NotionParentPageID,
		BaseURL:      cfg.NotionBaseURL,
		MaxRetries:   uint64(cfg.NotionMaxRetries),
	}
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
