package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/config"
	"github.com/arim/tastemap-go/internal/constants"
	"github.com/arim/tastemap-go/internal/events"
	"github.com/arim/tastemap-go/internal/pipeline"
	"github.com/arim/tastemap-go/internal/server"
	"github.com/arim/tastemap-go/internal/service/ai"
	"github.com/arim/tastemap-go/internal/service/cache"
	"github.com/arim/tastemap-go/internal/service/profiler"
	"github.com/arim/tastemap-go/internal/service/signal"
	"github.com/arim/tastemap-go/internal/service/store"
	"github.com/arim/tastemap-go/internal/transport"
)

// Container bundles the assembled services for the runtime entrypoint.
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Server       *server.Server
	Registry     *events.Registry
	Orchestrator *profiler.Orchestrator

	closers []func()
}

// Close tears down infrastructure services in reverse construction order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// Build assembles the full dependency graph. All heavy-weight initialization
// (DB, cache, AI clients) happens here so the entrypoint stays thin.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Cache and database
	cacheSvc, err := cache.NewCacheService(cache.CacheConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache service: %w", err)
	}
	closers = append(closers, func() {
		_ = cacheSvc.Close()
	})

	postgresSvc, err := store.NewPostgresService(store.PostgresConfig{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres service: %w", err)
	}
	closers = append(closers, func() {
		_ = postgresSvc.Close()
	})

	if err := postgresSvc.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	profileRepo := store.NewProfileRepository(postgresSvc, logger)

	// Signal source
	signalClient, err := signal.NewAPIClient(
		&http.Client{Timeout: constants.APIConfig.QlooTimeout},
		cfg.Qloo.BaseURL,
		cfg.Qloo.APIKeys,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create signal client: %w", err)
	}
	signalSvc := signal.NewService(signalClient, cacheSvc, logger)

	// AI stack
	modelManager, err := ai.NewModelManager(ctx, ai.ModelManagerConfig{
		GeminiAPIKey:       cfg.Gemini.APIKey,
		OpenAIAPIKey:       cfg.OpenAI.APIKey,
		DefaultGeminiModel: "gemini-2.5-flash",
		DefaultOpenAIModel: "gpt-5-mini",
		EnableFallback:     cfg.OpenAI.EnableFallback,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model manager: %w", err)
	}

	classifier := ai.NewClassifier(modelManager, logger)
	strategist := ai.NewStrategist(modelManager, cfg.Pipeline.MaxPairings, logger)
	synthesizer := ai.NewSynthesizer(modelManager, logger)

	// Event delivery
	registry := events.NewRegistry(logger)

	// Pipeline and orchestration
	profilingPipeline := pipeline.New(signalSvc, classifier, strategist, synthesizer, registry, pipeline.Config{
		InsightDelay:   cfg.Pipeline.InsightDelay,
		ExpansionLimit: cfg.Pipeline.ExpansionLimit,
		CrossLimit:     cfg.Pipeline.CrossLimit,
		Concurrency:    cfg.Pipeline.Concurrency,
	}, logger)

	orchestrator := profiler.New(profilingPipeline, profileRepo, registry, cfg.Pipeline.RunTimeout, logger)
	closers = append(closers, orchestrator.Shutdown)

	// HTTP surface
	wsHandler := transport.NewHandler(registry, nil, logger)
	handlers := server.NewHandlers(profileRepo, orchestrator, cacheSvc, logger)
	httpServer := server.New(cfg.Server.Addr, handlers, wsHandler, logger)

	return &Container{
		Config:       cfg,
		Logger:       logger,
		Server:       httpServer,
		Registry:     registry,
		Orchestrator: orchestrator,
		closers:      closers,
	}, nil
}
