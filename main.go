package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/codegen"
	"github.com/matura-ai/matura-engine/pkg/config"
	"github.com/matura-ai/matura-engine/pkg/database"
	"github.com/matura-ai/matura-engine/pkg/figma"
	"github.com/matura-ai/matura-engine/pkg/handlers"
	"github.com/matura-ai/matura-engine/pkg/hybrid"
	"github.com/matura-ai/matura-engine/pkg/llm"
	"github.com/matura-ai/matura-engine/pkg/logging"
	"github.com/matura-ai/matura-engine/pkg/middleware"
	"github.com/matura-ai/matura-engine/pkg/repair"
	"github.com/matura-ai/matura-engine/pkg/repositories"
	schemapkg "github.com/matura-ai/matura-engine/pkg/schema"
	"github.com/matura-ai/matura-engine/pkg/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("openai", cfg.OpenAI.IsConfigured()),
		zap.Bool("gemini", cfg.Gemini.IsConfigured()),
		zap.Bool("anthropic", cfg.Anthropic.IsConfigured()),
		zap.Bool("figma", cfg.Figma.IsConfigured()),
		zap.Bool("database", cfg.Database.IsConfigured()),
		zap.Bool("redis", cfg.Redis.Host != ""))

	ctx := context.Background()

	// Persistence: PostgreSQL when configured, in-memory otherwise.
	var appRepo repositories.AppRepository
	if cfg.Database.IsConfigured() {
		// Sanitized: pgx errors can echo the connection string.
		if err := database.RunMigrations(&cfg.Database, "migrations", logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.String("error", logging.Sanitize(err.Error())))
		}
		db, err := database.NewConnection(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.String("error", logging.Sanitize(err.Error())))
		}
		defer db.Close()
		appRepo = repositories.NewAppRepository(db)
	} else {
		logger.Warn("No database configured; generated apps will not survive restarts")
		appRepo = repositories.NewMemoryAppRepository()
	}

	// Rate limiting: Redis-backed when configured, in-process otherwise.
	var limiter middleware.Limiter
	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.String("error", logging.Sanitize(err.Error())))
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		limiter = middleware.NewRedisLimiter(redisClient, &cfg.RateLimit)
	} else {
		limiter = middleware.NewMemoryLimiter(&cfg.RateLimit)
	}

	// AI providers, each behind a circuit breaker.
	meter := llm.NewUsageMeter()
	registry := llm.NewRegistry(meter)
	breakerCfg := llm.DefaultCircuitBreakerConfig()

	if cfg.OpenAI.IsConfigured() {
		provider, err := llm.NewOpenAIProvider(providerConfig(&cfg.OpenAI), meter, logger)
		if err != nil {
			logger.Fatal("Failed to create OpenAI provider", zap.Error(err))
		}
		registry.Register(llm.WithCircuitBreaker(provider, breakerCfg))
	}
	if cfg.Gemini.IsConfigured() {
		provider, err := llm.NewGeminiProvider(ctx, providerConfig(&cfg.Gemini), meter, logger)
		if err != nil {
			logger.Fatal("Failed to create Gemini provider", zap.Error(err))
		}
		defer provider.Close()
		registry.Register(llm.WithCircuitBreaker(provider, breakerCfg))
	}
	if cfg.Anthropic.IsConfigured() {
		provider, err := llm.NewAnthropicProvider(providerConfig(&cfg.Anthropic), meter, logger)
		if err != nil {
			logger.Fatal("Failed to create Anthropic provider", zap.Error(err))
		}
		registry.Register(llm.WithCircuitBreaker(provider, breakerCfg))
	}
	logger.Info("Providers registered", zap.Strings("providers", registry.Names()))

	// Design backend (optional).
	var designProvider figma.DesignProvider
	if cfg.Figma.IsConfigured() {
		client, err := figma.NewClient(&figma.Config{
			APIKey:  cfg.Figma.APIKey,
			FileKey: cfg.Figma.FileKey,
			Timeout: cfg.Figma.Timeout(),
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create Figma client", zap.Error(err))
		}
		designProvider = client
	}

	// Pipeline engines. OpenAI leads for structured calls; Gemini follows.
	preferred := []string{llm.ProviderOpenAI, llm.ProviderGemini}
	schemaEngine := schemapkg.NewEngine(registry, preferred, logger)
	codegenEngine := codegen.NewEngine(registry, preferred, logger)
	repairLoop := repair.NewLoop(codegenEngine, cfg.Pipeline.MaxRepairRetries, logger)
	orchestrator := hybrid.NewOrchestrator(
		registry, schemaEngine, codegenEngine, repairLoop, designProvider, preferred, logger)

	tableStore := store.New(logger)

	// HTTP surface.
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, registry, logger).RegisterRoutes(mux)
	handlers.NewCRUDHandler(tableStore, logger).RegisterRoutes(mux)
	handlers.NewAppsHandler(appRepo, tableStore, logger).RegisterRoutes(mux)

	generateMux := http.NewServeMux()
	handlers.NewGenerateHandler(orchestrator, appRepo, tableStore, &cfg.Pipeline, logger).
		RegisterRoutes(generateMux)

	// Only the generation endpoints sit behind the rate limiter.
	rateLimited := middleware.RateLimit(limiter, logger)(generateMux)
	mux.Handle("/api/generate", rateLimited)
	mux.Handle("/api/generate/", rateLimited)

	handler := middleware.RequestLogger(logger)(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting matura-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}

// providerConfig adapts one provider's settings onto the llm client config.
func providerConfig(p *config.ProviderConfig) *llm.Config {
	return &llm.Config{
		APIKey:      p.APIKey,
		Model:       p.Model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Timeout:     p.Timeout(),
	}
}
