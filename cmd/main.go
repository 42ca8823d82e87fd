package main

import (
	"context"
	"fmt"
	"os"

	"github.com/escriba-legal/escriba-backend/internal/clients/redis"
	"github.com/escriba-legal/escriba-backend/internal/config"
	"github.com/escriba-legal/escriba-backend/internal/db"
	"github.com/escriba-legal/escriba-backend/internal/handlers"
	"github.com/escriba-legal/escriba-backend/internal/modules/edit"
	"github.com/escriba-legal/escriba-backend/internal/observability"
	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
	"github.com/escriba-legal/escriba-backend/internal/platform/openai"
	"github.com/escriba-legal/escriba-backend/internal/realtime"
	"github.com/escriba-legal/escriba-backend/internal/repos"
	"github.com/escriba-legal/escriba-backend/internal/server"
	"github.com/escriba-legal/escriba-backend/internal/services"
	"github.com/escriba-legal/escriba-backend/internal/sse"
)

func main() {
	// Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logger
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	ctx := context.Background()
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "escriba-backend",
		Environment: os.Getenv("APP_ENV"),
	})
	defer func() { _ = otelShutdown(context.Background()) }()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	sessionRepo := repos.NewDocumentSessionRepo(thePG, log)
	paragraphRepo := repos.NewParagraphRepo(thePG, log)
	eventRepo := repos.NewEditEventRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub...")
	sseHub := sse.NewHub(log)

	// Redis: outcome bus plus shared connection for the resolution cache.
	// Without redis the instance runs standalone on in-process equivalents.
	var outcomeBus redis.OutcomeBus
	var resolutionCache edit.ResolutionCache
	if cfg.RedisAddr != "" {
		outcomeBus, err = redis.NewOutcomeBus(log, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			log.Error("Redis init failed", "error", err)
			os.Exit(1)
		}
		defer outcomeBus.Close()
		if err := outcomeBus.StartForwarder(ctx, func(m sse.Message) { sseHub.Broadcast(m) }); err != nil {
			log.Error("Redis forwarder failed", "error", err)
			os.Exit(1)
		}
		resolutionCache = edit.NewRedisCache(log, outcomeBus.Client())
	} else {
		log.Warn("REDIS_ADDR not set; using in-memory resolution cache")
		resolutionCache = edit.NewMemoryCache(cfg.CacheMaxEntries)
	}

	// AI tiers
	var resolver edit.Resolver
	if cfg.EnableAI {
		baseClient, err := openai.NewClient(log)
		if err != nil {
			log.Error("Could not init OpenAI client", "error", err)
			os.Exit(1)
		}
		primary := openai.WithModel(baseClient, cfg.PrimaryModel)
		fallback := openai.WithModel(baseClient, cfg.FallbackModel)
		resolver = edit.NewTieredResolver(log, primary, fallback, cfg.TierTimeout)
	} else {
		log.Warn("AI tiers disabled; resolution uses pattern rules and heuristics only")
	}

	// Engine
	log.Info("Setting up edit engine...")
	notifier := realtime.NewNotifier(log, sseHub, outcomeBus)
	coordinator := edit.NewCoordinator(edit.Config{
		EnableAI:          cfg.EnableAI,
		TierTimeout:       cfg.TierTimeout,
		ExcerptParagraphs: cfg.ExcerptParagraphs,
		ExcerptRunes:      cfg.ExcerptRunes,
	}, edit.Deps{
		Log:       log,
		Store:     services.NewParagraphStore(paragraphRepo),
		Cache:     resolutionCache,
		Pattern:   edit.NewPatternMatcher(log),
		Resolver:  resolver,
		Heuristic: edit.NewHeuristic(log),
		Events:    services.NewEditEventRecorder(log, eventRepo),
		Notify:    notifier,
	})

	// Services
	log.Info("Setting up services...")
	sessionService := services.NewSessionService(thePG, log, sessionRepo, paragraphRepo, eventRepo, coordinator, notifier)

	// Handlers
	log.Info("Setting up handlers...")
	sessionHandler := handlers.NewSessionHandler(log, sessionService)
	editHandler := handlers.NewEditHandler(log, coordinator)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Router
	log.Info("Setting up router...")
	router := server.NewRouter(server.RouterConfig{
		Log:            log,
		SessionHandler: sessionHandler,
		EditHandler:    editHandler,
		SSEHandler:     sseHandler,
	})

	fmt.Printf("Server listening on :%s\n", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
