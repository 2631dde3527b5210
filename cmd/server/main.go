package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bharatverse/bharatverse/internal/api"
	"github.com/bharatverse/bharatverse/internal/auth"
	"github.com/bharatverse/bharatverse/internal/content"
	"github.com/bharatverse/bharatverse/internal/db"
	"github.com/bharatverse/bharatverse/internal/guide"
	"github.com/bharatverse/bharatverse/internal/realtime"
	"github.com/bharatverse/bharatverse/internal/utils"
	"github.com/bharatverse/bharatverse/services"
)

const (
	pruneInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: failed to build: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	postgres, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		sugar.Fatalw("postgres: failed to connect", "error", err)
	}
	defer postgres.Close()

	if err := postgres.Ping(ctx); err != nil {
		sugar.Fatalw("postgres: ping failed", "error", err)
	}
	if err := postgres.EnsureSchema(ctx); err != nil {
		sugar.Fatalw("postgres: ensure schema", "error", err)
	}

	health := map[string]api.HealthCheck{"postgres": postgres.Ping}

	archive, closeArchive := openArchive(ctx, cfg, sugar)
	defer closeArchive()

	hubOpts := []realtime.Option{realtime.WithLogger(utils.Component(logger, "realtime"))}
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = db.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			sugar.Fatalw("redis: failed to connect", "error", err)
		}
		defer func() { _ = redisClient.Close() }()
		hubOpts = append(hubOpts, realtime.WithRedis(redisClient, cfg.Redis.Channel))
		health["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	hub := realtime.NewHub(hubOpts...)
	defer hub.Close()
	if redisClient != nil {
		go func() {
			if err := hub.RunRelay(ctx); err != nil && !errors.Is(err, context.Canceled) {
				sugar.Errorw("realtime relay stopped", "error", err)
			}
		}()
	}

	completer, err := services.NewCompletionClient(cfg.Guide, utils.Component(logger, "completion"))
	if err != nil {
		sugar.Fatalw("guide: completion client", "error", err)
	}

	tts := services.NewTTSService(cfg.Speech, utils.Component(logger, "speech"))

	managerOpts := []guide.ManagerOption{
		guide.WithArchive(archive),
		guide.WithLogger(utils.Component(logger, "guide")),
	}
	if cfg.Speech.Enabled && tts.Enabled() {
		managerOpts = append(managerOpts, guide.WithVoice(services.NewNarrator(tts)))
	}
	manager := guide.NewManager(completer, guide.ManagerConfig{
		Greeting:    cfg.Guide.Greeting,
		Fallback:    cfg.Guide.FallbackMessage,
		MaxSessions: cfg.Guide.MaxSessions,
		IdleTTL:     cfg.Guide.SessionIdleTTL,
	}, managerOpts...)
	go manager.RunPruner(ctx, pruneInterval)

	authService, err := auth.NewService(cfg.JWTSecret, 24*time.Hour, auth.WithUserStore(postgres))
	if err != nil {
		sugar.Fatalw("auth: failed to initialise", "error", err)
	}

	handler := api.NewHandler(api.Dependencies{
		Auth:    authService,
		Guide:   manager,
		Archive: archive,
		Content: content.NewService(postgres, hub, utils.Component(logger, "content")),
		Hub:     hub,
		Speech:  tts,
		Health:  health,
		Logger:  utils.Component(logger, "api"),
	})

	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     setupRouter(handler, logger, cfg.AllowedOrigins),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No write timeout: guide event streams and websockets stay open.
	}

	go func() {
		sugar.Infow("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server crashed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := manager.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("guide shutdown incomplete", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("graceful shutdown failed", "error", err)
	}

	sugar.Info("server stopped cleanly")
}

// transcriptArchive stores closed sessions and serves them back over the API.
type transcriptArchive interface {
	guide.Archive
	api.ConversationArchive
}

// openArchive prefers MongoDB and falls back to a local bbolt file.
func openArchive(ctx context.Context, cfg *utils.Config, logger *zap.SugaredLogger) (transcriptArchive, func()) {
	if cfg.Mongo.Enabled() {
		mongoStore, err := db.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			logger.Fatalw("mongo: failed to connect", "error", err)
		}
		if err := mongoStore.EnsureCollections(ctx); err != nil {
			logger.Fatalw("mongo: ensure collections", "error", err)
		}
		return mongoStore, func() {
			if err := mongoStore.Close(context.Background()); err != nil {
				logger.Warnw("mongo: close error", "error", err)
			}
		}
	}

	bolt, err := db.OpenBoltArchive(cfg.Archive.BoltPath)
	if err != nil {
		logger.Fatalw("archive: open bolt file", "path", cfg.Archive.BoltPath, "error", err)
	}
	logger.Infow("archiving transcripts locally", "path", cfg.Archive.BoltPath)
	return bolt, func() {
		if err := bolt.Close(); err != nil {
			logger.Warnw("archive: close error", "error", err)
		}
	}
}

func setupRouter(handler *api.Handler, logger *zap.Logger, origins []string) http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(logger.Named("http")))
	handler.RegisterRoutes(router)

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Last-Event-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(router)
}
