package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"webgen_server/api"
	"webgen_server/config"
	"webgen_server/internal/ai"
	handlers "webgen_server/internal/api"
	"webgen_server/internal/events"
	"webgen_server/internal/llm"
	"webgen_server/internal/logger"
	"webgen_server/internal/metrics"
	"webgen_server/internal/middleware"
	"webgen_server/internal/store"
)

func main() {
	// --- Load .env file ---
	// Must run before viper reads the environment.
	envErr := godotenv.Load()

	// --- Configuration Loading ---
	cfg, fileUsed, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Cannot build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	switch {
	case envErr == nil:
		zl.Info("loaded environment variables from .env file")
	case os.IsNotExist(envErr):
		zl.Info(".env file not found, relying on system environment variables")
	default:
		zl.Warn("error loading .env file", zap.Error(envErr))
	}
	zl.Info("configuration loaded", zap.Bool("config_file", fileUsed), zap.String("addr", cfg.Addr()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Dependency Initialization ---
	m := metrics.New()

	st, closers, err := buildStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize store", zap.Error(err))
	}
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	var publisher events.Publisher = events.Nop{}
	checks := []handlers.HealthCheck{{Name: "store", Check: st.Ping}}
	if cfg.NATSURL != "" {
		natsPub, err := events.NewNATSPublisher(cfg.NATSURL, zl)
		if err != nil {
			zl.Warn("nats unavailable, project events disabled", zap.Error(err))
		} else {
			publisher = natsPub
			checks = append(checks, handlers.HealthCheck{Name: "nats", Check: func(context.Context) error {
				if !natsPub.Connected() {
					return errors.New("not connected")
				}
				return nil
			}})
		}
	}
	defer publisher.Close()

	endpoints := llm.DefaultEndpoints()
	if cfg.LocalEndpoints != "" {
		endpoints, err = llm.ParseEndpoints(cfg.LocalEndpoints)
		if err != nil {
			zl.Fatal("invalid LOCAL_ENDPOINTS", zap.Error(err))
		}
	}

	registry := llm.DefaultRegistry()
	// Generation deadlines are carried by contexts, not by the client.
	httpClient := &http.Client{}
	resolver := llm.NewResolver(registry, endpoints, llm.HTTPProber{Client: httpClient}, cfg.ProbeTimeout, zl.Named("discovery"))
	resolver.OnProbe = m.ObserveProbe

	router := &llm.Router{
		HostedA: llm.NewOpenAIAdapter(cfg.OpenAIKey, cfg.OpenAIBaseURL, httpClient),
		HostedB: llm.NewGeminiAdapter(cfg.GeminiKey, cfg.GeminiBaseURL, httpClient),
		Native:  llm.NewOllamaAdapter(httpClient),
		Compat:  llm.NewCompatAdapter(httpClient),
	}

	generator := ai.NewGenerator(resolver, router,
		ai.WithTimeouts(ai.Timeouts{
			Generation: cfg.GenerationTimeout,
			Request:    cfg.RequestTimeout,
			Comparison: cfg.ComparisonTimeout,
		}),
		ai.WithLogger(zl.Named("generator")),
		ai.WithRecorder(m),
	)

	apiHandler := handlers.NewAPIHandler(generator, st, publisher, registry, zl.Named("api"), checks...)

	// --- Start API Server ---
	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(zl.Named("http"), m))
	engine.Use(middleware.CORS())

	api.RegisterRoutes(engine, apiHandler, middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), m.Handler())

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		// generation responses can take up to the comparison deadline
		WriteTimeout: cfg.ComparisonTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("starting API server", zap.String("addr", cfg.Addr()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("API server listen error", zap.Error(err))
		}
		zl.Info("API server has stopped listening")
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zl.Info("shutting down server", zap.String("signal", sig.String()))

	shutdownCtx, serverCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer serverCancel()
	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("API server forced shutdown", zap.Error(err))
	} else {
		zl.Info("API server gracefully stopped")
	}
	zl.Info("application exiting")
}

// buildStore assembles the persistence chain: document store, then export
// sinks, then the read cache closest to the handlers.
func buildStore(ctx context.Context, cfg config.Config, zl *zap.Logger) (store.Store, []func(), error) {
	var closers []func()
	var base store.Store

	if cfg.DatabaseURL != "" {
		if cfg.RunMigrations {
			if err := store.RunMigrations(cfg.DatabaseURL, zl); err != nil {
				return nil, nil, err
			}
		}
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = pg.Close() })
		base = pg
		zl.Info("using postgres store")
	} else {
		base = store.NewMemoryStore()
		zl.Info("DATABASE_URL not set, using in-memory store")
	}

	var sinks []store.Sink
	if cfg.MinioEnabled() {
		sink, err := store.NewMinioSink(store.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			zl.Warn("minio export disabled", zap.Error(err))
		} else {
			sinks = append(sinks, sink)
		}
	}
	if cfg.ExportDir != "" {
		sinks = append(sinks, store.DiskSink{Root: cfg.ExportDir})
	}
	if len(sinks) > 0 {
		base = store.NewExportingStore(base, zl.Named("export"), sinks...)
	}

	var cache store.Cache
	if cfg.RedisURL != "" {
		client, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zl.Warn("redis unavailable, falling back to in-process cache", zap.Error(err))
		} else {
			closers = append(closers, func() { _ = client.Close() })
			cache = store.NewRedisCache(client, cfg.CacheTTL, zl.Named("cache"))
		}
	}
	if cache == nil {
		cache = store.NewLRUCache(cfg.CacheSize, cfg.CacheTTL)
	}
	return store.NewCachedStore(base, cache), closers, nil
}
