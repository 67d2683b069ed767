package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/atendezap/atendezap/internal/api/router"
	"github.com/atendezap/atendezap/internal/assistant"
	appconfig "github.com/atendezap/atendezap/internal/config"
	"github.com/atendezap/atendezap/internal/http/handlers"
	"github.com/atendezap/atendezap/internal/instance"
	"github.com/atendezap/atendezap/internal/observability/metrics"
	"github.com/atendezap/atendezap/internal/ticketing"
	"github.com/atendezap/atendezap/internal/transcribe"
	"github.com/atendezap/atendezap/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting atendezap ingestion API",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("ingestion API requires DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	instRepo := instance.NewRepository(pool)
	resolver := instance.NewResolver(instRepo, logger)

	store := ticketing.NewStore(pool)
	pipeline := ticketing.NewPipeline(store, logger)

	wiring := assistant.NewWiringStore(pool)
	runner := assistant.NewHTTPRunner(cfg.AssistantBaseURL, cfg.AssistantAPIKey, nil)
	trigger := assistant.NewTrigger(wiring, runner, logger, cfg.AssistantTimeout)

	whisper := transcribe.NewWhisperClient(
		transcribe.WithModel(cfg.WhisperModel),
		transcribe.WithLanguage(cfg.WhisperLanguage),
	)
	engine := transcribe.NewEngine(whisper, logger, cfg.SpeechTimeout)
	transcribeHandler := transcribe.NewHandler(engine, store, cfg.OpenAIAPIKey, cfg.AudioDownloadUA, logger)

	ingestionMetrics := metrics.NewIngestionMetrics(nil)

	webhookHandler := handlers.NewGatewayWebhookHandler(handlers.GatewayWebhookConfig{
		Resolver:    resolver,
		Connections: instRepo,
		Pipeline:    pipeline,
		RawLog:      store,
		Trigger:     trigger,
		Metrics:     ingestionMetrics,
		Logger:      logger,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		Webhook:            webhookHandler,
		Transcribe:         transcribeHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
