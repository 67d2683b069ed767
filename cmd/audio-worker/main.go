package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/atendezap/atendezap/internal/assistant"
	"github.com/atendezap/atendezap/internal/audioproc"
	appconfig "github.com/atendezap/atendezap/internal/config"
	"github.com/atendezap/atendezap/internal/instance"
	"github.com/atendezap/atendezap/internal/observability/metrics"
	"github.com/atendezap/atendezap/internal/realtime"
	"github.com/atendezap/atendezap/internal/settings"
	"github.com/atendezap/atendezap/internal/ticketing"
	"github.com/atendezap/atendezap/internal/transcribe"
	"github.com/atendezap/atendezap/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" || cfg.WorkerInstance == "" {
		logger.Error("audio worker requires DATABASE_URL and WORKER_INSTANCE")
		os.Exit(1)
	}

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
	inst, err := resolver.Resolve(ctx, cfg.WorkerInstance)
	if err != nil {
		logger.Error("failed to resolve worker instance", "instance", cfg.WorkerInstance, "error", err)
		os.Exit(1)
	}
	logger.Info("audio worker bound to instance",
		"instance", cfg.WorkerInstance,
		"client_id", inst.ClientID.String(),
	)

	store := ticketing.NewStore(pool)
	creds := settings.NewStore(pool, redisClient, cfg.OpenAIAPIKey, logger)

	whisper := transcribe.NewWhisperClient(
		transcribe.WithModel(cfg.WhisperModel),
		transcribe.WithLanguage(cfg.WhisperLanguage),
	)
	engine := transcribe.NewEngine(whisper, logger, cfg.SpeechTimeout)

	media := audioproc.NewGatewayClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey)

	var trigger *assistant.Trigger
	if cfg.AssistantBaseURL != "" {
		wiring := assistant.NewWiringStore(pool)
		runner := assistant.NewHTTPRunner(cfg.AssistantBaseURL, cfg.AssistantAPIKey, nil)
		trigger = assistant.NewTrigger(wiring, runner, logger, cfg.AssistantTimeout)
	}

	var subscriber *realtime.Subscriber
	if cfg.RealtimeURL != "" {
		tokens := realtime.NewTokenSource(cfg.RealtimeSecret, time.Hour)
		subscriber = realtime.NewSubscriber(cfg.RealtimeURL, tokens, logger)
	}

	session := audioproc.NewSession(
		inst.ClientID, inst.ID,
		store, media, creds, engine, trigger, subscriber,
		metrics.NewIngestionMetrics(nil), logger,
		audioproc.Config{
			MaxConcurrent:  cfg.AudioWorkerCap,
			ProcessTimeout: cfg.AudioProcessTimeout,
			PollInterval:   cfg.AudioPollInterval,
			IdleThreshold:  cfg.RealtimeIdleThreshold,
		},
	)

	if subscriber != nil {
		go func() {
			if err := subscriber.Run(ctx, cfg.WorkerInstance, func(ev realtime.MessageEvent) {
				session.HandleRealtime(ctx, ev)
			}); err != nil && ctx.Err() == nil {
				logger.Error("realtime subscriber stopped", "error", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		session.Run(ctx)
		close(done)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("audio worker shutting down")
	cancel()
	<-done
}
