package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/chimp-sync/internal/adapters/driven/auth"
	"github.com/custodia-labs/chimp-sync/internal/adapters/driven/kafka"
	"github.com/custodia-labs/chimp-sync/internal/adapters/driven/mailchimp"
	"github.com/custodia-labs/chimp-sync/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/chimp-sync/internal/adapters/driven/redis"
	"github.com/custodia-labs/chimp-sync/internal/adapters/driving/http"
	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
	"github.com/custodia-labs/chimp-sync/internal/core/services"
	"github.com/custodia-labs/chimp-sync/internal/runtime"
	"github.com/custodia-labs/chimp-sync/internal/worker"
)

// app holds the wired adapters and services of one process
type app struct {
	cfg    *Config
	logger *slog.Logger

	db          *postgres.DB
	redisClient *redis.Client
	redisPinger http.Pinger

	authAdapter *auth.Adapter
	runtime     *runtime.Services

	settingsStore driven.SettingsStore
	tracker       driven.BatchTracker
	lock          driven.DistributedLock

	ledger        *services.LedgerService
	observer      *services.ChangeObserverService
	synchronizer  *services.SynchronizationService
	completion    *services.CompletionService
	subscriptions *services.SubscriptionWebhookService
	scheduler     *services.Scheduler
	settings      driving.SettingsService
	authService   driving.AuthService
}

// newApp connects the infrastructure and wires every service
func newApp(ctx context.Context, cfg *Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// ===== Initialize PostgreSQL =====
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.db = db

	if err := db.InitSchema(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	logger.Info("postgres connected and schema initialized")

	// ===== Initialize Redis (optional) =====
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redisClient = redis.NewClient(opts)
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("redis connected")
	}

	// ===== Driven adapters =====
	var encryptor *postgres.SecretEncryptor
	if cfg.EncryptionKey != "" {
		encryptor, err = postgres.NewSecretEncryptorFromBase64(cfg.EncryptionKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load encryption key: %w", err)
		}
	} else {
		logger.Warn("ENCRYPTION_KEY not set, the api key is stored unencrypted")
	}

	a.authAdapter = auth.NewAdapter(cfg.Auth.JWTSecret)
	a.settingsStore = postgres.NewSettingsStore(db, encryptor)
	recordStore := postgres.NewRecordStore(db)
	schedulerStore := postgres.NewSchedulerStore(db)
	catalog := postgres.NewCatalog(db)

	// Batch tracker and lock (Redis if available, otherwise PostgreSQL)
	if a.redisClient != nil {
		redisLock := redisadapter.NewLock(a.redisClient)
		a.lock = redisLock
		a.redisPinger = redisLock
		a.tracker = redisadapter.NewBatchTracker(a.redisClient, cfg.SyncTrackingTTL)
		logger.Info("using redis batch tracker and lock")
	} else {
		a.lock = postgres.NewAdvisoryLock(db)
		a.tracker = postgres.NewBatchTracker(db, cfg.SyncTrackingTTL)
		logger.Info("using postgres batch tracker and advisory lock")
	}

	a.runtime = runtime.NewServices(mailchimp.NewFactory(mailchimp.Config{
		BaseURL: cfg.MailChimpAPIURL,
		Logger:  logger,
	}))

	// ===== Services =====
	a.ledger = services.NewLedgerService(services.LedgerConfig{Store: recordStore, Logger: logger})
	a.observer = services.NewChangeObserverService(services.ObserverConfig{
		Ledger:  a.ledger,
		Catalog: catalog,
		Logger:  logger,
	})
	mapper := services.NewOperationMapper(services.MapperConfig{
		Ledger:  a.ledger,
		Catalog: catalog,
		Logger:  logger,
	})
	a.synchronizer = services.NewSynchronizationService(services.SynchronizerConfig{
		Ledger:          a.ledger,
		Mapper:          mapper,
		Dispatcher:      services.NewBatchDispatcher(logger),
		Clients:         a.runtime,
		Settings:        a.settingsStore,
		Tracker:         a.tracker,
		Catalog:         catalog,
		BatchWebhookURL: cfg.webhookURL(http.BatchWebhookPath),
		Logger:          logger,
	})
	a.completion = services.NewCompletionService(services.CompletionConfig{
		Clients: a.runtime,
		Tracker: a.tracker,
		Logger:  logger,
	})
	a.subscriptions = services.NewSubscriptionWebhookService(services.SubscriptionWebhookConfig{
		Catalog:  catalog,
		Writer:   catalog,
		Settings: a.settingsStore,
		Logger:   logger,
	})
	a.scheduler = services.NewScheduler(services.SchedulerConfig{
		Store:        schedulerStore,
		Synchronizer: a.synchronizer,
		Lock:         a.lock,
		Logger:       logger,
		PollInterval: cfg.Scheduler.PollInterval,
	})
	a.settings = services.NewSettingsService(services.SettingsServiceConfig{
		Store:          a.settingsStore,
		Catalog:        catalog,
		Ledger:         a.ledger,
		Services:       a.runtime,
		Scheduler:      a.scheduler,
		ListWebhookURL: cfg.webhookURL(http.SubscriptionWebhookPath),
		Logger:         logger,
	})
	a.authService = services.NewAuthService(a.authAdapter, cfg.Auth.AdminUsername, cfg.Auth.AdminPasswordHash, cfg.Auth.TokenTTL)

	if err := a.loadSettings(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// loadSettings configures the remote client and the schedule from the saved settings
func (a *app) loadSettings(ctx context.Context) error {
	settings, err := a.settingsStore.GetSettings(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		settings = domain.DefaultSettings()
	} else if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err := a.runtime.Configure(settings.APIKey); err != nil {
		a.logger.Warn("stored api key is unusable", "error", err)
	}
	if err := a.scheduler.Reschedule(ctx, settings); err != nil {
		return fmt.Errorf("schedule synchronization: %w", err)
	}

	a.logger.Info("settings loaded",
		"api_key_configured", a.runtime.IsConfigured(),
		"ecommerce", settings.PassEcommerceData,
		"auto_synchronization", settings.AutoSynchronization,
	)
	return nil
}

// newServer builds the HTTP server over the wired services
func (a *app) newServer() *http.Server {
	return http.NewServer(http.Config{
		Host:    a.cfg.HTTP.Host,
		Port:    a.cfg.HTTP.Port,
		Version: version,
		Logger:  a.logger,
	}, http.Services{
		Auth:          a.authService,
		Settings:      a.settings,
		Ledger:        a.ledger,
		Observer:      a.observer,
		Synchronizer:  a.synchronizer,
		Completion:    a.completion,
		Subscriptions: a.subscriptions,
		DB:            a.db,
		Redis:         a.redisPinger,
	})
}

// newWorker builds the change event worker. Events come from Kafka when brokers
// are configured, from the Redis stream when Redis is available, and from the
// change_events table otherwise. The scheduler is attached when enabled.
func (a *app) newWorker(ctx context.Context) (*worker.Worker, error) {
	cfg := worker.WorkerConfig{
		Observer: a.observer,
		Logger:   a.logger,
	}

	switch {
	case a.cfg.KafkaEnabled():
		source, err := kafka.NewEventSource(kafka.Config{
			Brokers: kafka.ParseBrokers(a.cfg.Kafka.Brokers),
			Topic:   a.cfg.Kafka.Topic,
			GroupID: a.cfg.Kafka.GroupID,
			Logger:  a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create kafka event source: %w", err)
		}
		cfg.Source = source
		a.logger.Info("consuming change events from kafka", "topic", a.cfg.Kafka.Topic, "group_id", a.cfg.Kafka.GroupID)

	case a.redisClient != nil && a.cfg.ChangesStream != "":
		host, _ := os.Hostname()
		source, err := redisadapter.NewEventStream(ctx, a.redisClient, redisadapter.StreamConfig{
			Stream:   a.cfg.ChangesStream,
			Group:    a.cfg.Kafka.GroupID,
			Consumer: fmt.Sprintf("%s-%d", host, os.Getpid()),
			Logger:   a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis event stream: %w", err)
		}
		cfg.Source = source
		a.logger.Info("consuming change events from redis", "stream", a.cfg.ChangesStream)

	default:
		cfg.Source = postgres.NewEventOutbox(a.db, postgres.OutboxConfig{Logger: a.logger})
		a.logger.Info("consuming change events from the change_events table")
	}

	if a.cfg.Scheduler.Enabled {
		cfg.Scheduler = a.scheduler
		a.logger.Info("scheduler enabled", "poll_interval", a.cfg.Scheduler.PollInterval)
	} else {
		a.logger.Info("scheduler disabled via SCHEDULER_ENABLED=false")
	}

	return worker.NewWorker(cfg), nil
}

// Close releases the connections
func (a *app) Close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}
}
