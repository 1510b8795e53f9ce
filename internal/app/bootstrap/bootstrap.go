package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	wallet "flowsmartly/contexts/finance-core/wallet-service"
	walletpostgres "flowsmartly/contexts/finance-core/wallet-service/adapters/postgres"
	delegation "flowsmartly/contexts/identity-access/delegation-service"
	delegationpostgres "flowsmartly/contexts/identity-access/delegation-service/adapters/postgres"
	"flowsmartly/contexts/identity-access/delegation-service/application/workers"
	session "flowsmartly/contexts/identity-access/session-service"
	hashadapter "flowsmartly/contexts/identity-access/session-service/adapters/hash"
	sessionpostgres "flowsmartly/contexts/identity-access/session-service/adapters/postgres"
	tokenadapter "flowsmartly/contexts/identity-access/session-service/adapters/token"
	"flowsmartly/internal/platform/config"
	"flowsmartly/internal/platform/db"
	"flowsmartly/internal/platform/httpserver"
	"flowsmartly/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	producer     *messaging.Producer
	relay        workers.NotificationRelay
	relayEnabled bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	sessionRepo := sessionpostgres.NewRepository(pg.DB, logger)
	sessionModule := session.NewModule(session.Dependencies{
		Sessions:    sessionRepo,
		Directory:   sessionRepo,
		Hasher:      hashadapter.BcryptHasher{},
		Signer:      tokenadapter.JWTSigner{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer},
		Clock:       sessionpostgres.SystemClock{},
		IDGenerator: sessionpostgres.UUIDGenerator{},
		SessionTTL:  cfg.SessionTTL,
		Logger:      logger,
	})

	delegationRepo := delegationpostgres.NewRepository(pg.DB, logger)
	delegationModule := delegation.NewModule(delegation.Dependencies{
		Repository:  delegationRepo,
		Audit:       delegationRepo,
		Outbox:      delegationRepo,
		Sessions:    sessionModule.Resolver,
		Publisher:   messaging.NewProducer(cfg.KafkaBrokers, cfg.NotificationTopic, logger),
		Clock:       delegationpostgres.SystemClock{},
		IDGenerator: delegationpostgres.UUIDGenerator{},
		Logger:      logger,
	})

	walletModule := wallet.NewModule(wallet.Dependencies{
		Repository:  walletpostgres.NewRepository(pg.DB, logger),
		Gate:        delegationModule.Gate,
		Clock:       walletpostgres.SystemClock{},
		IDGenerator: walletpostgres.UUIDGenerator{},
		Logger:      logger,
	})

	server := httpserver.New(sessionModule, delegationModule, walletModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.NotificationTopic, logger)
	repo := delegationpostgres.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		producer: producer,
		relay: workers.NotificationRelay{
			Outbox:    repo,
			Publisher: producer,
			Clock:     delegationpostgres.SystemClock{},
			BatchSize: cfg.RelayBatchSize,
			Logger:    logger,
		},
		relayEnabled: cfg.EnableNotificationRelay,
		pollInterval: cfg.RelayInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	if err := a.postgres.Ping(ctx); err != nil {
		return err
	}
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if !w.relayEnabled {
		w.logger.Info("notification relay disabled",
			"event", "bootstrap_worker_idle",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		// A failed pass leaves its rows pending; the next tick retries them.
		if err := w.relay.RunOnce(ctx); err != nil {
			w.logger.Error("notification relay pass failed",
				"event", "bootstrap_relay_pass_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.producer != nil {
		if err := w.producer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.postgres != nil {
		if err := w.postgres.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
