// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/sentinel/internal/anticheat"
	"github.com/tomtom215/sentinel/internal/api"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/credentials"
	"github.com/tomtom215/sentinel/internal/database"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/supervisor"
	"github.com/tomtom215/sentinel/internal/supervisor/services"
	"github.com/tomtom215/sentinel/internal/telemetry"
	ws "github.com/tomtom215/sentinel/internal/websocket"
)

const (
	credentialGCInterval = 10 * time.Minute
	limiterPruneInterval = 5 * time.Minute
	limiterIdleTimeout   = 10 * time.Minute
	readHeaderTimeout    = 5 * time.Second
	httpShutdownTimeout  = 10 * time.Second
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting Sentinel with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Violation and ban ledger
	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	duckStore := anticheat.NewDuckDBStore(db.Conn())
	if err := db.InitSchemas(ctx, duckStore); err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize anti-cheat schema")
	}
	store := anticheat.NewBreakerStore(duckStore, anticheat.DefaultBreakerSettings())
	logging.Info().Msg("Database initialized successfully")

	// Game client credentials
	badgerDB, err := credentials.OpenBadger(cfg.Credentials.Path, cfg.Credentials.InMemory)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open credential registry")
	}
	defer func() {
		if err := badgerDB.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing credential registry")
		}
	}()
	issuer, err := credentials.NewIssuer(&cfg.Credentials)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create credential issuer")
	}
	registry := credentials.NewBadgerRegistry(badgerDB)
	sessions := credentials.NewService(issuer, registry)

	wsHub := ws.NewHub()

	engineCfg, err := engineConfig(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid anti-cheat configuration")
	}
	engine, err := anticheat.NewEngine(engineCfg, anticheat.Dependencies{
		Store:       store,
		Connections: wsHub,
		Credentials: registry,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create anti-cheat engine")
	}
	defer engine.Close()

	// Telemetry pipeline
	transport, err := initTransport(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize telemetry transport")
	}
	defer transport.Close()

	router, err := telemetry.NewRouter(
		telemetry.RouterConfigFrom(&cfg.NATS),
		transport.transport.Subscriber,
		transport.transport.Publisher,
		telemetry.NewHandlers(engine),
		logging.NewWatermillAdapter(),
	)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create telemetry router")
	}
	logging.Info().Str("transport", transport.transport.Kind).Msg("Telemetry router configured")

	authn, err := initAuth(&cfg.Security, &cfg.Presence)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}
	logging.Info().Int("operators", authn.operators).Msg("Authentication configured")

	checks := map[string]api.ReadinessCheck{
		"database": db.Ping,
		"telemetry": func(context.Context) error {
			if !router.IsRunning() {
				return errors.New("telemetry router is not running")
			}
			return nil
		},
	}
	transport.addChecks(checks)

	handler := api.NewHandler(api.HandlerConfig{
		Engine:              engine,
		Publisher:           telemetry.NewPublisher(transport.transport.Publisher),
		Sessions:            sessions,
		APIKey:              authn.apiKey,
		IngestRatePerSecond: cfg.Security.IngestRatePerSecond,
		IngestBurst:         cfg.Security.IngestBurst,
		Checks:              checks,
	})

	chiCfg := api.DefaultChiMiddlewareConfig()
	chiCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	if cfg.Security.RateLimitReqs > 0 {
		chiCfg.RateLimitRequests = cfg.Security.RateLimitReqs
	}
	if cfg.Security.RateLimitWindow > 0 {
		chiCfg.RateLimitWindow = cfg.Security.RateLimitWindow
	}
	chiCfg.RateLimitDisabled = cfg.Security.RateLimitDisabled

	httpRouter := api.NewRouter(
		handler,
		authn.middleware,
		api.NewChiMiddleware(chiCfg),
		ws.NewHandler(wsHub, sessions, cfg.Security.CORSOrigins),
	)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           httpRouter.Setup(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	// Supervisor tree
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewRunnerService("ban-sweeper",
		anticheat.NewSweeper(engine, cfg.Anticheat.SweepInterval)))
	tree.AddDataService(services.NewPeriodicService("credential-gc", credentialGCInterval,
		func(context.Context) error { return registry.RunGC() }))
	tree.AddDataService(services.NewPeriodicService("ingest-limiter-prune", limiterPruneInterval,
		func(context.Context) error {
			if n := handler.PruneLimiters(limiterIdleTimeout); n > 0 {
				logging.Debug().Int("pruned", n).Msg("Pruned idle ingest limiters")
			}
			return nil
		}))

	tree.AddMessagingService(services.NewRunnerService("telemetry-router", services.RunnerFunc(router.Run)))
	tree.AddMessagingService(services.NewRunnerService("websocket-hub", wsHub))

	tree.AddAPIService(services.NewHTTPServerService(server, httpShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
