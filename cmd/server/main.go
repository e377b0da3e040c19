// Package main provides the entry point for the INSPIRE papers catalog HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/czczc/inspire-papers-viewer/internal/config"
	"github.com/czczc/inspire-papers-viewer/internal/database"
	"github.com/czczc/inspire-papers-viewer/internal/events"
	"github.com/czczc/inspire-papers-viewer/internal/observability"
	"github.com/czczc/inspire-papers-viewer/internal/papersources/inspire"
	"github.com/czczc/inspire-papers-viewer/internal/repository"
	httpserver "github.com/czczc/inspire-papers-viewer/internal/server/http"
	"github.com/czczc/inspire-papers-viewer/internal/session"
	"github.com/czczc/inspire-papers-viewer/internal/smallpapers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = observability.WithComponent(logger, "server")
	logger.Info().Msg("inspire-papers server starting")

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		if err := migrateUp(db, cfg.Database.MigrationPath, logger); err != nil {
			return err
		}
	}

	publisher, err := newPublisher(cfg.Events, logger, metrics)
	if err != nil {
		return fmt.Errorf("create event publisher: %w", err)
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close event publisher")
		}
	}()

	gateway := smallpapers.NewGateway(
		repository.NewPgSmallPaperRepository(db),
		logger,
		smallpapers.WithMetrics(metrics),
		smallpapers.WithPublisher(publisher),
	)

	literature := inspire.NewClient(inspire.Config{
		BaseURL:              cfg.Inspire.BaseURL,
		Timeout:              cfg.Inspire.Timeout,
		RateLimit:            cfg.Inspire.RateLimit,
		BurstSize:            cfg.Inspire.Burst,
		MaxRetries:           cfg.Inspire.MaxRetries,
		DefaultCollaboration: cfg.Inspire.DefaultCollaboration,
		PageSize:             cfg.Inspire.PageSize,
		Metrics:              metrics,
		Logger:               logger,
	}, nil)

	deps := httpserver.Deps{
		SmallPapers: gateway,
		Literature:  literature,
		Health:      db,
		Metrics:     metrics,
		Logger:      logger,
	}
	if cfg.Auth.Enabled {
		provider, err := session.NewOAuthProvider(oauthConfig(cfg.Auth), logger)
		if err != nil {
			return fmt.Errorf("create identity provider: %w", err)
		}
		tokens, err := session.NewTokenIssuer(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
		if err != nil {
			return fmt.Errorf("create session token issuer: %w", err)
		}
		deps.Auth = provider
		deps.Tokens = tokens
	} else {
		logger.Warn().Msg("sign-in is disabled; small paper mutations will be refused")
	}

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RedirectURL:     cfg.Auth.RedirectURL,
		CookieSecure:    cfg.Auth.CookieSecure,
	}
	httpSrv := httpserver.NewServer(httpCfg, deps)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("inspire-papers is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down inspire-papers")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("inspire-papers shutdown complete")
	return nil
}

func migrateUp(db *database.DB, path string, logger zerolog.Logger) error {
	migrator, err := database.NewMigrator(db, path, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func newPublisher(cfg config.EventsConfig, logger zerolog.Logger, metrics *observability.Metrics) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.NopPublisher{}, nil
	}
	return events.NewKafkaPublisher(events.Config{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, logger, metrics)
}

func oauthConfig(cfg config.AuthConfig) session.OAuthConfig {
	return session.OAuthConfig{
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		AuthURL:       cfg.AuthURL,
		TokenURL:      cfg.TokenURL,
		UserInfoURL:   cfg.UserInfoURL,
		Scopes:        cfg.Scopes,
		CallbackPort:  cfg.CallbackPort,
		SignInTimeout: cfg.SignInTimeout,
	}
}
