package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/czczc/inspire-papers-viewer/internal/database"
	"github.com/czczc/inspire-papers-viewer/internal/events"
	"github.com/czczc/inspire-papers-viewer/internal/papersources/inspire"
	"github.com/czczc/inspire-papers-viewer/internal/repository"
	"github.com/czczc/inspire-papers-viewer/internal/session"
	"github.com/czczc/inspire-papers-viewer/internal/smallpapers"
)

// openDatabase connects to PostgreSQL. The caller must close the result.
func openDatabase(ctx context.Context) (*database.DB, error) {
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// openGateway returns the small paper gateway and a cleanup func.
func openGateway(ctx context.Context) (*smallpapers.Gateway, func(), error) {
	db, err := openDatabase(ctx)
	if err != nil {
		return nil, nil, err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		kp, err := events.NewKafkaPublisher(events.Config{
			Brokers:      cfg.Events.Brokers,
			Topic:        cfg.Events.Topic,
			BatchTimeout: cfg.Events.BatchTimeout,
			WriteTimeout: cfg.Events.WriteTimeout,
		}, logger, nil)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("create event publisher: %w", err)
		}
		publisher = kp
	}

	gateway := smallpapers.NewGateway(repository.NewPgSmallPaperRepository(db), logger, smallpapers.WithPublisher(publisher))
	cleanup := func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close event publisher")
		}
		db.Close()
	}
	return gateway, cleanup, nil
}

func newInspireClient() *inspire.Client {
	return inspire.NewClient(inspire.Config{
		BaseURL:              cfg.Inspire.BaseURL,
		Timeout:              cfg.Inspire.Timeout,
		RateLimit:            cfg.Inspire.RateLimit,
		BurstSize:            cfg.Inspire.Burst,
		MaxRetries:           cfg.Inspire.MaxRetries,
		DefaultCollaboration: cfg.Inspire.DefaultCollaboration,
		PageSize:             cfg.Inspire.PageSize,
		Logger:               logger,
	}, nil)
}

// newSessions builds a session gateway over the loopback OAuth flow.
func newSessions() (*session.Gateway, error) {
	if cfg.Auth.ClientID == "" {
		return nil, errors.New("sign-in is not configured: set auth.client_id")
	}
	provider, err := session.NewOAuthProvider(session.OAuthConfig{
		ClientID:      cfg.Auth.ClientID,
		ClientSecret:  cfg.Auth.ClientSecret,
		AuthURL:       cfg.Auth.AuthURL,
		TokenURL:      cfg.Auth.TokenURL,
		UserInfoURL:   cfg.Auth.UserInfoURL,
		Scopes:        cfg.Auth.Scopes,
		CallbackPort:  cfg.Auth.CallbackPort,
		SignInTimeout: cfg.Auth.SignInTimeout,
	}, logger, session.WithOpener(openConsent))
	if err != nil {
		return nil, fmt.Errorf("create identity provider: %w", err)
	}
	return session.NewGateway(provider, logger, nil), nil
}

// openConsent prints the consent URL and tries the system browser. A browser
// that cannot be started is not fatal; the user can follow the printed link.
func openConsent(url string) error {
	fmt.Fprintf(os.Stderr, "Open this URL to sign in:\n  %s\n", url)
	if err := session.OpenBrowser(url); err != nil {
		logger.Debug().Err(err).Msg("could not start browser")
	}
	return nil
}
