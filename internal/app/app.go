package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/roomchat-server/internal/auth"
	"github.com/vovakirdan/roomchat-server/internal/broker"
	"github.com/vovakirdan/roomchat-server/internal/chat"
	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/store"
	transporthttp "github.com/vovakirdan/roomchat-server/internal/transport/http"
)

// App wires together store, broker, core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	broker          broker.Broker
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	events, err := broker.New(ctx, cfg.Broker)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init broker: %w", err)
	}
	logger.Info().Str("driver", cfg.Broker.Driver).Msg("broker initialized")

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.TTL,
	})
	chatService := chat.NewService(st, events, logger)
	hub := core.NewHub(logger)

	server, err := transporthttp.NewServer(hub, chatService, authService, cfg, logger)
	if err != nil {
		events.Close()
		st.Close()
		return nil, err
	}

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		broker:          events,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the hub, the broker relay and the HTTP server, and blocks until
// ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	events, err := a.broker.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to broker: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hub.Run(gctx)
	})
	g.Go(func() error {
		return a.hub.Relay(gctx, events)
	})
	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// cleanup closes the broker, the database and other resources.
func (a *App) cleanup() {
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close broker")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
