package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/roomcast/server/internal/auth"
	"github.com/roomcast/server/internal/config"
	"github.com/roomcast/server/internal/core"
	"github.com/roomcast/server/internal/presence"
	"github.com/roomcast/server/internal/store"
	"github.com/roomcast/server/internal/store/sqlite"
	transporthttp "github.com/roomcast/server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	redis           *presence.RedisStatus
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	var (
		status      presence.Status
		redisStatus *presence.RedisStatus
	)
	if cfg.RedisAddr != "" {
		redisStatus, err = presence.NewRedisStatus(ctx, cfg.RedisAddr)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("init redis presence: %w", err)
		}
		status = redisStatus
		logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("redis presence initialized")
	} else {
		status = presence.NewStoreStatus(st)
	}

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      24 * time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	publisher := core.NewPresencePublisher(status, logger.With().Str("component", "presence").Logger())
	hub := core.NewHub(st, publisher, core.Options{DefaultRoom: cfg.DefaultRoom},
		logger.With().Str("component", "hub").Logger())

	server := transporthttp.NewServer(hub, authService, st, status, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		redis:           redisStatus,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis presence")
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
