package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/auth"
	"github.com/vovakirdan/wirechat-gateway/internal/config"
	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
	"github.com/vovakirdan/wirechat-gateway/internal/metrics"
	"github.com/vovakirdan/wirechat-gateway/internal/ratelimit"
	"github.com/vovakirdan/wirechat-gateway/internal/service/friends"
	"github.com/vovakirdan/wirechat-gateway/internal/service/messages"
	"github.com/vovakirdan/wirechat-gateway/internal/service/rooms"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
	"github.com/vovakirdan/wirechat-gateway/internal/store/cached"
	"github.com/vovakirdan/wirechat-gateway/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-gateway/internal/transport/http"
)

// App wires together store, services, gateway and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	gw              *gateway.Gateway
	store           store.Store
	redis           *redis.Client
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	st := cached.New(db, cfg.UserCacheSize, cfg.UserCacheTTL)
	authService := NewAuthService(cfg, st)

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}

	limiter, authLimiter := a.limiters(cfg)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	a.hub = core.NewHub(logger)
	roomService := rooms.New(st, cfg.HistoryLimit)
	friendService := friends.New(st, roomService)

	a.gw = gateway.New(gateway.Deps{
		Hub:            a.hub,
		Auth:           authService,
		Rooms:          roomService,
		Friends:        friendService,
		Messages:       messages.New(st),
		Limiter:        limiter,
		Metrics:        m,
		Logger:         logger,
		HandlerTimeout: cfg.HandlerTimeout,
	})

	a.server = transporthttp.NewServer(transporthttp.Deps{
		Gateway:     a.gw,
		Auth:        authService,
		Rooms:       roomService,
		Friends:     friendService,
		AuthLimiter: authLimiter,
		Metrics:     m,
		Logger:      logger,
	}, *cfg)

	return a, nil
}

// NewAuthService builds the account service from configuration.
func NewAuthService(cfg *config.Config, st store.UserStore) *auth.Service {
	return auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}, cfg.InvitationCode)
}

// limiters picks Redis-backed limiters when an address is configured so
// quotas hold across gateway instances, and in-process ones otherwise.
func (a *App) limiters(cfg *config.Config) (events, authRoutes ratelimit.Limiter) {
	if cfg.RedisAddr == "" {
		return ratelimit.NewLocal(cfg.RateLimitPerMinute), ratelimit.NewLocal(cfg.AuthRateLimitPerMinute)
	}

	a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	a.log.Info().Str("redis_addr", cfg.RedisAddr).Msg("using redis rate limiter")
	return ratelimit.NewRedis(a.redis, "wirechat:rl:event:", cfg.RateLimitPerMinute),
		ratelimit.NewRedis(a.redis, "wirechat:rl:auth:", cfg.AuthRateLimitPerMinute)
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
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
		// Websocket sessions are hijacked and outlive Shutdown; the hub has
		// closed them, wait for their handlers before closing the store.
		if err := a.gw.Drain(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("websocket sessions still running")
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis client")
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
