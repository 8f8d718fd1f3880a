package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/staydesk/internal/auth"
	"github.com/kirinyoku/staydesk/internal/config"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/events"
	"github.com/kirinyoku/staydesk/internal/gateway"
	"github.com/kirinyoku/staydesk/internal/postgres"
	"github.com/kirinyoku/staydesk/internal/redis"
	"github.com/kirinyoku/staydesk/internal/repository"
	"github.com/kirinyoku/staydesk/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/staydesk/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/staydesk/internal/repository/redis"
	"github.com/kirinyoku/staydesk/internal/service"
	"github.com/kirinyoku/staydesk/internal/service/booking"
	"github.com/kirinyoku/staydesk/internal/service/payment"
	"github.com/kirinyoku/staydesk/internal/service/query"
	"github.com/kirinyoku/staydesk/internal/service/rooms"
	httpgin "github.com/kirinyoku/staydesk/internal/transport/http/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	pubsub     *redisrepo.RoomsPubSub
	closers    []func() error
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()
	a := &App{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var (
		cache   *redisrepo.Cache
		pubsub  *redisrepo.RoomsPubSub
		limiter *redisrepo.SlidingWindowLimiter
		locker  *redisrepo.Locker
		idem    *redisrepo.IdempotencyStore
	)

	if cfg.Redis.Enabled {
		rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)

		cache = redisrepo.New(rdb)
		pubsub = redisrepo.NewRoomsPubSub(rdb)
		limiter = redisrepo.NewSlidingWindowLimiter(rdb, "bookings", cfg.RateLimit.BookingsPerMinute, time.Minute)
		locker = redisrepo.NewLocker(rdb)
		idem = redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)
	} else {
		logger.Warn("redis disabled: no cache, rate limit, idempotency or cross-instance locks")
	}

	var gw gateway.Gateway
	if cfg.Gateway.BaseURL != "" {
		gw = gateway.NewHTTPGateway(gateway.HTTPConfig{
			BaseURL: cfg.Gateway.BaseURL,
			APIKey:  cfg.Gateway.APIKey,
			Timeout: cfg.Gateway.Timeout,
		})
	} else {
		logger.Warn("GATEWAY_BASE_URL not set, using mock payment gateway")
		gw = gateway.NewMockGateway(logger)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.closers = append(a.closers, kp.Close)
		publisher = kp
	}

	manual := make([]domain.PaymentMethod, 0, len(cfg.Booking.ManualMethods))
	for _, m := range cfg.Booking.ManualMethods {
		pm := domain.PaymentMethod(m)
		if !pm.IsValid() {
			a.Close()
			return nil, fmt.Errorf("invalid BOOKING_MANUAL_METHODS entry %q", m)
		}
		manual = append(manual, pm)
	}

	a.services = service.NewServices(service.Deps{
		Store:     store,
		Cache:     cache,
		PubSub:    pubsub,
		Limiter:   limiter,
		Locker:    locker,
		Gateway:   gw,
		Publisher: publisher,
		Logger:    logger,
	}, service.Config{
		Rooms: rooms.Config{OccupancyBuffer: cfg.Booking.OccupancyBuffer},
		Booking: booking.Config{
			Currency:      cfg.Booking.Currency,
			CountryCode:   cfg.Booking.CountryCode,
			ManualMethods: manual,
		},
		Payment: payment.Config{
			AccountRef:    cfg.Gateway.AccountRef,
			CountryCode:   cfg.Booking.CountryCode,
			ManualMethods: manual,
		},
		Query: query.Config{Currency: cfg.Booking.Currency},
	})
	a.pubsub = pubsub

	verifier := auth.NewVerifier(auth.Config{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.JWTIssuer})

	router := httpgin.NewRouter(a.services, verifier, idem, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	if a.cfg.Store.Driver == "memory" {
		a.logger.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	}

	pool, err := postgres.New(ctx, postgres.Config{DSN: a.cfg.Postgres.DSN(), MaxConns: a.cfg.Postgres.MaxConns})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	if a.cfg.Postgres.AutoMigrate {
		if err := migrate(ctx, pool); err != nil {
			return nil, err
		}
		a.logger.Info("database schema applied")
	}

	return postgresrepo.NewStore(pool), nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := postgres.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Drop cached room records whenever any instance reports a change.
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, roomID uuid.UUID, reason string) {
			a.logger.Debug("room changed", "room_id", roomID, "reason", reason)
			a.services.Rooms.InvalidateCache(ctx, roomID)
		})
		if err != nil && !errors.Is(err, goredis.ErrClosed) {
			return fmt.Errorf("rooms subscriber: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close", "error", err)
		}
	}
	a.closers = nil
}
