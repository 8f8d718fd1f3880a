package service

import (
	"log/slog"

	"github.com/kirinyoku/staydesk/internal/events"
	"github.com/kirinyoku/staydesk/internal/gateway"
	"github.com/kirinyoku/staydesk/internal/repository"
	redisrepo "github.com/kirinyoku/staydesk/internal/repository/redis"
	"github.com/kirinyoku/staydesk/internal/service/booking"
	"github.com/kirinyoku/staydesk/internal/service/payment"
	"github.com/kirinyoku/staydesk/internal/service/query"
	"github.com/kirinyoku/staydesk/internal/service/rooms"
)

type Services struct {
	Rooms    *rooms.Service
	Bookings *booking.Service
	Payments *payment.Service
	Query    *query.Service
}

type Config struct {
	Rooms   rooms.Config
	Booking booking.Config
	Payment payment.Config
	Query   query.Config
}

// Deps are the adapters shared by all services. Redis-backed ones may be nil.
type Deps struct {
	Store     repository.Store
	Cache     *redisrepo.Cache
	PubSub    *redisrepo.RoomsPubSub
	Limiter   *redisrepo.SlidingWindowLimiter
	Locker    *redisrepo.Locker
	Gateway   gateway.Gateway
	Publisher events.Publisher
	Logger    *slog.Logger
}

func NewServices(d Deps, cfg Config) *Services {
	roomsSvc := rooms.New(d.Store, d.Cache, d.PubSub, d.Logger, cfg.Rooms)

	return &Services{
		Rooms:    roomsSvc,
		Bookings: booking.New(d.Store, d.PubSub, d.Limiter, d.Publisher, d.Logger, cfg.Booking),
		Payments: payment.New(d.Store, d.Gateway, d.Locker, d.Publisher, d.Logger, cfg.Payment),
		Query:    query.New(d.Store, roomsSvc, cfg.Query),
	}
}
