package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/staydesk/internal/availability"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/repository"
	redisrepo "github.com/kirinyoku/staydesk/internal/repository/redis"
	"github.com/kirinyoku/staydesk/internal/uow"
)

type Config struct {
	OccupancyBuffer time.Duration
	RoomTTL         time.Duration
	CatalogTTL      time.Duration
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	cache    *redisrepo.Cache
	pubsub   *redisrepo.RoomsPubSub
	resolver availability.Resolver
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.RoomsPubSub,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.RoomTTL <= 0 {
		cfg.RoomTTL = 5 * time.Minute
	}

	if cfg.CatalogTTL <= 0 {
		cfg.CatalogTTL = time.Minute
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:    store,
		uow:      uow.NewUoW(store),
		cache:    cache,
		pubsub:   pubsub,
		resolver: availability.NewResolver(cfg.OccupancyBuffer),
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

type CreateInput struct {
	Number      string
	Type        string
	Price       int64
	PriceUSD    int64
	Status      domain.RoomStatus
	Amenities   []string
	Description string
}

type UpdateInput struct {
	Number      *string
	Type        *string
	Price       *int64
	PriceUSD    *int64
	Status      *domain.RoomStatus
	Amenities   []string
	Description *string
}

// catalog returns stored room records, ordered by number.
func (s *Service) catalog(ctx context.Context) ([]domain.Room, error) {
	return redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyRoomCatalog(), s.cfg.CatalogTTL,
		func(ctx context.Context) ([]domain.Room, error) {
			rooms, err := s.store.Rooms().List(ctx)
			if err != nil {
				return nil, err
			}
			if rooms == nil {
				rooms = []domain.Room{}
			}
			return rooms, nil
		})
}

func (s *Service) record(ctx context.Context, id uuid.UUID) (domain.Room, error) {
	return redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyRoom(id), s.cfg.RoomTTL,
		func(ctx context.Context) (domain.Room, error) {
			rm, err := s.store.Rooms().Get(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Room{}, ErrRoomNotFound
				}
				return domain.Room{}, err
			}
			return *rm, nil
		})
}

// resolveAll applies the status resolver to every room using active bookings
// that end after now.
func (s *Service) resolveAll(ctx context.Context, rooms []domain.Room, now time.Time) ([]domain.Room, error) {
	active, err := s.store.Bookings().ListActiveEndingAfter(ctx, now)
	if err != nil {
		return nil, err
	}

	byRoom := make(map[uuid.UUID][]domain.Booking, len(rooms))
	for _, b := range active {
		byRoom[b.RoomID] = append(byRoom[b.RoomID], b)
	}

	out := make([]domain.Room, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, s.resolver.Apply(rm, byRoom[rm.ID], now))
	}
	availability.SortRooms(out)

	return out, nil
}

// List returns all rooms with their occupancy resolved at the current time.
func (s *Service) List(ctx context.Context) ([]domain.Room, error) {
	const op = "service.rooms.List"

	rooms, err := s.catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out, err := s.resolveAll(ctx, rooms, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Get returns one room with its occupancy resolved at the current time.
//
// Returns:
//   - error: rooms.ErrRoomNotFound if the room does not exist.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	const op = "service.rooms.Get"

	rm, err := s.record(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	now := s.now().UTC()

	bookings, err := s.store.Bookings().ListActiveByRoom(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out := s.resolver.Apply(rm, bookings, now)
	return &out, nil
}

// Available lists rooms a new booking for [checkIn, checkOut) could take:
// not under maintenance and free of overlapping active bookings.
func (s *Service) Available(ctx context.Context, checkIn, checkOut time.Time) ([]domain.Room, error) {
	const op = "service.rooms.Available"

	stay := availability.Interval{Start: checkIn, End: checkOut}
	if !stay.Valid() {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("check_out", "must be after check-in"))
	}

	rooms, err := s.catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	now := s.now().UTC()
	since := now
	if checkIn.Before(since) {
		since = checkIn
	}

	active, err := s.store.Bookings().ListActiveEndingAfter(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	byRoom := make(map[uuid.UUID][]domain.Booking, len(rooms))
	for _, b := range active {
		byRoom[b.RoomID] = append(byRoom[b.RoomID], b)
	}

	out := make([]domain.Room, 0, len(rooms))
	for _, rm := range rooms {
		if rm.Status == domain.RoomMaintenance {
			continue
		}
		if _, clash := availability.FindConflict(stay, byRoom[rm.ID], uuid.Nil); clash {
			continue
		}
		out = append(out, s.resolver.Apply(rm, byRoom[rm.ID], now))
	}
	availability.SortRooms(out)

	return out, nil
}

func validateRoom(rm domain.Room) error {
	switch {
	case rm.Number == "":
		return domain.Invalid("number", "is required")
	case rm.Type == "":
		return domain.Invalid("type", "is required")
	case rm.Price < 0 || rm.PriceUSD < 0:
		return domain.Invalid("price", "must not be negative")
	case !rm.Status.IsValid():
		return domain.Invalid("status", fmt.Sprintf("unknown room status %q", rm.Status))
	}
	return nil
}

func cleanAmenities(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// Create adds a room to the catalog. Status defaults to Available.
//
// Returns:
//   - error: *domain.ValidationError for bad input or a room number that is taken.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Room, error) {
	const op = "service.rooms.Create"

	rm := domain.Room{
		ID:          uuid.New(),
		Number:      strings.TrimSpace(in.Number),
		Type:        strings.TrimSpace(in.Type),
		Price:       in.Price,
		PriceUSD:    in.PriceUSD,
		Status:      in.Status,
		Amenities:   cleanAmenities(in.Amenities),
		Description: strings.TrimSpace(in.Description),
	}
	if rm.Status == "" {
		rm.Status = domain.RoomAvailable
	}

	if err := validateRoom(rm); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.store.Rooms().Create(ctx, &rm); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, domain.Invalid("number", "room number already exists"))
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.changed(ctx, rm.ID, "room.created")

	return &rm, nil
}

// Update edits a room. Setting Status writes a manual state through; the
// resolver still derives occupancy from bookings on read.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*domain.Room, error) {
	const op = "service.rooms.Update"

	var out domain.Room

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		rm, err := tx.Rooms().GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		if in.Number != nil {
			rm.Number = strings.TrimSpace(*in.Number)
		}
		if in.Type != nil {
			rm.Type = strings.TrimSpace(*in.Type)
		}
		if in.Price != nil {
			rm.Price = *in.Price
		}
		if in.PriceUSD != nil {
			rm.PriceUSD = *in.PriceUSD
		}
		if in.Status != nil {
			rm.Status = *in.Status
			if rm.Status != domain.RoomOccupied && rm.Status != domain.RoomBooked {
				rm.NextAvailable = nil
			}
		}
		if in.Amenities != nil {
			rm.Amenities = cleanAmenities(in.Amenities)
		}
		if in.Description != nil {
			rm.Description = strings.TrimSpace(*in.Description)
		}

		if err := validateRoom(*rm); err != nil {
			return err
		}

		if err := tx.Rooms().Update(ctx, rm); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.Invalid("number", "room number already exists")
			}
			return err
		}

		out = *rm
		after(func(ctx context.Context) { s.changed(ctx, id, "room.updated") })
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

// Delete removes a room. Bookings are not cascaded; the delete is refused
// while any active booking of the room has not ended.
//
// Returns:
//   - error: rooms.ErrRoomNotFound, rooms.ErrRoomInUse.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "service.rooms.Delete"

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if _, err := tx.Rooms().GetForUpdate(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		active, err := tx.Bookings().ListActiveByRoom(ctx, id, s.now().UTC())
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return fmt.Errorf("%w: %d upcoming or current bookings", ErrRoomInUse, len(active))
		}

		if err := tx.Rooms().Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		after(func(ctx context.Context) { s.changed(ctx, id, "room.deleted") })
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// InvalidateCache drops cached records for roomID. It is called for every
// room-changed notice, including ones published by other instances.
func (s *Service) InvalidateCache(ctx context.Context, roomID uuid.UUID) {
	if err := s.cache.InvalidateRoom(ctx, roomID); err != nil {
		s.logger.WarnContext(ctx, "invalidate room cache", slog.String("room_id", roomID.String()), slog.Any("error", err))
	}
}

func (s *Service) changed(ctx context.Context, roomID uuid.UUID, reason string) {
	s.InvalidateCache(ctx, roomID)
	if err := s.pubsub.PublishRoomChanged(ctx, roomID, reason); err != nil {
		s.logger.WarnContext(ctx, "publish room change", slog.String("room_id", roomID.String()), slog.Any("error", err))
	}
}
