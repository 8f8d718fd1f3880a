package booking

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
	"github.com/kirinyoku/staydesk/internal/events"
	"github.com/kirinyoku/staydesk/internal/repository"
	redisrepo "github.com/kirinyoku/staydesk/internal/repository/redis"
	"github.com/kirinyoku/staydesk/internal/uow"
)

// writeAttempts is how many times a booking write runs before a lost
// serialization race is reported.
const writeAttempts = 2

type Config struct {
	Currency    string
	CountryCode string
	// ManualMethods confirm and settle a booking immediately.
	ManualMethods []domain.PaymentMethod
}

type Service struct {
	store   repository.Store
	uow     *uow.UoW
	pubsub  *redisrepo.RoomsPubSub
	limiter *redisrepo.SlidingWindowLimiter
	events  events.Publisher
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time
}

func New(
	store repository.Store,
	pubsub *redisrepo.RoomsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	publisher events.Publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "TZS"
	}

	if cfg.ManualMethods == nil {
		cfg.ManualMethods = []domain.PaymentMethod{domain.MethodCash, domain.MethodMerchant}
	}

	if publisher == nil {
		publisher = events.Nop{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:   store,
		uow:     uow.NewUoW(store),
		pubsub:  pubsub,
		limiter: limiter,
		events:  publisher,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

type CreateInput struct {
	RoomID        uuid.UUID
	GuestName     string
	GuestPhone    string
	GuestEmail    string
	CheckIn       time.Time
	CheckOut      time.Time
	Guests        int
	PaymentMethod domain.PaymentMethod
}

type UpdateInput struct {
	RoomID     *uuid.UUID
	CheckIn    *time.Time
	CheckOut   *time.Time
	GuestName  *string
	GuestPhone *string
	GuestEmail *string
	Guests     *int
	Status     *domain.BookingStatus
}

// Result is a booking together with the payment record created for it.
type Result struct {
	Booking domain.Booking `json:"booking"`
	Payment domain.Payment `json:"payment"`
}

func (s *Service) isManual(m domain.PaymentMethod) bool {
	for _, mm := range s.cfg.ManualMethods {
		if mm == m {
			return true
		}
	}
	return false
}

func (s *Service) validateCreate(in *CreateInput) error {
	in.GuestName = strings.TrimSpace(in.GuestName)
	in.GuestEmail = strings.TrimSpace(in.GuestEmail)
	in.GuestPhone = domain.NormalizePhone(in.GuestPhone, s.cfg.CountryCode)

	switch {
	case in.RoomID == uuid.Nil:
		return domain.Invalid("room_id", "is required")
	case in.GuestName == "":
		return domain.Invalid("guest_name", "is required")
	case in.GuestPhone == "" && in.GuestEmail == "":
		return domain.Invalid("guest_phone", "phone or email is required")
	case in.CheckIn.IsZero() || in.CheckOut.IsZero():
		return domain.Invalid("check_in", "check-in and check-out are required")
	case !in.CheckIn.Before(in.CheckOut):
		return domain.Invalid("check_out", "must be after check-in")
	case in.Guests < 0:
		return domain.Invalid("guests", "must be positive")
	case !in.PaymentMethod.IsValid():
		return domain.Invalid("payment_method", fmt.Sprintf("unsupported method %q", in.PaymentMethod))
	case in.PaymentMethod == domain.MethodMobileMoney && in.GuestPhone == "":
		return domain.Invalid("guest_phone", "is required for mobile money")
	}

	if in.Guests == 0 {
		in.Guests = 1
	}

	return nil
}

// Create books a room for a guest and records the companion payment.
//
// Parameters:
//   - ctx: request-scoped context.
//   - actor: the authenticated caller; recorded as the booking's creator.
//   - in: room, guest, stay and payment method.
//   - rlKey: rate-limit bucket for the caller, empty to skip limiting.
//
// Returns:
//   - *Result: the booking and its first payment attempt.
//   - error: *domain.ValidationError for malformed input.
//   - error: booking.ErrRoomNotFound if the room does not exist.
//   - error: booking.ErrRoomUnavailable if an active booking overlaps the stay
//     or the room is under maintenance.
//   - error: booking.RateLimitedError when the caller exceeded its budget.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput, rlKey string) (*Result, error) {
	const op = "service.booking.Create"

	if err := s.validateCreate(&in); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w", op, RateLimitedError{RetryAfter: retry})
		}
	}

	if _, err := s.store.Rooms().Get(ctx, in.RoomID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrRoomNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	// Identity creation is idempotent and stays outside the booking transaction.
	guest, err := resolveGuest(ctx, s.store.Users(), in.GuestName, in.GuestPhone, in.GuestEmail)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var res Result

	err = s.uow.DoRetry(ctx, writeAttempts, func(
		ctx context.Context,
		tx repository.Tx,
		after func(uow.AfterCommit),
	) error {
		room, err := tx.Rooms().GetForUpdate(ctx, in.RoomID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		if room.Status == domain.RoomMaintenance {
			return fmt.Errorf("%w: room %s is under maintenance", ErrRoomUnavailable, room.Number)
		}

		stay := availability.Interval{Start: in.CheckIn, End: in.CheckOut}

		existing, err := tx.Bookings().ListActiveByRoom(ctx, room.ID, in.CheckIn)
		if err != nil {
			return err
		}

		if _, clash := availability.FindConflict(stay, existing, uuid.Nil); clash {
			return ErrRoomUnavailable
		}

		now := s.now().UTC()

		b := domain.Booking{
			ID:            uuid.New(),
			RoomID:        room.ID,
			UserID:        guest.ID,
			GuestName:     in.GuestName,
			GuestPhone:    in.GuestPhone,
			GuestEmail:    in.GuestEmail,
			CheckIn:       in.CheckIn.UTC(),
			CheckOut:      in.CheckOut.UTC(),
			Guests:        in.Guests,
			TotalPrice:    TotalPrice(room.Price, in.CheckIn, in.CheckOut),
			Currency:      s.cfg.Currency,
			Status:        domain.BookingPending,
			PaymentStatus: domain.BookingUnpaid,
			PaymentMethod: in.PaymentMethod,
			CreatedBy:     actor.Subject,
		}

		p := domain.Payment{
			ID:          uuid.New(),
			BookingID:   b.ID,
			Attempt:     1,
			Amount:      b.TotalPrice,
			Currency:    b.Currency,
			Method:      in.PaymentMethod,
			Phone:       in.GuestPhone,
			Status:      domain.PaymentPending,
			CustomerRef: domain.NewCustomerRef(now),
		}

		if s.isManual(in.PaymentMethod) {
			b.Status = domain.BookingConfirmed
			b.PaymentStatus = domain.BookingPaid
			p.Status = domain.PaymentPaid
			p.Provider = "desk"
		}

		if err := tx.Bookings().Create(ctx, &b); err != nil {
			if errors.Is(err, repository.ErrOverlap) {
				return ErrRoomUnavailable
			}
			return err
		}

		if err := tx.Payments().Create(ctx, &p); err != nil {
			return err
		}

		res = Result{Booking: b, Payment: p}

		after(func(ctx context.Context) {
			s.roomChanged(ctx, b.RoomID, events.BookingCreated)
			s.publish(ctx, bookingEvent(events.BookingCreated, b))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, lostRace(err))
	}

	return &res, nil
}

// Update changes a booking. A new room or stay is checked for overlap against
// every other active booking of the target room; the booking never conflicts
// with itself. A changed total is carried to the booking's unsent payment
// attempt, and changed contact details rebind the booking to the matching
// guest identity.
//
// Returns:
//   - error: booking.ErrBookingNotFound, booking.ErrRoomNotFound.
//   - error: booking.ErrRoomUnavailable on overlap.
//   - error: *domain.ValidationError for bad input or a cancelled booking.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*domain.Booking, error) {
	const op = "service.booking.Update"

	guest, err := s.rebindGuest(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out domain.Booking

	err = s.uow.DoRetry(ctx, writeAttempts, func(
		ctx context.Context,
		tx repository.Tx,
		after func(uow.AfterCommit),
	) error {
		cur, err := tx.Bookings().Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		if cur.Status == domain.BookingCancelled {
			return domain.Invalid("status", "a cancelled booking cannot be changed")
		}

		next, err := s.applyChanges(*cur, in)
		if err != nil {
			return err
		}
		if guest != nil {
			next.UserID = guest.ID
		}

		moved := next.RoomID != cur.RoomID || !next.CheckIn.Equal(cur.CheckIn) || !next.CheckOut.Equal(cur.CheckOut)

		if moved && next.Active() {
			room, err := tx.Rooms().GetForUpdate(ctx, next.RoomID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrRoomNotFound
				}
				return err
			}

			if room.Status == domain.RoomMaintenance && room.ID != cur.RoomID {
				return fmt.Errorf("%w: room %s is under maintenance", ErrRoomUnavailable, room.Number)
			}

			existing, err := tx.Bookings().ListActiveByRoom(ctx, room.ID, next.CheckIn)
			if err != nil {
				return err
			}

			if _, clash := availability.FindConflict(availability.StayOf(next), existing, next.ID); clash {
				return ErrRoomUnavailable
			}

			next.TotalPrice = TotalPrice(room.Price, next.CheckIn, next.CheckOut)
		}

		if err := tx.Bookings().Update(ctx, &next); err != nil {
			if errors.Is(err, repository.ErrOverlap) {
				return ErrRoomUnavailable
			}
			return err
		}

		if next.TotalPrice != cur.TotalPrice {
			if err := repriceOpenAttempt(ctx, tx.Payments(), next); err != nil {
				return err
			}
		}

		out = next

		after(func(ctx context.Context) {
			s.roomChanged(ctx, next.RoomID, events.BookingUpdated)
			if next.RoomID != cur.RoomID {
				s.roomChanged(ctx, cur.RoomID, events.BookingUpdated)
			}
			typ := events.BookingUpdated
			if next.Status == domain.BookingCancelled {
				typ = events.BookingCancelled
			}
			s.publish(ctx, bookingEvent(typ, next))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, lostRace(err))
	}

	return &out, nil
}

// rebindGuest resolves the guest identity for changed contact details. It
// returns nil when the update leaves phone and email alone.
func (s *Service) rebindGuest(ctx context.Context, id uuid.UUID, in UpdateInput) (*domain.User, error) {
	if in.GuestPhone == nil && in.GuestEmail == nil {
		return nil, nil
	}

	cur, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if cur.Status == domain.BookingCancelled {
		return nil, nil
	}

	name, phone, email := cur.GuestName, cur.GuestPhone, cur.GuestEmail
	if in.GuestName != nil {
		name = strings.TrimSpace(*in.GuestName)
	}
	if in.GuestPhone != nil {
		phone = domain.NormalizePhone(*in.GuestPhone, s.cfg.CountryCode)
	}
	if in.GuestEmail != nil {
		email = strings.TrimSpace(*in.GuestEmail)
	}

	if phone == cur.GuestPhone && strings.EqualFold(email, cur.GuestEmail) {
		return nil, nil
	}
	if phone == "" && email == "" {
		return nil, domain.Invalid("guest_phone", "a phone or email is required")
	}

	return resolveGuest(ctx, s.store.Users(), name, phone, email)
}

// repriceOpenAttempt moves the booking's latest attempt to the new total while
// it is pending and was never sent to the gateway.
func repriceOpenAttempt(ctx context.Context, payments repository.Payments, b domain.Booking) error {
	p, err := payments.LatestForBooking(ctx, b.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	if p.Status != domain.PaymentPending || p.InitiatedAt != nil {
		return nil
	}

	p.Amount = b.TotalPrice
	p.Currency = b.Currency

	return payments.Update(ctx, p)
}

func (s *Service) applyChanges(b domain.Booking, in UpdateInput) (domain.Booking, error) {
	if in.RoomID != nil {
		if *in.RoomID == uuid.Nil {
			return b, domain.Invalid("room_id", "must not be empty")
		}
		b.RoomID = *in.RoomID
	}
	if in.CheckIn != nil {
		b.CheckIn = in.CheckIn.UTC()
	}
	if in.CheckOut != nil {
		b.CheckOut = in.CheckOut.UTC()
	}
	if !b.CheckIn.Before(b.CheckOut) {
		return b, domain.Invalid("check_out", "must be after check-in")
	}
	if in.GuestName != nil {
		name := strings.TrimSpace(*in.GuestName)
		if name == "" {
			return b, domain.Invalid("guest_name", "must not be empty")
		}
		b.GuestName = name
	}
	if in.GuestPhone != nil {
		b.GuestPhone = domain.NormalizePhone(*in.GuestPhone, s.cfg.CountryCode)
	}
	if in.GuestEmail != nil {
		b.GuestEmail = strings.TrimSpace(*in.GuestEmail)
	}
	if in.Guests != nil {
		if *in.Guests < 1 {
			return b, domain.Invalid("guests", "must be positive")
		}
		b.Guests = *in.Guests
	}
	if in.Status != nil {
		if !in.Status.IsValid() || !b.Status.CanTransitionTo(*in.Status) {
			return b, domain.Invalid("status", fmt.Sprintf("cannot move from %s to %q", b.Status, *in.Status))
		}
		b.Status = *in.Status
	}
	return b, nil
}

// Cancel marks a booking cancelled, freeing its room. Cancelling twice is a
// no-op that returns the booking unchanged. Payments are left as they are.
//
// Returns:
//   - error: booking.ErrBookingNotFound if the booking does not exist.
//   - error: booking.ErrForbidden if a customer cancels someone else's booking.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.Cancel"

	var out domain.Booking

	err := s.uow.DoRetry(ctx, writeAttempts, func(
		ctx context.Context,
		tx repository.Tx,
		after func(uow.AfterCommit),
	) error {
		b, err := tx.Bookings().Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		if !actor.CanAccess(b.CreatedBy) {
			return ErrForbidden
		}

		if b.Status == domain.BookingCancelled {
			out = *b
			return nil
		}

		b.Status = domain.BookingCancelled
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return err
		}

		out = *b

		after(func(ctx context.Context) {
			s.roomChanged(ctx, b.RoomID, events.BookingCancelled)
			s.publish(ctx, bookingEvent(events.BookingCancelled, *b))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.Get"

	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !actor.CanAccess(b.CreatedBy) {
		return nil, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	return b, nil
}

func (s *Service) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	const op = "service.booking.List"

	if f.Status != "" && !f.Status.IsValid() {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("status", "unknown booking status"))
	}

	out, err := s.store.Bookings().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListMine lists the bookings the actor created.
func (s *Service) ListMine(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.Booking, error) {
	return s.List(ctx, domain.BookingFilter{CreatedBy: actor.Subject, Limit: limit, Offset: offset})
}

func (s *Service) roomChanged(ctx context.Context, roomID uuid.UUID, reason string) {
	if err := s.pubsub.PublishRoomChanged(ctx, roomID, reason); err != nil {
		s.logger.WarnContext(ctx, "publish room change", slog.String("room_id", roomID.String()), slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "publish booking event",
			slog.String("type", ev.Type),
			slog.String("booking_id", ev.BookingID.String()),
			slog.Any("error", err),
		)
	}
}

func bookingEvent(typ string, b domain.Booking) events.Event {
	ev := events.New(typ, b.ID)
	ev.RoomID = b.RoomID
	ev.Status = string(b.Status)
	ev.PaymentStatus = string(b.PaymentStatus)
	return ev
}

// lostRace turns a serialization failure that survived the retry into a
// room-unavailable answer.
func lostRace(err error) error {
	if errors.Is(err, repository.ErrSerialization) {
		return fmt.Errorf("%w: %w", ErrRoomUnavailable, ErrConcurrencyConflict)
	}
	return err
}
