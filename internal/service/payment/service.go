package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/events"
	"github.com/kirinyoku/staydesk/internal/gateway"
	"github.com/kirinyoku/staydesk/internal/repository"
	redisrepo "github.com/kirinyoku/staydesk/internal/repository/redis"
	"github.com/kirinyoku/staydesk/internal/uow"
)

type Config struct {
	AccountRef    string
	CountryCode   string
	ManualMethods []domain.PaymentMethod
	// LockTTL bounds how long one initiation holds the per-booking lease.
	LockTTL time.Duration
}

type Service struct {
	store  repository.Store
	uow    *uow.UoW
	gw     gateway.Gateway
	locker *redisrepo.Locker
	events events.Publisher
	logger *slog.Logger
	cfg    Config
	now    func() time.Time
}

func New(
	store repository.Store,
	gw gateway.Gateway,
	locker *redisrepo.Locker,
	publisher events.Publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
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
		store:  store,
		uow:    uow.NewUoW(store),
		gw:     gw,
		locker: locker,
		events: publisher,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// WebhookPayload is the provider callback body.
type WebhookPayload struct {
	Status                string `json:"status"`
	CustomerReference     string `json:"customer_reference"`
	ProviderTransactionID string `json:"provider_transaction_id"`
	Message               string `json:"message"`
}

// change is the outcome of one transition, reported after commit.
type change struct {
	payment domain.Payment
	booking *domain.Booking
}

// transition moves p to status and cascades the implied change onto its
// booking. Successful states are sticky and a failed attempt never returns to
// pending; such updates are ignored without error.
func (s *Service) transition(
	ctx context.Context,
	tx repository.Tx,
	p *domain.Payment,
	status domain.PaymentStatus,
	externalRef, message string,
) (*change, error) {
	if p.Status.Succeeded() && !status.Succeeded() {
		return nil, nil
	}
	if p.Status == domain.PaymentFailed && status == domain.PaymentPending {
		return nil, nil
	}
	if p.Status == status && (externalRef == "" || externalRef == p.ExternalRef) {
		return nil, nil
	}

	p.Status = status
	if externalRef != "" {
		p.ExternalRef = externalRef
	}
	if message != "" {
		p.Message = message
	}

	if err := tx.Payments().Update(ctx, p); err != nil {
		return nil, err
	}

	out := &change{payment: *p}

	b, err := tx.Bookings().Get(ctx, p.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return out, nil
		}
		return nil, err
	}

	next := *b
	switch {
	case status.Succeeded():
		next.PaymentStatus = domain.BookingPaid
		if next.Status == domain.BookingPending {
			next.Status = domain.BookingConfirmed
		}
	case status == domain.PaymentFailed:
		if next.PaymentStatus == domain.BookingPaid {
			break
		}
		latest, err := tx.Payments().LatestForBooking(ctx, p.BookingID)
		if err != nil {
			return nil, err
		}
		if latest.ID == p.ID {
			next.PaymentStatus = domain.BookingFailed
		}
	}

	if next.Status == b.Status && next.PaymentStatus == b.PaymentStatus {
		return out, nil
	}

	if err := tx.Bookings().Update(ctx, &next); err != nil {
		return nil, err
	}

	out.booking = &next
	return out, nil
}

// ApplyStatus is the staff entry point of the status synchronizer.
//
// Parameters:
//   - id: internal payment id.
//   - rawStatus: pending, success, paid, failed or a provider synonym.
//   - externalRef: optional provider transaction id.
//
// Returns:
//   - *domain.Payment: the payment as stored after the call. A regressing
//     update leaves it unchanged.
//   - error: payment.ErrPaymentNotFound, *domain.ValidationError.
func (s *Service) ApplyStatus(ctx context.Context, id uuid.UUID, rawStatus, externalRef, message string) (*domain.Payment, error) {
	const op = "service.payment.ApplyStatus"

	status, ok := domain.ParsePaymentStatus(rawStatus)
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("status", fmt.Sprintf("unknown payment status %q", rawStatus)))
	}

	var out domain.Payment

	err := s.uow.DoRetry(ctx, 3, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		p, err := tx.Payments().Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}

		ch, err := s.transition(ctx, tx, p, status, strings.TrimSpace(externalRef), strings.TrimSpace(message))
		if err != nil {
			return err
		}

		out = *p
		if ch != nil {
			after(func(ctx context.Context) { s.statusChanged(ctx, ch) })
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

// HandleWebhook applies a provider callback matched by customer reference.
// Unknown references and unknown statuses are acknowledged without mutation so
// the provider does not keep redelivering them.
//
// Returns:
//   - bool: whether a payment record matched the reference.
//   - error: *domain.ValidationError when status or customer_reference is missing.
func (s *Service) HandleWebhook(ctx context.Context, in WebhookPayload) (bool, error) {
	const op = "service.payment.HandleWebhook"

	ref := strings.TrimSpace(in.CustomerReference)
	switch {
	case strings.TrimSpace(in.Status) == "":
		return false, fmt.Errorf("%s:%w", op, domain.Invalid("status", "is required"))
	case ref == "":
		return false, fmt.Errorf("%s:%w", op, domain.Invalid("customer_reference", "is required"))
	}

	log := s.logger.With(slog.String("customer_reference", ref), slog.String("status", in.Status))

	status, ok := domain.ParsePaymentStatus(in.Status)
	if !ok {
		log.WarnContext(ctx, "webhook with unknown status ignored")
		return false, nil
	}

	matched := false

	err := s.uow.DoRetry(ctx, 3, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		p, err := tx.Payments().GetByCustomerRef(ctx, ref)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				matched = false
				return nil
			}
			return err
		}
		matched = true

		ch, err := s.transition(ctx, tx, p, status, strings.TrimSpace(in.ProviderTransactionID), in.Message)
		if err != nil {
			return err
		}

		if ch != nil {
			after(func(ctx context.Context) { s.statusChanged(ctx, ch) })
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	if !matched {
		log.InfoContext(ctx, "webhook for unknown reference acknowledged")
	}

	return matched, nil
}

func (s *Service) isManual(m domain.PaymentMethod) bool {
	for _, mm := range s.cfg.ManualMethods {
		if mm == m {
			return true
		}
	}
	return false
}

// Initiate asks the gateway to collect the booking's outstanding amount.
// The latest attempt is reused while it is pending and was never sent;
// otherwise a new attempt with a fresh customer reference is created.
//
// Parameters:
//   - actor: caller; customers may only pay for their own bookings.
//   - bookingID: booking to collect for.
//   - phone: payer phone; the guest phone is used when empty.
//
// Returns:
//   - *domain.Payment: the attempt that was sent.
//   - error: payment.ErrUpstreamGateway if the provider call failed; the
//     attempt is stored as failed.
//   - error: payment.ErrAlreadyPaid, payment.ErrInProgress, payment.ErrForbidden,
//     payment.ErrBookingNotFound.
//   - error: *domain.ValidationError for cancelled bookings and for methods
//     other than mobile money.
func (s *Service) Initiate(ctx context.Context, actor domain.Actor, bookingID uuid.UUID, phone string) (*domain.Payment, error) {
	const op = "service.payment.Initiate"

	b, err := s.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !actor.CanAccess(b.CreatedBy) {
		return nil, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	switch {
	case b.PaymentStatus == domain.BookingPaid:
		return nil, fmt.Errorf("%s:%w", op, ErrAlreadyPaid)
	case b.Status == domain.BookingCancelled:
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("booking_id", "booking is cancelled"))
	case s.isManual(b.PaymentMethod):
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("booking_id", fmt.Sprintf("%s bookings are settled at the desk", b.PaymentMethod)))
	case b.PaymentMethod != domain.MethodMobileMoney:
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("booking_id", fmt.Sprintf("%s payments are not collected through the mobile-money gateway", b.PaymentMethod)))
	}

	phone = domain.NormalizePhone(phone, s.cfg.CountryCode)
	if phone == "" {
		phone = b.GuestPhone
	}
	if phone == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("phone", "is required"))
	}

	release, ok, err := s.locker.Acquire(ctx, redisrepo.KeyPaymentLock(b.ID), s.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrInProgress)
	}
	defer release()

	p, err := s.prepareAttempt(ctx, b.ID, phone)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	log := s.logger.With(
		slog.String("payment_id", p.ID.String()),
		slog.String("booking_id", b.ID.String()),
		slog.String("customer_reference", p.CustomerRef),
	)

	ack, gwErr := s.gw.InitiatePayment(ctx, gateway.InitiateRequest{
		AccountRef: s.cfg.AccountRef,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Phone:      p.Phone,
		Reference:  p.CustomerRef,
		Narration:  fmt.Sprintf("Booking %s", b.ID.String()[:8]),
	})

	// The outcome must be recorded even when the caller has gone away.
	recordCtx := context.WithoutCancel(ctx)

	if gwErr != nil {
		log.ErrorContext(ctx, "payment initiation failed", slog.Any("error", gwErr))

		if _, err := s.ApplyStatus(recordCtx, p.ID, string(domain.PaymentFailed), "", gwErr.Error()); err != nil {
			log.ErrorContext(ctx, "mark payment failed", slog.Any("error", err))
		}

		return nil, fmt.Errorf("%s:%w: %w", op, ErrUpstreamGateway, gwErr)
	}

	var out domain.Payment

	err = s.uow.DoRetry(recordCtx, 3, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		cur, err := tx.Payments().Get(ctx, p.ID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		cur.InitiatedAt = &now
		cur.Provider = s.gw.Name()
		if cur.ExternalRef == "" {
			cur.ExternalRef = ack.ProviderRef
		}
		if cur.Message == "" {
			cur.Message = ack.Message
		}

		if err := tx.Payments().Update(ctx, cur); err != nil {
			return err
		}

		out = *cur

		after(func(ctx context.Context) {
			ev := events.New(events.PaymentInitiated, cur.BookingID)
			ev.PaymentID = &cur.ID
			ev.Status = string(cur.Status)
			s.publish(ctx, ev)
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	log.InfoContext(ctx, "payment initiated", slog.String("provider_ref", out.ExternalRef), slog.Int("attempt", out.Attempt))

	return &out, nil
}

// prepareAttempt returns the attempt to send, minting a new one when the
// latest was already sent or has failed. A reused attempt is charged the
// booking's current total.
func (s *Service) prepareAttempt(ctx context.Context, bookingID uuid.UUID, phone string) (*domain.Payment, error) {
	var out domain.Payment

	err := s.uow.DoRetry(ctx, 3, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
		b, err := tx.Bookings().Get(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		latest, err := tx.Payments().LatestForBooking(ctx, bookingID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if latest != nil && latest.Status.Succeeded() {
			return ErrAlreadyPaid
		}

		if latest != nil && latest.Status == domain.PaymentPending && latest.InitiatedAt == nil {
			latest.Phone = phone
			latest.Amount = b.TotalPrice
			latest.Currency = b.Currency
			if err := tx.Payments().Update(ctx, latest); err != nil {
				return err
			}
			out = *latest
			return nil
		}

		attempt := 1
		if latest != nil {
			attempt = latest.Attempt + 1
		}

		p := domain.Payment{
			ID:          uuid.New(),
			BookingID:   b.ID,
			Attempt:     attempt,
			Amount:      b.TotalPrice,
			Currency:    b.Currency,
			Method:      b.PaymentMethod,
			Phone:       phone,
			Status:      domain.PaymentPending,
			CustomerRef: domain.NewCustomerRef(s.now()),
		}
		if err := tx.Payments().Create(ctx, &p); err != nil {
			return err
		}

		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// Retry initiates a new collection for the payment's booking.
func (s *Service) Retry(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Payment, error) {
	const op = "service.payment.Retry"

	p, err := s.store.Payments().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if p.Status.Succeeded() {
		return nil, fmt.Errorf("%s:%w", op, ErrAlreadyPaid)
	}

	out, err := s.Initiate(ctx, actor, p.BookingID, p.Phone)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Payment, error) {
	const op = "service.payment.Get"

	p, err := s.store.Payments().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !actor.Role.IsStaff() {
		b, err := s.store.Bookings().Get(ctx, p.BookingID)
		if err != nil || !actor.CanAccess(b.CreatedBy) {
			return nil, fmt.Errorf("%s:%w", op, ErrForbidden)
		}
	}

	return p, nil
}

func (s *Service) List(ctx context.Context, f domain.PaymentFilter) ([]domain.Payment, error) {
	const op = "service.payment.List"

	if f.Status != "" && !f.Status.IsValid() {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("status", "unknown payment status"))
	}

	out, err := s.store.Payments().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListMine lists payments of bookings the actor created.
func (s *Service) ListMine(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.Payment, error) {
	return s.List(ctx, domain.PaymentFilter{CreatedBy: actor.Subject, Limit: limit, Offset: offset})
}

func (s *Service) statusChanged(ctx context.Context, ch *change) {
	ev := events.New(events.PaymentStatusChanged, ch.payment.BookingID)
	ev.PaymentID = &ch.payment.ID
	ev.Status = string(ch.payment.Status)
	if ch.booking != nil {
		ev.RoomID = ch.booking.RoomID
		ev.PaymentStatus = string(ch.booking.PaymentStatus)
	}
	s.publish(ctx, ev)
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "publish payment event",
			slog.String("type", ev.Type),
			slog.String("booking_id", ev.BookingID.String()),
			slog.Any("error", err),
		)
	}
}
