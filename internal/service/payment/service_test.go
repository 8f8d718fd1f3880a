package payment

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/gateway"
	"github.com/kirinyoku/staydesk/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	day0  = time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	staff = domain.Actor{Subject: "desk-1", Role: domain.RoleReceptionist}
	guest = domain.Actor{Subject: "guest-1", Role: domain.RoleCustomer}
)

type stubGateway struct {
	err   error
	calls []gateway.InitiateRequest
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) InitiatePayment(_ context.Context, req gateway.InitiateRequest) (*gateway.Ack, error) {
	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.Ack{ProviderRef: "tx-" + req.Reference, Message: "accepted"}, nil
}

type fixture struct {
	svc     *Service
	store   *memory.Store
	gw      *stubGateway
	booking domain.Booking
	payment domain.Payment
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	b := domain.Booking{
		ID:            uuid.New(),
		RoomID:        uuid.New(),
		GuestName:     "Asha",
		GuestPhone:    "+255712345678",
		CheckIn:       day0,
		CheckOut:      day0.Add(48 * time.Hour),
		Guests:        1,
		TotalPrice:    200,
		Currency:      "TZS",
		Status:        domain.BookingPending,
		PaymentStatus: domain.BookingUnpaid,
		PaymentMethod: domain.MethodMobileMoney,
		CreatedBy:     guest.Subject,
	}
	require.NoError(t, store.Bookings().Create(ctx, &b))

	p := domain.Payment{
		ID:          uuid.New(),
		BookingID:   b.ID,
		Attempt:     1,
		Amount:      b.TotalPrice,
		Currency:    b.Currency,
		Method:      b.PaymentMethod,
		Phone:       b.GuestPhone,
		Status:      domain.PaymentPending,
		CustomerRef: "ref-1",
	}
	require.NoError(t, store.Payments().Create(ctx, &p))

	gw := &stubGateway{}
	svc := New(store, gw, nil, nil, nil, Config{AccountRef: "acc", CountryCode: "255"})

	return &fixture{svc: svc, store: store, gw: gw, booking: b, payment: p}
}

func (f *fixture) reload(t *testing.T) (domain.Booking, domain.Payment) {
	t.Helper()
	ctx := context.Background()

	b, err := f.store.Bookings().Get(ctx, f.booking.ID)
	require.NoError(t, err)
	p, err := f.store.Payments().Get(ctx, f.payment.ID)
	require.NoError(t, err)

	return *b, *p
}

func TestSuccessCascadesToBooking(t *testing.T) {
	f := setup(t)

	p, err := f.svc.ApplyStatus(context.Background(), f.payment.ID, "success", "tx-9", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSuccess, p.Status)
	assert.Equal(t, "tx-9", p.ExternalRef)

	b, _ := f.reload(t)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Equal(t, domain.BookingPaid, b.PaymentStatus)
}

func TestFailureLeavesBookingStatus(t *testing.T) {
	f := setup(t)

	_, err := f.svc.ApplyStatus(context.Background(), f.payment.ID, "failed", "", "insufficient funds")
	require.NoError(t, err)

	b, p := f.reload(t)
	assert.Equal(t, domain.PaymentFailed, p.Status)
	assert.Equal(t, "insufficient funds", p.Message)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, domain.BookingFailed, b.PaymentStatus)
}

func TestSuccessDoesNotReviveCancelledBooking(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.booking.Status = domain.BookingCancelled
	require.NoError(t, f.store.Bookings().Update(ctx, &f.booking))

	_, err := f.svc.ApplyStatus(ctx, f.payment.ID, "paid", "", "")
	require.NoError(t, err)

	b, _ := f.reload(t)
	assert.Equal(t, domain.BookingCancelled, b.Status)
	assert.Equal(t, domain.BookingPaid, b.PaymentStatus)
}

func TestApplyStatusErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.ApplyStatus(ctx, f.payment.ID, "refunded", "", "")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.svc.ApplyStatus(ctx, uuid.New(), "paid", "", "")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestWebhookUnknownReferenceIsAcknowledged(t *testing.T) {
	f := setup(t)

	matched, err := f.svc.HandleWebhook(context.Background(), WebhookPayload{Status: "success", CustomerReference: "nope"})
	require.NoError(t, err)
	assert.False(t, matched)

	b, p := f.reload(t)
	assert.Equal(t, f.booking.Status, b.Status)
	assert.Equal(t, f.booking.PaymentStatus, b.PaymentStatus)
	assert.Equal(t, domain.PaymentPending, p.Status)
}

func TestWebhookValidatesPayload(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var verr *domain.ValidationError

	_, err := f.svc.HandleWebhook(ctx, WebhookPayload{CustomerReference: "ref-1"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)

	_, err = f.svc.HandleWebhook(ctx, WebhookPayload{Status: "success"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "customer_reference", verr.Field)

	matched, err := f.svc.HandleWebhook(ctx, WebhookPayload{Status: "on_hold", CustomerReference: "ref-1"})
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestWebhookMatchesByReference(t *testing.T) {
	f := setup(t)

	matched, err := f.svc.HandleWebhook(context.Background(), WebhookPayload{
		Status:                "COMPLETED",
		CustomerReference:     "ref-1",
		ProviderTransactionID: "prov-77",
	})
	require.NoError(t, err)
	assert.True(t, matched)

	b, p := f.reload(t)
	assert.Equal(t, domain.PaymentSuccess, p.Status)
	assert.Equal(t, "prov-77", p.ExternalRef)
	assert.Equal(t, domain.BookingPaid, b.PaymentStatus)
}

func TestSuccessIsStickyUnderAnyOrdering(t *testing.T) {
	updates := []string{"pending", "processing", "failed", "success", "pending", "paid", "failed"}

	for seed := uint64(0); seed < 25; seed++ {
		f := setup(t)
		ctx := context.Background()

		order := append([]string(nil), updates...)
		r := rand.New(rand.NewPCG(seed, seed+1))
		r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		seenSuccess := false
		for _, st := range order {
			_, err := f.svc.HandleWebhook(ctx, WebhookPayload{Status: st, CustomerReference: "ref-1"})
			require.NoError(t, err)

			parsed, _ := domain.ParsePaymentStatus(st)
			seenSuccess = seenSuccess || parsed.Succeeded()

			b, p := f.reload(t)
			if seenSuccess {
				assert.True(t, p.Status.Succeeded(), "seed %d order %v", seed, order)
				assert.Equal(t, domain.BookingPaid, b.PaymentStatus, "seed %d order %v", seed, order)
				assert.Equal(t, domain.BookingConfirmed, b.Status, "seed %d order %v", seed, order)
			}
		}
	}
}

func TestInitiateUsesFirstAttempt(t *testing.T) {
	f := setup(t)

	p, err := f.svc.Initiate(context.Background(), guest, f.booking.ID, "")
	require.NoError(t, err)

	assert.Equal(t, f.payment.ID, p.ID)
	assert.NotNil(t, p.InitiatedAt)
	assert.Equal(t, "stub", p.Provider)
	assert.Equal(t, "tx-ref-1", p.ExternalRef)
	require.Len(t, f.gw.calls, 1)
	assert.Equal(t, "ref-1", f.gw.calls[0].Reference)
	assert.Equal(t, int64(200), f.gw.calls[0].Amount)
	assert.Equal(t, "acc", f.gw.calls[0].AccountRef)
}

func TestInitiateFailureMarksAttemptFailed(t *testing.T) {
	f := setup(t)
	f.gw.err = errors.New("connection reset")

	_, err := f.svc.Initiate(context.Background(), guest, f.booking.ID, "0712345678")
	require.ErrorIs(t, err, ErrUpstreamGateway)

	b, p := f.reload(t)
	assert.Equal(t, domain.PaymentFailed, p.Status)
	assert.Nil(t, p.InitiatedAt)
	assert.Equal(t, domain.BookingFailed, b.PaymentStatus)
	assert.Equal(t, domain.BookingPending, b.Status)
}

func TestRetryMintsNewAttempt(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.gw.err = errors.New("timeout")
	_, err := f.svc.Initiate(ctx, guest, f.booking.ID, "")
	require.ErrorIs(t, err, ErrUpstreamGateway)

	f.gw.err = nil
	p, err := f.svc.Retry(ctx, guest, f.payment.ID)
	require.NoError(t, err)

	assert.NotEqual(t, f.payment.ID, p.ID)
	assert.Equal(t, 2, p.Attempt)
	assert.NotEqual(t, "ref-1", p.CustomerRef)
	require.Len(t, f.gw.calls, 2)
	assert.Equal(t, p.CustomerRef, f.gw.calls[1].Reference)

	// A late failure of the old attempt does not touch the booking.
	_, err = f.svc.HandleWebhook(ctx, WebhookPayload{Status: "success", CustomerReference: p.CustomerRef})
	require.NoError(t, err)
	_, err = f.svc.HandleWebhook(ctx, WebhookPayload{Status: "failed", CustomerReference: "ref-1"})
	require.NoError(t, err)

	b, _ := f.reload(t)
	assert.Equal(t, domain.BookingPaid, b.PaymentStatus)

	_, err = f.svc.Retry(ctx, guest, p.ID)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	_, err = f.svc.Initiate(ctx, guest, f.booking.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestInitiateRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	stranger := domain.Actor{Subject: "guest-2", Role: domain.RoleCustomer}
	_, err := f.svc.Initiate(ctx, stranger, f.booking.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Initiate(ctx, staff, uuid.New(), "")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	f.booking.PaymentMethod = domain.MethodCash
	require.NoError(t, f.store.Bookings().Update(ctx, &f.booking))

	_, err = f.svc.Initiate(ctx, staff, f.booking.ID, "")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Empty(t, f.gw.calls)

	f.booking.PaymentMethod = domain.MethodCard
	require.NoError(t, f.store.Bookings().Update(ctx, &f.booking))

	_, err = f.svc.Initiate(ctx, guest, f.booking.ID, "")
	assert.ErrorAs(t, err, &verr, "card bookings are not pushed to the mobile-money provider")
	assert.Empty(t, f.gw.calls)
}

func TestInitiateChargesCurrentTotal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.booking.TotalPrice = 450
	require.NoError(t, f.store.Bookings().Update(ctx, &f.booking))

	p, err := f.svc.Initiate(ctx, guest, f.booking.ID, "")
	require.NoError(t, err)
	assert.Equal(t, f.payment.ID, p.ID)
	require.Len(t, f.gw.calls, 1)
	assert.Equal(t, int64(450), f.gw.calls[0].Amount)

	_, stored := f.reload(t)
	assert.Equal(t, int64(450), stored.Amount)
}

func TestListMineAndGet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	mine, err := f.svc.ListMine(ctx, guest, 0, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	other, err := f.svc.ListMine(ctx, domain.Actor{Subject: "guest-2", Role: domain.RoleCustomer}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = f.svc.Get(ctx, domain.Actor{Subject: "guest-2", Role: domain.RoleCustomer}, f.payment.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	p, err := f.svc.Get(ctx, staff, f.payment.ID)
	require.NoError(t, err)
	assert.Equal(t, f.payment.ID, p.ID)
}
