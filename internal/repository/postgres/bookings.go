package postgresrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/repository"
)

const bookingColumns = `id, room_id, user_id, guest_name, guest_phone, guest_email, check_in, check_out,
	guests, total_price, currency, status, payment_status, payment_method, created_by, created_at, updated_at`

const activeStatusSQL = `status IN ('pending', 'confirmed', 'checked-in')`

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.RoomID, &b.UserID, &b.GuestName, &b.GuestPhone, &b.GuestEmail, &b.CheckIn, &b.CheckOut,
		&b.Guests, &b.TotalPrice, &b.Currency, &b.Status, &b.PaymentStatus, &b.PaymentMethod,
		&b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(op string, rows pgx.Rows, err error) ([]domain.Booking, error) {
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Get"

	b, err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

// ListActiveByRoom lists active bookings of a room that end after since.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - roomID: room whose bookings are returned.
//   - since: lower bound on check_out; the zero time disables it.
//
// Returns:
//   - []domain.Booking: bookings ordered by check_in.
//   - error: if the query fails.
func (r *BookingRepo) ListActiveByRoom(ctx context.Context, roomID uuid.UUID, since time.Time) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListActiveByRoom"

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE room_id = $1 AND `+activeStatusSQL+` AND ($2::timestamptz IS NULL OR check_out > $2)
		 ORDER BY check_in`,
		roomID, nullableTime(since),
	)

	return collectBookings(op, rows, err)
}

func (r *BookingRepo) ListActiveEndingAfter(ctx context.Context, since time.Time) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListActiveEndingAfter"

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE `+activeStatusSQL+` AND check_out > $1
		 ORDER BY room_id, check_in`,
		since,
	)

	return collectBookings(op, rows, err)
}

func (r *BookingRepo) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.List"

	var (
		conds []string
		args  []any
	)
	if f.RoomID != nil {
		args = append(args, *f.RoomID)
		conds = append(conds, fmt.Sprintf("room_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.CreatedBy != "" {
		args = append(args, f.CreatedBy)
		conds = append(conds, fmt.Sprintf("created_by = $%d", len(args)))
	}

	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limitOrDefault(f.Limit), max(f.Offset, 0))
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.handle().Query(ctx, q, args...)

	return collectBookings(op, rows, err)
}

func (r *BookingRepo) CountByStatus(ctx context.Context) (map[domain.BookingStatus]int64, error) {
	const op = "postgres.BookingRepo.CountByStatus"

	rows, err := r.handle().Query(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make(map[domain.BookingStatus]int64)
	for rows.Next() {
		var (
			st domain.BookingStatus
			n  int64
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out[st] = n
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Create inserts a booking.
//
// Returns:
//   - error: repository.ErrOverlap if the bookings_no_overlap constraint rejects the stay.
func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.Create"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO bookings (id, room_id, user_id, guest_name, guest_phone, guest_email, check_in, check_out,
		                       guests, total_price, currency, status, payment_status, payment_method, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING created_at, updated_at`,
		b.ID, b.RoomID, b.UserID, b.GuestName, b.GuestPhone, b.GuestEmail, b.CheckIn, b.CheckOut,
		b.Guests, b.TotalPrice, b.Currency, b.Status, b.PaymentStatus, b.PaymentMethod, b.CreatedBy,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *BookingRepo) Update(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.Update"

	err := r.handle().QueryRow(ctx,
		`UPDATE bookings
		 SET room_id = $2, guest_name = $3, guest_phone = $4, guest_email = $5, check_in = $6, check_out = $7,
		     guests = $8, total_price = $9, status = $10, payment_status = $11, user_id = $12, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		b.ID, b.RoomID, b.GuestName, b.GuestPhone, b.GuestEmail, b.CheckIn, b.CheckOut,
		b.Guests, b.TotalPrice, b.Status, b.PaymentStatus, b.UserID,
	).Scan(&b.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func limitOrDefault(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

var _ repository.Bookings = (*BookingRepo)(nil)
