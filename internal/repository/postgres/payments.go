package postgresrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/repository"
)

const paymentColumns = `p.id, p.booking_id, p.attempt, p.amount, p.currency, p.method, p.provider, p.phone, p.status,
	p.external_ref, p.customer_ref, p.message, p.initiated_at, p.created_at, p.updated_at`

type PaymentRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *PaymentRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.BookingID, &p.Attempt, &p.Amount, &p.Currency, &p.Method, &p.Provider, &p.Phone, &p.Status,
		&p.ExternalRef, &p.CustomerRef, &p.Message, &p.InitiatedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	const op = "postgres.PaymentRepo.Get"

	p, err := scanPayment(r.handle().QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments p WHERE p.id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

// GetByCustomerRef finds the payment a gateway callback refers to.
//
// Returns:
//   - error: repository.ErrNotFound for references this service never issued.
func (r *PaymentRepo) GetByCustomerRef(ctx context.Context, ref string) (*domain.Payment, error) {
	const op = "postgres.PaymentRepo.GetByCustomerRef"

	p, err := scanPayment(r.handle().QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments p WHERE p.customer_ref = $1`, ref))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

func (r *PaymentRepo) LatestForBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Payment, error) {
	const op = "postgres.PaymentRepo.LatestForBooking"

	p, err := scanPayment(r.handle().QueryRow(ctx,
		`SELECT `+paymentColumns+`
		 FROM payments p
		 WHERE p.booking_id = $1
		 ORDER BY p.attempt DESC
		 LIMIT 1`, bookingID))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

func (r *PaymentRepo) List(ctx context.Context, f domain.PaymentFilter) ([]domain.Payment, error) {
	const op = "postgres.PaymentRepo.List"

	var (
		conds []string
		args  []any
	)
	if f.BookingID != nil {
		args = append(args, *f.BookingID)
		conds = append(conds, fmt.Sprintf("p.booking_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if f.CreatedBy != "" {
		args = append(args, f.CreatedBy)
		conds = append(conds, fmt.Sprintf("b.created_by = $%d", len(args)))
	}

	q := `SELECT ` + paymentColumns + ` FROM payments p JOIN bookings b ON b.id = p.booking_id`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limitOrDefault(f.Limit), max(f.Offset, 0))
	q += fmt.Sprintf(` ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.handle().Query(ctx, q, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *PaymentRepo) SumSucceeded(ctx context.Context) (int64, error) {
	const op = "postgres.PaymentRepo.SumSucceeded"

	var total int64
	err := r.handle().QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status IN ('success', 'paid')`,
	).Scan(&total)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return total, nil
}

// Create inserts a payment attempt.
//
// Returns:
//   - error: repository.ErrConflict if the customer reference or (booking, attempt) pair is taken.
func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	const op = "postgres.PaymentRepo.Create"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO payments (id, booking_id, attempt, amount, currency, method, provider, phone, status,
		                       external_ref, customer_ref, message, initiated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING created_at, updated_at`,
		p.ID, p.BookingID, p.Attempt, p.Amount, p.Currency, p.Method, p.Provider, p.Phone, p.Status,
		p.ExternalRef, p.CustomerRef, p.Message, p.InitiatedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *PaymentRepo) Update(ctx context.Context, p *domain.Payment) error {
	const op = "postgres.PaymentRepo.Update"

	err := r.handle().QueryRow(ctx,
		`UPDATE payments
		 SET provider = $2, phone = $3, status = $4, external_ref = $5, message = $6, initiated_at = $7,
		     amount = $8, currency = $9, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		p.ID, p.Provider, p.Phone, p.Status, p.ExternalRef, p.Message, p.InitiatedAt, p.Amount, p.Currency,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

var _ repository.Payments = (*PaymentRepo)(nil)
