package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/repository"
)

type UserRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *UserRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Phone, &u.Email, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	const op = "postgres.UserRepo.FindByPhone"

	u, err := scanUser(r.handle().QueryRow(ctx,
		`SELECT id, name, COALESCE(phone, ''), COALESCE(email, ''), role, created_at
		 FROM users WHERE phone = $1`, phone))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const op = "postgres.UserRepo.FindByEmail"

	u, err := scanUser(r.handle().QueryRow(ctx,
		`SELECT id, name, COALESCE(phone, ''), COALESCE(email, ''), role, created_at
		 FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return u, nil
}

// Create inserts a guest identity. Empty phone or email are stored as NULL so
// the unique indexes only bind real values.
//
// Returns:
//   - error: repository.ErrConflict if the phone or email already belongs to someone.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	const op = "postgres.UserRepo.Create"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO users (id, name, phone, email, role)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
		 RETURNING created_at`,
		u.ID, u.Name, u.Phone, u.Email, u.Role,
	).Scan(&u.CreatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

var _ repository.Users = (*UserRepo)(nil)
