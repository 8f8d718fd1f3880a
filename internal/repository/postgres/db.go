package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/staydesk/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

var _ repository.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return translateDBErr(err)
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", translateDBErr(err))
	}

	return nil
}

// Atomic runs fn in a serializable transaction.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.RunTx(ctx, nil, func(ctx context.Context, db DB) error {
		return fn(ctx, txRepos{pool: s.pool, db: db})
	})
}

func (s *Store) Rooms() repository.Rooms       { return &RoomRepo{pool: s.pool} }
func (s *Store) Bookings() repository.Bookings { return &BookingRepo{pool: s.pool} }
func (s *Store) Payments() repository.Payments { return &PaymentRepo{pool: s.pool} }
func (s *Store) Users() repository.Users       { return &UserRepo{pool: s.pool} }

type txRepos struct {
	pool *pgxpool.Pool
	db   DB
}

func (t txRepos) Rooms() repository.Rooms       { return &RoomRepo{pool: t.pool, db: t.db} }
func (t txRepos) Bookings() repository.Bookings { return &BookingRepo{pool: t.pool, db: t.db} }
func (t txRepos) Payments() repository.Payments { return &PaymentRepo{pool: t.pool, db: t.db} }
func (t txRepos) Users() repository.Users       { return &UserRepo{pool: t.pool, db: t.db} }
