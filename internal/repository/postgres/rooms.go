package postgresrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/repository"
)

const roomColumns = `id, number, type, price, price_usd, status, next_available, amenities, description, created_at, updated_at`

type RoomRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *RoomRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var rm domain.Room
	err := row.Scan(
		&rm.ID, &rm.Number, &rm.Type, &rm.Price, &rm.PriceUSD, &rm.Status,
		&rm.NextAvailable, &rm.Amenities, &rm.Description, &rm.CreatedAt, &rm.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rm, nil
}

// Get retrieves a room by its ID.
//
// Returns:
//   - *domain.Room: the room when found.
//   - error: repository.ErrNotFound if the room does not exist.
func (r *RoomRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	const op = "postgres.RoomRepo.Get"

	rm, err := scanRoom(r.handle().QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return rm, nil
}

// GetForUpdate locks the room row until the surrounding transaction ends.
// Concurrent booking writes for the same room queue behind it.
func (r *RoomRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	const op = "postgres.RoomRepo.GetForUpdate"

	rm, err := scanRoom(r.handle().QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return rm, nil
}

func (r *RoomRepo) List(ctx context.Context) ([]domain.Room, error) {
	const op = "postgres.RoomRepo.List"

	rows, err := r.handle().Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY number`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *rm)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Create inserts a room.
//
// Returns:
//   - error: repository.ErrConflict if the room number is taken.
func (r *RoomRepo) Create(ctx context.Context, rm *domain.Room) error {
	const op = "postgres.RoomRepo.Create"

	if rm.Amenities == nil {
		rm.Amenities = []string{}
	}

	err := r.handle().QueryRow(ctx,
		`INSERT INTO rooms (id, number, type, price, price_usd, status, next_available, amenities, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`,
		rm.ID, rm.Number, rm.Type, rm.Price, rm.PriceUSD, rm.Status, rm.NextAvailable, rm.Amenities, rm.Description,
	).Scan(&rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *RoomRepo) Update(ctx context.Context, rm *domain.Room) error {
	const op = "postgres.RoomRepo.Update"

	if rm.Amenities == nil {
		rm.Amenities = []string{}
	}

	err := r.handle().QueryRow(ctx,
		`UPDATE rooms
		 SET number = $2, type = $3, price = $4, price_usd = $5, status = $6,
		     next_available = $7, amenities = $8, description = $9, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		rm.ID, rm.Number, rm.Type, rm.Price, rm.PriceUSD, rm.Status, rm.NextAvailable, rm.Amenities, rm.Description,
	).Scan(&rm.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *RoomRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.RoomRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}
