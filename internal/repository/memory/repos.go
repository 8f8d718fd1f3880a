package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/staydesk/internal/availability"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/repository"
)

type roomRepo struct{ v view }

func (r roomRepo) Get(_ context.Context, id uuid.UUID) (*domain.Room, error) {
	var out domain.Room
	err := r.v.do(func(st *state) error {
		rm, ok := st.rooms[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = rm
		out.Amenities = append([]string(nil), rm.Amenities...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r roomRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	return r.Get(ctx, id)
}

func (r roomRepo) List(_ context.Context) ([]domain.Room, error) {
	var out []domain.Room
	_ = r.v.do(func(st *state) error {
		for _, rm := range st.rooms {
			out = append(out, rm)
		}
		return nil
	})
	availability.SortRooms(out)
	return out, nil
}

func (r roomRepo) Create(_ context.Context, rm *domain.Room) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.rooms[rm.ID]; ok {
			return repository.ErrConflict
		}
		for _, other := range st.rooms {
			if other.Number == rm.Number {
				return fmt.Errorf("%w: rooms_number_key", repository.ErrConflict)
			}
		}
		now := time.Now().UTC()
		rm.CreatedAt, rm.UpdatedAt = now, now
		if rm.Amenities == nil {
			rm.Amenities = []string{}
		}
		st.rooms[rm.ID] = *rm
		return nil
	})
}

func (r roomRepo) Update(_ context.Context, rm *domain.Room) error {
	return r.v.do(func(st *state) error {
		cur, ok := st.rooms[rm.ID]
		if !ok {
			return repository.ErrNotFound
		}
		for id, other := range st.rooms {
			if id != rm.ID && other.Number == rm.Number {
				return fmt.Errorf("%w: rooms_number_key", repository.ErrConflict)
			}
		}
		rm.CreatedAt = cur.CreatedAt
		rm.UpdatedAt = time.Now().UTC()
		st.rooms[rm.ID] = *rm
		return nil
	})
}

func (r roomRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.rooms[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.rooms, id)
		return nil
	})
}

type bookingRepo struct{ v view }

func (r bookingRepo) Get(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	var out domain.Booking
	err := r.v.do(func(st *state) error {
		b, ok := st.bookings[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r bookingRepo) ListActiveByRoom(_ context.Context, roomID uuid.UUID, since time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	_ = r.v.do(func(st *state) error {
		for _, b := range st.bookings {
			if b.RoomID == roomID && b.Active() && (since.IsZero() || b.CheckOut.After(since)) {
				out = append(out, b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (r bookingRepo) ListActiveEndingAfter(_ context.Context, since time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	_ = r.v.do(func(st *state) error {
		for _, b := range st.bookings {
			if b.Active() && b.CheckOut.After(since) {
				out = append(out, b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (r bookingRepo) List(_ context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	var out []domain.Booking
	_ = r.v.do(func(st *state) error {
		for _, b := range st.bookings {
			if f.RoomID != nil && b.RoomID != *f.RoomID {
				continue
			}
			if f.Status != "" && b.Status != f.Status {
				continue
			}
			if f.CreatedBy != "" && b.CreatedBy != f.CreatedBy {
				continue
			}
			out = append(out, b)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (r bookingRepo) CountByStatus(_ context.Context) (map[domain.BookingStatus]int64, error) {
	out := make(map[domain.BookingStatus]int64)
	_ = r.v.do(func(st *state) error {
		for _, b := range st.bookings {
			out[b.Status]++
		}
		return nil
	})
	return out, nil
}

func (r bookingRepo) Create(_ context.Context, b *domain.Booking) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.bookings[b.ID]; ok {
			return repository.ErrConflict
		}
		if err := checkOverlap(st, *b); err != nil {
			return err
		}
		now := time.Now().UTC()
		b.CreatedAt, b.UpdatedAt = now, now
		st.bookings[b.ID] = *b
		return nil
	})
}

func (r bookingRepo) Update(_ context.Context, b *domain.Booking) error {
	return r.v.do(func(st *state) error {
		cur, ok := st.bookings[b.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if err := checkOverlap(st, *b); err != nil {
			return err
		}
		b.CreatedAt = cur.CreatedAt
		b.UpdatedAt = time.Now().UTC()
		st.bookings[b.ID] = *b
		return nil
	})
}

// checkOverlap mirrors the bookings_no_overlap exclusion constraint.
func checkOverlap(st *state, b domain.Booking) error {
	if !b.Active() {
		return nil
	}
	for id, other := range st.bookings {
		if id == b.ID || other.RoomID != b.RoomID || !other.Active() {
			continue
		}
		if availability.Overlaps(availability.StayOf(b), availability.StayOf(other)) {
			return repository.ErrOverlap
		}
	}
	return nil
}

type paymentRepo struct{ v view }

func (r paymentRepo) Get(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	var out domain.Payment
	err := r.v.do(func(st *state) error {
		p, ok := st.payments[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r paymentRepo) GetByCustomerRef(_ context.Context, ref string) (*domain.Payment, error) {
	var out domain.Payment
	err := r.v.do(func(st *state) error {
		for _, p := range st.payments {
			if p.CustomerRef == ref {
				out = p
				return nil
			}
		}
		return repository.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r paymentRepo) LatestForBooking(_ context.Context, bookingID uuid.UUID) (*domain.Payment, error) {
	var (
		out   domain.Payment
		found bool
	)
	_ = r.v.do(func(st *state) error {
		for _, p := range st.payments {
			if p.BookingID == bookingID && (!found || p.Attempt > out.Attempt) {
				out, found = p, true
			}
		}
		return nil
	})
	if !found {
		return nil, repository.ErrNotFound
	}
	return &out, nil
}

func (r paymentRepo) List(_ context.Context, f domain.PaymentFilter) ([]domain.Payment, error) {
	var out []domain.Payment
	_ = r.v.do(func(st *state) error {
		for _, p := range st.payments {
			if f.BookingID != nil && p.BookingID != *f.BookingID {
				continue
			}
			if f.Status != "" && p.Status != f.Status {
				continue
			}
			if f.CreatedBy != "" && st.bookings[p.BookingID].CreatedBy != f.CreatedBy {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Attempt > out[j].Attempt
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, f.Limit, f.Offset), nil
}

func (r paymentRepo) SumSucceeded(_ context.Context) (int64, error) {
	var total int64
	_ = r.v.do(func(st *state) error {
		for _, p := range st.payments {
			if p.Status.Succeeded() {
				total += p.Amount
			}
		}
		return nil
	})
	return total, nil
}

func (r paymentRepo) Create(_ context.Context, p *domain.Payment) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.bookings[p.BookingID]; !ok {
			return fmt.Errorf("payment references unknown booking %s", p.BookingID)
		}
		for _, other := range st.payments {
			if other.ID == p.ID || other.CustomerRef == p.CustomerRef {
				return fmt.Errorf("%w: payments_customer_ref_key", repository.ErrConflict)
			}
			if other.BookingID == p.BookingID && other.Attempt == p.Attempt {
				return fmt.Errorf("%w: payments_attempt_key", repository.ErrConflict)
			}
		}
		now := time.Now().UTC()
		p.CreatedAt, p.UpdatedAt = now, now
		st.payments[p.ID] = *p
		return nil
	})
}

func (r paymentRepo) Update(_ context.Context, p *domain.Payment) error {
	return r.v.do(func(st *state) error {
		cur, ok := st.payments[p.ID]
		if !ok {
			return repository.ErrNotFound
		}
		cur.Amount = p.Amount
		cur.Currency = p.Currency
		cur.Provider = p.Provider
		cur.Phone = p.Phone
		cur.Status = p.Status
		cur.ExternalRef = p.ExternalRef
		cur.Message = p.Message
		cur.InitiatedAt = p.InitiatedAt
		cur.UpdatedAt = time.Now().UTC()
		st.payments[p.ID] = cur
		p.UpdatedAt = cur.UpdatedAt
		return nil
	})
}

type userRepo struct{ v view }

func (r userRepo) find(match func(domain.User) bool) (*domain.User, error) {
	var out domain.User
	err := r.v.do(func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				out = u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r userRepo) FindByPhone(_ context.Context, phone string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return phone != "" && u.Phone == phone })
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	email = normEmail(email)
	return r.find(func(u domain.User) bool { return email != "" && normEmail(u.Email) == email })
}

func (r userRepo) Create(_ context.Context, u *domain.User) error {
	return r.v.do(func(st *state) error {
		for _, other := range st.users {
			if u.Phone != "" && other.Phone == u.Phone {
				return fmt.Errorf("%w: users_phone_key", repository.ErrConflict)
			}
			if u.Email != "" && normEmail(other.Email) == normEmail(u.Email) {
				return fmt.Errorf("%w: users_email_key", repository.ErrConflict)
			}
		}
		u.CreatedAt = time.Now().UTC()
		st.users[u.ID] = *u
		return nil
	})
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
