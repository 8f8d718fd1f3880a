package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/repository"
)

// resolveGuest finds the identity for a guest by phone, then by email, and
// creates one otherwise. Losing a creation race to another request is not an
// error: the winner's record is looked up again and returned.
func resolveGuest(ctx context.Context, users repository.Users, name, phone, email string) (*domain.User, error) {
	const op = "service.booking.resolveGuest"

	if u, err := lookupGuest(ctx, users, phone, email); err == nil {
		return u, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	u := &domain.User{
		ID:    uuid.New(),
		Name:  name,
		Phone: phone,
		Email: email,
		Role:  domain.RoleCustomer,
	}

	err := users.Create(ctx, u)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	existing, lerr := lookupGuest(ctx, users, phone, email)
	if lerr != nil {
		return nil, fmt.Errorf("%s: re-lookup after conflict: %w", op, lerr)
	}

	return existing, nil
}

func lookupGuest(ctx context.Context, users repository.Users, phone, email string) (*domain.User, error) {
	if phone != "" {
		u, err := users.FindByPhone(ctx, phone)
		if err == nil || !errors.Is(err, repository.ErrNotFound) {
			return u, err
		}
	}

	if email != "" {
		return users.FindByEmail(ctx, email)
	}

	return nil, repository.ErrNotFound
}
