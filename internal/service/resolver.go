package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ridebook/internal/domain"
	"ridebook/internal/logger"
	"ridebook/internal/repository"
)

const impliedEmailDomain = "@example.com"

// Resolver maps natural keys to entity IDs, creating the entity on first use.
// Concurrent resolutions of the same key are settled by the store's unique
// constraint: the loser's insert is a no-op and it reads the winner's row.
type Resolver struct {
	log *logger.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(log *logger.Logger) *Resolver {
	return &Resolver{log: log}
}

// ImpliedEmail derives the natural key used for a rider known only by name.
func ImpliedEmail(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), ".") + impliedEmailDomain
}

// ResolvePerson returns the ID of the person with the given email, or with
// the email implied by name when email is empty.
func (r *Resolver) ResolvePerson(ctx context.Context, repos repository.Repositories, name, email string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrInvalidRider
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = ImpliedEmail(name)
	}

	return r.resolve(ctx, "person", email,
		func() (int64, error) {
			p, err := repos.People.GetByEmail(ctx, email)
			if err != nil {
				return 0, err
			}
			return p.ID, nil
		},
		func() (int64, bool, error) {
			return repos.People.InsertIfAbsent(ctx, &domain.Person{Name: name, Email: email})
		},
	)
}

// ResolveLocation returns the ID of the location with the given address.
func (r *Resolver) ResolveLocation(ctx context.Context, repos repository.Repositories, address string) (int64, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return 0, fmt.Errorf("%w: address", ErrMissingField)
	}

	return r.resolve(ctx, "location", address,
		func() (int64, error) {
			l, err := repos.Locations.GetByAddress(ctx, address)
			if err != nil {
				return 0, err
			}
			return l.ID, nil
		},
		func() (int64, bool, error) {
			return repos.Locations.InsertIfAbsent(ctx, address)
		},
	)
}

func (r *Resolver) resolve(
	ctx context.Context,
	kind, key string,
	lookup func() (int64, error),
	insert func() (int64, bool, error),
) (int64, error) {
	id, err := lookup()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("lookup %s: %w", kind, err)
	}

	id, inserted, err := insert()
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", kind, err)
	}
	if inserted {
		return id, nil
	}

	// A concurrent transaction inserted the key between lookup and insert.
	id, err = lookup()
	if err == nil {
		return id, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		r.log.WithContext(ctx).WithFields(map[string]any{"kind": kind, "key": key}).
			Error("entity neither insertable nor readable by natural key")
		return 0, fmt.Errorf("%w: %s %q", ErrResolutionConflict, kind, key)
	}
	return 0, fmt.Errorf("re-read %s: %w", kind, err)
}
