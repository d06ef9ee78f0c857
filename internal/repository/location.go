package repository

import (
	"context"

	"ridebook/internal/domain"
)

// LocationRepository defines the persistence operations for locations.
type LocationRepository interface {
	// GetByAddress retrieves a location by its exact address.
	GetByAddress(ctx context.Context, address string) (*domain.Location, error)

	// InsertIfAbsent inserts the address unless it already exists.
	InsertIfAbsent(ctx context.Context, address string) (id int64, inserted bool, err error)
}

// CategoryRepository reads ride categories.
type CategoryRepository interface {
	// GetByName retrieves a category by its exact name.
	GetByName(ctx context.Context, name string) (*domain.Category, error)

	// GetAll retrieves all categories.
	GetAll(ctx context.Context) ([]*domain.Category, error)
}
