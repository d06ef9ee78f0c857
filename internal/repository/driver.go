package repository

import (
	"context"

	"ridebook/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create registers the person as an available driver.
	// Returns ErrDuplicate if the person is already a driver.
	Create(ctx context.Context, personID int64) (*domain.Driver, error)

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id int64) (*domain.Driver, error)

	// GetAll retrieves drivers ordered by name, optionally only available ones.
	GetAll(ctx context.Context, onlyAvailable bool) ([]*domain.Driver, error)

	// LockAvailability locks the driver row for the rest of the transaction and
	// returns its availability. The wait is bounded by the session lock timeout.
	LockAvailability(ctx context.Context, id int64) (bool, error)

	// SetAvailable updates the availability flag of a driver.
	SetAvailable(ctx context.Context, id int64, available bool) error
}
