package repository

import (
	"context"
	"time"

	"ridebook/internal/domain"
)

// RideRepository defines the persistence operations for rides and the rows
// written alongside them.
type RideRepository interface {
	// Create persists a new ride and sets its ID and CreatedAt.
	// Returns ErrDuplicate if the idempotency key is already used.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id int64) (*domain.Ride, error)

	// GetForUpdate retrieves a ride by ID and locks it for the rest of the transaction.
	GetForUpdate(ctx context.Context, id int64) (*domain.Ride, error)

	// GetByIdempotencyKey retrieves the ride created with the given key.
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Ride, error)

	// UpdateStatus updates the status of a ride.
	UpdateStatus(ctx context.Context, id int64, status domain.RideStatus) error

	// CreateTime records the request time, taken from the store clock, and
	// the optional pickup time. RequestTS is set on return.
	CreateTime(ctx context.Context, rt *domain.RideTime) error

	// CreatePrice persists the price of a ride.
	CreatePrice(ctx context.Context, price *domain.Price) error

	// GetPrice retrieves the price of a ride.
	GetPrice(ctx context.Context, rideID int64) (*domain.Price, error)

	// GetSummary retrieves the joined read model of a ride.
	GetSummary(ctx context.Context, id int64) (*domain.RideSummary, error)

	// ListRecent retrieves the most recent rides matching filter.
	ListRecent(ctx context.Context, filter domain.RideFilter) ([]*domain.RideSummary, error)

	// UnpaidTotalsForDriver sums the base fares of the driver's rides that are
	// not paid out, not canceled and not backed by a failed or refunded payment.
	UnpaidTotalsForDriver(ctx context.Context, driverID int64) (*domain.DriverBaseTotals, error)

	// MarkPaidOut stamps paidAt on every ride counted by UnpaidTotalsForDriver
	// and returns how many rides it marked.
	MarkPaidOut(ctx context.Context, driverID int64, paidAt time.Time) (int64, error)
}
