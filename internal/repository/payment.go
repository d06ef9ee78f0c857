package repository

import (
	"context"
	"time"

	"ridebook/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment and sets its ID and AuthorizedAt.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByRideID retrieves the payment of a ride.
	GetByRideID(ctx context.Context, rideID int64) (*domain.Payment, error)

	// MarkCaptured moves an authorized payment to captured.
	MarkCaptured(ctx context.Context, id int64, at time.Time) error

	// MarkRefunded moves a payment to refunded.
	MarkRefunded(ctx context.Context, id int64, at time.Time) error
}
