package repository

import (
	"context"
	"time"
)

// Repositories bundles every repository bound to the same connection or transaction.
type Repositories struct {
	People     PersonRepository
	Locations  LocationRepository
	Categories CategoryRepository
	Drivers    DriverRepository
	Rides      RideRepository
	Payments   PaymentRepository
	Accounts   AccountRepository
	Ledger     LedgerRepository
	Rates      RateRepository
	Reports    ReportRepository
	Session    SessionRepository
}

// TxManager runs work inside a single database transaction.
type TxManager interface {
	// WithinTx begins a transaction, calls fn with repositories bound to it and
	// commits if fn returns nil. Any error from fn rolls the transaction back
	// and is returned unchanged.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// SessionRepository tunes the transaction the repositories are bound to.
type SessionRepository interface {
	// SetLockTimeout bounds every later lock wait in the transaction. A wait
	// longer than timeout fails with ErrLockTimeout. Call it before the first
	// write so that waits on rows touched by foreign keys are bounded too.
	SetLockTimeout(ctx context.Context, timeout time.Duration) error
}
