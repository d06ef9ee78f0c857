package repository

import (
	"context"

	"ridebook/internal/domain"
)

// AccountRepository defines the persistence operations for bank accounts.
type AccountRepository interface {
	// Create persists a new account and sets its ID.
	Create(ctx context.Context, account *domain.BankAccount) error

	// GetActiveForPerson retrieves the person's active personal account with the lowest ID.
	GetActiveForPerson(ctx context.Context, personID int64) (*domain.BankAccount, error)

	// GetActiveForPersonForUpdate is GetActiveForPerson with a row lock.
	GetActiveForPersonForUpdate(ctx context.Context, personID int64) (*domain.BankAccount, error)

	// GetOperating retrieves the platform operating account without locking it.
	GetOperating(ctx context.Context) (*domain.BankAccount, error)

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id int64) (*domain.BankAccount, error)

	// AdjustBalance adds deltaCents, which may be negative, to the balance.
	AdjustBalance(ctx context.Context, id int64, deltaCents int64) error

	// ListByPerson retrieves all accounts of a person.
	ListByPerson(ctx context.Context, personID int64) ([]*domain.BankAccount, error)
}

// LedgerRepository records double-entry money movements.
type LedgerRepository interface {
	// CreateEntries persists the entries of one movement.
	CreateEntries(ctx context.Context, entries []*domain.LedgerEntry) error

	// ListByRide retrieves the entries recorded for a ride, oldest first.
	ListByRide(ctx context.Context, rideID int64) ([]*domain.LedgerEntry, error)
}
