package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ridebook/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier              = (*sql.DB)(nil)
	_ Querier              = (*sql.Tx)(nil)
	_ repository.TxManager = (*TxManager)(nil)
)

// PostgreSQL error codes mapped to repository errors.
const (
	codeUniqueViolation  = "23505"
	codeLockNotAvailable = "55P03"
	codeDeadlockDetected = "40P01"
)

//go:embed schema.sql
var schema string

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// NewRepositories binds every repository to the pool.
func NewRepositories(db *sql.DB) repository.Repositories {
	return newRepositories(db)
}

func newRepositories(q Querier) repository.Repositories {
	return repository.Repositories{
		People:     &PersonRepository{q: q},
		Locations:  &LocationRepository{q: q},
		Categories: &CategoryRepository{q: q},
		Drivers:    &DriverRepository{q: q},
		Rides:      &RideRepository{q: q},
		Payments:   &PaymentRepository{q: q},
		Accounts:   &AccountRepository{q: q},
		Ledger:     &LedgerRepository{q: q},
		Rates:      &RateRepository{q: q},
		Reports:    &ReportRepository{q: q},
		Session:    &SessionRepository{q: q},
	}
}

// SessionRepository is a PostgreSQL implementation of repository.SessionRepository.
type SessionRepository struct {
	q Querier
}

// SetLockTimeout sets lock_timeout for the rest of the transaction. Outside
// a transaction SET LOCAL has no effect.
func (r *SessionRepository) SetLockTimeout(ctx context.Context, timeout time.Duration) error {
	ms := timeout.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	// SET does not take bind parameters.
	_, err := r.q.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms))
	return mapError(err)
}

// TxManager runs callbacks inside PostgreSQL transactions.
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a new TxManager.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx implements repository.TxManager.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, newRepositories(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// mapError translates driver errors into repository errors, keeping the
// original error in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, pqErr.Constraint)
		case codeLockNotAvailable, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", repository.ErrLockTimeout, pqErr.Message)
		}
	}
	return err
}
