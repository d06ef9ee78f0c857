package postgres

import (
	"context"
	"fmt"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

// AccountRepository is a PostgreSQL implementation of repository.AccountRepository.
type AccountRepository struct {
	q Querier
}

const accountColumns = `account_id, person_id, bank_num, balance_cents, currency, status, kind`

// Create persists a new account.
func (r *AccountRepository) Create(ctx context.Context, a *domain.BankAccount) error {
	query := `
		INSERT INTO bank_accounts (person_id, bank_num, balance_cents, currency, status, kind)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING account_id
	`

	err := r.q.QueryRowContext(ctx, query,
		a.PersonID,
		a.BankNum,
		a.BalanceCents,
		a.Currency,
		a.Status,
		a.Kind,
	).Scan(&a.ID)

	return mapError(err)
}

// GetActiveForPerson retrieves the person's first active personal account.
func (r *AccountRepository) GetActiveForPerson(ctx context.Context, personID int64) (*domain.BankAccount, error) {
	return r.activeForPerson(ctx, personID, "")
}

// GetActiveForPersonForUpdate retrieves and locks the person's first active personal account.
func (r *AccountRepository) GetActiveForPersonForUpdate(ctx context.Context, personID int64) (*domain.BankAccount, error) {
	return r.activeForPerson(ctx, personID, "FOR NO KEY UPDATE")
}

func (r *AccountRepository) activeForPerson(ctx context.Context, personID int64, lock string) (*domain.BankAccount, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM bank_accounts
		WHERE person_id = $1 AND status = 'active' AND kind = 'personal'
		ORDER BY account_id
		LIMIT 1
		%s
	`, accountColumns, lock)
	return scanAccount(r.q.QueryRowContext(ctx, query, personID))
}

// GetOperating retrieves the platform operating account. The row lock comes
// from the balance update, which callers issue as their last write.
func (r *AccountRepository) GetOperating(ctx context.Context) (*domain.BankAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts
		WHERE kind = 'operating' AND status = 'active'`
	return scanAccount(r.q.QueryRowContext(ctx, query))
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.BankAccount, error) {
	return scanAccount(r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE account_id = $1`, id))
}

// AdjustBalance adds deltaCents to the balance.
func (r *AccountRepository) AdjustBalance(ctx context.Context, id int64, deltaCents int64) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE bank_accounts SET balance_cents = balance_cents + $1 WHERE account_id = $2`,
		deltaCents, id,
	)
	if err != nil {
		return mapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListByPerson retrieves all accounts of a person.
func (r *AccountRepository) ListByPerson(ctx context.Context, personID int64) ([]*domain.BankAccount, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM bank_accounts WHERE person_id = $1 ORDER BY account_id`, personID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.BankAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func scanAccount(row rowScanner) (*domain.BankAccount, error) {
	var a domain.BankAccount
	err := row.Scan(&a.ID, &a.PersonID, &a.BankNum, &a.BalanceCents, &a.Currency, &a.Status, &a.Kind)
	if err != nil {
		return nil, mapError(err)
	}
	return &a, nil
}

// LedgerRepository is a PostgreSQL implementation of repository.LedgerRepository.
type LedgerRepository struct {
	q Querier
}

// CreateEntries persists the entries of one movement.
func (r *LedgerRepository) CreateEntries(ctx context.Context, entries []*domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (ride_id, payment_id, account_id, amount_cents, entry_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING entry_id, created_at
	`

	for _, e := range entries {
		err := r.q.QueryRowContext(ctx, query, e.RideID, e.PaymentID, e.AccountID, e.AmountCents, e.Type).
			Scan(&e.ID, &e.CreatedAt)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

// ListByRide retrieves the entries recorded for a ride.
func (r *LedgerRepository) ListByRide(ctx context.Context, rideID int64) ([]*domain.LedgerEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT entry_id, ride_id, payment_id, account_id, amount_cents, entry_type, created_at
		FROM ledger_entries WHERE ride_id = $1 ORDER BY entry_id
	`, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.RideID, &e.PaymentID, &e.AccountID, &e.AmountCents, &e.Type, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
