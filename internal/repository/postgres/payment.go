package postgres

import (
	"context"
	"database/sql"
	"time"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (ride_id, payer_person_id, account_id, amount_cents, method, status, authorized_ts)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING payment_id, authorized_ts
	`

	var accountID sql.NullInt64
	if payment.AccountID != nil {
		accountID = sql.NullInt64{Int64: *payment.AccountID, Valid: true}
	}

	err := r.q.QueryRowContext(ctx, query,
		payment.RideID,
		payment.PayerID,
		accountID,
		payment.AmountCents,
		payment.Method,
		payment.Status,
	).Scan(&payment.ID, &payment.AuthorizedAt)

	return mapError(err)
}

// GetByRideID retrieves the payment of a ride.
func (r *PaymentRepository) GetByRideID(ctx context.Context, rideID int64) (*domain.Payment, error) {
	query := `
		SELECT payment_id, ride_id, payer_person_id, account_id, amount_cents, method, status,
		       authorized_ts, captured_ts, refunded_ts
		FROM payments WHERE ride_id = $1
	`

	var p domain.Payment
	var accountID sql.NullInt64
	var capturedTS, refundedTS sql.NullTime
	err := r.q.QueryRowContext(ctx, query, rideID).Scan(
		&p.ID,
		&p.RideID,
		&p.PayerID,
		&accountID,
		&p.AmountCents,
		&p.Method,
		&p.Status,
		&p.AuthorizedAt,
		&capturedTS,
		&refundedTS,
	)
	if err != nil {
		return nil, mapError(err)
	}

	if accountID.Valid {
		p.AccountID = &accountID.Int64
	}
	if capturedTS.Valid {
		p.CapturedAt = &capturedTS.Time
	}
	if refundedTS.Valid {
		p.RefundedAt = &refundedTS.Time
	}
	return &p, nil
}

// MarkCaptured moves an authorized payment to captured.
func (r *PaymentRepository) MarkCaptured(ctx context.Context, id int64, at time.Time) error {
	return r.transition(ctx,
		`UPDATE payments SET status = 'captured', captured_ts = $2 WHERE payment_id = $1 AND status = 'authorized'`,
		id, at)
}

// MarkRefunded moves an authorized or captured payment to refunded.
func (r *PaymentRepository) MarkRefunded(ctx context.Context, id int64, at time.Time) error {
	return r.transition(ctx,
		`UPDATE payments SET status = 'refunded', refunded_ts = $2 WHERE payment_id = $1 AND status IN ('authorized', 'captured')`,
		id, at)
}

func (r *PaymentRepository) transition(ctx context.Context, query string, id int64, at time.Time) error {
	result, err := r.q.ExecContext(ctx, query, id, at)
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
