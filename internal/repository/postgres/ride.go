package postgres

import (
	"context"
	"database/sql"
	"time"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

const rideColumns = `ride_id, rider_id, driver_id, category_id, pickup_place_id, dropoff_place_id, status, idempotency_key, paid_out_at, created_at`

// unpaidRide selects rides that still count toward a driver payout. Expects
// rides aliased r and a LEFT JOIN of payments aliased pay.
const unpaidRide = `
	r.paid_out_at IS NULL
	AND r.status <> 'canceled'
	AND (pay.status IS NULL OR pay.status IN ('authorized', 'captured'))
`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (rider_id, driver_id, category_id, pickup_place_id, dropoff_place_id, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ride_id, created_at
	`

	var idempotencyKey sql.NullString
	if ride.IdempotencyKey != "" {
		idempotencyKey = sql.NullString{String: ride.IdempotencyKey, Valid: true}
	}

	err := r.q.QueryRowContext(ctx, query,
		ride.RiderID,
		ride.DriverID,
		ride.CategoryID,
		ride.PickupID,
		ride.DropoffID,
		ride.Status,
		idempotencyKey,
	).Scan(&ride.ID, &ride.CreatedAt)

	return mapError(err)
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id int64) (*domain.Ride, error) {
	return scanRide(r.q.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE ride_id = $1`, id))
}

// GetForUpdate retrieves and locks a ride.
func (r *RideRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Ride, error) {
	return scanRide(r.q.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE ride_id = $1 FOR NO KEY UPDATE`, id))
}

// GetByIdempotencyKey retrieves the ride created with the given key.
func (r *RideRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Ride, error) {
	return scanRide(r.q.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE idempotency_key = $1`, key))
}

// UpdateStatus updates the status of a ride.
func (r *RideRepository) UpdateStatus(ctx context.Context, id int64, status domain.RideStatus) error {
	result, err := r.q.ExecContext(ctx, `UPDATE rides SET status = $1 WHERE ride_id = $2`, status, id)
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

// CreateTime records the request and pickup times of a ride.
func (r *RideRepository) CreateTime(ctx context.Context, rt *domain.RideTime) error {
	var pickup sql.NullTime
	if rt.PickupTS != nil {
		pickup = sql.NullTime{Time: *rt.PickupTS, Valid: true}
	}

	err := r.q.QueryRowContext(ctx,
		`INSERT INTO ride_times (ride_id, request_ts, pickup_ts) VALUES ($1, NOW(), $2) RETURNING request_ts`,
		rt.RideID, pickup,
	).Scan(&rt.RequestTS)

	return mapError(err)
}

// CreatePrice persists the price of a ride.
func (r *RideRepository) CreatePrice(ctx context.Context, p *domain.Price) error {
	query := `
		INSERT INTO prices (ride_id, base_cents, tax_rate_pct, tax_cents, total_cents, commission_rate_pct, commission_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		p.RideID,
		p.BaseCents,
		p.TaxRatePct,
		p.TaxCents,
		p.TotalCents,
		p.CommissionRatePct,
		p.CommissionCents,
	)

	return mapError(err)
}

// GetPrice retrieves the price of a ride.
func (r *RideRepository) GetPrice(ctx context.Context, rideID int64) (*domain.Price, error) {
	query := `
		SELECT ride_id, base_cents, tax_rate_pct, tax_cents, total_cents, commission_rate_pct, commission_cents
		FROM prices WHERE ride_id = $1
	`

	var p domain.Price
	err := r.q.QueryRowContext(ctx, query, rideID).Scan(
		&p.RideID,
		&p.BaseCents,
		&p.TaxRatePct,
		&p.TaxCents,
		&p.TotalCents,
		&p.CommissionRatePct,
		&p.CommissionCents,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

const summarySelect = `
	SELECT r.ride_id, rp.name, dp.name, r.driver_id, pl.address, dl.address, c.category_name, r.status,
	       pr.base_cents, pr.tax_cents, pr.total_cents, rt.request_ts, rt.pickup_ts,
	       pay.payment_id, pay.payer_person_id, pay.account_id, pay.amount_cents, pay.method, pay.status,
	       pay.authorized_ts, pay.captured_ts, pay.refunded_ts
	FROM rides r
	JOIN people rp ON rp.person_id = r.rider_id
	JOIN drivers d ON d.driver_id = r.driver_id
	JOIN people dp ON dp.person_id = d.person_id
	JOIN locations pl ON pl.place_id = r.pickup_place_id
	JOIN locations dl ON dl.place_id = r.dropoff_place_id
	JOIN categories c ON c.category_id = r.category_id
	JOIN prices pr ON pr.ride_id = r.ride_id
	JOIN ride_times rt ON rt.ride_id = r.ride_id
	LEFT JOIN payments pay ON pay.ride_id = r.ride_id
`

// GetSummary retrieves the joined read model of a ride.
func (r *RideRepository) GetSummary(ctx context.Context, id int64) (*domain.RideSummary, error) {
	return scanSummary(r.q.QueryRowContext(ctx, summarySelect+` WHERE r.ride_id = $1`, id))
}

// ListRecent retrieves the most recent rides matching filter.
func (r *RideRepository) ListRecent(ctx context.Context, filter domain.RideFilter) ([]*domain.RideSummary, error) {
	query := summarySelect + `
		WHERE ($1 = '' OR rp.name ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR dp.name ILIKE '%' || $2 || '%')
		  AND ($3 = '' OR c.category_name ILIKE '%' || $3 || '%')
		ORDER BY r.ride_id DESC
		LIMIT $4
	`

	rows, err := r.q.QueryContext(ctx, query, filter.Rider, filter.Driver, filter.Category, filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*domain.RideSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// UnpaidTotalsForDriver sums the base fares still owed to a driver.
func (r *RideRepository) UnpaidTotalsForDriver(ctx context.Context, driverID int64) (*domain.DriverBaseTotals, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(pr.base_cents), 0)
		FROM rides r
		JOIN prices pr ON pr.ride_id = r.ride_id
		LEFT JOIN payments pay ON pay.ride_id = r.ride_id
		WHERE r.driver_id = $1 AND ` + unpaidRide

	totals := domain.DriverBaseTotals{DriverID: driverID}
	if err := r.q.QueryRowContext(ctx, query, driverID).Scan(&totals.Rides, &totals.BaseCents); err != nil {
		return nil, mapError(err)
	}
	return &totals, nil
}

// MarkPaidOut stamps paidAt on the rides counted by UnpaidTotalsForDriver.
func (r *RideRepository) MarkPaidOut(ctx context.Context, driverID int64, paidAt time.Time) (int64, error) {
	query := `
		UPDATE rides r SET paid_out_at = $2
		WHERE r.driver_id = $1
		  AND r.paid_out_at IS NULL
		  AND r.status <> 'canceled'
		  AND NOT EXISTS (
			SELECT 1 FROM payments pay
			WHERE pay.ride_id = r.ride_id AND pay.status NOT IN ('authorized', 'captured')
		  )
	`

	result, err := r.q.ExecContext(ctx, query, driverID, paidAt)
	if err != nil {
		return 0, mapError(err)
	}
	return result.RowsAffected()
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var idempotencyKey sql.NullString
	var paidOutAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&ride.DriverID,
		&ride.CategoryID,
		&ride.PickupID,
		&ride.DropoffID,
		&ride.Status,
		&idempotencyKey,
		&paidOutAt,
		&ride.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	ride.IdempotencyKey = idempotencyKey.String
	if paidOutAt.Valid {
		ride.PaidOutAt = &paidOutAt.Time
	}
	return &ride, nil
}

func scanSummary(row rowScanner) (*domain.RideSummary, error) {
	var s domain.RideSummary
	var pickupTS sql.NullTime
	var (
		paymentID    sql.NullInt64
		payerID      sql.NullInt64
		accountID    sql.NullInt64
		amountCents  sql.NullInt64
		method       sql.NullString
		status       sql.NullString
		authorizedTS sql.NullTime
		capturedTS   sql.NullTime
		refundedTS   sql.NullTime
	)

	err := row.Scan(
		&s.RideID,
		&s.Rider,
		&s.Driver,
		&s.DriverID,
		&s.Pickup,
		&s.Dropoff,
		&s.CategoryName,
		&s.Status,
		&s.BaseCents,
		&s.TaxCents,
		&s.TotalCents,
		&s.RequestTS,
		&pickupTS,
		&paymentID,
		&payerID,
		&accountID,
		&amountCents,
		&method,
		&status,
		&authorizedTS,
		&capturedTS,
		&refundedTS,
	)
	if err != nil {
		return nil, mapError(err)
	}

	if pickupTS.Valid {
		s.PickupTS = &pickupTS.Time
	}
	if paymentID.Valid {
		p := &domain.Payment{
			ID:           paymentID.Int64,
			RideID:       s.RideID,
			PayerID:      payerID.Int64,
			AmountCents:  amountCents.Int64,
			Method:       domain.PaymentMethod(method.String),
			Status:       domain.PaymentStatus(status.String),
			AuthorizedAt: authorizedTS.Time,
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
		s.Payment = p
	}
	return &s, nil
}
