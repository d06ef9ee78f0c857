package postgres

import (
	"context"
	"database/sql"
	"time"

	"ridebook/internal/domain"
)

// ReportRepository is a PostgreSQL implementation of repository.ReportRepository.
type ReportRepository struct {
	q Querier
}

// rideTS is the timestamp a ride is reported under.
const rideTS = `COALESCE(rt.request_ts, rt.pickup_ts)`

// inRange filters on $1 (start, inclusive) and $2 (end, inclusive by day).
// A NULL bound is open.
const inRange = `
	r.status <> 'canceled'
	AND ($1::timestamptz IS NULL OR ` + rideTS + ` >= $1::timestamptz)
	AND ($2::timestamptz IS NULL OR ` + rideTS + ` < $2::timestamptz + INTERVAL '1 day')
`

const dayBucket = `(` + rideTS + ` AT TIME ZONE 'UTC')::date`

// TotalsByDayAndCategory sums fares per day and category.
func (r *ReportRepository) TotalsByDayAndCategory(ctx context.Context, dr domain.DateRange) ([]*domain.CategoryDayTotals, error) {
	query := `
		SELECT ` + dayBucket + ` AS day,
		       c.category_name,
		       COUNT(*) AS rides,
		       SUM(pr.base_cents),
		       SUM(pr.tax_cents),
		       SUM(pr.total_cents),
		       SUM(pr.commission_cents)
		FROM rides r
		JOIN ride_times rt ON rt.ride_id = r.ride_id
		JOIN prices pr ON pr.ride_id = r.ride_id
		JOIN categories c ON c.category_id = r.category_id
		WHERE ` + inRange + `
		GROUP BY day, c.category_name
		ORDER BY day DESC, c.category_name ASC
	`

	start, end := rangeArgs(dr)
	rows, err := r.q.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []*domain.CategoryDayTotals
	for rows.Next() {
		var t domain.CategoryDayTotals
		if err := rows.Scan(
			&t.Day,
			&t.CategoryName,
			&t.Rides,
			&t.BaseCents,
			&t.TaxCents,
			&t.TotalCents,
			&t.SnapshotCommissionCents,
		); err != nil {
			return nil, err
		}
		totals = append(totals, &t)
	}
	return totals, rows.Err()
}

// RidesPerDriverPerDay counts rides and gross fares per day and driver.
func (r *ReportRepository) RidesPerDriverPerDay(ctx context.Context, dr domain.DateRange) ([]*domain.DriverDayRow, error) {
	query := `
		SELECT ` + dayBucket + ` AS day,
		       d.driver_id,
		       p.name,
		       COUNT(*) AS rides,
		       SUM(pr.total_cents)
		FROM rides r
		JOIN ride_times rt ON rt.ride_id = r.ride_id
		JOIN prices pr ON pr.ride_id = r.ride_id
		JOIN drivers d ON d.driver_id = r.driver_id
		JOIN people p ON p.person_id = d.person_id
		WHERE ` + inRange + `
		GROUP BY day, d.driver_id, p.name
		ORDER BY day DESC, rides DESC, p.name ASC
	`

	start, end := rangeArgs(dr)
	rows, err := r.q.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.DriverDayRow
	for rows.Next() {
		var row domain.DriverDayRow
		var day time.Time
		if err := rows.Scan(&day, &row.DriverID, &row.DriverName, &row.Rides, &row.GrossCents); err != nil {
			return nil, err
		}
		row.Day = day.Format(time.DateOnly)
		out = append(out, &row)
	}
	return out, rows.Err()
}

// UnpaidBaseByDriver sums unpaid base fares per driver.
func (r *ReportRepository) UnpaidBaseByDriver(ctx context.Context, dr domain.DateRange) ([]*domain.DriverBaseTotals, error) {
	query := `
		SELECT d.driver_id, p.name, COUNT(*), SUM(pr.base_cents)
		FROM rides r
		JOIN ride_times rt ON rt.ride_id = r.ride_id
		JOIN prices pr ON pr.ride_id = r.ride_id
		JOIN drivers d ON d.driver_id = r.driver_id
		JOIN people p ON p.person_id = d.person_id
		LEFT JOIN payments pay ON pay.ride_id = r.ride_id
		WHERE ` + inRange + ` AND ` + unpaidRide + `
		GROUP BY d.driver_id, p.name
		ORDER BY d.driver_id
	`

	start, end := rangeArgs(dr)
	rows, err := r.q.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.DriverBaseTotals
	for rows.Next() {
		var t domain.DriverBaseTotals
		if err := rows.Scan(&t.DriverID, &t.DriverName, &t.Rides, &t.BaseCents); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func rangeArgs(dr domain.DateRange) (sql.NullTime, sql.NullTime) {
	var start, end sql.NullTime
	if dr.Start != nil {
		start = sql.NullTime{Time: *dr.Start, Valid: true}
	}
	if dr.End != nil {
		end = sql.NullTime{Time: *dr.End, Valid: true}
	}
	return start, end
}
