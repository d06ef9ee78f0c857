package postgres

import (
	"context"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// Create registers the person as an available driver.
func (r *DriverRepository) Create(ctx context.Context, personID int64) (*domain.Driver, error) {
	query := `
		INSERT INTO drivers (person_id, available) VALUES ($1, TRUE)
		RETURNING driver_id
	`

	var id int64
	if err := r.q.QueryRowContext(ctx, query, personID).Scan(&id); err != nil {
		return nil, mapError(err)
	}
	return r.GetByID(ctx, id)
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id int64) (*domain.Driver, error) {
	query := `
		SELECT d.driver_id, d.person_id, p.name, p.email, d.available
		FROM drivers d JOIN people p ON p.person_id = d.person_id
		WHERE d.driver_id = $1
	`

	var d domain.Driver
	err := r.q.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.PersonID, &d.Name, &d.Email, &d.Available)
	if err != nil {
		return nil, mapError(err)
	}
	return &d, nil
}

// GetAll retrieves drivers ordered by name.
func (r *DriverRepository) GetAll(ctx context.Context, onlyAvailable bool) ([]*domain.Driver, error) {
	query := `
		SELECT d.driver_id, d.person_id, p.name, p.email, d.available
		FROM drivers d JOIN people p ON p.person_id = d.person_id
		WHERE ($1 = FALSE OR d.available)
		ORDER BY p.name, d.driver_id
	`

	rows, err := r.q.QueryContext(ctx, query, onlyAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		var d domain.Driver
		if err := rows.Scan(&d.ID, &d.PersonID, &d.Name, &d.Email, &d.Available); err != nil {
			return nil, err
		}
		drivers = append(drivers, &d)
	}
	return drivers, rows.Err()
}

// LockAvailability locks the driver row and returns its availability.
// NO KEY UPDATE leaves the KEY SHARE lock taken by the rides foreign key
// check compatible, so a second booking for the driver queues here instead
// of deadlocking.
func (r *DriverRepository) LockAvailability(ctx context.Context, id int64) (bool, error) {
	var available bool
	err := r.q.QueryRowContext(ctx,
		`SELECT available FROM drivers WHERE driver_id = $1 FOR NO KEY UPDATE`, id,
	).Scan(&available)
	if err != nil {
		return false, mapError(err)
	}
	return available, nil
}

// SetAvailable updates the availability flag of a driver.
func (r *DriverRepository) SetAvailable(ctx context.Context, id int64, available bool) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE drivers SET available = $1 WHERE driver_id = $2`, available, id,
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
