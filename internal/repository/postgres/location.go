package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridebook/internal/domain"
)

// LocationRepository is a PostgreSQL implementation of repository.LocationRepository.
type LocationRepository struct {
	q Querier
}

// GetByAddress retrieves a location by its exact address.
func (r *LocationRepository) GetByAddress(ctx context.Context, address string) (*domain.Location, error) {
	var loc domain.Location
	err := r.q.QueryRowContext(ctx,
		`SELECT place_id, address FROM locations WHERE address = $1`, address,
	).Scan(&loc.ID, &loc.Address)
	if err != nil {
		return nil, mapError(err)
	}
	return &loc, nil
}

// InsertIfAbsent inserts the address unless it already exists.
func (r *LocationRepository) InsertIfAbsent(ctx context.Context, address string) (int64, bool, error) {
	query := `
		INSERT INTO locations (address) VALUES ($1)
		ON CONFLICT (address) DO NOTHING
		RETURNING place_id
	`

	var id int64
	if err := r.q.QueryRowContext(ctx, query, address).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, mapError(err)
	}
	return id, true, nil
}

// CategoryRepository is a PostgreSQL implementation of repository.CategoryRepository.
type CategoryRepository struct {
	q Querier
}

// GetByName retrieves a category by its exact name.
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	var c domain.Category
	err := r.q.QueryRowContext(ctx,
		`SELECT category_id, category_name FROM categories WHERE category_name = $1`, name,
	).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// GetAll retrieves all categories.
func (r *CategoryRepository) GetAll(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT category_id, category_name FROM categories ORDER BY category_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}
