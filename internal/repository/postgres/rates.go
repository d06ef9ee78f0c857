package postgres

import (
	"context"

	"ridebook/internal/domain"
)

// RateRepository is a PostgreSQL implementation of repository.RateRepository.
type RateRepository struct {
	q Querier
}

// Get retrieves the configured rates.
func (r *RateRepository) Get(ctx context.Context) (*domain.Rates, error) {
	var rates domain.Rates
	err := r.q.QueryRowContext(ctx,
		`SELECT tax_rate_pct, commission_rate_pct, updated_at FROM app_config WHERE id`,
	).Scan(&rates.TaxRatePct, &rates.CommissionRatePct, &rates.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &rates, nil
}

// Update replaces the configured rates.
func (r *RateRepository) Update(ctx context.Context, rates *domain.Rates) error {
	query := `
		INSERT INTO app_config (id, tax_rate_pct, commission_rate_pct, updated_at)
		VALUES (TRUE, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET tax_rate_pct = EXCLUDED.tax_rate_pct,
		    commission_rate_pct = EXCLUDED.commission_rate_pct,
		    updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`
	return mapError(r.q.QueryRowContext(ctx, query, rates.TaxRatePct, rates.CommissionRatePct).Scan(&rates.UpdatedAt))
}
