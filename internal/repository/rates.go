package repository

import (
	"context"

	"ridebook/internal/domain"
)

// RateRepository stores the tax and commission rates in force.
type RateRepository interface {
	// Get retrieves the configured rates, or ErrNotFound if none are stored.
	Get(ctx context.Context) (*domain.Rates, error)

	// Update replaces the configured rates.
	Update(ctx context.Context, rates *domain.Rates) error
}

// ReportRepository aggregates committed rides. Canceled rides are excluded.
type ReportRepository interface {
	// TotalsByDayAndCategory sums fares per request day and category.
	TotalsByDayAndCategory(ctx context.Context, r domain.DateRange) ([]*domain.CategoryDayTotals, error)

	// RidesPerDriverPerDay counts rides and gross fares per day and driver.
	RidesPerDriverPerDay(ctx context.Context, r domain.DateRange) ([]*domain.DriverDayRow, error)

	// UnpaidBaseByDriver sums unpaid base fares per driver.
	UnpaidBaseByDriver(ctx context.Context, r domain.DateRange) ([]*domain.DriverBaseTotals, error)
}
