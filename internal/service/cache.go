package service

import (
	"context"

	"ridebook/internal/domain"
)

// CategoryCache remembers category IDs by name. Categories never change, so
// entries need no invalidation.
type CategoryCache interface {
	GetCategoryID(ctx context.Context, name string) (id int64, ok bool, err error)
	SetCategoryID(ctx context.Context, name string, id int64) error
}

// SummaryCache remembers ride summaries. A miss returns nil without error.
type SummaryCache interface {
	GetRideSummary(ctx context.Context, rideID int64) (*domain.RideSummary, error)
	SetRideSummary(ctx context.Context, summary *domain.RideSummary) error
	InvalidateRideSummary(ctx context.Context, rideID int64) error
}
