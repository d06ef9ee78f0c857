package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/logger"
	"ridebook/internal/pricing"
	"ridebook/internal/repository"
)

// RateService reads and updates the tax and commission rates.
type RateService struct {
	repos    repository.Repositories
	defaults domain.Rates
	log      *logger.Logger
}

// NewRateService creates a new RateService. defaults apply while no rates
// are stored.
func NewRateService(repos repository.Repositories, defaults domain.Rates, log *logger.Logger) *RateService {
	return &RateService{repos: repos, defaults: defaults, log: log}
}

// Current returns the rates in force.
func (s *RateService) Current(ctx context.Context) (domain.Rates, error) {
	return s.load(ctx, s.repos.Rates)
}

// Update replaces the rates. Rides already priced keep the rates they were priced with.
func (s *RateService) Update(ctx context.Context, taxRatePct, commissionRatePct decimal.Decimal) (domain.Rates, error) {
	rates := domain.Rates{TaxRatePct: taxRatePct, CommissionRatePct: commissionRatePct}
	if err := pricing.ValidateRates(rates); err != nil {
		return domain.Rates{}, err
	}
	if err := s.repos.Rates.Update(ctx, &rates); err != nil {
		return domain.Rates{}, fmt.Errorf("update rates: %w", err)
	}

	s.log.WithContext(ctx).WithFields(map[string]any{
		"tax_rate_pct":        rates.TaxRatePct.String(),
		"commission_rate_pct": rates.CommissionRatePct.String(),
	}).Info("rates updated")
	return rates, nil
}

// load reads the rates through rr, which may be bound to a transaction.
func (s *RateService) load(ctx context.Context, rr repository.RateRepository) (domain.Rates, error) {
	rates, err := rr.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.defaults, nil
		}
		return domain.Rates{}, fmt.Errorf("load rates: %w", err)
	}
	return *rates, nil
}
