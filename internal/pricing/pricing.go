// Package pricing computes fares, tax and commission in integer cents.
//
// All arithmetic is exact decimal arithmetic. Results are rounded to whole
// cents half away from zero, which for the non-negative inputs accepted here
// is the familiar "round half up".
package pricing

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
)

var (
	// ErrInvalidFare is returned for negative fares, negative rates and
	// amounts whose cents do not fit in an int64.
	ErrInvalidFare = errors.New("invalid fare")

	// ErrInvalidRates is returned when a configured rate falls outside 0..100
	// or carries more than two decimal places.
	ErrInvalidRates = errors.New("rates must be between 0 and 100 percent")
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero

	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// RateScale is the number of decimal places a stored rate keeps.
const RateScale = 2

// Quote is the full price breakdown for a base fare.
type Quote struct {
	BaseCents         int64
	TaxRatePct        domain.Rate
	TaxCents          int64
	TotalCents        int64
	CommissionRatePct domain.Rate
	CommissionCents   int64
	DriverTakeCents   int64
}

// Price converts a Quote into the stored Price of a ride.
func (q Quote) Price(rideID int64) *domain.Price {
	return &domain.Price{
		RideID:            rideID,
		BaseCents:         q.BaseCents,
		TaxRatePct:        q.TaxRatePct,
		TaxCents:          q.TaxCents,
		TotalCents:        q.TotalCents,
		CommissionRatePct: q.CommissionRatePct,
		CommissionCents:   q.CommissionCents,
	}
}

// Compute prices baseCents at the given tax and commission percentages.
func Compute(baseCents int64, taxRatePct, commissionRatePct decimal.Decimal) (Quote, error) {
	if baseCents < 0 || taxRatePct.LessThan(zero) || commissionRatePct.LessThan(zero) {
		return Quote{}, ErrInvalidFare
	}

	base := decimal.NewFromInt(baseCents)
	tax, err := toCents(percent(base, taxRatePct))
	if err != nil {
		return Quote{}, err
	}
	total, err := toCents(base.Add(decimal.NewFromInt(tax)))
	if err != nil {
		return Quote{}, err
	}
	commission, err := toCents(percent(base, commissionRatePct))
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		BaseCents:         baseCents,
		TaxRatePct:        taxRatePct,
		TaxCents:          tax,
		TotalCents:        total,
		CommissionRatePct: commissionRatePct,
		CommissionCents:   commission,
		DriverTakeCents:   baseCents - commission,
	}, nil
}

// Commission returns round(baseCents × ratePct / 100). Reports apply it to
// summed base fares, so the result may differ by a cent from the sum of
// per-ride commissions.
func Commission(baseCents int64, ratePct decimal.Decimal) int64 {
	return percentOf(baseCents, ratePct)
}

// DollarsToCents converts a dollar amount to whole cents.
func DollarsToCents(dollars decimal.Decimal) (int64, error) {
	if dollars.LessThan(zero) {
		return 0, ErrInvalidFare
	}
	return toCents(dollars.Mul(hundred).Round(0))
}

// ValidateRates checks both rates are percentages in 0..100 with at most
// two decimal places, the precision they are stored at.
func ValidateRates(r domain.Rates) error {
	for _, rate := range []decimal.Decimal{r.TaxRatePct, r.CommissionRatePct} {
		if rate.LessThan(zero) || rate.GreaterThan(hundred) {
			return ErrInvalidRates
		}
		if !rate.Equal(rate.Round(RateScale)) {
			return ErrInvalidRates
		}
	}
	return nil
}

func percentOf(cents int64, ratePct decimal.Decimal) int64 {
	return percent(decimal.NewFromInt(cents), ratePct).IntPart()
}

func percent(cents, ratePct decimal.Decimal) decimal.Decimal {
	return cents.Mul(ratePct).Shift(-2).Round(0)
}

// toCents converts a whole number of cents, refusing values IntPart would wrap.
func toCents(cents decimal.Decimal) (int64, error) {
	if cents.GreaterThan(maxCents) {
		return 0, ErrInvalidFare
	}
	return cents.IntPart(), nil
}
