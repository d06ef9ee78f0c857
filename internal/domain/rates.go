package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate is a percentage, e.g. 8.25 for 8.25 %.
type Rate = decimal.Decimal

// Rates are the tax and commission percentages in force.
type Rates struct {
	TaxRatePct        Rate
	CommissionRatePct Rate
	UpdatedAt         time.Time
}
