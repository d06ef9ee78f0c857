package domain

import "time"

// DateRange bounds report queries. A nil bound is open. End is inclusive by
// day: rides on the End date are included.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// CategoryDayTotals is the raw per-day, per-category aggregate read from the store.
type CategoryDayTotals struct {
	Day                     time.Time
	CategoryName            string
	Rides                   int64
	BaseCents               int64
	TaxCents                int64
	TotalCents              int64
	SnapshotCommissionCents int64
}

// CommissionRow is one line of the commission by day and category report.
type CommissionRow struct {
	Day                     string `json:"day"`
	CategoryName            string `json:"category_name"`
	Rides                   int64  `json:"rides"`
	BaseCents               int64  `json:"base_cents"`
	CommissionCents         int64  `json:"commission_cents"`
	SnapshotCommissionCents int64  `json:"snapshot_commission_cents"`
	TaxCents                int64  `json:"tax_cents"`
	TotalCents              int64  `json:"total_cents"`
}

// DriverDayRow is one line of the rides per driver per day report.
type DriverDayRow struct {
	Day        string `json:"day"`
	DriverID   int64  `json:"driver_id"`
	DriverName string `json:"driver_name"`
	Rides      int64  `json:"rides"`
	GrossCents int64  `json:"gross_cents"`
}

// DriverBaseTotals is the unpaid base fare owed to a driver, before commission.
type DriverBaseTotals struct {
	DriverID   int64
	DriverName string
	Rides      int64
	BaseCents  int64
}

// PayoutRow is one line of the outstanding payouts report.
type PayoutRow struct {
	DriverID        int64  `json:"driver_id"`
	DriverName      string `json:"driver_name"`
	Rides           int64  `json:"rides"`
	BaseCents       int64  `json:"base_cents"`
	CommissionCents int64  `json:"commission_cents"`
	OwedCents       int64  `json:"owed_cents"`
}

// Payout is the result of settling a driver's outstanding balance.
type Payout struct {
	DriverID        int64     `json:"driver_id"`
	Rides           int64     `json:"rides"`
	BaseCents       int64     `json:"base_cents"`
	CommissionCents int64     `json:"commission_cents"`
	OwedCents       int64     `json:"owed_cents"`
	PaidAt          time.Time `json:"paid_at"`
}
