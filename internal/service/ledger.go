package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"ridebook/internal/domain"
	"ridebook/internal/pricing"
	"ridebook/internal/repository"
)

const reportDayLayout = "2006-01-02"

// LedgerService derives financial reports from committed rides.
// It never writes and takes no locks.
type LedgerService struct {
	repos repository.Repositories
	rates *RateService
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(repos repository.Repositories, rates *RateService) *LedgerService {
	return &LedgerService{repos: repos, rates: rates}
}

// ParseDateRange parses optional YYYY-MM-DD bounds. An empty bound is open.
func ParseDateRange(start, end string) (domain.DateRange, error) {
	var r domain.DateRange

	parse := func(s string) (*time.Time, error) {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		t, err := time.ParseInLocation(reportDayLayout, s, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDateRange, s)
		}
		return &t, nil
	}

	var err error
	if r.Start, err = parse(start); err != nil {
		return r, err
	}
	if r.End, err = parse(end); err != nil {
		return r, err
	}
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return r, fmt.Errorf("%w: start %s is after end %s", ErrInvalidDateRange, start, end)
	}
	return r, nil
}

// CommissionByDayCategory reports fares per request day and category, with
// commission at the current rate applied to the summed base fare.
func (s *LedgerService) CommissionByDayCategory(ctx context.Context, r domain.DateRange) ([]*domain.CommissionRow, error) {
	rates, err := s.rates.Current(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.repos.Reports.TotalsByDayAndCategory(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("totals by day and category: %w", err)
	}

	rows := make([]*domain.CommissionRow, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, &domain.CommissionRow{
			Day:                     t.Day.UTC().Format(reportDayLayout),
			CategoryName:            t.CategoryName,
			Rides:                   t.Rides,
			BaseCents:               t.BaseCents,
			CommissionCents:         pricing.Commission(t.BaseCents, rates.CommissionRatePct),
			SnapshotCommissionCents: t.SnapshotCommissionCents,
			TaxCents:                t.TaxCents,
			TotalCents:              t.TotalCents,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Day != rows[j].Day {
			return rows[i].Day > rows[j].Day
		}
		return rows[i].CategoryName < rows[j].CategoryName
	})
	return rows, nil
}

// RidesPerDriverPerDay reports ride counts and gross fares per day and driver.
func (s *LedgerService) RidesPerDriverPerDay(ctx context.Context, r domain.DateRange) ([]*domain.DriverDayRow, error) {
	rows, err := s.repos.Reports.RidesPerDriverPerDay(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("rides per driver per day: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Day != rows[j].Day {
			return rows[i].Day > rows[j].Day
		}
		return rows[i].Rides > rows[j].Rides
	})
	return rows, nil
}

// OutstandingPayouts reports what each driver is owed for rides not yet paid
// out. Drivers owed nothing are left out.
func (s *LedgerService) OutstandingPayouts(ctx context.Context, r domain.DateRange) ([]*domain.PayoutRow, error) {
	rates, err := s.rates.Current(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.repos.Reports.UnpaidBaseByDriver(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("unpaid base by driver: %w", err)
	}

	rows := make([]*domain.PayoutRow, 0, len(totals))
	for _, t := range totals {
		commission := pricing.Commission(t.BaseCents, rates.CommissionRatePct)
		owed := t.BaseCents - commission
		if owed <= 0 {
			continue
		}
		rows = append(rows, &domain.PayoutRow{
			DriverID:        t.DriverID,
			DriverName:      t.DriverName,
			Rides:           t.Rides,
			BaseCents:       t.BaseCents,
			CommissionCents: commission,
			OwedCents:       owed,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].OwedCents != rows[j].OwedCents {
			return rows[i].OwedCents > rows[j].OwedCents
		}
		return rows[i].DriverID < rows[j].DriverID
	})
	return rows, nil
}
