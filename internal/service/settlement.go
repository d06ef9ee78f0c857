package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridebook/internal/domain"
	"ridebook/internal/logger"
	"ridebook/internal/pricing"
	"ridebook/internal/repository"
)

// SettlementServiceDeps contains the collaborators of a SettlementService.
type SettlementServiceDeps struct {
	TxManager   repository.TxManager
	Repos       repository.Repositories
	Payments    *PaymentAuthorizer
	Rates       *RateService
	Summaries   SummaryCache // Optional
	Events      EventPublisher
	LockTimeout time.Duration
	Logger      *logger.Logger
}

// SettlementService closes rides and pays drivers.
type SettlementService struct {
	tx          repository.TxManager
	repos       repository.Repositories
	payments    *PaymentAuthorizer
	rates       *RateService
	summaries   SummaryCache
	events      EventPublisher
	lockTimeout time.Duration
	log         *logger.Logger
	now         func() time.Time
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(deps SettlementServiceDeps) *SettlementService {
	lockTimeout := deps.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &SettlementService{
		tx:          deps.TxManager,
		repos:       deps.Repos,
		payments:    deps.Payments,
		rates:       deps.Rates,
		summaries:   deps.Summaries,
		events:      deps.Events,
		lockTimeout: lockTimeout,
		log:         deps.Logger,
		now:         time.Now,
	}
}

// CompleteRide marks a requested ride completed and frees its driver.
func (s *SettlementService) CompleteRide(ctx context.Context, rideID int64) (*domain.RideSummary, error) {
	return s.closeRide(ctx, rideID, domain.RideStatusCompleted, domain.EventRideCompleted)
}

// CancelRide cancels a requested ride, refunds its payment and frees its driver.
func (s *SettlementService) CancelRide(ctx context.Context, rideID int64) (*domain.RideSummary, error) {
	return s.closeRide(ctx, rideID, domain.RideStatusCanceled, domain.EventRideCanceled)
}

func (s *SettlementService) closeRide(ctx context.Context, rideID int64, status domain.RideStatus, event domain.EventType) (*domain.RideSummary, error) {
	if rideID <= 0 {
		return nil, ErrInvalidID
	}

	var driverID int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Session.SetLockTimeout(ctx, s.lockTimeout); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}

		ride, err := repos.Rides.GetForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.Status != domain.RideStatusRequested {
			return fmt.Errorf("%w: ride %d is %s", ErrRideNotRequested, rideID, ride.Status)
		}
		driverID = ride.DriverID

		if err := repos.Rides.UpdateStatus(ctx, rideID, status); err != nil {
			return fmt.Errorf("update ride status: %w", err)
		}

		var refunded *domain.Payment
		if status == domain.RideStatusCanceled {
			payment, err := repos.Payments.GetByRideID(ctx, rideID)
			switch {
			case errors.Is(err, repository.ErrNotFound):
			case err != nil:
				return fmt.Errorf("load payment: %w", err)
			case payment.Status == domain.PaymentStatusAuthorized, payment.Status == domain.PaymentStatusCaptured:
				if err := s.payments.Refund(ctx, repos, payment); err != nil {
					return err
				}
				refunded = payment
			}
		}

		if _, err := repos.Drivers.LockAvailability(ctx, ride.DriverID); err != nil {
			return fmt.Errorf("lock driver: %w", err)
		}
		if err := repos.Drivers.SetAvailable(ctx, ride.DriverID, true); err != nil {
			return fmt.Errorf("release driver: %w", err)
		}
		return s.payments.Settle(ctx, repos, refunded)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, rideID)
	s.log.WithContext(ctx).WithFields(map[string]any{"ride_id": rideID, "status": status}).Info("ride closed")
	publish(ctx, s.events, s.log, newEvent(event, rideID, driverID, nil))

	return s.repos.Rides.GetSummary(ctx, rideID)
}

// PayDriver settles everything owed to a driver: the unpaid base fares less
// commission at the current rate. The paid rides are stamped so they are not
// counted again.
func (s *SettlementService) PayDriver(ctx context.Context, driverID int64) (*domain.Payout, error) {
	if driverID <= 0 {
		return nil, ErrInvalidID
	}

	var payout domain.Payout
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Session.SetLockTimeout(ctx, s.lockTimeout); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
		// Holding the driver row keeps new bookings for this driver out until commit.
		if _, err := repos.Drivers.LockAvailability(ctx, driverID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrDriverNotFound
			}
			return fmt.Errorf("lock driver: %w", err)
		}

		rates, err := s.rates.load(ctx, repos.Rates)
		if err != nil {
			return err
		}
		totals, err := repos.Rides.UnpaidTotalsForDriver(ctx, driverID)
		if err != nil {
			return fmt.Errorf("unpaid totals: %w", err)
		}

		commission := pricing.Commission(totals.BaseCents, rates.CommissionRatePct)
		owed := totals.BaseCents - commission
		if totals.Rides == 0 || owed <= 0 {
			return ErrNothingOwed
		}

		paidAt := s.now().UTC()
		if _, err := repos.Rides.MarkPaidOut(ctx, driverID, paidAt); err != nil {
			return fmt.Errorf("mark paid out: %w", err)
		}

		payout = domain.Payout{
			DriverID:        driverID,
			Rides:           totals.Rides,
			BaseCents:       totals.BaseCents,
			CommissionCents: commission,
			OwedCents:       owed,
			PaidAt:          paidAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).WithFields(map[string]any{
		"driver_id":  driverID,
		"rides":      payout.Rides,
		"owed_cents": payout.OwedCents,
	}).Info("driver paid")
	publish(ctx, s.events, s.log, newEvent(domain.EventDriverPaid, 0, driverID, map[string]any{
		"owed_cents": payout.OwedCents,
		"rides":      payout.Rides,
	}))

	return &payout, nil
}

func (s *SettlementService) invalidate(ctx context.Context, rideID int64) {
	if s.summaries == nil {
		return
	}
	if err := s.summaries.InvalidateRideSummary(ctx, rideID); err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("ride_id", rideID).Warn("failed to invalidate ride summary")
	}
}
