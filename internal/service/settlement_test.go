package service_test

import (
	"context"
	"errors"
	"testing"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
	"ridebook/internal/service"
)

func TestCompleteRide_FreesDriver(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	driverID := f.registerDriver(t, "Dana Driver")
	booked := f.book(t, bookingRequest(driverID, "cash", "15.00"))
	rideID := booked.Summary.RideID

	// Warm the cache so completion has something to invalidate.
	if _, err := f.directory.GetRide(context.Background(), rideID); err != nil {
		t.Fatalf("failed to read ride: %v", err)
	}

	summary, err := f.settlement.CompleteRide(context.Background(), rideID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if summary.Status != domain.RideStatusCompleted {
		t.Errorf("expected status completed, got %s", summary.Status)
	}
	if !f.driverAvailable(t, driverID) {
		t.Error("expected driver to be available after completion")
	}
	if f.summaries.InvalidateCount != 1 {
		t.Errorf("expected 1 cache invalidation, got %d", f.summaries.InvalidateCount)
	}

	cached, err := f.directory.GetRide(context.Background(), rideID)
	if err != nil {
		t.Fatalf("failed to read ride: %v", err)
	}
	if cached.Status != domain.RideStatusCompleted {
		t.Errorf("expected fresh status completed, got %s", cached.Status)
	}

	_, err = f.settlement.CompleteRide(context.Background(), rideID)
	expectErr(t, err, service.ErrRideNotRequested)

	// The driver can be booked again.
	f.book(t, bookingRequest(driverID, "cash", "8.00"))
}

func TestCancelRide_RefundsCardPayment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	driverID := f.registerDriver(t, "Dana Driver")
	account := f.openAccount(t, "Alice Smith", "100.00")
	booked := f.book(t, bookingRequest(driverID, "card", "15.00"))
	rideID := booked.Summary.RideID

	summary, err := f.settlement.CancelRide(context.Background(), rideID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if summary.Status != domain.RideStatusCanceled {
		t.Errorf("expected status canceled, got %s", summary.Status)
	}
	if summary.Payment == nil || summary.Payment.Status != domain.PaymentStatusRefunded {
		t.Errorf("expected refunded payment, got %+v", summary.Payment)
	}
	if got := f.balance(t, account.ID); got != 10000 {
		t.Errorf("expected balance restored to 10000, got %d", got)
	}

	entries, err := f.repos.Ledger.ListByRide(context.Background(), rideID)
	if err != nil {
		t.Fatalf("failed to list ledger entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 ledger entries, got %d", len(entries))
	}
	var sum int64
	for _, e := range entries {
		sum += e.AmountCents
	}
	if sum != 0 {
		t.Errorf("expected ledger to balance, got %d", sum)
	}

	if !f.driverAvailable(t, driverID) {
		t.Error("expected driver to be available after cancel")
	}

	_, err = f.settlement.CancelRide(context.Background(), rideID)
	expectErr(t, err, service.ErrRideNotRequested)
}

func TestCancelRide_ReleasesCashAuthorization(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	driverID := f.registerDriver(t, "Dana Driver")
	booked := f.book(t, bookingRequest(driverID, "cash", "15.00"))

	summary, err := f.settlement.CancelRide(context.Background(), booked.Summary.RideID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if summary.Payment == nil || summary.Payment.Status != domain.PaymentStatusRefunded {
		t.Errorf("expected released payment, got %+v", summary.Payment)
	}
	entries, _ := f.repos.Ledger.ListByRide(context.Background(), booked.Summary.RideID)
	if len(entries) != 0 {
		t.Errorf("expected no money movement for cash, got %d entries", len(entries))
	}
}

func TestCloseRide_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		name    string
		rideID  int64
		wantErr error
	}{
		{name: "zero id", rideID: 0, wantErr: service.ErrInvalidID},
		{name: "unknown ride", rideID: 99, wantErr: repository.ErrNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := f.settlement.CompleteRide(context.Background(), tc.rideID)
			expectErr(t, err, tc.wantErr)
			_, err = f.settlement.CancelRide(context.Background(), tc.rideID)
			expectErr(t, err, tc.wantErr)
		})
	}
}

func TestPayDriver_SettlesOutstandingRides(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	driverID := f.registerDriver(t, "Dana Driver")

	first := f.book(t, bookingRequest(driverID, "cash", "20.00"))
	if _, err := f.settlement.CompleteRide(context.Background(), first.Summary.RideID); err != nil {
		t.Fatalf("failed to complete ride: %v", err)
	}
	f.book(t, bookingRequest(driverID, "cash", "10.00"))

	payout, err := f.settlement.PayDriver(context.Background(), driverID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if payout.Rides != 2 || payout.BaseCents != 3000 || payout.CommissionCents != 600 || payout.OwedCents != 2400 {
		t.Errorf("unexpected payout: %+v", payout)
	}

	rows, err := f.ledger.OutstandingPayouts(context.Background(), domain.DateRange{})
	if err != nil {
		t.Fatalf("failed to read outstanding payouts: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected nothing outstanding after payout, got %+v", rows)
	}

	_, err = f.settlement.PayDriver(context.Background(), driverID)
	expectErr(t, err, service.ErrNothingOwed)

	var paid bool
	for _, typ := range f.events.types() {
		if typ == domain.EventDriverPaid {
			paid = true
		}
	}
	if !paid {
		t.Error("expected a driver.paid event")
	}
}

func TestPayDriver_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	driverID := f.registerDriver(t, "Dana Driver")

	_, err := f.settlement.PayDriver(context.Background(), 0)
	expectErr(t, err, service.ErrInvalidID)

	_, err = f.settlement.PayDriver(context.Background(), 99)
	expectErr(t, err, service.ErrDriverNotFound)

	_, err = f.settlement.PayDriver(context.Background(), driverID)
	expectErr(t, err, service.ErrNothingOwed)

	booked := f.book(t, bookingRequest(driverID, "cash", "20.00"))
	if _, err := f.settlement.CancelRide(context.Background(), booked.Summary.RideID); err != nil {
		t.Fatalf("failed to cancel ride: %v", err)
	}
	_, err = f.settlement.PayDriver(context.Background(), driverID)
	if !errors.Is(err, service.ErrNothingOwed) {
		t.Errorf("expected canceled rides to owe nothing, got: %v", err)
	}
}
