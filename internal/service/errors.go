package service

import (
	"errors"

	"ridebook/internal/pricing"
	"ridebook/internal/repository"
)

var (
	// ErrMissingField is returned when a required booking field is empty.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidFare is returned for a negative or out-of-range fare or rate.
	ErrInvalidFare = pricing.ErrInvalidFare

	// ErrInvalidRates is returned when a rate update falls outside 0..100 percent
	// or has more than two decimal places.
	ErrInvalidRates = pricing.ErrInvalidRates

	// ErrInvalidRider is returned when no rider name is given.
	ErrInvalidRider = errors.New("invalid rider")

	// ErrInvalidPickupTime is returned when the pickup time cannot be parsed.
	ErrInvalidPickupTime = errors.New("invalid pickup time")

	// ErrInvalidDateRange is returned when a report date is malformed or start is after end.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrUnknownCategory is returned when the category name matches no category.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrDriverNotFound is returned when the requested driver does not exist.
	ErrDriverNotFound = errors.New("driver not found")

	// ErrDriverUnavailable is returned when the driver is already booked.
	ErrDriverUnavailable = errors.New("driver unavailable")

	// ErrNoFundingSource is returned when a card payer has no active bank account.
	ErrNoFundingSource = errors.New("no active payment account found for rider")

	// ErrInsufficientFunds is returned when the payer's balance cannot cover the fare.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrLockTimeout is returned when the driver row stayed locked past the
	// configured timeout. The request may be retried.
	ErrLockTimeout = repository.ErrLockTimeout

	// ErrResolutionConflict is returned when an entity can neither be inserted
	// nor read back by its natural key. It indicates a store integrity problem.
	ErrResolutionConflict = errors.New("entity resolution conflict")

	// ErrDuplicateRequest is returned when a booking reuses an idempotency key
	// that a concurrent booking committed first.
	ErrDuplicateRequest = errors.New("duplicate booking request")

	// ErrRideNotRequested is returned when completing or canceling a ride that
	// is no longer in the requested state.
	ErrRideNotRequested = errors.New("ride is not in requested state")

	// ErrNothingOwed is returned when paying out a driver with no unpaid rides.
	ErrNothingOwed = errors.New("no outstanding payout for driver")

	// ErrDriverExists is returned when registering a person who is already a driver.
	ErrDriverExists = errors.New("person is already a driver")

	// ErrInvalidID is returned for non-positive identifiers.
	ErrInvalidID = errors.New("invalid id")
)
