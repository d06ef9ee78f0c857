package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/logger"
	"ridebook/internal/pricing"
	"ridebook/internal/repository"
)

// DefaultLockTimeout bounds the wait for a contended driver row when none is configured.
const DefaultLockTimeout = 3 * time.Second

// pickupTimeLayouts are tried in order. Layouts without a zone are read as UTC.
var pickupTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// bookingStage names the progress of one booking transaction, for logs.
type bookingStage string

const (
	stageStarted          bookingStage = "started"
	stageEntitiesResolved bookingStage = "entities_resolved"
	stagePriced           bookingStage = "priced"
	stagePaymentHandled   bookingStage = "payment_handled"
	stageDriverLocked     bookingStage = "driver_locked"
	stageCommitted        bookingStage = "committed"
	stageRolledBack       bookingStage = "rolled_back"
)

// BookingRequest contains the parameters for booking a ride.
type BookingRequest struct {
	RiderName       string `validate:"required,max=200"`
	RiderEmail      string `validate:"omitempty,email,max=254"`
	DriverID        int64  `validate:"gt=0"`
	PickupAddress   string `validate:"required,max=500"`
	DropoffAddress  string `validate:"required,max=500"`
	CategoryName    string `validate:"required,max=100"`
	PaymentMethod   string
	PickupTime      *time.Time
	BaseFareDollars decimal.Decimal
	IdempotencyKey  string `validate:"max=255"`
}

func (r *BookingRequest) normalize() {
	r.RiderName = strings.TrimSpace(r.RiderName)
	r.RiderEmail = strings.TrimSpace(r.RiderEmail)
	r.PickupAddress = strings.TrimSpace(r.PickupAddress)
	r.DropoffAddress = strings.TrimSpace(r.DropoffAddress)
	r.CategoryName = strings.TrimSpace(r.CategoryName)
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
}

// BookingResult is the outcome of a committed booking.
type BookingResult struct {
	Summary *domain.RideSummary
	Payment *domain.Payment
	Quote   pricing.Quote

	// Replayed is true when the result belongs to an earlier booking made
	// with the same idempotency key.
	Replayed bool
}

// BookingServiceDeps contains the collaborators of a BookingService.
type BookingServiceDeps struct {
	TxManager   repository.TxManager
	Repos       repository.Repositories
	Resolver    *Resolver
	Payments    *PaymentAuthorizer
	Rates       *RateService
	Categories  CategoryCache // Optional
	Events      EventPublisher
	LockTimeout time.Duration
	Logger      *logger.Logger
}

// BookingService books rides. Everything a booking writes commits together
// or not at all.
type BookingService struct {
	tx          repository.TxManager
	repos       repository.Repositories
	resolver    *Resolver
	payments    *PaymentAuthorizer
	rates       *RateService
	categories  CategoryCache
	events      EventPublisher
	lockTimeout time.Duration
	validate    *validator.Validate
	log         *logger.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(deps BookingServiceDeps) *BookingService {
	lockTimeout := deps.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &BookingService{
		tx:          deps.TxManager,
		repos:       deps.Repos,
		resolver:    deps.Resolver,
		payments:    deps.Payments,
		rates:       deps.Rates,
		categories:  deps.Categories,
		events:      deps.Events,
		lockTimeout: lockTimeout,
		validate:    validator.New(),
		log:         deps.Logger,
	}
}

// ParsePickupTime parses a caller-supplied pickup time. Empty means none.
func ParsePickupTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range pickupTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidPickupTime, s)
}

// Book runs the booking transaction: resolve the rider and both locations,
// create the ride with its time and price, authorize the payment, then lock
// the driver and mark it unavailable.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	req.normalize()
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	baseCents, err := pricing.DollarsToCents(req.BaseFareDollars)
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		result, err := s.replay(ctx, req.IdempotencyKey)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	log := s.log.WithContext(ctx).WithFields(map[string]any{
		"driver_id": req.DriverID,
		"rider":     req.RiderName,
		"category":  req.CategoryName,
	})
	stage := stageStarted
	log.WithField("stage", stage).Debug("booking")

	var (
		rideID  int64
		quote   pricing.Quote
		payment *domain.Payment
	)

	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Session.SetLockTimeout(ctx, s.lockTimeout); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}

		rates, err := s.rates.load(ctx, repos.Rates)
		if err != nil {
			return err
		}

		riderID, err := s.resolver.ResolvePerson(ctx, repos, req.RiderName, req.RiderEmail)
		if err != nil {
			return err
		}
		categoryID, err := s.categoryID(ctx, repos, req.CategoryName)
		if err != nil {
			return err
		}
		pickupID, err := s.resolver.ResolveLocation(ctx, repos, req.PickupAddress)
		if err != nil {
			return err
		}
		dropoffID, err := s.resolver.ResolveLocation(ctx, repos, req.DropoffAddress)
		if err != nil {
			return err
		}
		stage = stageEntitiesResolved
		log.WithField("stage", stage).Debug("booking")

		ride := &domain.Ride{
			RiderID:        riderID,
			DriverID:       req.DriverID,
			CategoryID:     categoryID,
			PickupID:       pickupID,
			DropoffID:      dropoffID,
			Status:         domain.RideStatusRequested,
			IdempotencyKey: req.IdempotencyKey,
		}
		if err := repos.Rides.Create(ctx, ride); err != nil {
			if errors.Is(err, repository.ErrDuplicate) && req.IdempotencyKey != "" {
				return ErrDuplicateRequest
			}
			return fmt.Errorf("create ride: %w", err)
		}
		if err := repos.Rides.CreateTime(ctx, &domain.RideTime{RideID: ride.ID, PickupTS: req.PickupTime}); err != nil {
			return fmt.Errorf("create ride time: %w", err)
		}

		quote, err = pricing.Compute(baseCents, rates.TaxRatePct, rates.CommissionRatePct)
		if err != nil {
			return err
		}
		if err := repos.Rides.CreatePrice(ctx, quote.Price(ride.ID)); err != nil {
			return fmt.Errorf("create price: %w", err)
		}
		stage = stagePriced
		log.WithField("stage", stage).Debug("booking")

		payment, err = s.payments.Authorize(ctx, repos, AuthorizeRequest{
			RideID:      ride.ID,
			PayerID:     riderID,
			Method:      req.PaymentMethod,
			AmountCents: quote.TotalCents,
		})
		if err != nil {
			return err
		}
		stage = stagePaymentHandled
		log.WithField("stage", stage).Debug("booking")

		available, err := repos.Drivers.LockAvailability(ctx, req.DriverID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrDriverNotFound
			}
			return fmt.Errorf("lock driver: %w", err)
		}
		if !available {
			return ErrDriverUnavailable
		}
		if err := repos.Drivers.SetAvailable(ctx, req.DriverID, false); err != nil {
			return fmt.Errorf("book driver: %w", err)
		}
		stage = stageDriverLocked
		log.WithField("stage", stage).Debug("booking")

		if err := s.payments.Settle(ctx, repos, payment); err != nil {
			return err
		}

		rideID = ride.ID
		return nil
	})
	if err != nil {
		log.WithError(err).WithFields(map[string]any{"stage": stageRolledBack, "failed_after": stage}).Info("booking rejected")
		if errors.Is(err, ErrDuplicateRequest) {
			if result, replayErr := s.replay(ctx, req.IdempotencyKey); replayErr == nil {
				return result, nil
			}
		}
		return nil, err
	}
	log.WithFields(map[string]any{"stage": stageCommitted, "ride_id": rideID}).Info("ride booked")

	summary, err := s.repos.Rides.GetSummary(ctx, rideID)
	if err != nil {
		return nil, fmt.Errorf("read booking summary: %w", err)
	}

	publish(ctx, s.events, s.log, newEvent(domain.EventRideBooked, rideID, req.DriverID, map[string]any{
		"rider":          summary.Rider,
		"total_cents":    summary.TotalCents,
		"category":       summary.CategoryName,
		"payment_method": paymentMethodOf(payment),
	}))

	return &BookingResult{Summary: summary, Payment: payment, Quote: quote}, nil
}

func (s *BookingService) validateRequest(req BookingRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrMissingField, err)
	}
	fe := verrs[0]
	switch fe.Field() {
	case "RiderName", "RiderEmail":
		return fmt.Errorf("%w: %s failed %s", ErrInvalidRider, fe.Field(), fe.Tag())
	default:
		return fmt.Errorf("%w: %s failed %s", ErrMissingField, fe.Field(), fe.Tag())
	}
}

func (s *BookingService) categoryID(ctx context.Context, repos repository.Repositories, name string) (int64, error) {
	if s.categories != nil {
		if id, ok, err := s.categories.GetCategoryID(ctx, name); err == nil && ok {
			return id, nil
		}
	}

	category, err := repos.Categories.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrUnknownCategory, name)
		}
		return 0, fmt.Errorf("lookup category: %w", err)
	}

	if s.categories != nil {
		if err := s.categories.SetCategoryID(ctx, name, category.ID); err != nil {
			s.log.WithContext(ctx).WithError(err).Warn("failed to cache category")
		}
	}
	return category.ID, nil
}

// replay returns the booking committed earlier under key.
func (s *BookingService) replay(ctx context.Context, key string) (*BookingResult, error) {
	ride, err := s.repos.Rides.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	summary, err := s.repos.Rides.GetSummary(ctx, ride.ID)
	if err != nil {
		return nil, fmt.Errorf("read booking summary: %w", err)
	}
	price, err := s.repos.Rides.GetPrice(ctx, ride.ID)
	if err != nil {
		return nil, fmt.Errorf("read booking price: %w", err)
	}

	s.log.WithContext(ctx).WithFields(map[string]any{"ride_id": ride.ID, "idempotency_key": key}).Info("booking replayed")
	return &BookingResult{
		Summary:  summary,
		Payment:  summary.Payment,
		Quote:    quoteFromPrice(price),
		Replayed: true,
	}, nil
}

func quoteFromPrice(p *domain.Price) pricing.Quote {
	return pricing.Quote{
		BaseCents:         p.BaseCents,
		TaxRatePct:        p.TaxRatePct,
		TaxCents:          p.TaxCents,
		TotalCents:        p.TotalCents,
		CommissionRatePct: p.CommissionRatePct,
		CommissionCents:   p.CommissionCents,
		DriverTakeCents:   p.BaseCents - p.CommissionCents,
	}
}

func paymentMethodOf(p *domain.Payment) string {
	if p == nil {
		return ""
	}
	return string(p.Method)
}
