package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/logger"
	"ridebook/internal/repository"
	"ridebook/internal/repository/memory"
	"ridebook/internal/service"
)

var testRates = domain.Rates{
	TaxRatePct:        decimal.RequireFromString("8.25"),
	CommissionRatePct: decimal.NewFromInt(20),
}

// recordingPublisher is a mock EventPublisher for testing.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event

	PublishErr error
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PublishErr != nil {
		return p.PublishErr
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// mapSummaryCache is a mock SummaryCache for testing.
type mapSummaryCache struct {
	mu      sync.Mutex
	entries map[int64]domain.RideSummary

	GetCount        int
	InvalidateCount int
}

func newMapSummaryCache() *mapSummaryCache {
	return &mapSummaryCache{entries: make(map[int64]domain.RideSummary)}
}

func (c *mapSummaryCache) GetRideSummary(ctx context.Context, rideID int64) (*domain.RideSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCount++
	s, ok := c.entries[rideID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *mapSummaryCache) SetRideSummary(ctx context.Context, summary *domain.RideSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[summary.RideID] = *summary
	return nil
}

func (c *mapSummaryCache) InvalidateRideSummary(ctx context.Context, rideID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InvalidateCount++
	delete(c.entries, rideID)
	return nil
}

// mapCategoryCache is a mock CategoryCache for testing.
type mapCategoryCache struct {
	mu  sync.Mutex
	ids map[string]int64

	SetCount int
}

func (c *mapCategoryCache) GetCategoryID(ctx context.Context, name string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[name]
	return id, ok, nil
}

func (c *mapCategoryCache) SetCategoryID(ctx context.Context, name string, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ids == nil {
		c.ids = make(map[string]int64)
	}
	c.ids[name] = id
	c.SetCount++
	return nil
}

type fixture struct {
	store      *memory.Store
	repos      repository.Repositories
	events     *recordingPublisher
	summaries  *mapSummaryCache
	categories *mapCategoryCache
	rates      *service.RateService
	booking    *service.BookingService
	settlement *service.SettlementService
	ledger     *service.LedgerService
	directory  *service.DirectoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.Discard()
	store := memory.NewStore(testRates)
	repos := store.Repositories()
	events := &recordingPublisher{}
	summaries := newMapSummaryCache()
	categories := &mapCategoryCache{}

	rates := service.NewRateService(repos, testRates, log)
	resolver := service.NewResolver(log)
	payments := service.NewPaymentAuthorizer(log)

	return &fixture{
		store:      store,
		repos:      repos,
		events:     events,
		summaries:  summaries,
		categories: categories,
		rates:      rates,
		booking: service.NewBookingService(service.BookingServiceDeps{
			TxManager:  store,
			Repos:      repos,
			Resolver:   resolver,
			Payments:   payments,
			Rates:      rates,
			Categories: categories,
			Events:     events,
			Logger:     log,
		}),
		settlement: service.NewSettlementService(service.SettlementServiceDeps{
			TxManager: store,
			Repos:     repos,
			Payments:  payments,
			Rates:     rates,
			Summaries: summaries,
			Events:    events,
			Logger:    log,
		}),
		ledger:    service.NewLedgerService(repos, rates),
		directory: service.NewDirectoryService(store, repos, resolver, summaries, log),
	}
}

func (f *fixture) registerDriver(t *testing.T, name string) int64 {
	t.Helper()
	d, err := f.directory.RegisterDriver(context.Background(), service.RegisterDriverRequest{Name: name})
	if err != nil {
		t.Fatalf("failed to register driver %q: %v", name, err)
	}
	return d.ID
}

func (f *fixture) openAccount(t *testing.T, person, dollars string) *domain.BankAccount {
	t.Helper()
	a, _, err := f.directory.CreateBankAccount(context.Background(), service.CreateAccountRequest{
		PersonName:     person,
		BankNum:        "ACCT-" + person,
		BalanceDollars: decimal.RequireFromString(dollars),
	})
	if err != nil {
		t.Fatalf("failed to open account for %q: %v", person, err)
	}
	return a
}

func (f *fixture) balance(t *testing.T, accountID int64) int64 {
	t.Helper()
	a, err := f.repos.Accounts.GetByID(context.Background(), accountID)
	if err != nil {
		t.Fatalf("failed to read account %d: %v", accountID, err)
	}
	return a.BalanceCents
}

func (f *fixture) driverAvailable(t *testing.T, driverID int64) bool {
	t.Helper()
	d, err := f.repos.Drivers.GetByID(context.Background(), driverID)
	if err != nil {
		t.Fatalf("failed to read driver %d: %v", driverID, err)
	}
	return d.Available
}

func (f *fixture) rideCount(t *testing.T) int {
	t.Helper()
	rides, err := f.repos.Rides.ListRecent(context.Background(), domain.RideFilter{})
	if err != nil {
		t.Fatalf("failed to list rides: %v", err)
	}
	return len(rides)
}

func (f *fixture) book(t *testing.T, req service.BookingRequest) *service.BookingResult {
	t.Helper()
	result, err := f.booking.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("expected booking to succeed, got: %v", err)
	}
	return result
}

func bookingRequest(driverID int64, method, fare string) service.BookingRequest {
	return service.BookingRequest{
		RiderName:       "Alice Smith",
		DriverID:        driverID,
		PickupAddress:   "1 Main St",
		DropoffAddress:  "200 Harbor Blvd",
		CategoryName:    "Standard",
		PaymentMethod:   method,
		BaseFareDollars: decimal.RequireFromString(fare),
	}
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got: %v", want, err)
	}
}
