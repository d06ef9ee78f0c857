package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ridebook/internal/app"
	"ridebook/internal/domain"
	"ridebook/internal/handler"
	"ridebook/internal/logger"
	"ridebook/internal/middleware"
	"ridebook/internal/repository"
	"ridebook/internal/repository/memory"
	"ridebook/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// responseStore is an in-memory middleware.ResponseStore.
type responseStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	locks map[string]bool
}

func newResponseStore() *responseStore {
	return &responseStore{data: make(map[string][]byte), locks: make(map[string]bool)}
}

func (s *responseStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *responseStore) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *responseStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] {
		return false, nil
	}
	s.locks[key] = true
	return true, nil
}

func (s *responseStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
	return nil
}

// failingPinger is a handler.Pinger that is never reachable.
type failingPinger struct{}

func (failingPinger) PingContext(ctx context.Context) error { return errors.New("connection refused") }

type testServer struct {
	router *gin.Engine
	store  *memory.Store
}

func newTestServer(t *testing.T, responses middleware.ResponseStore, pinger handler.Pinger) *testServer {
	t.Helper()

	log := logger.Discard()
	rates := domain.Rates{
		TaxRatePct:        decimal.RequireFromString("8.25"),
		CommissionRatePct: decimal.NewFromInt(20),
	}
	store := memory.NewStore(rates)
	repos := store.Repositories()
	publisher := service.NewLogPublisher(log)

	resolver := service.NewResolver(log)
	payments := service.NewPaymentAuthorizer(log)
	rateService := service.NewRateService(repos, rates, log)
	booking := service.NewBookingService(service.BookingServiceDeps{
		TxManager: store,
		Repos:     repos,
		Resolver:  resolver,
		Payments:  payments,
		Rates:     rateService,
		Events:    publisher,
		Logger:    log,
	})
	settlement := service.NewSettlementService(service.SettlementServiceDeps{
		TxManager: store,
		Repos:     repos,
		Payments:  payments,
		Rates:     rateService,
		Events:    publisher,
		Logger:    log,
	})
	directory := service.NewDirectoryService(store, repos, resolver, nil, log)

	router := app.NewRouter(app.RouterDeps{
		BookingHandler:     handler.NewBookingHandler(booking),
		RideHandler:        handler.NewRideHandler(directory, settlement),
		DriverHandler:      handler.NewDriverHandler(directory, settlement),
		RiderHandler:       handler.NewRiderHandler(directory),
		BankAccountHandler: handler.NewBankAccountHandler(directory),
		RatesHandler:       handler.NewRatesHandler(rateService),
		ReportHandler:      handler.NewReportHandler(service.NewLedgerService(repos, rateService)),
		HealthHandler:      handler.NewHealthHandler(pinger),
		IdempotencyStore:   responses,
		Logger:             log,
	})
	return &testServer{router: router, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
}

func (s *testServer) registerDriver(t *testing.T, name string) int64 {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/drivers", gin.H{"name": name}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 registering driver, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Driver handler.DriverResponse `json:"driver"`
	}
	decode(t, w, &resp)
	return resp.Driver.ID
}

func bookingBody(driverID int64, method, fare string) gin.H {
	return gin.H{
		"riderName":       "Alice Smith",
		"driverId":        driverID,
		"pickupAddress":   "1 Main St",
		"dropoffAddress":  "200 Harbor Blvd",
		"categoryName":    "Standard",
		"paymentMethod":   method,
		"baseFareDollars": fare,
	}
}

func TestRouter_BookCardRide(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	driverID := s.registerDriver(t, "Dana Driver")

	w := s.do(t, http.MethodPost, "/v1/bank-accounts", gin.H{
		"personName":     "Alice Smith",
		"bankNum":        "ACCT-1",
		"balanceDollars": "100.00",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 opening account, got %d: %s", w.Code, w.Body.String())
	}
	var opened struct {
		Account handler.BankAccountResponse `json:"account"`
	}
	decode(t, w, &opened)

	w = s.do(t, http.MethodPost, "/v1/bookings", bookingBody(driverID, "card", "15.00"), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp handler.BookResponse
	decode(t, w, &resp)
	if !resp.OK || resp.Replayed {
		t.Errorf("expected ok fresh booking, got ok=%v replayed=%v", resp.OK, resp.Replayed)
	}
	if resp.Ride == nil || resp.Ride.TotalCents != 1624 || resp.Ride.Driver != "Dana Driver" {
		t.Fatalf("expected total 1624 for Dana Driver, got %+v", resp.Ride)
	}
	if resp.Payment == nil || resp.Payment.Status != domain.PaymentStatusCaptured {
		t.Errorf("expected captured payment, got %+v", resp.Payment)
	}

	rideID := strconv.FormatInt(resp.Ride.RideID, 10)
	w = s.do(t, http.MethodGet, "/v1/rides/"+rideID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 reading ride, got %d: %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/v1/rides/"+rideID+"/ledger", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 reading ledger, got %d: %s", w.Code, w.Body.String())
	}
	var ledger struct {
		Entries []handler.LedgerEntryResponse `json:"entries"`
	}
	decode(t, w, &ledger)
	if len(ledger.Entries) != 2 || ledger.Entries[0].AccountID != opened.Account.ID || ledger.Entries[0].AmountCents != -1624 {
		t.Errorf("expected a payer debit and an operating credit, got %+v", ledger.Entries)
	}

	w = s.do(t, http.MethodGet, "/v1/bank-accounts/"+strconv.FormatInt(opened.Account.ID, 10), nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 reading account, got %d: %s", w.Code, w.Body.String())
	}
	var account struct {
		Account handler.BankAccountResponse `json:"account"`
	}
	decode(t, w, &account)
	if account.Account.BalanceCents != 10000-1624 {
		t.Errorf("expected balance %d, got %d", 10000-1624, account.Account.BalanceCents)
	}

	if w := s.do(t, http.MethodGet, "/v1/bank-accounts/9999", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown account, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/v1/rides/9999/ledger", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown ride ledger, got %d", w.Code)
	}
}

func TestRouter_BookingErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       func(driverID int64) gin.H
		wantStatus int
		wantCode   string
	}{
		{
			name: "unknown category",
			body: func(id int64) gin.H {
				b := bookingBody(id, "cash", "15.00")
				b["categoryName"] = "Luxury"
				return b
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "unknown_category",
		},
		{
			name:       "card without account",
			body:       func(id int64) gin.H { return bookingBody(id, "card", "15.00") },
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "no_funding_source",
		},
		{
			name:       "unknown driver",
			body:       func(id int64) gin.H { return bookingBody(id+100, "cash", "15.00") },
			wantStatus: http.StatusNotFound,
			wantCode:   "driver_not_found",
		},
		{
			name: "malformed pickup time",
			body: func(id int64) gin.H {
				b := bookingBody(id, "cash", "15.00")
				b["pickupTime"] = "tomorrow"
				return b
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_pickup_time",
		},
		{
			name:       "negative fare",
			body:       func(id int64) gin.H { return bookingBody(id, "cash", "-1.00") },
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_fare",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t, nil, nil)
			driverID := s.registerDriver(t, "Dana Driver")

			w := s.do(t, http.MethodPost, "/v1/bookings", tc.body(driverID), nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			var resp handler.ErrorResponse
			decode(t, w, &resp)
			if resp.OK || resp.Code != tc.wantCode {
				t.Errorf("expected code %s, got %+v", tc.wantCode, resp)
			}
		})
	}
}

func TestRouter_BusyDriverConflicts(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	driverID := s.registerDriver(t, "Dana Driver")

	if w := s.do(t, http.MethodPost, "/v1/bookings", bookingBody(driverID, "cash", "15.00"), nil); w.Code != http.StatusCreated {
		t.Fatalf("expected first booking 201, got %d: %s", w.Code, w.Body.String())
	}

	w := s.do(t, http.MethodPost, "/v1/bookings", bookingBody(driverID, "cash", "9.00"), nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	var resp handler.ErrorResponse
	decode(t, w, &resp)
	if resp.Code != "driver_unavailable" {
		t.Errorf("expected driver_unavailable, got %s", resp.Code)
	}
}

func TestRouter_LockTimeoutIsRetryable(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	driverID := s.registerDriver(t, "Dana Driver")

	s.store.FailOn(memory.OpLockAvailability, repository.ErrLockTimeout)
	w := s.do(t, http.MethodPost, "/v1/bookings", bookingBody(driverID, "cash", "15.00"), nil)
	s.store.FailOn(memory.OpLockAvailability, nil)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After 1, got %q", w.Header().Get("Retry-After"))
	}
	var resp handler.ErrorResponse
	decode(t, w, &resp)
	if !resp.Retryable || resp.Code != "lock_timeout" {
		t.Errorf("expected retryable lock_timeout, got %+v", resp)
	}

	// The identical request succeeds once the lock is free.
	if w := s.do(t, http.MethodPost, "/v1/bookings", bookingBody(driverID, "cash", "15.00"), nil); w.Code != http.StatusCreated {
		t.Errorf("expected retry to succeed, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRouter_IdempotentBookingReplaysStoredResponse(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, newResponseStore(), nil)
	driverID := s.registerDriver(t, "Dana Driver")
	headers := map[string]string{middleware.IdempotencyHeader: "book-1"}

	first := s.do(t, http.MethodPost, "/v1/bookings", bookingBody(driverID, "cash", "15.00"), headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}
	second := s.do(t, http.MethodPost, "/v1/bookings", bookingBody(driverID, "cash", "15.00"), headers)
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d: %s", second.Code, second.Body.String())
	}
	if second.Header().Get(middleware.ReplayedHeader) != "true" {
		t.Error("expected replayed header on second response")
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Errorf("expected identical bodies, got %s and %s", first.Body.String(), second.Body.String())
	}
}

func TestRouter_IdempotentBookingWithoutResponseStore(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	driverID := s.registerDriver(t, "Dana Driver")
	body := bookingBody(driverID, "cash", "15.00")
	body["idempotencyKey"] = "book-2"

	first := s.do(t, http.MethodPost, "/v1/bookings", body, nil)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}
	second := s.do(t, http.MethodPost, "/v1/bookings", body, nil)
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 replay, got %d: %s", second.Code, second.Body.String())
	}

	var a, b handler.BookResponse
	decode(t, first, &a)
	decode(t, second, &b)
	if !b.Replayed || a.Ride.RideID != b.Ride.RideID {
		t.Errorf("expected replay of ride %d, got replayed=%v ride %d", a.Ride.RideID, b.Replayed, b.Ride.RideID)
	}
}

func TestRouter_CompleteThenPayDriver(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	driverID := s.registerDriver(t, "Dana Driver")

	w := s.do(t, http.MethodPost, "/v1/bookings", bookingBody(driverID, "cash", "20.00"), nil)
	var booked handler.BookResponse
	decode(t, w, &booked)

	rideID := strconv.FormatInt(booked.Ride.RideID, 10)
	if w := s.do(t, http.MethodPost, "/v1/rides/"+rideID+"/complete", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 completing ride, got %d: %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodPost, "/v1/rides/"+rideID+"/cancel", nil, nil); w.Code != http.StatusConflict {
		t.Errorf("expected 409 cancelling a completed ride, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/v1/reports/outstanding-payouts", nil, nil)
	var outstanding struct {
		Rows []domain.PayoutRow `json:"rows"`
	}
	decode(t, w, &outstanding)
	if len(outstanding.Rows) != 1 || outstanding.Rows[0].OwedCents != 1600 {
		t.Fatalf("expected one row owing 1600, got %+v", outstanding.Rows)
	}

	payoutPath := "/v1/drivers/" + strconv.FormatInt(driverID, 10) + "/payout"
	w = s.do(t, http.MethodPost, payoutPath, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 paying driver, got %d: %s", w.Code, w.Body.String())
	}
	var paid struct {
		Payout domain.Payout `json:"payout"`
	}
	decode(t, w, &paid)
	if paid.Payout.OwedCents != 1600 || paid.Payout.Rides != 1 {
		t.Errorf("expected payout of 1600 for 1 ride, got %+v", paid.Payout)
	}

	w = s.do(t, http.MethodPost, payoutPath, nil, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 on second payout, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRouter_Rates(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)

	tests := []struct {
		name       string
		body       gin.H
		wantStatus int
	}{
		{name: "valid", body: gin.H{"taxRatePct": "7.5", "commissionRatePct": "25"}, wantStatus: http.StatusOK},
		{name: "missing commission", body: gin.H{"taxRatePct": "7.5"}, wantStatus: http.StatusBadRequest},
		{name: "commission over 100", body: gin.H{"taxRatePct": "7.5", "commissionRatePct": "101"}, wantStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		w := s.do(t, http.MethodPut, "/v1/config/rates", tc.body, nil)
		if w.Code != tc.wantStatus {
			t.Errorf("%s: expected %d, got %d: %s", tc.name, tc.wantStatus, w.Code, w.Body.String())
		}
	}

	w := s.do(t, http.MethodGet, "/v1/config/rates", nil, nil)
	var resp struct {
		Rates handler.RatesResponse `json:"rates"`
	}
	decode(t, w, &resp)
	if !resp.Rates.CommissionRatePct.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected commission 25, got %s", resp.Rates.CommissionRatePct)
	}
}

func TestRouter_ReportRejectsBadRange(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	w := s.do(t, http.MethodGet, "/v1/reports/commission?start=2024-05-02&end=2024-05-01", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var resp handler.ErrorResponse
	decode(t, w, &resp)
	if resp.Code != "invalid_date_range" {
		t.Errorf("expected invalid_date_range, got %s", resp.Code)
	}
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	if w := newTestServer(t, nil, nil).do(t, http.MethodGet, "/health", nil, nil); w.Code != http.StatusOK {
		t.Errorf("expected 200 without a database, got %d", w.Code)
	}
	if w := newTestServer(t, nil, failingPinger{}).do(t, http.MethodGet, "/health", nil, nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when the database is down, got %d", w.Code)
	}
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	w := s.do(t, http.MethodGet, "/v1/riders", nil, map[string]string{"X-Request-ID": "req-7"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-Request-ID"); got != "req-7" {
		t.Errorf("expected request id echoed, got %q", got)
	}
}
