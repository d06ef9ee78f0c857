// Package memory is an in-process implementation of the repository
// interfaces. Transactions are serialized behind one mutex and work on a
// copy of the data that replaces the committed state only on success, so
// the rollback and isolation behavior matches the PostgreSQL store for a
// single process.
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

// Operation names accepted by Store.FailOn.
const (
	OpInsertPerson     = "people.insert"
	OpCreateRide       = "rides.create"
	OpCreatePrice      = "rides.price"
	OpCreatePayment    = "payments.create"
	OpLockAvailability = "drivers.lock"
	OpCommit           = "tx.commit"
)

var _ repository.TxManager = (*Store)(nil)

// Store holds all entities in memory.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time

	failMu sync.RWMutex
	fail   map[string]error

	// Counters for verification.
	TxCount          int32
	RollbackCount    int32
	LockCallCount    int32
	InsertPersonCall int32

	// LockTimeout is the last timeout passed to SetLockTimeout, in nanoseconds.
	LockTimeout int64
}

// NewStore creates a store seeded with the default categories, the platform
// operating account and the given rates.
func NewStore(rates domain.Rates) *Store {
	s := &Store{
		state: newState(),
		now:   time.Now,
		fail:  make(map[string]error),
	}
	s.state.seed(rates, s.now())
	return s
}

// SetClock replaces the clock used for server-side timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailOn makes every later call of op fail with err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

func (s *Store) injected(op string) error {
	s.failMu.RLock()
	defer s.failMu.RUnlock()
	return s.fail[op]
}

// Repositories returns repositories that each run as their own short transaction.
func (s *Store) Repositories() repository.Repositories {
	return s.bind(&view{store: s, auto: true})
}

// WithinTx implements repository.TxManager.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	atomic.AddInt32(&s.TxCount, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.state.clone()
	v := &view{store: s, st: working}
	err := fn(ctx, s.bind(v))
	if err == nil {
		err = s.injected(OpCommit)
	}
	if err != nil {
		atomic.AddInt32(&s.RollbackCount, 1)
		return err
	}
	s.state = working
	return nil
}

func (s *Store) bind(v *view) repository.Repositories {
	return repository.Repositories{
		People:     &personRepo{v},
		Locations:  &locationRepo{v},
		Categories: &categoryRepo{v},
		Drivers:    &driverRepo{v},
		Rides:      &rideRepo{v},
		Payments:   &paymentRepo{v},
		Accounts:   &accountRepo{v},
		Ledger:     &ledgerRepo{v},
		Rates:      &rateRepo{v},
		Reports:    &reportRepo{v},
		Session:    &sessionRepo{v},
	}
}

// view is the data a repository call operates on. Auto views lock the store
// for each call and write straight to the committed state; transaction views
// run under the lock already held by WithinTx.
type view struct {
	store *Store
	st    *state
	auto  bool
}

func (v *view) enter() (*state, func()) {
	if !v.auto {
		return v.st, func() {}
	}
	v.store.mu.Lock()
	return v.store.state, v.store.mu.Unlock
}

func (v *view) now() time.Time {
	return v.store.now().UTC()
}

// state is one consistent copy of every table.
type state struct {
	people     map[int64]domain.Person
	drivers    map[int64]domain.Driver
	locations  map[int64]domain.Location
	categories map[int64]domain.Category
	rides      map[int64]domain.Ride
	rideTimes  map[int64]domain.RideTime
	prices     map[int64]domain.Price
	payments   map[int64]domain.Payment
	accounts   map[int64]domain.BankAccount
	ledger     []domain.LedgerEntry
	rates      *domain.Rates
	seq        map[string]int64
}

func newState() *state {
	return &state{
		people:     make(map[int64]domain.Person),
		drivers:    make(map[int64]domain.Driver),
		locations:  make(map[int64]domain.Location),
		categories: make(map[int64]domain.Category),
		rides:      make(map[int64]domain.Ride),
		rideTimes:  make(map[int64]domain.RideTime),
		prices:     make(map[int64]domain.Price),
		payments:   make(map[int64]domain.Payment),
		accounts:   make(map[int64]domain.BankAccount),
		seq:        make(map[string]int64),
	}
}

func (st *state) next(table string) int64 {
	st.seq[table]++
	return st.seq[table]
}

func (st *state) seed(rates domain.Rates, now time.Time) {
	for _, name := range []string{"Standard", "XL", "Executive"} {
		id := st.next("categories")
		st.categories[id] = domain.Category{ID: id, Name: name}
	}

	rates.UpdatedAt = now
	st.rates = &rates

	operator := st.next("people")
	st.people[operator] = domain.Person{ID: operator, Name: "Platform Operating", Email: "operating@platform.internal", CreatedAt: now}
	account := st.next("accounts")
	st.accounts[account] = domain.BankAccount{
		ID:       account,
		PersonID: operator,
		BankNum:  "OPERATING-0001",
		Currency: "USD",
		Status:   domain.AccountStatusActive,
		Kind:     domain.AccountKindOperating,
	}
}

func (st *state) clone() *state {
	c := &state{
		people:     cloneMap(st.people),
		drivers:    cloneMap(st.drivers),
		locations:  cloneMap(st.locations),
		categories: cloneMap(st.categories),
		rides:      cloneMap(st.rides),
		rideTimes:  cloneMap(st.rideTimes),
		prices:     cloneMap(st.prices),
		payments:   cloneMap(st.payments),
		accounts:   cloneMap(st.accounts),
		ledger:     append([]domain.LedgerEntry(nil), st.ledger...),
		seq:        cloneMap(st.seq),
	}
	if st.rates != nil {
		r := *st.rates
		c.rates = &r
	}
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
