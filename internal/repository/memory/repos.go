package memory

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

type personRepo struct{ v *view }

func (r *personRepo) GetByEmail(ctx context.Context, email string) (*domain.Person, error) {
	st, done := r.v.enter()
	defer done()
	for _, p := range st.people {
		if p.Email == email {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *personRepo) GetByName(ctx context.Context, name string) (*domain.Person, error) {
	st, done := r.v.enter()
	defer done()
	var found *domain.Person
	for _, p := range st.people {
		if p.Name == name && (found == nil || p.ID < found.ID) {
			p := p
			found = &p
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *personRepo) InsertIfAbsent(ctx context.Context, person *domain.Person) (int64, bool, error) {
	atomic.AddInt32(&r.v.store.InsertPersonCall, 1)
	if err := r.v.store.injected(OpInsertPerson); err != nil {
		return 0, false, err
	}
	st, done := r.v.enter()
	defer done()
	for _, p := range st.people {
		if p.Email == person.Email {
			return 0, false, nil
		}
	}
	id := st.next("people")
	st.people[id] = domain.Person{ID: id, Name: person.Name, Email: person.Email, Phone: person.Phone, CreatedAt: r.v.now()}
	return id, true, nil
}

func (r *personRepo) GetAll(ctx context.Context) ([]*domain.Person, error) {
	st, done := r.v.enter()
	defer done()
	out := make([]*domain.Person, 0, len(st.people))
	for _, p := range st.people {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type locationRepo struct{ v *view }

func (r *locationRepo) GetByAddress(ctx context.Context, address string) (*domain.Location, error) {
	st, done := r.v.enter()
	defer done()
	for _, l := range st.locations {
		if l.Address == address {
			return &l, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *locationRepo) InsertIfAbsent(ctx context.Context, address string) (int64, bool, error) {
	st, done := r.v.enter()
	defer done()
	for _, l := range st.locations {
		if l.Address == address {
			return 0, false, nil
		}
	}
	id := st.next("locations")
	st.locations[id] = domain.Location{ID: id, Address: address}
	return id, true, nil
}

type categoryRepo struct{ v *view }

func (r *categoryRepo) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	st, done := r.v.enter()
	defer done()
	for _, c := range st.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *categoryRepo) GetAll(ctx context.Context) ([]*domain.Category, error) {
	st, done := r.v.enter()
	defer done()
	out := make([]*domain.Category, 0, len(st.categories))
	for _, c := range st.categories {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type driverRepo struct{ v *view }

func (r *driverRepo) Create(ctx context.Context, personID int64) (*domain.Driver, error) {
	st, done := r.v.enter()
	defer done()
	p, ok := st.people[personID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, d := range st.drivers {
		if d.PersonID == personID {
			return nil, repository.ErrDuplicate
		}
	}
	id := st.next("drivers")
	d := domain.Driver{ID: id, PersonID: personID, Name: p.Name, Email: p.Email, Available: true}
	st.drivers[id] = d
	return &d, nil
}

func (r *driverRepo) GetByID(ctx context.Context, id int64) (*domain.Driver, error) {
	st, done := r.v.enter()
	defer done()
	d, ok := st.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *driverRepo) GetAll(ctx context.Context, onlyAvailable bool) ([]*domain.Driver, error) {
	st, done := r.v.enter()
	defer done()
	out := make([]*domain.Driver, 0, len(st.drivers))
	for _, d := range st.drivers {
		if onlyAvailable && !d.Available {
			continue
		}
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// LockAvailability needs no row lock here: transactions are already serialized.
func (r *driverRepo) LockAvailability(ctx context.Context, id int64) (bool, error) {
	atomic.AddInt32(&r.v.store.LockCallCount, 1)
	if err := r.v.store.injected(OpLockAvailability); err != nil {
		return false, err
	}
	st, done := r.v.enter()
	defer done()
	d, ok := st.drivers[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	return d.Available, nil
}

func (r *driverRepo) SetAvailable(ctx context.Context, id int64, available bool) error {
	st, done := r.v.enter()
	defer done()
	d, ok := st.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.Available = available
	st.drivers[id] = d
	return nil
}

type rideRepo struct{ v *view }

func (r *rideRepo) Create(ctx context.Context, ride *domain.Ride) error {
	if err := r.v.store.injected(OpCreateRide); err != nil {
		return err
	}
	st, done := r.v.enter()
	defer done()
	if ride.IdempotencyKey != "" {
		for _, existing := range st.rides {
			if existing.IdempotencyKey == ride.IdempotencyKey {
				return repository.ErrDuplicate
			}
		}
	}
	ride.ID = st.next("rides")
	ride.CreatedAt = r.v.now()
	st.rides[ride.ID] = *ride
	return nil
}

func (r *rideRepo) GetByID(ctx context.Context, id int64) (*domain.Ride, error) {
	st, done := r.v.enter()
	defer done()
	ride, ok := st.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ride, nil
}

func (r *rideRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Ride, error) {
	return r.GetByID(ctx, id)
}

func (r *rideRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Ride, error) {
	st, done := r.v.enter()
	defer done()
	for _, ride := range st.rides {
		if ride.IdempotencyKey == key {
			return &ride, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *rideRepo) UpdateStatus(ctx context.Context, id int64, status domain.RideStatus) error {
	st, done := r.v.enter()
	defer done()
	ride, ok := st.rides[id]
	if !ok {
		return repository.ErrNotFound
	}
	ride.Status = status
	st.rides[id] = ride
	return nil
}

func (r *rideRepo) CreateTime(ctx context.Context, rt *domain.RideTime) error {
	st, done := r.v.enter()
	defer done()
	if _, ok := st.rides[rt.RideID]; !ok {
		return repository.ErrNotFound
	}
	rt.RequestTS = r.v.now()
	st.rideTimes[rt.RideID] = *rt
	return nil
}

func (r *rideRepo) CreatePrice(ctx context.Context, p *domain.Price) error {
	if err := r.v.store.injected(OpCreatePrice); err != nil {
		return err
	}
	st, done := r.v.enter()
	defer done()
	if _, ok := st.prices[p.RideID]; ok {
		return repository.ErrDuplicate
	}
	st.prices[p.RideID] = *p
	return nil
}

func (r *rideRepo) GetPrice(ctx context.Context, rideID int64) (*domain.Price, error) {
	st, done := r.v.enter()
	defer done()
	p, ok := st.prices[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *rideRepo) GetSummary(ctx context.Context, id int64) (*domain.RideSummary, error) {
	st, done := r.v.enter()
	defer done()
	return st.summary(id)
}

func (r *rideRepo) ListRecent(ctx context.Context, filter domain.RideFilter) ([]*domain.RideSummary, error) {
	st, done := r.v.enter()
	defer done()

	ids := make([]int64, 0, len(st.rides))
	for id := range st.rides {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	var out []*domain.RideSummary
	for _, id := range ids {
		s, err := st.summary(id)
		if err != nil {
			continue
		}
		if !containsFold(s.Rider, filter.Rider) || !containsFold(s.Driver, filter.Driver) ||
			!containsFold(s.CategoryName, filter.Category) {
			continue
		}
		out = append(out, s)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *rideRepo) UnpaidTotalsForDriver(ctx context.Context, driverID int64) (*domain.DriverBaseTotals, error) {
	st, done := r.v.enter()
	defer done()
	totals := &domain.DriverBaseTotals{DriverID: driverID}
	for _, ride := range st.rides {
		if ride.DriverID == driverID && st.unpaid(ride) {
			totals.Rides++
			totals.BaseCents += st.prices[ride.ID].BaseCents
		}
	}
	return totals, nil
}

func (r *rideRepo) MarkPaidOut(ctx context.Context, driverID int64, paidAt time.Time) (int64, error) {
	st, done := r.v.enter()
	defer done()
	var n int64
	for id, ride := range st.rides {
		if ride.DriverID == driverID && st.unpaid(ride) {
			at := paidAt
			ride.PaidOutAt = &at
			st.rides[id] = ride
			n++
		}
	}
	return n, nil
}

type paymentRepo struct{ v *view }

func (r *paymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	if err := r.v.store.injected(OpCreatePayment); err != nil {
		return err
	}
	st, done := r.v.enter()
	defer done()
	for _, existing := range st.payments {
		if existing.RideID == p.RideID {
			return repository.ErrDuplicate
		}
	}
	p.ID = st.next("payments")
	p.AuthorizedAt = r.v.now()
	st.payments[p.ID] = *p
	return nil
}

func (r *paymentRepo) GetByRideID(ctx context.Context, rideID int64) (*domain.Payment, error) {
	st, done := r.v.enter()
	defer done()
	for _, p := range st.payments {
		if p.RideID == rideID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *paymentRepo) MarkCaptured(ctx context.Context, id int64, at time.Time) error {
	st, done := r.v.enter()
	defer done()
	p, ok := st.payments[id]
	if !ok || p.Status != domain.PaymentStatusAuthorized {
		return repository.ErrNotFound
	}
	p.Status = domain.PaymentStatusCaptured
	p.CapturedAt = &at
	st.payments[id] = p
	return nil
}

func (r *paymentRepo) MarkRefunded(ctx context.Context, id int64, at time.Time) error {
	st, done := r.v.enter()
	defer done()
	p, ok := st.payments[id]
	if !ok || (p.Status != domain.PaymentStatusAuthorized && p.Status != domain.PaymentStatusCaptured) {
		return repository.ErrNotFound
	}
	p.Status = domain.PaymentStatusRefunded
	p.RefundedAt = &at
	st.payments[id] = p
	return nil
}

type accountRepo struct{ v *view }

func (r *accountRepo) Create(ctx context.Context, a *domain.BankAccount) error {
	st, done := r.v.enter()
	defer done()
	if _, ok := st.people[a.PersonID]; !ok {
		return repository.ErrNotFound
	}
	a.ID = st.next("accounts")
	st.accounts[a.ID] = *a
	return nil
}

func (r *accountRepo) GetActiveForPerson(ctx context.Context, personID int64) (*domain.BankAccount, error) {
	st, done := r.v.enter()
	defer done()
	var found *domain.BankAccount
	for _, a := range st.accounts {
		if a.PersonID == personID && a.Status == domain.AccountStatusActive && a.Kind == domain.AccountKindPersonal &&
			(found == nil || a.ID < found.ID) {
			a := a
			found = &a
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *accountRepo) GetActiveForPersonForUpdate(ctx context.Context, personID int64) (*domain.BankAccount, error) {
	return r.GetActiveForPerson(ctx, personID)
}

func (r *accountRepo) GetOperating(ctx context.Context) (*domain.BankAccount, error) {
	st, done := r.v.enter()
	defer done()
	for _, a := range st.accounts {
		if a.Kind == domain.AccountKindOperating && a.Status == domain.AccountStatusActive {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) GetByID(ctx context.Context, id int64) (*domain.BankAccount, error) {
	st, done := r.v.enter()
	defer done()
	a, ok := st.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *accountRepo) AdjustBalance(ctx context.Context, id int64, deltaCents int64) error {
	st, done := r.v.enter()
	defer done()
	a, ok := st.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.BalanceCents += deltaCents
	st.accounts[id] = a
	return nil
}

func (r *accountRepo) ListByPerson(ctx context.Context, personID int64) ([]*domain.BankAccount, error) {
	st, done := r.v.enter()
	defer done()
	var out []*domain.BankAccount
	for _, a := range st.accounts {
		if a.PersonID == personID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type ledgerRepo struct{ v *view }

func (r *ledgerRepo) CreateEntries(ctx context.Context, entries []*domain.LedgerEntry) error {
	st, done := r.v.enter()
	defer done()
	for _, e := range entries {
		e.ID = st.next("ledger")
		e.CreatedAt = r.v.now()
		st.ledger = append(st.ledger, *e)
	}
	return nil
}

func (r *ledgerRepo) ListByRide(ctx context.Context, rideID int64) ([]*domain.LedgerEntry, error) {
	st, done := r.v.enter()
	defer done()
	var out []*domain.LedgerEntry
	for _, e := range st.ledger {
		if e.RideID == rideID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

type rateRepo struct{ v *view }

func (r *rateRepo) Get(ctx context.Context) (*domain.Rates, error) {
	st, done := r.v.enter()
	defer done()
	if st.rates == nil {
		return nil, repository.ErrNotFound
	}
	rates := *st.rates
	return &rates, nil
}

func (r *rateRepo) Update(ctx context.Context, rates *domain.Rates) error {
	st, done := r.v.enter()
	defer done()
	rates.UpdatedAt = r.v.now()
	stored := *rates
	st.rates = &stored
	return nil
}

func containsFold(s, substr string) bool {
	return substr == "" || strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

type sessionRepo struct{ v *view }

// SetLockTimeout only records the timeout: no lock is ever waited on here.
func (r *sessionRepo) SetLockTimeout(ctx context.Context, timeout time.Duration) error {
	atomic.StoreInt64(&r.v.store.LockTimeout, int64(timeout))
	return nil
}
