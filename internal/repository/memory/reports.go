package memory

import (
	"context"
	"sort"
	"time"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

func (st *state) summary(id int64) (*domain.RideSummary, error) {
	ride, ok := st.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	price, ok := st.prices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rt := st.rideTimes[id]
	driver := st.drivers[ride.DriverID]

	s := &domain.RideSummary{
		RideID:       ride.ID,
		Rider:        st.people[ride.RiderID].Name,
		Driver:       driver.Name,
		DriverID:     ride.DriverID,
		Pickup:       st.locations[ride.PickupID].Address,
		Dropoff:      st.locations[ride.DropoffID].Address,
		CategoryName: st.categories[ride.CategoryID].Name,
		Status:       ride.Status,
		BaseCents:    price.BaseCents,
		TaxCents:     price.TaxCents,
		TotalCents:   price.TotalCents,
		RequestTS:    rt.RequestTS,
		PickupTS:     rt.PickupTS,
	}
	if p := st.paymentForRide(id); p != nil {
		s.Payment = p
	}
	return s, nil
}

func (st *state) paymentForRide(rideID int64) *domain.Payment {
	for _, p := range st.payments {
		if p.RideID == rideID {
			return &p
		}
	}
	return nil
}

func (st *state) unpaid(ride domain.Ride) bool {
	if ride.PaidOutAt != nil || ride.Status == domain.RideStatusCanceled {
		return false
	}
	p := st.paymentForRide(ride.ID)
	return p == nil || p.Status == domain.PaymentStatusAuthorized || p.Status == domain.PaymentStatusCaptured
}

// reportable returns the rides inside r that reports count, with the
// timestamp each is reported under.
func (st *state) reportable(r domain.DateRange) map[int64]time.Time {
	out := make(map[int64]time.Time)
	for id, ride := range st.rides {
		if ride.Status == domain.RideStatusCanceled {
			continue
		}
		rt := st.rideTimes[id]
		ts := rt.RequestTS
		if ts.IsZero() && rt.PickupTS != nil {
			ts = *rt.PickupTS
		}
		if r.Start != nil && ts.Before(*r.Start) {
			continue
		}
		if r.End != nil && !ts.Before(r.End.AddDate(0, 0, 1)) {
			continue
		}
		out[id] = ts
	}
	return out
}

func dayOf(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type reportRepo struct{ v *view }

func (r *reportRepo) TotalsByDayAndCategory(ctx context.Context, dr domain.DateRange) ([]*domain.CategoryDayTotals, error) {
	st, done := r.v.enter()
	defer done()

	type key struct {
		day      time.Time
		category string
	}
	groups := make(map[key]*domain.CategoryDayTotals)
	for id, ts := range st.reportable(dr) {
		ride := st.rides[id]
		price := st.prices[id]
		k := key{day: dayOf(ts), category: st.categories[ride.CategoryID].Name}
		g, ok := groups[k]
		if !ok {
			g = &domain.CategoryDayTotals{Day: k.day, CategoryName: k.category}
			groups[k] = g
		}
		g.Rides++
		g.BaseCents += price.BaseCents
		g.TaxCents += price.TaxCents
		g.TotalCents += price.TotalCents
		g.SnapshotCommissionCents += price.CommissionCents
	}

	out := make([]*domain.CategoryDayTotals, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.After(out[j].Day)
		}
		return out[i].CategoryName < out[j].CategoryName
	})
	return out, nil
}

func (r *reportRepo) RidesPerDriverPerDay(ctx context.Context, dr domain.DateRange) ([]*domain.DriverDayRow, error) {
	st, done := r.v.enter()
	defer done()

	type key struct {
		day      time.Time
		driverID int64
	}
	groups := make(map[key]*domain.DriverDayRow)
	for id, ts := range st.reportable(dr) {
		ride := st.rides[id]
		k := key{day: dayOf(ts), driverID: ride.DriverID}
		g, ok := groups[k]
		if !ok {
			g = &domain.DriverDayRow{
				Day:        k.day.Format(time.DateOnly),
				DriverID:   ride.DriverID,
				DriverName: st.drivers[ride.DriverID].Name,
			}
			groups[k] = g
		}
		g.Rides++
		g.GrossCents += st.prices[id].TotalCents
	}

	out := make([]*domain.DriverDayRow, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day > out[j].Day
		}
		if out[i].Rides != out[j].Rides {
			return out[i].Rides > out[j].Rides
		}
		return out[i].DriverName < out[j].DriverName
	})
	return out, nil
}

func (r *reportRepo) UnpaidBaseByDriver(ctx context.Context, dr domain.DateRange) ([]*domain.DriverBaseTotals, error) {
	st, done := r.v.enter()
	defer done()

	groups := make(map[int64]*domain.DriverBaseTotals)
	for id := range st.reportable(dr) {
		ride := st.rides[id]
		if !st.unpaid(ride) {
			continue
		}
		g, ok := groups[ride.DriverID]
		if !ok {
			g = &domain.DriverBaseTotals{DriverID: ride.DriverID, DriverName: st.drivers[ride.DriverID].Name}
			groups[ride.DriverID] = g
		}
		g.Rides++
		g.BaseCents += st.prices[id].BaseCents
	}

	out := make([]*domain.DriverBaseTotals, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out, nil
}
