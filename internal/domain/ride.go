package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested RideStatus = "requested"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCanceled  RideStatus = "canceled"
)

// Ride is a booked trip between two locations.
type Ride struct {
	ID             int64
	RiderID        int64
	DriverID       int64
	CategoryID     int64
	PickupID       int64
	DropoffID      int64
	Status         RideStatus
	IdempotencyKey string
	PaidOutAt      *time.Time
	CreatedAt      time.Time
}

// RideTime records when a ride was requested and when pickup was scheduled.
type RideTime struct {
	RideID    int64
	RequestTS time.Time
	PickupTS  *time.Time
}

// Price is the priced fare of a ride. Written once, together with the
// rates that produced it.
type Price struct {
	RideID            int64
	BaseCents         int64
	TaxRatePct        Rate
	TaxCents          int64
	TotalCents        int64
	CommissionRatePct Rate
	CommissionCents   int64
}

// RideSummary is the read model returned after a booking commits.
type RideSummary struct {
	RideID       int64      `json:"rideId"`
	Rider        string     `json:"rider"`
	Driver       string     `json:"driver"`
	DriverID     int64      `json:"driverId"`
	Pickup       string     `json:"pickup"`
	Dropoff      string     `json:"dropoff"`
	CategoryName string     `json:"categoryName"`
	Status       RideStatus `json:"status"`
	BaseCents    int64      `json:"baseCents"`
	TaxCents     int64      `json:"taxCents"`
	TotalCents   int64      `json:"totalCents"`
	RequestTS    time.Time  `json:"requestTs"`
	PickupTS     *time.Time `json:"pickupTs,omitempty"`
	Payment      *Payment   `json:"payment,omitempty"`
}

// RideFilter narrows the recent rides listing. Fields match case-insensitively by substring.
type RideFilter struct {
	Rider    string
	Driver   string
	Category string
	Limit    int
}
