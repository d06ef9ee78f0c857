package domain

import "time"

// EventType names a domain event published after a transaction commits.
type EventType string

const (
	EventRideBooked    EventType = "ride.booked"
	EventRideCompleted EventType = "ride.completed"
	EventRideCanceled  EventType = "ride.canceled"
	EventDriverPaid    EventType = "driver.paid"
)

// Event is a committed state change announced to other systems.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	RideID     int64          `json:"ride_id,omitempty"`
	DriverID   int64          `json:"driver_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
