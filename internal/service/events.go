package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ridebook/internal/domain"
	"ridebook/internal/logger"
)

// EventPublisher delivers domain events. Publishing happens after commit and
// is best effort: a failure is logged and never undoes the committed change.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// LogPublisher writes events to the application log. It is the publisher
// used when no message broker is configured.
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish implements EventPublisher.
func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.log.WithContext(ctx).WithFields(map[string]any{
		"event_id":   event.ID,
		"event_type": event.Type,
		"ride_id":    event.RideID,
		"driver_id":  event.DriverID,
	}).Info("event published")
	return nil
}

func newEvent(t domain.EventType, rideID, driverID int64, data map[string]any) domain.Event {
	return domain.Event{
		ID:         uuid.New().String(),
		Type:       t,
		RideID:     rideID,
		DriverID:   driverID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

func publish(ctx context.Context, pub EventPublisher, log *logger.Logger, event domain.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		log.WithContext(ctx).WithError(err).WithField("event_type", event.Type).Error("failed to publish event")
	}
}
