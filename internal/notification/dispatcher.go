package notification

import (
	"context"
	"time"

	"courtside/pkg/kafka"
	"courtside/pkg/logger"
	"courtside/pkg/model"
)

// Event types published on the booking lifecycle topic.
const (
	EventBookingRequested = "booking.requested"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"

	publishTimeout = 5 * time.Second
	sourceService  = "courtside-booking"
)

// Dispatcher publishes booking lifecycle events. Delivery is
// fire-and-forget: a broker outage never blocks or fails the booking
// flow that triggered the event.
type Dispatcher interface {
	BookingEvent(eventType string, booking *model.Booking)
}

type publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaDispatcher struct {
	producer publisher
	log      *logger.Logger
}

func NewKafkaDispatcher(producer *kafka.Producer, log *logger.Logger) Dispatcher {
	return &kafkaDispatcher{producer: producer, log: log}
}

// BookingEvent publishes asynchronously with its own timeout, detached
// from the request context so an already-answered request cannot cancel
// the publish mid-flight. Keyed by booking ID for per-booking ordering.
func (d *kafkaDispatcher) BookingEvent(eventType string, booking *model.Booking) {
	msg := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(booking).
		WithEventType(eventType).
		WithSource(sourceService).
		Build()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := d.producer.Publish(ctx, msg); err != nil {
			d.log.Error("Failed to publish booking event",
				"event_type", eventType,
				"booking_id", booking.ID,
				"error", err,
			)
			return
		}
		d.log.Debug("Booking event published",
			"event_type", eventType,
			"booking_id", booking.ID,
		)
	}()
}

type nopDispatcher struct{}

// NewNopDispatcher is used when no Kafka brokers are configured.
func NewNopDispatcher() Dispatcher {
	return nopDispatcher{}
}

func (nopDispatcher) BookingEvent(string, *model.Booking) {}
