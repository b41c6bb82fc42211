package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"courtside/pkg/kafka"
	"courtside/pkg/logger"
	"courtside/pkg/model"

	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	published chan kafka.Message
	err       error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: make(chan kafka.Message, 1)}
}

func (p *fakePublisher) Publish(_ context.Context, msg kafka.Message) error {
	p.published <- msg
	return p.err
}

func (p *fakePublisher) wait(t *testing.T) kafka.Message {
	t.Helper()
	select {
	case msg := <-p.published:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message published")
		return kafka.Message{}
	}
}

func TestBookingEventPublishesMessage(t *testing.T) {
	pub := newFakePublisher()
	d := &kafkaDispatcher{producer: pub, log: logger.NewNop()}

	booking := &model.Booking{
		ID:         "65f1a2b3c4d5e6f7a8b9c0d2",
		CourtID:    "65f1a2b3c4d5e6f7a8b9c0d1",
		CustomerID: "cust-1",
		Status:     model.BookingConfirmed,
		TotalCents: 15000,
	}
	d.BookingEvent(EventBookingConfirmed, booking)

	msg := pub.wait(t)
	require.Equal(t, booking.ID, msg.Key)
	require.Equal(t, EventBookingConfirmed, msg.Headers[kafka.HeaderEventType])
	require.Equal(t, sourceService, msg.Headers[kafka.HeaderSource])
	require.NotEmpty(t, msg.Headers[kafka.HeaderEventID])

	var decoded model.Booking
	require.NoError(t, msg.DecodeValue(&decoded))
	require.Equal(t, booking.CustomerID, decoded.CustomerID)
	require.Equal(t, booking.TotalCents, decoded.TotalCents)
}

func TestBookingEventSwallowsPublishError(t *testing.T) {
	pub := newFakePublisher()
	pub.err = errors.New("broker down")
	d := &kafkaDispatcher{producer: pub, log: logger.NewNop()}

	d.BookingEvent(EventBookingCancelled, &model.Booking{ID: "b-1"})
	pub.wait(t)
}

func TestNopDispatcher(t *testing.T) {
	d := NewNopDispatcher()
	d.BookingEvent(EventBookingRequested, &model.Booking{ID: "b-1"})
}
