// Package queue carries booking confirmations over RabbitMQ so ticket emails
// can be sent outside the booking request.
package queue

import (
    "encoding/json"
    "fmt"

    "github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// BookingQueueName is the durable queue confirmations are published to.
const BookingQueueName = "booking.confirmed"

// eventVersion is bumped when the payload changes incompatibly.
const eventVersion = 1

// BookingConfirmedEvent is published once a booking has committed.  It
// contains everything the ticket email needs so the consumer never queries
// the primary database.
type BookingConfirmedEvent struct {
    Type    string                    `json:"type"`
    Version int                       `json:"version"`
    Booking model.BookingConfirmation `json:"booking"`
}

// NewBookingConfirmedEvent wraps a confirmation.
func NewBookingConfirmedEvent(c model.BookingConfirmation) BookingConfirmedEvent {
    return BookingConfirmedEvent{Type: BookingQueueName, Version: eventVersion, Booking: c}
}

// decodeEvent parses and sanity checks a message body.
func decodeEvent(body []byte) (BookingConfirmedEvent, error) {
    var ev BookingConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return ev, fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Version != eventVersion {
        return ev, fmt.Errorf("unsupported event version %d", ev.Version)
    }
    if ev.Booking.BookingID == "" || ev.Booking.UserEmail == "" {
        return ev, fmt.Errorf("event missing booking id or recipient")
    }
    return ev, nil
}
