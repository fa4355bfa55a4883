package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// Publisher sends booking confirmations to the booking.confirmed queue.  It
// dials a fresh connection for every publish.
type Publisher struct {
    url string
    log *zap.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *zap.Logger) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{url: url, log: log}
}

// NotifyBooking publishes c as a persistent message.  Any error is logged
// and returned so the caller can report that delivery was not queued.
func (p *Publisher) NotifyBooking(ctx context.Context, c model.BookingConfirmation) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.Warn("rabbitmq dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn("rabbitmq channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        BookingQueueName, // name
        true,             // durable
        false,            // autoDelete
        false,            // exclusive
        false,            // noWait
        nil,              // args
    ); err != nil {
        p.log.Warn("rabbitmq queue declare failed", zap.Error(err))
        return err
    }

    body, err := json.Marshal(NewBookingConfirmedEvent(c))
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        MessageId:    c.BookingID,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", BookingQueueName, false, false, pub); err != nil {
        p.log.Warn("rabbitmq publish failed", zap.String("booking_id", c.BookingID), zap.Error(err))
        return err
    }
    p.log.Info("booking confirmation queued", zap.String("booking_id", c.BookingID))
    return nil
}
