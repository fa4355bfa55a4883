package queue

import (
    "context"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// TicketSender delivers the ticket for a confirmed booking.
type TicketSender interface {
    NotifyBooking(ctx context.Context, c model.BookingConfirmation) error
}

// Consumer reads booking.confirmed and emails each ticket.
type Consumer struct {
    url    string
    sender TicketSender
    log    *zap.Logger
}

// NewConsumer builds a Consumer.
func NewConsumer(url string, sender TicketSender, log *zap.Logger) *Consumer {
    if log == nil {
        log = zap.NewNop()
    }
    return &Consumer{url: url, sender: sender, log: log}
}

// Run connects, declares the durable queue and consumes until ctx is
// cancelled.  Broker failures trigger a reconnect with exponential backoff
// from 1s up to 30s.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("booking consumer dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
                if backoff > 30*time.Second {
                    backoff = 30 * time.Second
                }
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("booking consumer loop ended; reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(10, 0, false); err != nil {
        c.log.Warn("booking consumer set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(BookingQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(BookingQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handleMessage(ctx, d.Body); err != nil {
                c.log.Error("booking consumer handle message failed", zap.Error(err))
                // reject without requeue to avoid tight redelivery loops
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
    ev, err := decodeEvent(body)
    if err != nil {
        return err
    }
    sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
    defer cancel()
    if err := c.sender.NotifyBooking(sendCtx, ev.Booking); err != nil {
        return fmt.Errorf("send ticket for booking %s: %w", ev.Booking.BookingID, err)
    }
    c.log.Info("ticket sent from queue", zap.String("booking_id", ev.Booking.BookingID))
    return nil
}

// sleep waits for d or ctx, reporting false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
