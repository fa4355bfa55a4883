// Package payment bridges bookings to the card payment provider.  The
// browser confirms the card with the client secret returned here; the
// server never sees card data.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

var (
	// ErrInvalidAmount is returned for non-positive or non-finite amounts.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrPaymentNotConfirmed is returned when transaction verification is
	// enabled and the payment intent has not succeeded.
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	// ErrInvalidSignature is returned for webhook payloads that fail
	// signature verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrInvalidEvent is returned for signed payloads that cannot be decoded.
	ErrInvalidEvent = errors.New("invalid webhook event")
)

// GatewayError carries the provider's human readable message.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string { return e.Message }

// Intent is the subset of a payment intent the API hands back.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// Gateway is the provider-facing side of the bridge.
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency, userID string) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
}

// Bridge validates amounts, talks to a Gateway and verifies webhooks.
type Bridge struct {
	gw            Gateway
	currency      string
	webhookSecret string
	verify        bool
	log           *zap.Logger
}

// Options configures a Bridge.
type Options struct {
	Currency           string
	WebhookSecret      string
	VerifyTransactions bool
}

// NewBridge builds a Bridge.  Currency defaults to gbp.
func NewBridge(gw Gateway, opts Options, log *zap.Logger) *Bridge {
	if opts.Currency == "" {
		opts.Currency = "gbp"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{gw: gw, currency: opts.Currency, webhookSecret: opts.WebhookSecret, verify: opts.VerifyTransactions, log: log}
}

// ToMinorUnits converts an amount in pounds to pence, rounding half away
// from zero so 25.505 cannot silently become 2550.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreatePaymentIntent opens a card payment intent for amount (pounds) and
// returns its client secret.
func (b *Bridge) CreatePaymentIntent(ctx context.Context, amount float64, userID string) (Intent, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Intent{}, ErrInvalidAmount
	}
	minor := ToMinorUnits(amount)
	if minor <= 0 {
		return Intent{}, ErrInvalidAmount
	}
	in, err := b.gw.CreateIntent(ctx, minor, b.currency, userID)
	if err != nil {
		b.log.Warn("payment intent failed", zap.String("user_id", userID), zap.Int64("amount_minor", minor), zap.Error(err))
		return Intent{}, err
	}
	b.log.Info("payment intent created", zap.String("intent_id", in.ID), zap.String("user_id", userID), zap.Int64("amount_minor", minor))
	return in, nil
}

// VerifyPayment checks that the intent behind transactionID succeeded.  It
// is a no-op unless transaction verification is enabled.
func (b *Bridge) VerifyPayment(ctx context.Context, transactionID string) error {
	if !b.verify {
		return nil
	}
	in, err := b.gw.GetIntent(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPaymentNotConfirmed, err)
	}
	if in.Status != string(stripe.PaymentIntentStatusSucceeded) {
		return fmt.Errorf("%w: status %s", ErrPaymentNotConfirmed, in.Status)
	}
	return nil
}

// WebhookEvent is a verified provider event.
type WebhookEvent struct {
	ID       string
	Type     string
	IntentID string
	Amount   int64
	Currency string
	Customer string
}

// HandleWebhook verifies the signature header and logs successful
// payments.  Other event types are accepted and ignored.
func (b *Bridge) HandleWebhook(payload []byte, signature string) (WebhookEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, b.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if signatureFailure(err) {
			return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	out := WebhookEvent{ID: ev.ID, Type: string(ev.Type)}
	if ev.Type != stripe.EventTypePaymentIntentSucceeded {
		b.log.Debug("webhook ignored", zap.String("event_id", ev.ID), zap.String("type", out.Type))
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return out, fmt.Errorf("decode payment intent: %w", err)
	}
	out.IntentID = pi.ID
	out.Amount = pi.Amount
	out.Currency = string(pi.Currency)
	if pi.Customer != nil {
		out.Customer = pi.Customer.ID
	}
	b.log.Info("payment succeeded",
		zap.String("intent_id", out.IntentID),
		zap.Int64("amount_minor", out.Amount),
		zap.String("currency", out.Currency),
		zap.String("customer", out.Customer))
	return out, nil
}

func signatureFailure(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
