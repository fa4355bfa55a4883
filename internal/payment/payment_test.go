package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateIntent(ctx context.Context, amountMinor int64, currency, userID string) (Intent, error) {
	args := m.Called(ctx, amountMinor, currency, userID)
	return args.Get(0).(Intent), args.Error(1)
}

func (m *mockGateway) GetIntent(ctx context.Context, id string) (Intent, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Intent), args.Error(1)
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2550), ToMinorUnits(25.50))
	assert.Equal(t, int64(1999), ToMinorUnits(19.99))
	assert.Equal(t, int64(30), ToMinorUnits(0.3))
}

func TestCreatePaymentIntent_SendsMinorUnits(t *testing.T) {
	gw := &mockGateway{}
	gw.On("CreateIntent", mock.Anything, int64(2550), "gbp", "u1").
		Return(Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil).Once()

	b := NewBridge(gw, Options{}, nil)
	in, err := b.CreatePaymentIntent(context.Background(), 25.50, "u1")
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret", in.ClientSecret)
	gw.AssertExpectations(t)
}

func TestCreatePaymentIntent_InvalidAmount(t *testing.T) {
	gw := &mockGateway{}
	b := NewBridge(gw, Options{}, nil)
	for _, a := range []float64{0, -1, 0.001} {
		_, err := b.CreatePaymentIntent(context.Background(), a, "u1")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	gw.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePaymentIntent_GatewayError(t *testing.T) {
	gw := &mockGateway{}
	gw.On("CreateIntent", mock.Anything, int64(100), "gbp", "u1").
		Return(Intent{}, &GatewayError{Message: "Your card was declined."})

	_, err := NewBridge(gw, Options{}, nil).CreatePaymentIntent(context.Background(), 1, "u1")
	var ge *GatewayError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "Your card was declined.", ge.Message)
}

func TestVerifyPayment(t *testing.T) {
	gw := &mockGateway{}
	gw.On("GetIntent", mock.Anything, "pi_ok").Return(Intent{ID: "pi_ok", Status: "succeeded"}, nil)
	gw.On("GetIntent", mock.Anything, "pi_pending").Return(Intent{ID: "pi_pending", Status: "requires_payment_method"}, nil)

	off := NewBridge(gw, Options{}, nil)
	assert.NoError(t, off.VerifyPayment(context.Background(), "anything"))
	gw.AssertNotCalled(t, "GetIntent", mock.Anything, "anything")

	on := NewBridge(gw, Options{VerifyTransactions: true}, nil)
	assert.NoError(t, on.VerifyPayment(context.Background(), "pi_ok"))
	assert.ErrorIs(t, on.VerifyPayment(context.Background(), "pi_pending"), ErrPaymentNotConfirmed)
}

func sign(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, err := fmt.Fprintf(mac, "%d.%s", ts, payload)
	require.NoError(t, err)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestHandleWebhook(t *testing.T) {
	const secret = "whsec_test"
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"api_version": %q,
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_9", "object": "payment_intent", "amount": 2550, "currency": "gbp"}}
	}`, stripe.APIVersion))

	b := NewBridge(&mockGateway{}, Options{WebhookSecret: secret}, nil)

	ev, err := b.HandleWebhook(payload, sign(t, payload, secret))
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.succeeded", ev.Type)
	assert.Equal(t, "pi_9", ev.IntentID)
	assert.Equal(t, int64(2550), ev.Amount)
	assert.Equal(t, "gbp", ev.Currency)

	_, err = b.HandleWebhook(payload, sign(t, payload, "whsec_other"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = b.HandleWebhook(payload, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestHandleWebhook_OtherAPIVersion(t *testing.T) {
	const secret = "whsec_test"
	payload := []byte(`{
		"id": "evt_2",
		"object": "event",
		"api_version": "2020-08-27",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_old", "object": "payment_intent", "amount": 1000, "currency": "gbp"}}
	}`)

	b := NewBridge(&mockGateway{}, Options{WebhookSecret: secret}, nil)
	ev, err := b.HandleWebhook(payload, sign(t, payload, secret))
	require.NoError(t, err)
	assert.Equal(t, "pi_old", ev.IntentID)
	assert.Equal(t, int64(1000), ev.Amount)
}

func TestHandleWebhook_MalformedBody(t *testing.T) {
	const secret = "whsec_test"
	payload := []byte(`{not json`)

	b := NewBridge(&mockGateway{}, Options{WebhookSecret: secret}, nil)
	_, err := b.HandleWebhook(payload, sign(t, payload, secret))
	assert.ErrorIs(t, err, ErrInvalidEvent)
	assert.NotErrorIs(t, err, ErrInvalidSignature)
}
