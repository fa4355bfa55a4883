package handler

import (
    "errors"
    "io"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-ticket-booking/internal/middleware"
    "github.com/iliyamo/cinema-ticket-booking/internal/model"
    "github.com/iliyamo/cinema-ticket-booking/internal/payment"
    "github.com/iliyamo/cinema-ticket-booking/internal/repository"
    "github.com/iliyamo/cinema-ticket-booking/internal/service"
)

// maxWebhookBody caps the webhook payload read into memory.
const maxWebhookBody = 64 << 10

// BookingHandler serves payments, bookings and the payment webhook.
type BookingHandler struct {
    Bookings *service.BookingService
    Payments *payment.Bridge
    Log      *zap.Logger
}

func NewBookingHandler(bookings *service.BookingService, payments *payment.Bridge, log *zap.Logger) *BookingHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &BookingHandler{Bookings: bookings, Payments: payments, Log: log}
}

type paymentReq struct {
    Amount float64 `json:"amount"`
}

type paymentView struct {
    ClientSecret    string `json:"clientSecret"`
    PaymentIntentID string `json:"paymentIntentId"`
}

// MakePayment handles POST /api/bookings/make-payment.  The amount is in
// pounds and is sent to the gateway in pence.
func (h *BookingHandler) MakePayment(c echo.Context) error {
    var req paymentReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid amount")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    intent, err := h.Payments.CreatePaymentIntent(ctx, req.Amount, middleware.UserID(c))
    if err != nil {
        var gwErr *payment.GatewayError
        switch {
        case errors.Is(err, payment.ErrInvalidAmount):
            return fail(c, http.StatusBadRequest, "Invalid amount")
        case errors.As(err, &gwErr):
            return fail(c, http.StatusBadRequest, gwErr.Message)
        }
        return serverError(c, err)
    }
    // clientSecret is repeated at the top level for clients that read it there.
    return c.JSON(http.StatusOK, paymentEnvelope{
        envelope: envelope{Success: true, Message: "Payment intent created", Data: paymentView{
            ClientSecret:    intent.ClientSecret,
            PaymentIntentID: intent.ID,
        }},
        ClientSecret: intent.ClientSecret,
    })
}

type paymentEnvelope struct {
    envelope
    ClientSecret string `json:"clientSecret"`
}

type bookReq struct {
    Show          string   `json:"show"`
    Seats         []int    `json:"seats"`
    TransactionID string   `json:"transactionId"`
    Amount        *float64 `json:"amount"`
    TotalAmount   *float64 `json:"totalAmount"` // older clients send this name
}

// BookShow handles POST /api/bookings/book-show.  The amount is computed
// from the show's price; a client-supplied amount must match it.
func (h *BookingHandler) BookShow(c echo.Context) error {
    var req bookReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Missing required booking information")
    }
    br := service.BookRequest{
        ShowID:        req.Show,
        UserID:        middleware.UserID(c),
        Seats:         req.Seats,
        TransactionID: req.TransactionID,
    }
    amount := req.Amount
    if amount == nil {
        amount = req.TotalAmount
    }
    if amount != nil {
        br.AmountCents = payment.ToMinorUnits(*amount)
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    res, err := h.Bookings.BookShow(ctx, br)
    if err != nil {
        return h.bookingError(c, err)
    }
    v := newBookingView(res.Booking)
    v.EmailSent = &res.EmailSent
    return respond(c, http.StatusOK, "Show booked successfully", v)
}

func (h *BookingHandler) bookingError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, service.ErrMissingBookingInfo), errors.Is(err, service.ErrNoSeats):
        return fail(c, http.StatusBadRequest, "Missing required booking information")
    case errors.Is(err, service.ErrInvalidSeat):
        return fail(c, http.StatusBadRequest, err.Error())
    case errors.Is(err, service.ErrAmountMismatch):
        return fail(c, http.StatusBadRequest, "Amount does not match the selected seats")
    case errors.Is(err, service.ErrSeatsUnavailable):
        return fail(c, http.StatusConflict, err.Error())
    case errors.Is(err, repository.ErrVersionConflict):
        return fail(c, http.StatusConflict, "Seats were just booked by someone else, please try again")
    case errors.Is(err, service.ErrPaymentNotConfirmed):
        return fail(c, http.StatusPaymentRequired, "Payment has not been confirmed")
    case errors.Is(err, repository.ErrShowNotFound):
        return fail(c, http.StatusNotFound, "Show not found")
    }
    h.Log.Error("book show failed", zap.Error(err))
    return fail(c, http.StatusInternalServerError, "Failed to book show")
}

// ListBookings handles GET /api/bookings/get-all-bookings for the caller.
func (h *BookingHandler) ListBookings(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    list, err := h.Bookings.ListBookings(ctx, middleware.UserID(c))
    if err != nil {
        return serverError(c, err)
    }
    if list == nil {
        list = []model.BookingDetail{}
    }
    return respond(c, http.StatusOK, "Bookings fetched successfully", bookingDetailViews(list))
}

// Webhook handles POST /api/bookings/webhook.  The raw body is needed for
// signature verification, so it is read before any binding.
func (h *BookingHandler) Webhook(c echo.Context) error {
    payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Webhook Error: " + err.Error()})
    }
    if _, err := h.Payments.HandleWebhook(payload, c.Request().Header.Get("Stripe-Signature")); err != nil {
        h.Log.Warn("webhook rejected", zap.Error(err))
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Webhook Error: " + err.Error()})
    }
    return c.JSON(http.StatusOK, echo.Map{"received": true})
}
