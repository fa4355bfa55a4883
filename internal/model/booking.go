package model

import "time"

// Booking records seats bought for a show under one payment.  Bookings are
// immutable once created.
type Booking struct {
    ID            string    `json:"_id"`
    ShowID        string    `json:"show"`
    UserID        string    `json:"user"`
    Seats         []int     `json:"seats"`
    TransactionID string    `json:"transactionId"`
    AmountCents   int64     `json:"-"`
    CreatedAt     time.Time `json:"createdAt"`
}

// Amount returns the total paid in pounds.
func (b *Booking) Amount() float64 {
    return float64(b.AmountCents) / 100.0
}

// BookingDetail joins a booking with its show, movie and theatre.
type BookingDetail struct {
    Booking
    Show    *Show    `json:"show"`
    Movie   *Movie   `json:"movie"`
    Theatre *Theatre `json:"theatre"`
}

// BookingConfirmation carries everything needed to email a ticket without
// further lookups.  It is the payload of the booking.confirmed queue and the
// argument of direct ticket delivery.
type BookingConfirmation struct {
    BookingID     string `json:"booking_id"`
    TransactionID string `json:"transaction_id"`
    UserID        string `json:"user_id"`
    UserName      string `json:"user_name"`
    UserEmail     string `json:"user_email"`
    ShowID        string `json:"show_id"`
    MovieTitle    string `json:"movie_title"`
    PosterURL     string `json:"poster_url"`
    TheatreName   string `json:"theatre_name"`
    Date          string `json:"date"` // YYYY-MM-DD
    Time          string `json:"time"` // HH:MM
    Seats         []int  `json:"seats"`
    AmountCents   int64  `json:"amount_cents"`
    ConfirmedAt   string `json:"confirmed_at"`
}
