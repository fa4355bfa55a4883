package handler

import (
    "time"

    "github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// showView is a show as the SPA consumes it.  Movie and Theatre hold either
// an id or a populated object.
type showView struct {
    ID             string    `json:"_id"`
    Name           string    `json:"name"`
    Movie          any       `json:"movie"`
    Theatre        any       `json:"theatre"`
    Date           string    `json:"date"`
    Time           string    `json:"time"`
    TicketPrice    float64   `json:"ticketPrice"`
    TotalSeats     int       `json:"totalSeats"`
    BookedSeats    []int     `json:"bookedSeats"`
    AvailableSeats int       `json:"availableSeats"`
    CreatedAt      time.Time `json:"createdAt"`
    UpdatedAt      time.Time `json:"updatedAt"`
}

func newShowView(s *model.Show) showView {
    booked := s.BookedSeats
    if booked == nil {
        booked = []int{}
    }
    return showView{
        ID:             s.ID,
        Name:           s.Name,
        Movie:          s.MovieID,
        Theatre:        s.TheatreID,
        Date:           s.Date,
        Time:           s.Time,
        TicketPrice:    s.TicketPrice(),
        TotalSeats:     s.TotalSeats,
        BookedSeats:    booked,
        AvailableSeats: s.AvailableSeats(),
        CreatedAt:      s.CreatedAt,
        UpdatedAt:      s.UpdatedAt,
    }
}

func newShowDetailView(d *model.ShowDetail) showView {
    v := newShowView(&d.Show)
    if d.Movie != nil {
        v.Movie = d.Movie
    }
    if d.Theatre != nil {
        v.Theatre = d.Theatre
    }
    return v
}

func showDetailViews(list []model.ShowDetail) []showView {
    out := make([]showView, len(list))
    for i := range list {
        out[i] = newShowDetailView(&list[i])
    }
    return out
}

type bookingView struct {
    ID            string    `json:"_id"`
    Show          any       `json:"show"`
    User          string    `json:"user"`
    Seats         []int     `json:"seats"`
    TransactionID string    `json:"transactionId"`
    Amount        float64   `json:"amount"`
    TotalAmount   float64   `json:"totalAmount"`
    CreatedAt     time.Time `json:"createdAt"`
    EmailSent     *bool     `json:"emailSent,omitempty"`
}

func newBookingView(b *model.Booking) bookingView {
    return bookingView{
        ID:            b.ID,
        Show:          b.ShowID,
        User:          b.UserID,
        Seats:         b.Seats,
        TransactionID: b.TransactionID,
        Amount:        b.Amount(),
        TotalAmount:   b.Amount(),
        CreatedAt:     b.CreatedAt,
    }
}

func bookingDetailViews(list []model.BookingDetail) []bookingView {
    out := make([]bookingView, len(list))
    for i := range list {
        d := &list[i]
        v := newBookingView(&d.Booking)
        if d.Show != nil {
            sd := model.ShowDetail{Show: *d.Show, Movie: d.Movie, Theatre: d.Theatre}
            v.Show = newShowDetailView(&sd)
        }
        out[i] = v
    }
    return out
}

// theatreShowsView is one theatre with its shows of a movie on a date.
type theatreShowsView struct {
    *model.Theatre
    Shows []showView `json:"shows"`
}
