package model

import "time"

// Show represents a single screening of a movie at a theatre with its own
// price and seat map.  Seats are numbered 1..TotalSeats; BookedSeats holds
// the numbers already claimed.  Version increments on every write to the
// seat map and guards reservations against lost updates.
type Show struct {
    ID               string    `json:"_id"`
    Name             string    `json:"name"`
    MovieID          string    `json:"movie"`
    TheatreID        string    `json:"theatre"`
    Date             string    `json:"date"` // YYYY-MM-DD
    Time             string    `json:"time"` // HH:MM, 24h
    TicketPriceCents int64     `json:"-"`
    TotalSeats       int       `json:"totalSeats"`
    BookedSeats      []int     `json:"bookedSeats"`
    Version          int64     `json:"-"`
    CreatedAt        time.Time `json:"createdAt"`
    UpdatedAt        time.Time `json:"updatedAt"`
}

// AvailableSeats returns TotalSeats minus the booked count, clamped to
// [0, TotalSeats].
func (s *Show) AvailableSeats() int {
    n := s.TotalSeats - len(s.BookedSeats)
    if n < 0 {
        return 0
    }
    if n > s.TotalSeats {
        return s.TotalSeats
    }
    return n
}

// TicketPrice returns the seat price in pounds.
func (s *Show) TicketPrice() float64 {
    return float64(s.TicketPriceCents) / 100.0
}

// ShowDetail is a show with its movie and theatre resolved, used by public
// browse and booking listings.
type ShowDetail struct {
    Show
    Movie   *Movie   `json:"movie"`
    Theatre *Theatre `json:"theatre"`
}
