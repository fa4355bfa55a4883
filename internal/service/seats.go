package service

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

var (
	// ErrNoSeats is returned when a selection is empty.
	ErrNoSeats = errors.New("no seats selected")
	// ErrInvalidSeat covers duplicates and numbers outside 1..totalSeats.
	ErrInvalidSeat = errors.New("invalid seat")
	// ErrSeatsUnavailable is returned when a selected seat is already booked.
	ErrSeatsUnavailable = errors.New("seats unavailable")
)

// SeatError names the seats that failed a check.
type SeatError struct {
	Kind  error
	Seats []int
}

func (e *SeatError) Error() string {
	nums := make([]string, len(e.Seats))
	for i, s := range e.Seats {
		nums[i] = strconv.Itoa(s)
	}
	switch e.Kind {
	case ErrSeatsUnavailable:
		return fmt.Sprintf("Seats already booked: %s", strings.Join(nums, ", "))
	default:
		return fmt.Sprintf("Invalid seat numbers: %s", strings.Join(nums, ", "))
	}
}

func (e *SeatError) Unwrap() error { return e.Kind }

// CheckSeats validates a selection against the show's current seat map.
func CheckSeats(show *model.Show, seats []int) error {
	if len(seats) == 0 {
		return ErrNoSeats
	}
	seen := make(map[int]bool, len(seats))
	var invalid []int
	for _, n := range seats {
		if n < 1 || n > show.TotalSeats || seen[n] {
			invalid = append(invalid, n)
		}
		seen[n] = true
	}
	if len(invalid) > 0 {
		return &SeatError{Kind: ErrInvalidSeat, Seats: invalid}
	}
	booked := make(map[int]bool, len(show.BookedSeats))
	for _, n := range show.BookedSeats {
		booked[n] = true
	}
	var taken []int
	for _, n := range seats {
		if booked[n] {
			taken = append(taken, n)
		}
	}
	if len(taken) > 0 {
		sort.Ints(taken)
		return &SeatError{Kind: ErrSeatsUnavailable, Seats: taken}
	}
	return nil
}

// SeatAvailability summarises a show's seat map.
type SeatAvailability struct {
	ShowID      string `json:"showId"`
	TotalSeats  int    `json:"totalSeats"`
	Booked      int    `json:"booked"`
	Available   int    `json:"available"`
	BookedSeats []int  `json:"bookedSeats"`
}

// Availability reports total, booked and available counts with the booked
// seats sorted.
func Availability(show *model.Show) SeatAvailability {
	booked := append([]int(nil), show.BookedSeats...)
	sort.Ints(booked)
	if booked == nil {
		booked = []int{}
	}
	return SeatAvailability{
		ShowID:      show.ID,
		TotalSeats:  show.TotalSeats,
		Booked:      len(booked),
		Available:   show.AvailableSeats(),
		BookedSeats: booked,
	}
}

// maxSeat returns the highest booked seat number, 0 when none.
func maxSeat(seats []int) int {
	m := 0
	for _, s := range seats {
		if s > m {
			m = s
		}
	}
	return m
}
