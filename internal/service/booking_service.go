// Package service holds the workflows that span several repositories:
// booking seats, and creating and editing shows.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/payment"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

// reserveAttempts bounds the read-check-write loop on version conflicts.
const reserveAttempts = 3

var (
	ErrMissingBookingInfo = errors.New("missing required booking information")
	ErrAmountMismatch     = errors.New("amount does not match seats and ticket price")
	// ErrPaymentNotConfirmed is re-exported for handlers.
	ErrPaymentNotConfirmed = payment.ErrPaymentNotConfirmed
)

// Notifier delivers a booking confirmation, directly by email or through
// the queue.
type Notifier interface {
	NotifyBooking(ctx context.Context, c model.BookingConfirmation) error
}

// PaymentVerifier confirms a transaction id before seats are claimed.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, transactionID string) error
}

// BookRequest is a booking as submitted by the client.  AmountCents is
// optional; when set it must equal the server-computed amount.
type BookRequest struct {
	ShowID        string
	UserID        string
	Seats         []int
	TransactionID string
	AmountCents   int64
}

// BookResult is a committed booking and whether the notification attempt
// succeeded.
type BookResult struct {
	Booking   *model.Booking
	Show      *model.Show
	EmailSent bool
}

// BookingService runs the booking workflow.
type BookingService struct {
	db       *sql.DB
	shows    *repository.ShowRepo
	bookings *repository.BookingRepo
	users    *repository.UserRepo
	movies   *repository.MovieRepo
	theatres *repository.TheatreRepo
	payments PaymentVerifier
	notifier Notifier
	log      *zap.Logger

	// beforeReserve runs inside the transaction just before the seat write.
	beforeReserve func(ctx context.Context, tx *sql.Tx, attempt int) error
}

// NewBookingService wires the workflow.  payments and notifier may be nil.
func NewBookingService(db *sql.DB, payments PaymentVerifier, notifier Notifier, log *zap.Logger) *BookingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingService{
		db:       db,
		shows:    repository.NewShowRepo(db),
		bookings: repository.NewBookingRepo(db),
		users:    repository.NewUserRepo(db),
		movies:   repository.NewMovieRepo(db),
		theatres: repository.NewTheatreRepo(db),
		payments: payments,
		notifier: notifier,
		log:      log,
	}
}

// BookShow claims the seats and records the booking in one transaction,
// retrying when another booking changed the show first.  After commit it
// makes exactly one notification attempt.
func (s *BookingService) BookShow(ctx context.Context, req BookRequest) (*BookResult, error) {
	if req.ShowID == "" || req.TransactionID == "" || len(req.Seats) == 0 {
		return nil, ErrMissingBookingInfo
	}
	if s.payments != nil {
		if err := s.payments.VerifyPayment(ctx, req.TransactionID); err != nil {
			return nil, err
		}
	}

	var (
		booking *model.Booking
		show    *model.Show
		err     error
	)
	for attempt := 1; attempt <= reserveAttempts; attempt++ {
		booking, show, err = s.reserve(ctx, req, attempt)
		if !errors.Is(err, repository.ErrVersionConflict) {
			break
		}
		s.log.Debug("seat reservation conflict, retrying", zap.String("show_id", req.ShowID), zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("show_id", booking.ShowID),
		zap.String("user_id", booking.UserID),
		zap.Ints("seats", booking.Seats),
		zap.Int64("amount_cents", booking.AmountCents))

	return &BookResult{Booking: booking, Show: show, EmailSent: s.notify(ctx, booking, show)}, nil
}

func (s *BookingService) reserve(ctx context.Context, req BookRequest, attempt int) (*model.Booking, *model.Show, error) {
	var (
		booking *model.Booking
		show    *model.Show
	)
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		show, err = s.shows.GetByIDTx(ctx, tx, req.ShowID)
		if err != nil {
			return err
		}
		if err := CheckSeats(show, req.Seats); err != nil {
			return err
		}
		amount := int64(len(req.Seats)) * show.TicketPriceCents
		if req.AmountCents != 0 && req.AmountCents != amount {
			return ErrAmountMismatch
		}
		if s.beforeReserve != nil {
			if err := s.beforeReserve(ctx, tx, attempt); err != nil {
				return err
			}
		}
		if err := s.shows.ReserveSeatsTx(ctx, tx, show, req.Seats); err != nil {
			return err
		}
		booking = &model.Booking{
			ShowID:        show.ID,
			UserID:        req.UserID,
			Seats:         append([]int(nil), req.Seats...),
			TransactionID: req.TransactionID,
			AmountCents:   amount,
		}
		return s.bookings.CreateTx(ctx, tx, booking)
	})
	if err != nil {
		return nil, nil, err
	}
	return booking, show, nil
}

// notify builds the confirmation and makes one attempt.  Failures are
// logged, never returned.
func (s *BookingService) notify(ctx context.Context, b *model.Booking, show *model.Show) bool {
	if s.notifier == nil {
		return false
	}
	c, err := s.confirmation(ctx, b, show)
	if err != nil {
		s.log.Warn("booking confirmation lookup failed", zap.String("booking_id", b.ID), zap.Error(err))
		return false
	}
	if err := s.notifier.NotifyBooking(ctx, c); err != nil {
		s.log.Warn("booking notification failed", zap.String("booking_id", b.ID), zap.Error(err))
		return false
	}
	return true
}

func (s *BookingService) confirmation(ctx context.Context, b *model.Booking, show *model.Show) (model.BookingConfirmation, error) {
	u, err := s.users.GetByID(ctx, b.UserID)
	if err != nil {
		return model.BookingConfirmation{}, fmt.Errorf("user: %w", err)
	}
	m, err := s.movies.GetByID(ctx, show.MovieID)
	if err != nil {
		return model.BookingConfirmation{}, fmt.Errorf("movie: %w", err)
	}
	t, err := s.theatres.GetByID(ctx, show.TheatreID)
	if err != nil {
		return model.BookingConfirmation{}, fmt.Errorf("theatre: %w", err)
	}
	return model.BookingConfirmation{
		BookingID:     b.ID,
		TransactionID: b.TransactionID,
		UserID:        u.ID,
		UserName:      u.Name,
		UserEmail:     u.Email,
		ShowID:        show.ID,
		MovieTitle:    m.Title,
		PosterURL:     m.Poster,
		TheatreName:   t.Name,
		Date:          show.Date,
		Time:          show.Time,
		Seats:         b.Seats,
		AmountCents:   b.AmountCents,
		ConfirmedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

// ListBookings returns the user's bookings, newest first.
func (s *BookingService) ListBookings(ctx context.Context, userID string) ([]model.BookingDetail, error) {
	return s.bookings.ListByUser(ctx, userID)
}
