package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-booking/internal/database"
	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
	"github.com/iliyamo/cinema-ticket-booking/internal/schedule"
)

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) NotifyBooking(ctx context.Context, c model.BookingConfirmation) error {
	return m.Called(c).Error(0)
}

type stubVerifier struct{ err error }

func (v stubVerifier) VerifyPayment(context.Context, string) error { return v.err }

type env struct {
	db      *sql.DB
	user    *model.User
	partner *model.User
	movie   *model.Movie
	theatre *model.Theatre
	show    *model.Show
}

func setup(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	users := repository.NewUserRepo(db)
	u := &model.User{Name: "Ada", Email: "ada@example.com", Role: model.RoleUser}
	require.NoError(t, users.Create(ctx, u, "pw", 4))
	p := &model.User{Name: "Pat", Email: "pat@example.com", Role: model.RolePartner}
	require.NoError(t, users.Create(ctx, p, "pw", 4))

	m := &model.Movie{Title: "Heat", Description: "d", Duration: 170, Language: "English",
		Genre: "Crime", ReleaseDate: "1995-12-15", Poster: "http://p", OwnerID: u.ID}
	require.NoError(t, repository.NewMovieRepo(db).Create(ctx, m))

	th := &model.Theatre{Name: "Odeon", Address: "a", Phone: "1", Email: "o@x.com", OwnerID: p.ID}
	require.NoError(t, repository.NewTheatreRepo(db).Create(ctx, th))

	s := &model.Show{Name: "Evening", MovieID: m.ID, TheatreID: th.ID, Date: "2030-06-01",
		Time: "20:00", TicketPriceCents: 1275, TotalSeats: 100}
	require.NoError(t, repository.NewShowRepo(db).Create(ctx, s))

	return env{db: db, user: u, partner: p, movie: m, theatre: th, show: s}
}

func TestCheckSeats(t *testing.T) {
	show := &model.Show{TotalSeats: 10, BookedSeats: []int{3, 7}}

	assert.NoError(t, CheckSeats(show, []int{1, 10}))
	assert.ErrorIs(t, CheckSeats(show, nil), ErrNoSeats)
	assert.ErrorIs(t, CheckSeats(show, []int{0}), ErrInvalidSeat)
	assert.ErrorIs(t, CheckSeats(show, []int{11}), ErrInvalidSeat)
	assert.ErrorIs(t, CheckSeats(show, []int{2, 2}), ErrInvalidSeat)

	err := CheckSeats(show, []int{7, 1, 3})
	require.ErrorIs(t, err, ErrSeatsUnavailable)
	var se *SeatError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []int{3, 7}, se.Seats)
	assert.Equal(t, "Seats already booked: 3, 7", err.Error())
}

func TestAvailability(t *testing.T) {
	a := Availability(&model.Show{ID: "s", TotalSeats: 5, BookedSeats: []int{4, 1}})
	assert.Equal(t, 5, a.TotalSeats)
	assert.Equal(t, 2, a.Booked)
	assert.Equal(t, 3, a.Available)
	assert.Equal(t, []int{1, 4}, a.BookedSeats)

	over := Availability(&model.Show{TotalSeats: 1, BookedSeats: []int{1, 2}})
	assert.Equal(t, 0, over.Available)
	assert.Equal(t, []int{}, Availability(&model.Show{TotalSeats: 1}).BookedSeats)
}

func TestBookShow_HappyPath(t *testing.T) {
	e := setup(t)
	n := &mockNotifier{}
	n.On("NotifyBooking", mock.MatchedBy(func(c model.BookingConfirmation) bool {
		return c.UserEmail == "ada@example.com" && c.MovieTitle == "Heat" && c.TheatreName == "Odeon" &&
			c.AmountCents == 2550 && c.Date == "2030-06-01"
	})).Return(nil).Once()

	svc := NewBookingService(e.db, stubVerifier{}, n, nil)
	res, err := svc.BookShow(context.Background(), BookRequest{
		ShowID: e.show.ID, UserID: e.user.ID, Seats: []int{12, 13}, TransactionID: "pi_1", AmountCents: 2550,
	})
	require.NoError(t, err)
	assert.True(t, res.EmailSent)
	assert.Equal(t, int64(2550), res.Booking.AmountCents)
	assert.Equal(t, []int{12, 13}, res.Show.BookedSeats)
	n.AssertExpectations(t)

	stored, err := repository.NewShowRepo(e.db).GetByID(context.Background(), e.show.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{12, 13}, stored.BookedSeats)
	assert.Equal(t, 98, stored.AvailableSeats())

	list, err := svc.ListBookings(context.Background(), e.user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBookShow_RejectsBookedSeat(t *testing.T) {
	e := setup(t)
	n := &mockNotifier{}
	n.On("NotifyBooking", mock.Anything).Return(nil)
	svc := NewBookingService(e.db, nil, n, nil)
	ctx := context.Background()

	_, err := svc.BookShow(ctx, BookRequest{ShowID: e.show.ID, UserID: e.user.ID, Seats: []int{5}, TransactionID: "pi_1"})
	require.NoError(t, err)

	_, err = svc.BookShow(ctx, BookRequest{ShowID: e.show.ID, UserID: e.user.ID, Seats: []int{4, 5}, TransactionID: "pi_2"})
	assert.ErrorIs(t, err, ErrSeatsUnavailable)
	n.AssertNumberOfCalls(t, "NotifyBooking", 1)

	list, err := svc.ListBookings(ctx, e.user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBookShow_Validation(t *testing.T) {
	e := setup(t)
	svc := NewBookingService(e.db, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.BookShow(ctx, BookRequest{ShowID: e.show.ID, Seats: []int{1}})
	assert.ErrorIs(t, err, ErrMissingBookingInfo)

	_, err = svc.BookShow(ctx, BookRequest{ShowID: e.show.ID, UserID: e.user.ID, Seats: []int{1}, TransactionID: "pi", AmountCents: 1})
	assert.ErrorIs(t, err, ErrAmountMismatch)

	_, err = svc.BookShow(ctx, BookRequest{ShowID: "missing", UserID: e.user.ID, Seats: []int{1}, TransactionID: "pi"})
	assert.ErrorIs(t, err, repository.ErrShowNotFound)

	_, err = svc.BookShow(ctx, BookRequest{ShowID: e.show.ID, UserID: e.user.ID, Seats: []int{101}, TransactionID: "pi"})
	assert.ErrorIs(t, err, ErrInvalidSeat)
}

func TestBookShow_PaymentNotConfirmed(t *testing.T) {
	e := setup(t)
	svc := NewBookingService(e.db, stubVerifier{err: ErrPaymentNotConfirmed}, nil, nil)
	_, err := svc.BookShow(context.Background(), BookRequest{ShowID: e.show.ID, UserID: e.user.ID, Seats: []int{1}, TransactionID: "pi"})
	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)

	s, err := repository.NewShowRepo(e.db).GetByID(context.Background(), e.show.ID)
	require.NoError(t, err)
	assert.Empty(t, s.BookedSeats)
}

func bumpVersion(showID string, onAttempts ...int) func(context.Context, *sql.Tx, int) error {
	return func(ctx context.Context, tx *sql.Tx, attempt int) error {
		for _, a := range onAttempts {
			if a == attempt {
				_, err := tx.ExecContext(ctx, "UPDATE shows SET version = version + 1 WHERE id = ?", showID)
				return err
			}
		}
		return nil
	}
}

func TestBookShow_RetriesAfterConcurrentWrite(t *testing.T) {
	e := setup(t)
	svc := NewBookingService(e.db, nil, nil, nil)
	var attempts []int
	bump := bumpVersion(e.show.ID, 1)
	svc.beforeReserve = func(ctx context.Context, tx *sql.Tx, attempt int) error {
		attempts = append(attempts, attempt)
		return bump(ctx, tx, attempt)
	}

	res, err := svc.BookShow(context.Background(), BookRequest{ShowID: e.show.ID, UserID: e.user.ID, Seats: []int{1}, TransactionID: "pi"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
	assert.False(t, res.EmailSent)
	assert.Equal(t, []int{1}, res.Show.BookedSeats)
}

func TestBookShow_GivesUpAfterThreeConflicts(t *testing.T) {
	e := setup(t)
	svc := NewBookingService(e.db, nil, nil, nil)
	svc.beforeReserve = bumpVersion(e.show.ID, 1, 2, 3)

	_, err := svc.BookShow(context.Background(), BookRequest{ShowID: e.show.ID, UserID: e.user.ID, Seats: []int{1}, TransactionID: "pi"})
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	list, err := svc.ListBookings(context.Background(), e.user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBookShow_NotificationFailureStillBooks(t *testing.T) {
	e := setup(t)
	n := &mockNotifier{}
	n.On("NotifyBooking", mock.Anything).Return(errors.New("smtp down")).Once()
	svc := NewBookingService(e.db, nil, n, nil)

	res, err := svc.BookShow(context.Background(), BookRequest{ShowID: e.show.ID, UserID: e.user.ID, Seats: []int{9}, TransactionID: "pi"})
	require.NoError(t, err)
	assert.False(t, res.EmailSent)
	n.AssertExpectations(t)
}

func newShowService(e env) *ShowService {
	return NewShowService(repository.NewShowRepo(e.db), repository.NewMovieRepo(e.db), repository.NewTheatreRepo(e.db), nil)
}

func TestShowService_CreateChecksOwnershipAndFields(t *testing.T) {
	e := setup(t)
	svc := newShowService(e)
	ctx := context.Background()
	in := ShowInput{Name: "Matinee", MovieID: e.movie.ID, TheatreID: e.theatre.ID, Date: "2030-06-02", Time: "14:00", TicketPrice: 9.5, TotalSeats: 50}

	s, err := svc.Create(ctx, e.partner.ID, in)
	require.NoError(t, err)
	assert.Equal(t, int64(950), s.TicketPriceCents)

	_, err = svc.Create(ctx, e.user.ID, in)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	bad := in
	bad.Time = "25:00"
	_, err = svc.Create(ctx, e.partner.ID, bad)
	assert.ErrorIs(t, err, ErrInvalidShow)

	bad = in
	bad.TotalSeats = 0
	_, err = svc.Create(ctx, e.partner.ID, bad)
	assert.ErrorIs(t, err, ErrInvalidShow)

	bad = in
	bad.MovieID = "missing"
	_, err = svc.Create(ctx, e.partner.ID, bad)
	assert.ErrorIs(t, err, repository.ErrMovieNotFound)
}

func TestShowService_CreateRecurring(t *testing.T) {
	e := setup(t)
	svc := newShowService(e)
	ctx := context.Background()
	start, _ := schedule.ParseDate("2024-01-01")
	in := ShowInput{Name: "Weekly", MovieID: e.movie.ID, TheatreID: e.theatre.ID, Time: "18:00", TicketPrice: 8, TotalSeats: 40}

	res, err := svc.CreateRecurring(ctx, e.partner.ID, in, schedule.Recurrence{
		Start: start, End: start.AddDate(0, 0, 6), Pattern: "weekly", Weekdays: []string{"monday", "wednesday"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, []string{"2024-01-01", "2024-01-03"}, res.Dates)

	_, err = svc.CreateRecurring(ctx, e.partner.ID, in, schedule.Recurrence{Start: start, End: start, Pattern: "weekly", Weekdays: []string{"monday"},
		Exceptions: []time.Time{start}})
	assert.ErrorIs(t, err, ErrNoShowsCreated)

	_, err = svc.CreateRecurring(ctx, e.partner.ID, in, schedule.Recurrence{Start: start, End: start, Pattern: "hourly"})
	assert.ErrorIs(t, err, ErrInvalidShow)
}

func TestShowService_UpdateAndDelete(t *testing.T) {
	e := setup(t)
	svc := newShowService(e)
	booking := NewBookingService(e.db, nil, nil, nil)
	ctx := context.Background()

	_, err := booking.BookShow(ctx, BookRequest{ShowID: e.show.ID, UserID: e.user.ID, Seats: []int{60}, TransactionID: "pi"})
	require.NoError(t, err)

	fifty := 50
	_, err = svc.Update(ctx, e.partner.ID, e.show.ID, ShowPatch{TotalSeats: &fifty})
	assert.ErrorIs(t, err, ErrSeatsBelowBooked)

	sixty := 60
	price := 10.0
	s, err := svc.Update(ctx, e.partner.ID, e.show.ID, ShowPatch{TotalSeats: &sixty, TicketPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, 60, s.TotalSeats)
	assert.Equal(t, int64(1000), s.TicketPriceCents)
	assert.Equal(t, []int{60}, s.BookedSeats)

	_, err = svc.Update(ctx, e.user.ID, e.show.ID, ShowPatch{TotalSeats: &sixty})
	assert.ErrorIs(t, err, repository.ErrForbidden)

	assert.ErrorIs(t, svc.Delete(ctx, e.partner.ID, e.show.ID), repository.ErrConflict)
}

func TestShowService_TheatresByMovie(t *testing.T) {
	e := setup(t)
	svc := newShowService(e)
	ctx := context.Background()

	e.theatre.IsActive = true
	require.NoError(t, repository.NewTheatreRepo(e.db).Update(ctx, e.theatre))

	groups, err := svc.TheatresByMovie(ctx, e.movie.ID, "2030-06-01")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, e.theatre.ID, groups[0].Theatre.ID)
	assert.Len(t, groups[0].Shows, 1)

	_, err = svc.TheatresByMovie(ctx, e.movie.ID, "June 1st")
	assert.ErrorIs(t, err, ErrInvalidShow)
}
