package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// BookingRepo persists bookings.  Bookings are only ever inserted inside
// the same transaction that claims their seats.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = "id,show_id,user_id,seats,transaction_id,amount_cents,created_at"

// CreateTx inserts b using tx, assigning ID and CreatedAt.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	raw, err := encodeSeats(b.Seats)
	if err != nil {
		return err
	}
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO bookings (id,show_id,user_id,seats,transaction_id,amount_cents,created_at) VALUES (?,?,?,?,?,?,?)",
		b.ID, b.ShowID, b.UserID, raw, b.TransactionID, b.AmountCents, b.CreatedAt)
	return err
}

// ListByUser returns the user's bookings with show, movie and theatre,
// newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.BookingDetail, error) {
	q := "SELECT " + prefixed("b", bookingColumns) + "," + prefixed("s", showColumns) + "," +
		prefixed("m", movieColumns) + "," + prefixed("t", theatreColumns) + `
		FROM bookings b
		JOIN shows s ON s.id = b.show_id
		JOIN movies m ON m.id = s.movie_id
		JOIN theatres t ON t.id = s.theatre_id
		WHERE b.user_id = ?
		ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingDetail{}
	for rows.Next() {
		var (
			d         model.BookingDetail
			s         model.Show
			m         model.Movie
			t         model.Theatre
			rawSeats  string
			rawBooked string
		)
		dest := []any{&d.ID, &d.ShowID, &d.UserID, &rawSeats, &d.TransactionID, &d.AmountCents, &d.CreatedAt}
		dest = append(dest, showDest(&s, &rawBooked)...)
		dest = append(dest, movieDest(&m)...)
		dest = append(dest, theatreDest(&t)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if d.Seats, err = decodeSeats(rawSeats); err != nil {
			return nil, err
		}
		if s.BookedSeats, err = decodeSeats(rawBooked); err != nil {
			return nil, err
		}
		d.Show, d.Movie, d.Theatre = &s, &m, &t
		out = append(out, d)
	}
	return out, rows.Err()
}

// countShowBookings returns how many bookings reference the show.
func countShowBookings(ctx context.Context, q querier, showID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings WHERE show_id=?", showID).Scan(&n)
	return n, err
}
