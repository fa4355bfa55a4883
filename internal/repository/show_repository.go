// Package repository contains data access logic for show operations.  A
// show carries its own seat map (booked_seats, a JSON array) guarded by a
// version column; every write to the seat map is a compare-and-swap on
// that version so two concurrent bookings can never both claim a seat.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo.
func NewShowRepo(db *sql.DB) *ShowRepo { return &ShowRepo{db: db} }

const showColumns = "id,name,movie_id,theatre_id,show_date,show_time,ticket_price_cents,total_seats,booked_seats,version,created_at,updated_at"

// prefixed qualifies every column in cols with alias.
func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ",")
}

// Create inserts s with an empty seat map and version 1.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	now := time.Now().UTC()
	s.ID = uuid.NewString()
	s.BookedSeats = []int{}
	s.Version = 1
	s.CreatedAt, s.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shows (id,name,movie_id,theatre_id,show_date,show_time,ticket_price_cents,total_seats,booked_seats,version,created_at,updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.Name, s.MovieID, s.TheatreID, s.Date, s.Time, s.TicketPriceCents, s.TotalSeats, "[]", s.Version, now, now)
	return err
}

// GetByID returns a show by id.
func (r *ShowRepo) GetByID(ctx context.Context, id string) (*model.Show, error) {
	return getShow(ctx, r.db, id)
}

// GetByIDTx reads a show inside the caller's transaction.
func (r *ShowRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.Show, error) {
	return getShow(ctx, tx, id)
}

// GetDetail returns a show with its movie and theatre.
func (r *ShowRepo) GetDetail(ctx context.Context, id string) (*model.ShowDetail, error) {
	s, err := getShow(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	d := &model.ShowDetail{Show: *s}
	if d.Movie, err = getMovie(ctx, r.db, s.MovieID); err != nil {
		return nil, err
	}
	if d.Theatre, err = getTheatre(ctx, r.db, s.TheatreID); err != nil {
		return nil, err
	}
	return d, nil
}

// ListByTheatre returns every show of a theatre with its movie, ordered by
// date and time.
func (r *ShowRepo) ListByTheatre(ctx context.Context, theatreID string) ([]model.ShowDetail, error) {
	q := "SELECT " + prefixed("s", showColumns) + "," + prefixed("m", movieColumns) + "," + prefixed("t", theatreColumns) + `
		FROM shows s
		JOIN movies m ON m.id = s.movie_id
		JOIN theatres t ON t.id = s.theatre_id
		WHERE s.theatre_id = ?
		ORDER BY s.show_date, s.show_time`
	return r.listDetails(ctx, q, theatreID)
}

// ListByMovieAndDate returns the shows of a movie on a date at active
// theatres, ordered by theatre then time.
func (r *ShowRepo) ListByMovieAndDate(ctx context.Context, movieID, date string) ([]model.ShowDetail, error) {
	q := "SELECT " + prefixed("s", showColumns) + "," + prefixed("m", movieColumns) + "," + prefixed("t", theatreColumns) + `
		FROM shows s
		JOIN movies m ON m.id = s.movie_id
		JOIN theatres t ON t.id = s.theatre_id
		WHERE s.movie_id = ? AND s.show_date = ? AND t.is_active = ?
		ORDER BY t.name, t.id, s.show_time`
	return r.listDetails(ctx, q, movieID, date, true)
}

func (r *ShowRepo) listDetails(ctx context.Context, q string, args ...any) ([]model.ShowDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ShowDetail{}
	for rows.Next() {
		var (
			d   model.ShowDetail
			m   model.Movie
			t   model.Theatre
			raw string
		)
		dest := append(showDest(&d.Show, &raw), movieDest(&m)...)
		dest = append(dest, theatreDest(&t)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if d.BookedSeats, err = decodeSeats(raw); err != nil {
			return nil, err
		}
		d.Movie, d.Theatre = &m, &t
		out = append(out, d)
	}
	return out, rows.Err()
}

// Update applies mutate to the current row and writes the result back with
// a version check.  Seat bookings that land between the read and the write
// surface as ErrVersionConflict.
func (r *ShowRepo) Update(ctx context.Context, id string, mutate func(*model.Show) error) (*model.Show, error) {
	s, err := getShow(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(s); err != nil {
		return nil, err
	}
	s.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE shows SET name=?, movie_id=?, show_date=?, show_time=?, ticket_price_cents=?, total_seats=?,
		 version=version+1, updated_at=? WHERE id=? AND version=?`,
		s.Name, s.MovieID, s.Date, s.Time, s.TicketPriceCents, s.TotalSeats, s.UpdatedAt, s.ID, s.Version)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrVersionConflict
	}
	s.Version++
	return s, nil
}

// Delete removes a show that has no bookings.
func (r *ShowRepo) Delete(ctx context.Context, id string) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		n, err := countShowBookings(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM shows WHERE id=?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrShowNotFound
		}
		return nil
	})
}

// ReserveSeatsTx appends seats to s.BookedSeats and writes the seat map
// only if the row still has s.Version.  On success s reflects the stored
// row; on ErrVersionConflict s is unchanged and the caller must re-read.
func (r *ShowRepo) ReserveSeatsTx(ctx context.Context, tx *sql.Tx, s *model.Show, seats []int) error {
	booked := make([]int, 0, len(s.BookedSeats)+len(seats))
	booked = append(booked, s.BookedSeats...)
	booked = append(booked, seats...)
	raw, err := encodeSeats(booked)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		"UPDATE shows SET booked_seats=?, version=version+1, updated_at=? WHERE id=? AND version=?",
		raw, now, s.ID, s.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	s.BookedSeats = booked
	s.Version++
	s.UpdatedAt = now
	return nil
}

func getShow(ctx context.Context, q querier, id string) (*model.Show, error) {
	var (
		s   model.Show
		raw string
	)
	err := q.QueryRowContext(ctx, "SELECT "+showColumns+" FROM shows WHERE id=? LIMIT 1", id).Scan(showDest(&s, &raw)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	if s.BookedSeats, err = decodeSeats(raw); err != nil {
		return nil, err
	}
	return &s, nil
}

func showDest(s *model.Show, booked *string) []any {
	return []any{&s.ID, &s.Name, &s.MovieID, &s.TheatreID, &s.Date, &s.Time, &s.TicketPriceCents,
		&s.TotalSeats, booked, &s.Version, &s.CreatedAt, &s.UpdatedAt}
}

func movieDest(m *model.Movie) []any {
	return []any{&m.ID, &m.Title, &m.Slug, &m.Description, &m.Duration, &m.Language, &m.Genre,
		&m.ReleaseDate, &m.Poster, &m.AgeRating, &m.OwnerID, &m.CreatedAt, &m.UpdatedAt}
}

func theatreDest(t *model.Theatre) []any {
	return []any{&t.ID, &t.Name, &t.Address, &t.Phone, &t.Email, &t.IsActive, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt}
}
