package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// ErrTheatreNotFound indicates that a theatre was not located in the DB.
var ErrTheatreNotFound = errors.New("theatre not found")

// TheatreRepo provides database operations for theatres.
type TheatreRepo struct {
	db *sql.DB
}

// NewTheatreRepo constructs a TheatreRepo.
func NewTheatreRepo(db *sql.DB) *TheatreRepo { return &TheatreRepo{db: db} }

const theatreColumns = "id,name,address,phone,email,is_active,owner_id,created_at,updated_at"

// Create inserts t.  New theatres always start inactive.
func (r *TheatreRepo) Create(ctx context.Context, t *model.Theatre) error {
	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.IsActive = false
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO theatres (id,name,address,phone,email,is_active,owner_id,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)",
		t.ID, t.Name, t.Address, t.Phone, t.Email, t.IsActive, t.OwnerID, now, now)
	return err
}

// GetByID returns a theatre by id.
func (r *TheatreRepo) GetByID(ctx context.Context, id string) (*model.Theatre, error) {
	return getTheatre(ctx, r.db, id)
}

// ListAll returns every theatre, newest first.  Used by admins.
func (r *TheatreRepo) ListAll(ctx context.Context) ([]model.Theatre, error) {
	return r.list(ctx, "SELECT "+theatreColumns+" FROM theatres ORDER BY created_at DESC")
}

// ListByOwner returns theatres owned by the given partner.
func (r *TheatreRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Theatre, error) {
	return r.list(ctx, "SELECT "+theatreColumns+" FROM theatres WHERE owner_id=? ORDER BY created_at DESC", ownerID)
}

func (r *TheatreRepo) list(ctx context.Context, q string, args ...any) ([]model.Theatre, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Theatre{}
	for rows.Next() {
		t, err := scanTheatre(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Update writes all mutable columns including is_active.  Ownership and
// role checks happen in the handler.
func (r *TheatreRepo) Update(ctx context.Context, t *model.Theatre) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"UPDATE theatres SET name=?, address=?, phone=?, email=?, is_active=?, updated_at=? WHERE id=?",
		t.Name, t.Address, t.Phone, t.Email, t.IsActive, t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTheatreNotFound
	}
	return nil
}

// Delete removes the theatre and its shows.  Theatres with booked shows
// yield ErrConflict.
func (r *TheatreRepo) Delete(ctx context.Context, id string) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings b JOIN shows s ON s.id = b.show_id WHERE s.theatre_id=?`, id).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM shows WHERE theatre_id=?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM theatres WHERE id=?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrTheatreNotFound
		}
		return nil
	})
}

func getTheatre(ctx context.Context, q querier, id string) (*model.Theatre, error) {
	return scanTheatre(q.QueryRowContext(ctx, "SELECT "+theatreColumns+" FROM theatres WHERE id=? LIMIT 1", id))
}

func scanTheatre(row rowScanner) (*model.Theatre, error) {
	var t model.Theatre
	err := row.Scan(theatreDest(&t)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTheatreNotFound
		}
		return nil, err
	}
	return &t, nil
}
