package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// ErrMovieNotFound indicates that a movie was not located in the DB.
var ErrMovieNotFound = errors.New("movie not found")

// ErrTitleExists is returned when another movie already uses the title
// (case-insensitive).
var ErrTitleExists = errors.New("movie title already exists")

// MovieRepo manages persistence for the movie catalog.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = "id,title,slug,description,duration,language,genre,release_date,poster,age_rating,owner_id,created_at,updated_at"

// titleKey is the value the unique index is built on.
func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Create inserts m, assigning its ID, slug and timestamps.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	now := time.Now().UTC()
	m.ID = uuid.NewString()
	m.Title = strings.TrimSpace(m.Title)
	m.Slug = slug.Make(m.Title)
	if m.AgeRating == "" {
		m.AgeRating = model.DefaultAgeRating
	}
	m.CreatedAt, m.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (id,title,title_key,slug,description,duration,language,genre,release_date,poster,age_rating,owner_id,created_at,updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.Title, titleKey(m.Title), m.Slug, m.Description, m.Duration, m.Language, m.Genre,
		m.ReleaseDate, m.Poster, m.AgeRating, m.OwnerID, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrTitleExists
		}
		return err
	}
	return nil
}

// GetByID returns the movie with the given id.
func (r *MovieRepo) GetByID(ctx context.Context, id string) (*model.Movie, error) {
	return getMovie(ctx, r.db, id)
}

// GetBySlug returns the most recently created movie with the given slug.
func (r *MovieRepo) GetBySlug(ctx context.Context, s string) (*model.Movie, error) {
	return scanMovie(r.db.QueryRowContext(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE slug=? ORDER BY created_at DESC LIMIT 1", s))
}

// GetByIDOrSlug tries the id first and falls back to the slug.
func (r *MovieRepo) GetByIDOrSlug(ctx context.Context, key string) (*model.Movie, error) {
	m, err := r.GetByID(ctx, key)
	if errors.Is(err, ErrMovieNotFound) {
		return r.GetBySlug(ctx, key)
	}
	return m, err
}

// List returns all movies, newest first.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+movieColumns+" FROM movies ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of m.  The slug follows the title.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	m.Title = strings.TrimSpace(m.Title)
	m.Slug = slug.Make(m.Title)
	m.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE movies SET title=?, title_key=?, slug=?, description=?, duration=?, language=?, genre=?,
		 release_date=?, poster=?, age_rating=?, updated_at=? WHERE id=?`,
		m.Title, titleKey(m.Title), m.Slug, m.Description, m.Duration, m.Language, m.Genre,
		m.ReleaseDate, m.Poster, m.AgeRating, m.UpdatedAt, m.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrTitleExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// Delete removes a movie and its shows.  A movie whose shows have bookings
// cannot be deleted and yields ErrConflict.
func (r *MovieRepo) Delete(ctx context.Context, id string) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings b JOIN shows s ON s.id = b.show_id WHERE s.movie_id=?`, id).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM shows WHERE movie_id=?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM movies WHERE id=?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrMovieNotFound
		}
		return nil
	})
}

func getMovie(ctx context.Context, q querier, id string) (*model.Movie, error) {
	return scanMovie(q.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies WHERE id=? LIMIT 1", id))
}

func scanMovie(row rowScanner) (*model.Movie, error) {
	var m model.Movie
	err := row.Scan(movieDest(&m)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}
