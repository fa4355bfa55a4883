package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// Showing filters for MovieSearchQuery.
const (
	ShowingAny      = "any"      // every catalog entry
	ShowingUpcoming = "upcoming" // only movies with a show on or after From at an active theatre
)

// MovieSearchQuery defines filters & pagination for searching the catalog.
// Text filters are case-insensitive substring matches.
type MovieSearchQuery struct {
	Title    string
	Genre    string
	Language string
	Showing  string
	From     string // YYYY-MM-DD, used by ShowingUpcoming
	Page     int
	PageSize int
}

// Search returns one page of matching movies, newest first, plus the total
// number of matches.
func (r *MovieRepo) Search(ctx context.Context, q MovieSearchQuery) ([]model.Movie, int64, error) {
	where := []string{}
	args := []any{}

	if q.Title != "" {
		where = append(where, "title_key LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Title)+"%")
	}
	if q.Genre != "" {
		where = append(where, "LOWER(genre) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Genre)+"%")
	}
	if q.Language != "" {
		where = append(where, "LOWER(language) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Language)+"%")
	}
	if strings.ToLower(q.Showing) == ShowingUpcoming {
		where = append(where, `EXISTS (SELECT 1 FROM shows s JOIN theatres t ON t.id = s.theatre_id
			WHERE s.movie_id = movies.id AND s.show_date >= ? AND t.is_active = ?)`)
		args = append(args, q.From, true)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE "+cond+" ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Movie, 0, limit)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
