package handler

import (
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-ticket-booking/internal/middleware"
    "github.com/iliyamo/cinema-ticket-booking/internal/model"
    "github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

// MovieHandler serves the public catalog and the admin movie endpoints.
type MovieHandler struct {
    Movies *repository.MovieRepo
    Log    *zap.Logger
}

func NewMovieHandler(movies *repository.MovieRepo, log *zap.Logger) *MovieHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &MovieHandler{Movies: movies, Log: log}
}

type movieReq struct {
    Title       string `json:"title" validate:"required"`
    Description string `json:"description"`
    Duration    int    `json:"duration" validate:"gt=0"`
    Language    string `json:"language"`
    Genre       string `json:"genre"`
    ReleaseDate string `json:"releaseDate" validate:"omitempty,datetime=2006-01-02"`
    Poster      string `json:"poster" validate:"omitempty,url"`
    AgeRating   string `json:"ageRating" validate:"omitempty,oneof=U PG 12A 15 18"`
}

// AddMovie handles POST /api/movies/add-movie.
func (h *MovieHandler) AddMovie(c echo.Context) error {
    var req movieReq
    if msg, ok := bindValid(c, &req); !ok {
        return fail(c, http.StatusBadRequest, msg)
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    m := &model.Movie{
        Title:       req.Title,
        Description: req.Description,
        Duration:    req.Duration,
        Language:    req.Language,
        Genre:       req.Genre,
        ReleaseDate: req.ReleaseDate,
        Poster:      req.Poster,
        AgeRating:   req.AgeRating,
        OwnerID:     middleware.UserID(c),
    }
    if err := h.Movies.Create(ctx, m); err != nil {
        if errors.Is(err, repository.ErrTitleExists) {
            return fail(c, http.StatusBadRequest, "Movie with this title already exists")
        }
        return serverError(c, err)
    }
    h.Log.Info("movie added", zap.String("movie_id", m.ID), zap.String("slug", m.Slug))
    return respond(c, http.StatusCreated, "Movie added successfully", m)
}

// ListMovies handles GET /api/movies/get-all-movies.
func (h *MovieHandler) ListMovies(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    movies, err := h.Movies.List(ctx)
    if err != nil {
        return serverError(c, err)
    }
    if movies == nil {
        movies = []model.Movie{}
    }
    return respond(c, http.StatusOK, "All movies fetched successfully", movies)
}

// GetMovie handles GET /api/movies/get-movie/:id.  The parameter may be an
// id or a slug.
func (h *MovieHandler) GetMovie(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    m, err := h.Movies.GetByIDOrSlug(ctx, c.Param("id"))
    if err != nil {
        if errors.Is(err, repository.ErrMovieNotFound) {
            return fail(c, http.StatusNotFound, "Movie not found")
        }
        return serverError(c, err)
    }
    return respond(c, http.StatusOK, "Movie fetched successfully", m)
}

type searchPage struct {
    Items    []model.Movie `json:"items"`
    Total    int64         `json:"total"`
    Page     int           `json:"page"`
    PageSize int           `json:"pageSize"`
}

// SearchMovies handles GET /api/movies/search-movies.
// showing: "any" (default) or "upcoming" (has a show from today on).
func (h *MovieHandler) SearchMovies(c echo.Context) error {
    page, _ := strconv.Atoi(c.QueryParam("page"))
    if page < 1 {
        page = 1
    }
    ps, _ := strconv.Atoi(c.QueryParam("pageSize"))
    if ps < 1 {
        ps = 20
    }
    if ps > 100 {
        ps = 100
    }

    q := repository.MovieSearchQuery{
        Title:    strings.TrimSpace(c.QueryParam("title")),
        Genre:    strings.TrimSpace(c.QueryParam("genre")),
        Language: strings.TrimSpace(c.QueryParam("language")),
        Showing:  strings.ToLower(strings.TrimSpace(c.QueryParam("showing"))),
        From:     time.Now().UTC().Format("2006-01-02"),
        Page:     page,
        PageSize: ps,
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    items, total, err := h.Movies.Search(ctx, q)
    if err != nil {
        return serverError(c, err)
    }
    return respond(c, http.StatusOK, "", searchPage{Items: items, Total: total, Page: page, PageSize: ps})
}

type movieUpdateReq struct {
    MovieID     string  `json:"movieId" validate:"required"`
    Title       *string `json:"title"`
    Description *string `json:"description"`
    Duration    *int    `json:"duration" validate:"omitempty,gt=0"`
    Language    *string `json:"language"`
    Genre       *string `json:"genre"`
    ReleaseDate *string `json:"releaseDate" validate:"omitempty,datetime=2006-01-02"`
    Poster      *string `json:"poster"`
    AgeRating   *string `json:"ageRating" validate:"omitempty,oneof=U PG 12A 15 18"`
}

// UpdateMovie handles PUT /api/movies/update-movie.  Absent fields keep
// their current values; a title change also changes the slug.
func (h *MovieHandler) UpdateMovie(c echo.Context) error {
    var req movieUpdateReq
    if msg, ok := bindValid(c, &req); !ok {
        return fail(c, http.StatusBadRequest, msg)
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    m, err := h.Movies.GetByID(ctx, req.MovieID)
    if err != nil {
        if errors.Is(err, repository.ErrMovieNotFound) {
            return fail(c, http.StatusNotFound, "Movie not found")
        }
        return serverError(c, err)
    }
    if req.Title != nil {
        if strings.TrimSpace(*req.Title) == "" {
            return fail(c, http.StatusBadRequest, "title cannot be empty")
        }
        m.Title = *req.Title
    }
    if req.Description != nil {
        m.Description = *req.Description
    }
    if req.Duration != nil {
        m.Duration = *req.Duration
    }
    if req.Language != nil {
        m.Language = *req.Language
    }
    if req.Genre != nil {
        m.Genre = *req.Genre
    }
    if req.ReleaseDate != nil {
        m.ReleaseDate = *req.ReleaseDate
    }
    if req.Poster != nil {
        m.Poster = *req.Poster
    }
    if req.AgeRating != nil {
        m.AgeRating = *req.AgeRating
    }

    if err := h.Movies.Update(ctx, m); err != nil {
        switch {
        case errors.Is(err, repository.ErrTitleExists):
            return fail(c, http.StatusBadRequest, "Movie with this title already exists")
        case errors.Is(err, repository.ErrMovieNotFound):
            return fail(c, http.StatusNotFound, "Movie not found")
        }
        return serverError(c, err)
    }
    return respond(c, http.StatusOK, "Movie updated successfully", m)
}

type movieIDReq struct {
    MovieID string `json:"movieId" validate:"required"`
}

// DeleteMovie handles POST /api/movies/delete-movie.  Movies with bookings
// cannot be deleted; otherwise their shows go with them.
func (h *MovieHandler) DeleteMovie(c echo.Context) error {
    var req movieIDReq
    if msg, ok := bindValid(c, &req); !ok {
        return fail(c, http.StatusBadRequest, msg)
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Movies.Delete(ctx, req.MovieID); err != nil {
        switch {
        case errors.Is(err, repository.ErrMovieNotFound):
            return fail(c, http.StatusNotFound, "Movie not found")
        case errors.Is(err, repository.ErrConflict):
            return fail(c, http.StatusConflict, "Cannot delete a movie that has bookings")
        }
        return serverError(c, err)
    }
    return respond(c, http.StatusOK, "Movie deleted successfully", nil)
}
