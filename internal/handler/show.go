package handler

import (
    "errors"
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-ticket-booking/internal/middleware"
    "github.com/iliyamo/cinema-ticket-booking/internal/repository"
    "github.com/iliyamo/cinema-ticket-booking/internal/schedule"
    "github.com/iliyamo/cinema-ticket-booking/internal/service"
)

// ShowHandler serves partner show management and public show lookups.
type ShowHandler struct {
    Shows *service.ShowService
    Repo  *repository.ShowRepo
    Log   *zap.Logger
}

func NewShowHandler(shows *service.ShowService, repo *repository.ShowRepo, log *zap.Logger) *ShowHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &ShowHandler{Shows: shows, Repo: repo, Log: log}
}

type showReq struct {
    Name        string  `json:"name" validate:"required"`
    Movie       string  `json:"movie" validate:"required"`
    Theatre     string  `json:"theatre" validate:"required"`
    Date        string  `json:"date"`
    Time        string  `json:"time" validate:"required"`
    TicketPrice float64 `json:"ticketPrice" validate:"gt=0"`
    TotalSeats  int     `json:"totalSeats" validate:"gt=0"`
}

func (r showReq) input() service.ShowInput {
    return service.ShowInput{
        Name:        r.Name,
        MovieID:     r.Movie,
        TheatreID:   r.Theatre,
        Date:        r.Date,
        Time:        r.Time,
        TicketPrice: r.TicketPrice,
        TotalSeats:  r.TotalSeats,
    }
}

// AddShow handles POST /api/shows/add-show.
func (h *ShowHandler) AddShow(c echo.Context) error {
    var req showReq
    if msg, ok := bindValid(c, &req); !ok {
        return fail(c, http.StatusBadRequest, msg)
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    show, err := h.Shows.Create(ctx, middleware.UserID(c), req.input())
    if err != nil {
        return showError(c, err)
    }
    return respond(c, http.StatusCreated, "Show added successfully", newShowView(show))
}

type recurringReq struct {
    showReq
    StartDate  string   `json:"startDate" validate:"required"`
    EndDate    string   `json:"endDate" validate:"required"`
    Pattern    string   `json:"pattern" validate:"required,oneof=daily weekly"`
    Weekdays   []string `json:"weekdays"`
    Exceptions []string `json:"exceptions"`
}

func (r recurringReq) recurrence() (schedule.Recurrence, error) {
    start, err := schedule.ParseDate(r.StartDate)
    if err != nil {
        return schedule.Recurrence{}, errors.New("startDate must be YYYY-MM-DD")
    }
    end, err := schedule.ParseDate(r.EndDate)
    if err != nil {
        return schedule.Recurrence{}, errors.New("endDate must be YYYY-MM-DD")
    }
    rec := schedule.Recurrence{Start: start, End: end, Pattern: r.Pattern, Weekdays: r.Weekdays}
    for _, s := range r.Exceptions {
        d, err := schedule.ParseDate(s)
        if err != nil {
            return schedule.Recurrence{}, fmt.Errorf("invalid exception date %q", s)
        }
        rec.Exceptions = append(rec.Exceptions, d)
    }
    return rec, nil
}

// AddRecurringShows handles POST /api/shows/add-recurring-shows.  One show
// is created per expanded date; individual insert failures are counted.
func (h *ShowHandler) AddRecurringShows(c echo.Context) error {
    var req recurringReq
    if msg, ok := bindValid(c, &req); !ok {
        return fail(c, http.StatusBadRequest, msg)
    }
    rec, err := req.recurrence()
    if err != nil {
        return fail(c, http.StatusBadRequest, err.Error())
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    res, err := h.Shows.CreateRecurring(ctx, middleware.UserID(c), req.input(), rec)
    if err != nil {
        if errors.Is(err, service.ErrNoShowsCreated) {
            return fail(c, http.StatusBadRequest, "Failed to create any shows")
        }
        return showError(c, err)
    }
    msg := fmt.Sprintf("Successfully created %d shows", res.Created)
    if res.Failed > 0 {
        msg += fmt.Sprintf(" (%d failed)", res.Failed)
    }
    return respond(c, http.StatusCreated, msg, res)
}

type showUpdateReq struct {
    ShowID      string   `json:"showId" validate:"required"`
    Name        *string  `json:"name"`
    Movie       *string  `json:"movie"`
    Date        *string  `json:"date"`
    Time        *string  `json:"time"`
    TicketPrice *float64 `json:"ticketPrice"`
    TotalSeats  *int     `json:"totalSeats"`
}

// UpdateShow handles PUT /api/shows/update-show.
func (h *ShowHandler) UpdateShow(c echo.Context) error {
    var req showUpdateReq
    if msg, ok := bindValid(c, &req); !ok {
        return fail(c, http.StatusBadRequest, msg)
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    show, err := h.Shows.Update(ctx, middleware.UserID(c), req.ShowID, service.ShowPatch{
        Name:        req.Name,
        MovieID:     req.Movie,
        Date:        req.Date,
        Time:        req.Time,
        TicketPrice: req.TicketPrice,
        TotalSeats:  req.TotalSeats,
    })
    if err != nil {
        return showError(c, err)
    }
    return respond(c, http.StatusOK, "Show updated successfully", newShowView(show))
}

// DeleteShow handles DELETE /api/shows/delete-show/:showId.
func (h *ShowHandler) DeleteShow(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Shows.Delete(ctx, middleware.UserID(c), c.Param("showId")); err != nil {
        return showError(c, err)
    }
    return respond(c, http.StatusOK, "Show deleted successfully", nil)
}

// ListByTheatre handles GET /api/shows/get-all-shows-by-theatre/:theatreId.
func (h *ShowHandler) ListByTheatre(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    list, err := h.Shows.ListByTheatre(ctx, middleware.UserID(c), middleware.Role(c), c.Param("theatreId"))
    if err != nil {
        return showError(c, err)
    }
    return respond(c, http.StatusOK, "All shows fetched successfully", showDetailViews(list))
}

type theatresByMovieReq struct {
    Movie string `json:"movie" validate:"required"`
    Date  string `json:"date" validate:"required"`
}

// TheatresByMovie handles POST /api/shows/get-all-theatres-by-movie.  Only
// active theatres are listed, each with its shows of the movie that day.
func (h *ShowHandler) TheatresByMovie(c echo.Context) error {
    var req theatresByMovieReq
    if msg, ok := bindValid(c, &req); !ok {
        return fail(c, http.StatusBadRequest, msg)
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    groups, err := h.Shows.TheatresByMovie(ctx, req.Movie, req.Date)
    if err != nil {
        return showError(c, err)
    }
    out := make([]theatreShowsView, len(groups))
    for i, g := range groups {
        out[i] = theatreShowsView{Theatre: g.Theatre, Shows: showDetailViews(g.Shows)}
    }
    return respond(c, http.StatusOK, "All theatres fetched successfully", out)
}

// GetShow handles GET /api/shows/get-show-by-id/:showId.
func (h *ShowHandler) GetShow(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    d, err := h.Repo.GetDetail(ctx, c.Param("showId"))
    if err != nil {
        return showError(c, err)
    }
    return respond(c, http.StatusOK, "Show fetched successfully", newShowDetailView(d))
}

// SeatAvailability handles GET /api/shows/get-seat-availability/:showId.
func (h *ShowHandler) SeatAvailability(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    show, err := h.Repo.GetByID(ctx, c.Param("showId"))
    if err != nil {
        return showError(c, err)
    }
    return respond(c, http.StatusOK, "", service.Availability(show))
}

// showError maps show workflow errors to responses.
func showError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, service.ErrInvalidShow), errors.Is(err, service.ErrSeatsBelowBooked):
        return fail(c, http.StatusBadRequest, err.Error())
    case errors.Is(err, repository.ErrForbidden):
        return fail(c, http.StatusForbidden, "You are not allowed to perform this action")
    case errors.Is(err, repository.ErrShowNotFound):
        return fail(c, http.StatusNotFound, "Show not found")
    case errors.Is(err, repository.ErrMovieNotFound):
        return fail(c, http.StatusNotFound, "Movie not found")
    case errors.Is(err, repository.ErrTheatreNotFound):
        return fail(c, http.StatusNotFound, "Theatre not found")
    case errors.Is(err, repository.ErrConflict):
        return fail(c, http.StatusConflict, "Cannot delete a show that has bookings")
    case errors.Is(err, repository.ErrVersionConflict):
        return fail(c, http.StatusConflict, "Show was modified concurrently, please retry")
    }
    return serverError(c, err)
}
