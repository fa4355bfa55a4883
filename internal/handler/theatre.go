package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-ticket-booking/internal/middleware"
    "github.com/iliyamo/cinema-ticket-booking/internal/model"
    "github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

// TheatreHandler serves partner theatre management and admin approval.
type TheatreHandler struct {
    Theatres *repository.TheatreRepo
    Log      *zap.Logger
}

func NewTheatreHandler(theatres *repository.TheatreRepo, log *zap.Logger) *TheatreHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &TheatreHandler{Theatres: theatres, Log: log}
}

type theatreReq struct {
    Name    string `json:"name" validate:"required"`
    Address string `json:"address" validate:"required"`
    Phone   string `json:"phone" validate:"required"`
    Email   string `json:"email" validate:"required,email"`
}

// AddTheatre handles POST /api/theatres/add-theatre.  The theatre is owned
// by the calling partner and stays inactive until an admin approves it.
func (h *TheatreHandler) AddTheatre(c echo.Context) error {
    var req theatreReq
    if msg, ok := bindValid(c, &req); !ok {
        return fail(c, http.StatusBadRequest, msg)
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    t := &model.Theatre{
        Name:    strings.TrimSpace(req.Name),
        Address: req.Address,
        Phone:   req.Phone,
        Email:   req.Email,
        OwnerID: middleware.UserID(c),
    }
    if err := h.Theatres.Create(ctx, t); err != nil {
        return serverError(c, err)
    }
    return respond(c, http.StatusCreated, "Theatre added, awaiting admin approval", t)
}

// ListAll handles GET /api/theatres/get-all-theatres (admin).
func (h *TheatreHandler) ListAll(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    list, err := h.Theatres.ListAll(ctx)
    if err != nil {
        return serverError(c, err)
    }
    return respond(c, http.StatusOK, "All theatres fetched successfully", list)
}

// ListMine handles GET /api/theatres/get-all-theatres-by-owner (partner).
func (h *TheatreHandler) ListMine(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    list, err := h.Theatres.ListByOwner(ctx, middleware.UserID(c))
    if err != nil {
        return serverError(c, err)
    }
    return respond(c, http.StatusOK, "Theatres fetched successfully", list)
}

type theatreUpdateReq struct {
    TheatreID string  `json:"theatreId" validate:"required"`
    Name      *string `json:"name"`
    Address   *string `json:"address"`
    Phone     *string `json:"phone"`
    Email     *string `json:"email" validate:"omitempty,email"`
    IsActive  *bool   `json:"isActive"`
}

// UpdateTheatre handles PUT /api/theatres/update-theatre.  Partners edit
// their own theatres; only admins may change isActive.
func (h *TheatreHandler) UpdateTheatre(c echo.Context) error {
    var req theatreUpdateReq
    if msg, ok := bindValid(c, &req); !ok {
        return fail(c, http.StatusBadRequest, msg)
    }
    role := middleware.Role(c)
    if req.IsActive != nil && role != model.RoleAdmin {
        return fail(c, http.StatusForbidden, "Only admins can change theatre status")
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    t, err := h.Theatres.GetByID(ctx, req.TheatreID)
    if err != nil {
        return h.theatreError(c, err)
    }
    if role != model.RoleAdmin && t.OwnerID != middleware.UserID(c) {
        return fail(c, http.StatusForbidden, "You are not allowed to perform this action")
    }
    if req.Name != nil {
        if strings.TrimSpace(*req.Name) == "" {
            return fail(c, http.StatusBadRequest, "name cannot be empty")
        }
        t.Name = strings.TrimSpace(*req.Name)
    }
    if req.Address != nil {
        t.Address = *req.Address
    }
    if req.Phone != nil {
        t.Phone = *req.Phone
    }
    if req.Email != nil {
        t.Email = *req.Email
    }
    if req.IsActive != nil {
        t.IsActive = *req.IsActive
    }
    if err := h.Theatres.Update(ctx, t); err != nil {
        return h.theatreError(c, err)
    }
    if req.IsActive != nil {
        h.Log.Info("theatre status changed", zap.String("theatre_id", t.ID), zap.Bool("active", t.IsActive))
    }
    return respond(c, http.StatusOK, "Theatre updated successfully", t)
}

// DeleteTheatre handles DELETE /api/theatres/delete-theatre/:theatreId.
func (h *TheatreHandler) DeleteTheatre(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    t, err := h.Theatres.GetByID(ctx, c.Param("theatreId"))
    if err != nil {
        return h.theatreError(c, err)
    }
    if middleware.Role(c) != model.RoleAdmin && t.OwnerID != middleware.UserID(c) {
        return fail(c, http.StatusForbidden, "You are not allowed to perform this action")
    }
    if err := h.Theatres.Delete(ctx, t.ID); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return fail(c, http.StatusConflict, "Cannot delete a theatre that has bookings")
        }
        return h.theatreError(c, err)
    }
    return respond(c, http.StatusOK, "Theatre deleted successfully", nil)
}

func (h *TheatreHandler) theatreError(c echo.Context, err error) error {
    if errors.Is(err, repository.ErrTheatreNotFound) {
        return fail(c, http.StatusNotFound, "Theatre not found")
    }
    return serverError(c, err)
}
