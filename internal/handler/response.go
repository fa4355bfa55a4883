package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// envelope is the body shape of every JSON response.
type envelope struct {
    Success bool   `json:"success"`
    Message string `json:"message,omitempty"`
    Data    any    `json:"data,omitempty"`
}

func respond(c echo.Context, status int, msg string, data any) error {
    return c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}

func fail(c echo.Context, status int, msg string) error {
    return c.JSON(status, envelope{Success: false, Message: msg})
}

// serverError reports err's text with a 500, the way clients expect it.
func serverError(c echo.Context, err error) error {
    return fail(c, http.StatusInternalServerError, err.Error())
}

// requestTimeout bounds each handler's DB and network work.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}
