package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireRole returns a middleware that only lets through users whose
// "role" claim is one of roles.  It must run after JWTAuth.  Everyone else
// gets 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !allowed[Role(c)] {
                return fail(c, http.StatusForbidden, "You are not allowed to perform this action")
            }
            return next(c)
        }
    }
}
