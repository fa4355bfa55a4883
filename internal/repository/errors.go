// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios.
package repository

import (
	"errors"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as deleting a show
// that already has bookings. Handlers translate this into 409.
var ErrConflict = errors.New("conflict")

// ErrVersionConflict is returned by compare-and-swap writes when the row
// changed between read and write.  Callers re-read and retry.
var ErrVersionConflict = errors.New("version conflict")

// isDuplicate reports whether err is a unique-key violation from MySQL
// (error 1062) or SQLite.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint")
}
