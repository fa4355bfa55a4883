// Package access answers which client routes a role may open.  The SPA asks
// this once through /api/users/can-access instead of repeating the rules in
// each guarded view.
package access

import (
	"strings"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

var allowed = map[string][]string{
	model.RoleUser:    {"/", "/movie", "/profile", "/book-show"},
	model.RolePartner: {"/", "/partner"},
	model.RoleAdmin:   {"/", "/admin"},
}

var home = map[string]string{
	model.RoleUser:    "/",
	model.RolePartner: "/partner",
	model.RoleAdmin:   "/admin",
}

// PathAllowed reports whether role may open path.  A prefix matches only on
// a segment boundary, and "/" matches the root alone.
func PathAllowed(role, path string) bool {
	path = normalize(path)
	for _, p := range allowed[role] {
		if p == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// HomePath is where a role lands after login or a denied navigation.
// Unknown roles go to the login page.
func HomePath(role string) string {
	if h, ok := home[role]; ok {
		return h
	}
	return "/login"
}

func normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
