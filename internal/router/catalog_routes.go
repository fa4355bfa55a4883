package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticket-booking/internal/handler"
	"github.com/iliyamo/cinema-ticket-booking/internal/middleware"
	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// movies registers /api/movies.  Reads are public and cached; admin writes
// purge the cache.
func (r routes) movies(h *handler.MovieHandler, cache, purge echo.MiddlewareFunc) {
	g := r.api.Group("/movies")
	g.GET("/get-all-movies", h.ListMovies, cache)
	g.GET("/get-movie/:id", h.GetMovie, cache)
	g.GET("/search-movies", h.SearchMovies, cache)

	admin := []echo.MiddlewareFunc{r.auth, middleware.RequireRole(model.RoleAdmin), purge}
	g.POST("/add-movie", h.AddMovie, admin...)
	g.PUT("/update-movie", h.UpdateMovie, admin...)
	g.POST("/delete-movie", h.DeleteMovie, admin...)
}

// theatres registers /api/theatres.  Every route needs a login.
func (r routes) theatres(h *handler.TheatreHandler) {
	g := r.api.Group("/theatres", r.auth)
	partner := middleware.RequireRole(model.RolePartner)
	admin := middleware.RequireRole(model.RoleAdmin)
	either := middleware.RequireRole(model.RolePartner, model.RoleAdmin)

	g.POST("/add-theatre", h.AddTheatre, partner)
	g.GET("/get-all-theatres", h.ListAll, admin)
	g.GET("/get-all-theatres-by-owner", h.ListMine, partner)
	g.PUT("/update-theatre", h.UpdateTheatre, either)
	g.DELETE("/delete-theatre/:theatreId", h.DeleteTheatre, either)
}

// shows registers /api/shows.  Browsing is public; management is for
// partners on their own theatres.
func (r routes) shows(h *handler.ShowHandler) {
	g := r.api.Group("/shows")
	g.POST("/get-all-theatres-by-movie", h.TheatresByMovie)
	g.GET("/get-show-by-id/:showId", h.GetShow)
	g.GET("/get-seat-availability/:showId", h.SeatAvailability)

	partner := []echo.MiddlewareFunc{r.auth, middleware.RequireRole(model.RolePartner)}
	g.POST("/add-show", h.AddShow, partner...)
	g.POST("/add-recurring-shows", h.AddRecurringShows, partner...)
	g.PUT("/update-show", h.UpdateShow, partner...)
	g.DELETE("/delete-show/:showId", h.DeleteShow, partner...)
	g.GET("/get-all-shows-by-theatre/:theatreId", h.ListByTheatre,
		r.auth, middleware.RequireRole(model.RolePartner, model.RoleAdmin))
}
