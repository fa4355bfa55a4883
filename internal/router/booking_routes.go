package router

import "github.com/iliyamo/cinema-ticket-booking/internal/handler"

// bookings registers /api/bookings.  The webhook is authenticated by its
// signature header instead of a bearer token.
func (r routes) bookings(h *handler.BookingHandler) {
	g := r.api.Group("/bookings")
	g.POST("/make-payment", h.MakePayment, r.auth, r.sensitive)
	g.POST("/book-show", h.BookShow, r.auth, r.sensitive)
	g.GET("/get-all-bookings", h.ListBookings, r.auth)
	g.POST("/webhook", h.Webhook)
}
