package router

import "github.com/iliyamo/cinema-ticket-booking/internal/handler"

// users registers /api/users.  Credential endpoints use the tighter bucket.
func (r routes) users(h *handler.UserHandler) {
	g := r.api.Group("/users")
	g.POST("/register", h.Register, r.sensitive)
	g.POST("/login", h.Login, r.sensitive)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.PATCH("/forgetpassword", h.ForgetPassword, r.sensitive)
	g.PATCH("/resetpassword/:email", h.ResetPassword, r.sensitive)

	g.GET("/get-current-user", h.CurrentUser, r.auth)
	g.POST("/update-profile", h.UpdateProfile, r.auth)
	g.GET("/can-access", h.CanAccess, r.auth)
}
