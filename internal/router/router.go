package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/handler"
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth, the profile endpoint
// under /v1 behind the JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts either a bearer token (revoke all sessions) or a
	// refresh_token body (revoke one session); no JWT middleware here.
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterBookings registers the reservation flow.  Reserving,
// cancelling, paying and listing one's own bookings are open to every
// authenticated role; the full booking ledger is admin only.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "STAFF", "CUSTOMER"),
	)
	g.POST("/bookings", h.Reserve)
	g.GET("/my-bookings", h.ListMine)
	g.GET("/bookings/:id", h.Get)
	g.PATCH("/bookings/:id/cancel", h.Cancel)
	g.PATCH("/bookings/:id/payment", h.CompletePayment)

	admin := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	admin.GET("/bookings", h.ListAll)
}

// RegisterTrips registers trip schedule management and the ledger read
// paths.  Listing, seat maps and search are open to all authenticated
// roles; schedule mutation is admin only; manifest views are for staff
// and admins.  The optional cache middleware is applied to the search
// endpoint only — seat maps must always reflect current ledger state.
func RegisterTrips(e *echo.Echo, h *handler.TripHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "STAFF", "CUSTOMER"),
	)
	g.GET("/trips", h.List)
	if cache != nil {
		g.GET("/trips/search", h.Search, cache)
	} else {
		g.GET("/trips/search", h.Search)
	}
	g.GET("/trips/:id", h.Get)
	g.GET("/trips/:id/seats", h.SeatMap)

	staff := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "STAFF"),
	)
	staff.GET("/trips/day", h.DayManifest)
	staff.GET("/trips/reserved-seats", h.ReservedSeats)

	admin := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	admin.POST("/trips", h.Create)
	admin.PUT("/buses/:busId/trips/:tripId", h.Update)
	admin.DELETE("/buses/:busId/trips/:tripId", h.Delete)
}

// RegisterFleet registers bus, route and employee management.  Reads
// are open to authenticated users so customers can browse routes and
// the fleet; mutation is admin only.  Route browsing takes the cache
// middleware — route data changes rarely and carries no seat state.
func RegisterFleet(e *echo.Echo, buses *handler.BusHandler, routes *handler.RouteHandler, employees *handler.EmployeeHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "STAFF", "CUSTOMER"),
	)
	g.GET("/buses", buses.List)
	g.GET("/buses/:id", buses.Get)
	if cache != nil {
		g.GET("/routes", routes.List, cache)
	} else {
		g.GET("/routes", routes.List)
	}
	g.GET("/routes/:id", routes.Get)

	admin := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	admin.POST("/buses", buses.Create)
	admin.PUT("/buses/:id", buses.Update)
	admin.DELETE("/buses/:id", buses.Delete)

	admin.POST("/routes", routes.Create)
	admin.PUT("/routes/:id", routes.Update)
	admin.DELETE("/routes/:id", routes.Delete)

	admin.POST("/employees", employees.Create)
	admin.GET("/employees", employees.List)
	admin.GET("/employees/:id", employees.Get)
	admin.PUT("/employees/:id", employees.Update)
	admin.DELETE("/employees/:id", employees.Delete)
}

// RegisterUsers registers admin account management.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, jwtSecret string) {
	admin := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	admin.GET("/users", h.List)
	admin.GET("/users/:id", h.Get)
	admin.PUT("/users/:id", h.Update)
	admin.DELETE("/users/:id", h.Delete)
}
