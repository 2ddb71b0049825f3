// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/doorlist/event-admission/internal/handler"
	"github.com/doorlist/event-admission/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth endpoints.  Unauthenticated operations
// live under /v1/auth; /v1/me demonstrates the protected group.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout stays outside the JWT middleware: a refresh token in the
	// body is enough to end a single session.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireUser())
	auth.GET("/me", a.Me)
}

// RegisterAdmission registers the admission and door endpoints on a
// protected group.  scanLimit applies only to the door scan routes, where
// a stuck client or misbehaving scanner can hammer the same pair.
func RegisterAdmission(e *echo.Echo, ev *handler.EventHandler, ad *handler.AdmissionHandler, ch *handler.CheckinHandler, jwtSecret string, scanLimit echo.MiddlewareFunc) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireUser())

	auth.GET("/events/:id", ev.GetEvent)

	// Admission request lifecycle.
	auth.POST("/events/:id/admission-requests", ad.RequestAdmission)
	auth.GET("/events/:id/admission-requests", ad.ListRequests)
	auth.POST("/admission-requests/:id/approve", ad.Approve)
	auth.POST("/admission-requests/:id/deny", ad.Deny)
	auth.POST("/admission-requests/bulk-approve", ad.BulkApprove)
	auth.POST("/admission-requests/bulk-deny", ad.BulkDeny)

	// Guest list.
	auth.GET("/events/:id/guest-list", ad.ListGuestList)
	auth.POST("/events/:id/guest-list", ad.ManualAdd)

	// Door operations.
	if scanLimit != nil {
		auth.POST("/events/:id/check-ins", ch.CheckIn, scanLimit)
		auth.POST("/events/:id/check-outs", ch.CheckOut, scanLimit)
	} else {
		auth.POST("/events/:id/check-ins", ch.CheckIn)
		auth.POST("/events/:id/check-outs", ch.CheckOut)
	}
	auth.GET("/events/:id/check-ins/active", ch.ListActive)
}
