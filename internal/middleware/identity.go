package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequireUser enforces that JWTAuth ran and produced a well-formed user
// UUID.  It exists so handlers can assume the "user_id" context value is
// a valid identifier instead of re-checking its shape on every route.
// Requests with a missing or malformed subject are rejected with 401.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v := c.Get("user_id")
			s, ok := v.(string)
			if !ok || uuid.Validate(s) != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			return next(c)
		}
	}
}
