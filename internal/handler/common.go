package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/doorlist/event-admission/internal/ledger"
)

// getUserID extracts the authenticated user's id from echo.Context.  The
// JWT middleware stores it as a string UUID; anything else means the
// middleware did not run.
func getUserID(c echo.Context) (string, error) {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("missing user_id in context")
}

// ledgerError maps a ledger failure onto an HTTP response.  The body
// always carries the machine-readable code next to the message, and the
// scan mismatch reason when one is present, so door clients can branch
// without parsing prose.
func ledgerError(c echo.Context, err error) error {
	var status int
	switch ledger.CodeOf(err) {
	case ledger.CodeNotAuthorized:
		status = http.StatusForbidden
	case ledger.CodeNotFound:
		status = http.StatusNotFound
	case ledger.CodeInvalidPayload, ledger.CodeValidationError:
		status = http.StatusBadRequest
	case ledger.CodePreconditionFailed:
		status = http.StatusConflict
	default:
		status = http.StatusServiceUnavailable
	}
	body := echo.Map{"error": err.Error(), "code": ledger.CodeOf(err)}
	var le *ledger.Error
	if errors.As(err, &le) && le.Reason != "" {
		body["reason"] = le.Reason
	}
	return c.JSON(status, body)
}
