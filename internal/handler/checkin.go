package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/doorlist/event-admission/internal/ledger"
	"github.com/doorlist/event-admission/internal/model"
)

// CheckinHandler exposes door operations over HTTP.  The caller is always
// the admin working the door; the guest being admitted arrives in the
// request body.
type CheckinHandler struct {
	Ledger *ledger.CheckinLedger
}

func NewCheckinHandler(l *ledger.CheckinLedger) *CheckinHandler {
	if l == nil {
		panic("nil ledger passed to NewCheckinHandler")
	}
	return &CheckinHandler{Ledger: l}
}

// checkinPart is the wire shape of a check-in record.
type checkinPart struct {
	ID           string     `json:"id"`
	EventID      string     `json:"event_id"`
	UserID       string     `json:"user_id"`
	IsCheckedIn  bool       `json:"is_checked_in"`
	EntryMethod  string     `json:"entry_method"`
	CheckedInAt  time.Time  `json:"checked_in_at"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
}

func toCheckinPart(r *model.CheckinRecord) checkinPart {
	return checkinPart{
		ID:           r.ID,
		EventID:      r.EventID,
		UserID:       r.UserID,
		IsCheckedIn:  r.IsCheckedIn,
		EntryMethod:  r.EntryMethod,
		CheckedInAt:  r.CheckedInAt,
		CheckedOutAt: r.CheckedOutAt,
	}
}

type checkInReq struct {
	UserID  string `json:"user_id"`
	Payload string `json:"payload"`
}

// CheckIn handles POST /v1/events/:id/check-ins.  With a payload the scan
// is validated against the guest; without one the check-in is a manual
// override by the door admin.
func (h *CheckinHandler) CheckIn(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body checkInReq
	if err := c.Bind(&body); err != nil || body.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var rec *model.CheckinRecord
	if body.Payload == "" {
		rec, err = h.Ledger.CheckInManual(ctx, c.Param("id"), body.UserID, adminID)
	} else {
		rec, err = h.Ledger.CheckIn(ctx, c.Param("id"), body.UserID, body.Payload, adminID)
	}
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"checkin": toCheckinPart(rec)})
}

type checkOutReq struct {
	UserID string `json:"user_id"`
}

// CheckOut handles POST /v1/events/:id/check-outs.
func (h *CheckinHandler) CheckOut(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body checkOutReq
	if err := c.Bind(&body); err != nil || body.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Ledger.CheckOut(ctx, c.Param("id"), body.UserID, adminID)
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"checkin": toCheckinPart(rec)})
}

// ListActive handles GET /v1/events/:id/check-ins/active.  Admins only.
func (h *CheckinHandler) ListActive(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Ledger.ListActive(ctx, c.Param("id"), adminID)
	if err != nil {
		return ledgerError(c, err)
	}
	out := make([]checkinPart, 0, len(list))
	for i := range list {
		out = append(out, toCheckinPart(&list[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"checkins": out})
}
