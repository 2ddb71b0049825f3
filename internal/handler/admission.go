package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/doorlist/event-admission/internal/cache"
	"github.com/doorlist/event-admission/internal/ledger"
	"github.com/doorlist/event-admission/internal/model"
)

// AdmissionHandler exposes the admission-request lifecycle over HTTP.
// All methods assume JWT authentication ran; authorization beyond "is a
// valid user" lives in the ledger, which decides per event whether the
// caller administers the owning fraternity.
type AdmissionHandler struct {
	Ledger *ledger.AdmissionLedger
	Cache  *cache.GuestList
}

func NewAdmissionHandler(l *ledger.AdmissionLedger, gc *cache.GuestList) *AdmissionHandler {
	if l == nil {
		panic("nil ledger passed to NewAdmissionHandler")
	}
	return &AdmissionHandler{Ledger: l, Cache: gc}
}

// admissionPart is the wire shape of an admission request.
type admissionPart struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	UserID      string     `json:"user_id"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

func toAdmissionPart(r *model.AdmissionRequest) admissionPart {
	return admissionPart{
		ID:          r.ID,
		EventID:     r.EventID,
		UserID:      r.UserID,
		Status:      r.Status,
		RequestedAt: r.RequestedAt,
		RespondedAt: r.RespondedAt,
	}
}

func toAdmissionParts(list []model.AdmissionRequest) []admissionPart {
	out := make([]admissionPart, 0, len(list))
	for i := range list {
		out = append(out, toAdmissionPart(&list[i]))
	}
	return out
}

// RequestAdmission handles POST /v1/events/:id/admission-requests.  The
// authenticated caller requests admission for themselves.
func (h *AdmissionHandler) RequestAdmission(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	req, err := h.Ledger.RequestAdmission(ctx, c.Param("id"), userID)
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"request": toAdmissionPart(req)})
}

// ListRequests handles GET /v1/events/:id/admission-requests.  Admins
// only.  The optional ?status= query filters to one status.
func (h *AdmissionHandler) ListRequests(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Ledger.ListRequests(ctx, c.Param("id"), adminID, c.QueryParam("status"))
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": toAdmissionParts(list)})
}

// ListGuestList handles GET /v1/events/:id/guest-list.  Admins only.
// Reads go through the Redis cache; the gate still runs on every call so
// a cache hit cannot leak a list to a non-admin.
func (h *AdmissionHandler) ListGuestList(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Ledger.AuthorizeAdmin(ctx, eventID, adminID); err != nil {
		return ledgerError(c, err)
	}
	if h.Cache != nil {
		if list, ok := h.Cache.Get(ctx, eventID); ok {
			return c.JSON(http.StatusOK, echo.Map{"guests": toAdmissionParts(list), "cached": true})
		}
	}
	list, err := h.Ledger.ListApprovedGuests(ctx, eventID, adminID)
	if err != nil {
		return ledgerError(c, err)
	}
	if h.Cache != nil {
		h.Cache.Set(ctx, eventID, list)
	}
	return c.JSON(http.StatusOK, echo.Map{"guests": toAdmissionParts(list)})
}

// Approve handles POST /v1/admission-requests/:id/approve.
func (h *AdmissionHandler) Approve(c echo.Context) error {
	return h.resolve(c, h.Ledger.Approve)
}

// Deny handles POST /v1/admission-requests/:id/deny.
func (h *AdmissionHandler) Deny(c echo.Context) error {
	return h.resolve(c, h.Ledger.Deny)
}

func (h *AdmissionHandler) resolve(c echo.Context, op func(context.Context, string, string) (*model.AdmissionRequest, error)) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	req, err := op(ctx, c.Param("id"), adminID)
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"request": toAdmissionPart(req)})
}

type manualAddReq struct {
	UserID string `json:"user_id"`
}

// ManualAdd handles POST /v1/events/:id/guest-list.  An admin places a
// user directly on the guest list, bypassing the request flow.
func (h *AdmissionHandler) ManualAdd(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body manualAddReq
	if err := c.Bind(&body); err != nil || body.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	req, err := h.Ledger.ManuallyAdd(ctx, c.Param("id"), body.UserID, adminID)
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"request": toAdmissionPart(req)})
}

type bulkReq struct {
	RequestIDs []string `json:"request_ids"`
}

// BulkApprove handles POST /v1/admission-requests/bulk-approve.
func (h *AdmissionHandler) BulkApprove(c echo.Context) error {
	return h.bulk(c, h.Ledger.BulkApprove)
}

// BulkDeny handles POST /v1/admission-requests/bulk-deny.
func (h *AdmissionHandler) BulkDeny(c echo.Context) error {
	return h.bulk(c, h.Ledger.BulkDeny)
}

// bulk always answers 200: per-item outcomes, including failures, ride in
// the result body rather than the response status.
func (h *AdmissionHandler) bulk(c echo.Context, op func(context.Context, []string, string) *ledger.BulkResult) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body bulkReq
	if err := c.Bind(&body); err != nil || len(body.RequestIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "request_ids required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	return c.JSON(http.StatusOK, op(ctx, body.RequestIDs, adminID))
}
