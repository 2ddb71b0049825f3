package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/doorlist/event-admission/internal/repository"
)

// EventHandler serves read-only event lookups.  Events are owned by an
// external catalog; this service only mirrors the columns it needs.
type EventHandler struct {
	Events *repository.EventRepo
}

func NewEventHandler(events *repository.EventRepo) *EventHandler {
	if events == nil {
		panic("nil repository passed to NewEventHandler")
	}
	return &EventHandler{Events: events}
}

// GetEvent handles GET /v1/events/:id.  The QR seed stays server-side.
func (h *EventHandler) GetEvent(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, c.Param("id"))
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"event": echo.Map{
		"id":            ev.ID,
		"fraternity_id": ev.FraternityID,
		"name":          ev.Name,
		"visibility":    ev.Visibility,
		"latitude":      ev.Latitude,
		"longitude":     ev.Longitude,
		"created_at":    ev.CreatedAt,
	}})
}
