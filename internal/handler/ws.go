package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/encorehq/encore/internal/repository"
    "github.com/encorehq/encore/internal/ws"
)

// WSHandler upgrades clients onto an event's fanout channel.  The
// channel is read-only from the client's side; operator, guest and
// display clients all consume the same ordered stream.
type WSHandler struct {
    Hub    *ws.Hub
    Events *repository.EventRepo
}

// NewWSHandler constructs a WSHandler.
func NewWSHandler(hub *ws.Hub, events *repository.EventRepo) *WSHandler {
    if hub == nil || events == nil {
        panic("nil dependency passed to NewWSHandler")
    }
    return &WSHandler{Hub: hub, Events: events}
}

// Subscribe handles GET /v1/events/:id/ws.  The event must exist; after
// the upgrade the connection receives every fanout message for the event
// until either side closes.
func (h *WSHandler) Subscribe(c echo.Context) error {
    eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || eventID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    if _, err := h.Events.GetByID(c.Request().Context(), eventID); err != nil {
        if err == repository.ErrEventNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    h.Hub.Serve(c.Response().Writer, c.Request(), eventID)
    return nil
}
