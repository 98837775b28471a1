package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/encorehq/encore/internal/queue"
    "github.com/encorehq/encore/internal/repository"
)

// PublicHandler serves the unauthenticated read surface used by display
// clients and by guests before they join: the queue snapshot and the
// current display configuration.  Clients load a snapshot first and then
// subscribe to the event channel for incremental updates.
type PublicHandler struct {
    Engine *queue.Engine
    Events *repository.EventRepo
}

// NewPublicHandler constructs a PublicHandler.  Both dependencies must
// be non-nil.
func NewPublicHandler(engine *queue.Engine, events *repository.EventRepo) *PublicHandler {
    if engine == nil || events == nil {
        panic("nil dependency passed to NewPublicHandler")
    }
    return &PublicHandler{Engine: engine, Events: events}
}

// Snapshot handles GET /v1/events/:id/queue.  It returns the performer
// on stage, the called-up guest and the upcoming line in order.  History
// (completed, no-show, cancelled) never appears here.
func (h *PublicHandler) Snapshot(c echo.Context) error {
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
    snap, err := h.Engine.Snapshot(c.Request().Context(), eventID)
    if err != nil {
        return writeQueueError(c, err)
    }
    return c.JSON(http.StatusOK, snapshotBody(snap))
}

// Display handles GET /v1/events/:id/display.  Projector clients load
// this once on startup and then follow display messages on the event
// channel.
func (h *PublicHandler) Display(c echo.Context) error {
    eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || eventID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ev, err := h.Events.GetByID(c.Request().Context(), eventID)
    if err != nil {
        if err == repository.ErrEventNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "mode":   ev.DisplayMode,
        "layout": ev.DisplayLayout,
    })
}

// snapshotBody converts an engine snapshot into its JSON shape.  The
// on-stage and called slots are null when empty; upcoming is always an
// array, never null.
func snapshotBody(snap *queue.Snapshot) echo.Map {
    body := echo.Map{"total": snap.Total}
    if snap.OnStage != nil {
        body["on_stage"] = queue.NewRequestPayload(snap.OnStage)
    } else {
        body["on_stage"] = nil
    }
    if snap.Called != nil {
        body["called"] = queue.NewRequestPayload(snap.Called)
    } else {
        body["called"] = nil
    }
    upcoming := make([]queue.RequestPayload, 0, len(snap.Upcoming))
    for i := range snap.Upcoming {
        upcoming = append(upcoming, queue.NewRequestPayload(&snap.Upcoming[i]))
    }
    body["upcoming"] = upcoming
    return body
}
