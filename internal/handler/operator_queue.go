package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/encorehq/encore/internal/model"
    "github.com/encorehq/encore/internal/queue"
    "github.com/encorehq/encore/internal/repository"
    "github.com/encorehq/encore/internal/ws"
)

// OperatorHandler exposes the dashboard's controls: walking requests
// through the status machine, rearranging the waiting line and driving
// the public display.  The OPERATOR token is scoped to one event, so
// every method resolves the event from the token, not the URL.
type OperatorHandler struct {
    Engine *queue.Engine
    Events *repository.EventRepo
    Hub    *ws.Hub
}

// NewOperatorHandler constructs an OperatorHandler.  Engine and Events
// must be non-nil; Hub may be nil in tests.
func NewOperatorHandler(engine *queue.Engine, events *repository.EventRepo, hub *ws.Hub) *OperatorHandler {
    if engine == nil || events == nil {
        panic("nil dependency passed to NewOperatorHandler")
    }
    return &OperatorHandler{Engine: engine, Events: events, Hub: hub}
}

// Transition handles POST /v1/operator/requests/:id/status.  The body
// carries the target status; the engine enforces legality and emits the
// fanout message, so this handler only translates errors.
func (h *OperatorHandler) Transition(c echo.Context) error {
    eventID, err := getEventID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    reqID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || reqID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
    }
    var body struct {
        Status string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if !queue.KnownStatus(body.Status) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
    }

    ctx := c.Request().Context()
    // The token scopes the operator to one event; refuse to move a
    // request that belongs to another one.
    existing, err := h.Engine.RequestByID(ctx, reqID)
    if err != nil {
        return writeQueueError(c, err)
    }
    if existing.EventID != eventID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }

    req, err := h.Engine.Transition(ctx, reqID, body.Status)
    if err != nil {
        return writeQueueError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"request": queue.NewRequestPayload(req)})
}

// Reorder handles PUT /v1/operator/queue/order.  The body must list
// every active request ID exactly once in the desired order; anything
// else means the dashboard's view is stale and the engine answers with
// a conflict so the operator reloads and retries.
func (h *OperatorHandler) Reorder(c echo.Context) error {
    eventID, err := getEventID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Order []uint64 `json:"order"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }

    active, err := h.Engine.Reorder(c.Request().Context(), eventID, body.Order)
    if err != nil {
        return writeQueueError(c, err)
    }
    items := make([]queue.RequestPayload, 0, len(active))
    for i := range active {
        items = append(items, queue.NewRequestPayload(&active[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Queue handles GET /v1/operator/queue.  Same snapshot the public
// endpoint serves; the dashboard additionally sees guest IDs because the
// payload always carries them.
func (h *OperatorHandler) Queue(c echo.Context) error {
    eventID, err := getEventID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    snap, err := h.Engine.Snapshot(c.Request().Context(), eventID)
    if err != nil {
        return writeQueueError(c, err)
    }
    return c.JSON(http.StatusOK, snapshotBody(snap))
}

// UpdateDisplay handles PUT /v1/operator/display.  It persists the new
// display mode and layout, then pushes a display message to every
// subscriber so projector screens switch without polling.
func (h *OperatorHandler) UpdateDisplay(c echo.Context) error {
    eventID, err := getEventID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Mode   string `json:"mode"`
        Layout string `json:"layout"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if !validDisplayMode(body.Mode) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown display mode"})
    }

    ctx := c.Request().Context()
    if err := h.Events.UpdateDisplay(ctx, eventID, body.Mode, body.Layout); err != nil {
        if err == repository.ErrEventNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if h.Hub != nil {
        h.Hub.Broadcast(eventID, echo.Map{
            "type":     "display",
            "event_id": eventID,
            "mode":     body.Mode,
            "layout":   body.Layout,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"mode": body.Mode, "layout": body.Layout})
}

func validDisplayMode(m string) bool {
    switch m {
    case model.DisplayModeQueue, model.DisplayModeBreak, model.DisplayModeStart, model.DisplayModePromo:
        return true
    }
    return false
}
