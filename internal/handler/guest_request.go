package handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/encorehq/encore/internal/queue"
    "github.com/encorehq/encore/internal/repository"
)

// GuestHandler covers everything an attendee does with their own
// requests: submitting a song, listing their submissions and pulling a
// request they no longer want to perform.  Authorization middleware has
// already confirmed the caller holds a GUEST token; the event scope is
// taken from the token, never from the request body, so a guest cannot
// submit into someone else's event.
type GuestHandler struct {
    Engine  *queue.Engine
    Events  *repository.EventRepo
    Catalog *repository.CatalogRepo
}

// NewGuestHandler constructs a GuestHandler.  Engine and Events must be
// non-nil; Catalog may be nil when the song catalog is not deployed, in
// which case only free-form video requests are accepted.
func NewGuestHandler(engine *queue.Engine, events *repository.EventRepo, catalog *repository.CatalogRepo) *GuestHandler {
    if engine == nil || events == nil {
        panic("nil dependency passed to NewGuestHandler")
    }
    return &GuestHandler{Engine: engine, Events: events, Catalog: catalog}
}

// Submit handles POST /v1/requests.  The body names a song either by
// catalog ID or by a free-form video reference with a title.  Catalog
// picks are resolved to their canonical title and artist before
// admission so the queue never depends on client-provided metadata for
// known songs.
func (h *GuestHandler) Submit(c echo.Context) error {
    guestID, err := getSubjectID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, err := getEventID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    var body struct {
        CatalogSongID *uint64 `json:"catalog_song_id"`
        VideoID       *string `json:"video_id"`
        Title         string  `json:"title"`
        Artist        *string `json:"artist"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }

    ctx := c.Request().Context()
    ev, err := h.Events.GetByID(ctx, eventID)
    if err != nil {
        if err == repository.ErrEventNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !ev.IsActive {
        return c.JSON(http.StatusConflict, echo.Map{"error": "event is closed"})
    }

    ref := queue.SongRef{
        VideoID: body.VideoID,
        Title:   strings.TrimSpace(body.Title),
        Artist:  body.Artist,
    }
    if body.CatalogSongID != nil && *body.CatalogSongID != 0 {
        if h.Catalog == nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "catalog is not available for this deployment"})
        }
        song, err := h.Catalog.GetByID(ctx, *body.CatalogSongID)
        if err != nil {
            if err == repository.ErrSongNotFound {
                return c.JSON(http.StatusNotFound, echo.Map{"error": "song not found"})
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
        ref.CatalogSongID = &song.ID
        ref.Title = song.Title
        ref.Artist = &song.Artist
    }

    pol := queue.Policy{
        CooldownSeconds:   ev.CooldownSeconds,
        MaxActivePerGuest: ev.MaxActivePerGuest,
    }
    req, err := h.Engine.Admit(ctx, eventID, guestID, ref, pol)
    if err != nil {
        return writeQueueError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"request": queue.NewRequestPayload(req)})
}

// ListMine handles GET /v1/requests.  It returns every submission the
// guest has made at this event, history included, newest first.
func (h *GuestHandler) ListMine(c echo.Context) error {
    guestID, err := getSubjectID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, err := getEventID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    reqs, err := h.Engine.RequestsByGuest(c.Request().Context(), eventID, guestID)
    if err != nil {
        return writeQueueError(c, err)
    }
    items := make([]queue.RequestPayload, 0, len(reqs))
    for i := range reqs {
        items = append(items, queue.NewRequestPayload(&reqs[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Cancel handles DELETE /v1/requests/:id.  A guest may only cancel their
// own request, and only while it is still waiting in QUEUED; from CALLED
// onward the operator owns the outcome (a called guest who walks away is
// marked NO_SHOW by the operator, not cancelled by the guest).
func (h *GuestHandler) Cancel(c echo.Context) error {
    guestID, err := getSubjectID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    reqID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || reqID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
    }

    if _, err := h.Engine.CancelByGuest(c.Request().Context(), reqID, guestID); err != nil {
        return writeQueueError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
