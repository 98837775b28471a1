package handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/encorehq/encore/internal/repository"
)

// CatalogHandler serves the song catalog: searching for something to
// sing and liking songs.  Likes feed the suggestion ranker's tie-breaks
// and give operators a read on crowd taste.
type CatalogHandler struct {
    Catalog *repository.CatalogRepo
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(catalog *repository.CatalogRepo) *CatalogHandler {
    if catalog == nil {
        panic("nil repository passed to NewCatalogHandler")
    }
    return &CatalogHandler{Catalog: catalog}
}

const (
    defaultSearchLimit = 25
    maxSearchLimit     = 100
)

// Search handles GET /v1/songs?q=...  Matches on title or artist.  An
// empty query returns the catalog's top songs by ranking.
func (h *CatalogHandler) Search(c echo.Context) error {
    term := strings.TrimSpace(c.QueryParam("q"))
    limit := defaultSearchLimit
    if raw := c.QueryParam("limit"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil || n < 1 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
        }
        if n > maxSearchLimit {
            n = maxSearchLimit
        }
        limit = n
    }

    songs, err := h.Catalog.Search(c.Request().Context(), term, limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": songs})
}

// ToggleLike handles POST /v1/songs/:id/like.  Calling it twice undoes
// the like; the response carries the new state and the running count.
func (h *CatalogHandler) ToggleLike(c echo.Context) error {
    guestID, err := getSubjectID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    songID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || songID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid song id"})
    }

    liked, likes, err := h.Catalog.ToggleLike(c.Request().Context(), guestID, songID)
    if err != nil {
        if err == repository.ErrSongNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "song not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"liked": liked, "likes": likes})
}
