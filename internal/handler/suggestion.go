package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/encorehq/encore/internal/suggest"
)

// SuggestionHandler serves ranked song suggestions for the "what should
// I sing" view.  The ranked list is personalized when the caller is an
// authenticated guest and falls back to event popularity for anonymous
// calls.
type SuggestionHandler struct {
    Ranker *suggest.Ranker
}

// NewSuggestionHandler constructs a SuggestionHandler.
func NewSuggestionHandler(ranker *suggest.Ranker) *SuggestionHandler {
    if ranker == nil {
        panic("nil ranker passed to NewSuggestionHandler")
    }
    return &SuggestionHandler{Ranker: ranker}
}

const (
    defaultSuggestionLimit = 10
    maxSuggestionLimit     = 50
)

// List handles GET /v1/suggestions.  The guest and event come from the
// token; ?limit= caps the result size.
func (h *SuggestionHandler) List(c echo.Context) error {
    guestID, err := getSubjectID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, err := getEventID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    limit := defaultSuggestionLimit
    if raw := c.QueryParam("limit"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil || n < 1 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
        }
        if n > maxSuggestionLimit {
            n = maxSuggestionLimit
        }
        limit = n
    }

    items, err := h.Ranker.Suggest(c.Request().Context(), eventID, guestID, limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute suggestions"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
