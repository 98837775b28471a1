package handler

import (
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/encorehq/encore/internal/config"
    "github.com/encorehq/encore/internal/model"
    "github.com/encorehq/encore/internal/repository"
    "github.com/encorehq/encore/internal/utils"
)

// AuthHandler issues access tokens for the two caller kinds: guests who
// join with an event's public join code, and the operator dashboard
// which logs in with the event's secret code.  Guests are deliberately
// anonymous; a device keeps its guest identity across reconnects by
// replaying the public_id it received on first join.
type AuthHandler struct {
    Events *repository.EventRepo
    Guests *repository.GuestRepo
    Cfg    config.Config
}

// NewAuthHandler constructs an AuthHandler.  All dependencies must be
// non-nil.
func NewAuthHandler(events *repository.EventRepo, guests *repository.GuestRepo, cfg config.Config) *AuthHandler {
    if events == nil || guests == nil {
        panic("nil repository passed to NewAuthHandler")
    }
    return &AuthHandler{Events: events, Guests: guests, Cfg: cfg}
}

// GuestJoin handles POST /v1/auth/join.  The body carries the event's
// join code plus either a display name (first join) or the public_id
// returned by an earlier join (reconnect).  On success it returns a
// GUEST access token scoped to the event.
func (h *AuthHandler) GuestJoin(c echo.Context) error {
    var body struct {
        JoinCode string `json:"join_code"`
        Name     string `json:"name"`
        PublicID string `json:"public_id"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    body.JoinCode = strings.TrimSpace(body.JoinCode)
    if body.JoinCode == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "join_code is required"})
    }

    ctx := c.Request().Context()
    ev, err := h.Events.GetByJoinCode(ctx, body.JoinCode)
    if err != nil {
        if err == repository.ErrEventNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    var guest *model.Guest
    if body.PublicID != "" {
        g, err := h.Guests.GetByPublicID(ctx, ev.ID, strings.TrimSpace(body.PublicID))
        if err != nil {
            if err == repository.ErrGuestNotFound {
                return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown guest identity for this event"})
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
        guest = g
    } else {
        name := strings.TrimSpace(body.Name)
        if name == "" {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required on first join"})
        }
        g, err := h.Guests.Create(ctx, ev.ID, name)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create guest"})
        }
        guest = g
    }

    tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, guest.ID, ev.ID, utils.RoleGuest, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to sign token"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access_token": tok.Token,
        "expires_at":   tok.Exp.Format(time.RFC3339),
        "guest": echo.Map{
            "public_id": guest.PublicID,
            "name":      guest.Name,
        },
        "event": echo.Map{
            "id":   ev.ID,
            "name": ev.Name,
        },
    })
}

// OperatorLogin handles POST /v1/auth/operator.  The operator proves
// control of an event with its secret code, which is stored as a bcrypt
// hash.  A wrong code and an unknown event both yield 401 so the
// endpoint does not confirm which events exist.
func (h *AuthHandler) OperatorLogin(c echo.Context) error {
    var body struct {
        EventID uint64 `json:"event_id"`
        Code    string `json:"code"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.EventID == 0 || body.Code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id and code are required"})
    }

    ctx := c.Request().Context()
    ev, err := h.Events.GetByID(ctx, body.EventID)
    if err != nil {
        if err == repository.ErrEventNotFound {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !utils.VerifyOperatorCode(ev.OperatorCodeHash, body.Code) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, ev.ID, ev.ID, utils.RoleOperator, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to sign token"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access_token": tok.Token,
        "expires_at":   tok.Exp.Format(time.RFC3339),
        "event": echo.Map{
            "id":   ev.ID,
            "name": ev.Name,
        },
    })
}
