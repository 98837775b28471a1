package handler

import (
    "errors"
    "math"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/encorehq/encore/internal/queue"
)

// errNoClaim is returned when a claim is missing from the request
// context, which means JWTAuth did not run or the token lacked it.
var errNoClaim = errors.New("claim missing from context")

// getSubjectID extracts the numeric subject from the context.  For GUEST
// tokens this is the guest ID; for OPERATOR tokens it is the event ID.
func getSubjectID(c echo.Context) (uint64, error) {
    return claimUint64(c, "subject_id")
}

// getEventID extracts the event scope of the caller's token.
func getEventID(c echo.Context) (uint64, error) {
    return claimUint64(c, "event_id")
}

// claimUint64 reads a context value stored by JWTAuth and converts it to
// uint64.  JSON numbers decode as float64, so both forms are accepted.
func claimUint64(c echo.Context, key string) (uint64, error) {
    switch v := c.Get(key).(type) {
    case float64:
        if v < 0 {
            return 0, errNoClaim
        }
        return uint64(v), nil
    case uint64:
        return v, nil
    case int64:
        if v < 0 {
            return 0, errNoClaim
        }
        return uint64(v), nil
    default:
        return 0, errNoClaim
    }
}

// writeQueueError maps engine errors onto HTTP responses.  Rejections
// carry a machine-readable "code" so clients can branch without parsing
// messages.
func writeQueueError(c echo.Context, err error) error {
    var adm *queue.AdmissionError
    if errors.As(err, &adm) {
        status := http.StatusUnprocessableEntity
        body := echo.Map{"error": "request rejected", "code": adm.Reason}
        if adm.Reason == queue.ReasonCooldownActive {
            status = http.StatusTooManyRequests
            secs := int(math.Ceil(adm.RetryAfter.Seconds()))
            if secs < 1 {
                secs = 1
            }
            body["retry_after"] = secs
            c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
        }
        return c.JSON(status, body)
    }
    var tr *queue.TransitionError
    if errors.As(err, &tr) {
        return c.JSON(http.StatusConflict, echo.Map{"error": tr.Error(), "code": "ILLEGAL_TRANSITION"})
    }
    switch {
    case errors.Is(err, queue.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
    case errors.Is(err, queue.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, queue.ErrReorderConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "queue changed since the order was computed", "code": "REORDER_CONFLICT"})
    case errors.Is(err, queue.ErrInvalidSongRef):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "a request needs either a catalog song or a video with a title"})
    case errors.Is(err, queue.ErrStoreUnavailable):
        // Retries at the store boundary are already exhausted here.
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable, try again"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
}
