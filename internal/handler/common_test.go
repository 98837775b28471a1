package handler

import (
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/encorehq/encore/internal/queue"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    rec := httptest.NewRecorder()
    return e.NewContext(req, rec), rec
}

func TestClaimUint64Conversions(t *testing.T) {
    cases := []struct {
        name  string
        value interface{}
        want  uint64
        ok    bool
    }{
        {"float64", float64(42), 42, true},
        {"uint64", uint64(7), 7, true},
        {"int64", int64(9), 9, true},
        {"negative float64", float64(-1), 0, false},
        {"string", "42", 0, false},
        {"missing", nil, 0, false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            c, _ := newTestContext(t)
            if tc.value != nil {
                c.Set("subject_id", tc.value)
            }
            got, err := getSubjectID(c)
            if tc.ok {
                require.NoError(t, err)
                assert.Equal(t, tc.want, got)
            } else {
                assert.ErrorIs(t, err, errNoClaim)
            }
        })
    }
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
    t.Helper()
    var body map[string]interface{}
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    return body
}

func TestWriteQueueErrorCooldown(t *testing.T) {
    c, rec := newTestContext(t)
    err := writeQueueError(c, &queue.AdmissionError{
        Reason:     queue.ReasonCooldownActive,
        RetryAfter: 42*time.Second + 300*time.Millisecond,
    })
    require.NoError(t, err)

    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.Equal(t, "43", rec.Header().Get("Retry-After")) // rounded up
    body := decodeBody(t, rec)
    assert.Equal(t, queue.ReasonCooldownActive, body["code"])
    assert.Equal(t, float64(43), body["retry_after"])
}

func TestWriteQueueErrorLimitReached(t *testing.T) {
    c, rec := newTestContext(t)
    err := writeQueueError(c, &queue.AdmissionError{Reason: queue.ReasonLimitReached})
    require.NoError(t, err)

    assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
    body := decodeBody(t, rec)
    assert.Equal(t, queue.ReasonLimitReached, body["code"])
    assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestWriteQueueErrorIllegalTransition(t *testing.T) {
    c, rec := newTestContext(t)
    err := writeQueueError(c, &queue.TransitionError{From: "COMPLETED", To: "QUEUED"})
    require.NoError(t, err)

    assert.Equal(t, http.StatusConflict, rec.Code)
    body := decodeBody(t, rec)
    assert.Equal(t, "ILLEGAL_TRANSITION", body["code"])
    assert.Contains(t, body["error"], "COMPLETED -> QUEUED")
}

func TestWriteQueueErrorSentinels(t *testing.T) {
    cases := []struct {
        name   string
        err    error
        status int
    }{
        {"not found", queue.ErrNotFound, http.StatusNotFound},
        {"forbidden", queue.ErrForbidden, http.StatusForbidden},
        {"reorder conflict", queue.ErrReorderConflict, http.StatusConflict},
        {"invalid song ref", queue.ErrInvalidSongRef, http.StatusBadRequest},
        {"store unavailable", queue.ErrStoreUnavailable, http.StatusServiceUnavailable},
        {"wrapped store unavailable", fmt.Errorf("%w: dial tcp: connection refused", queue.ErrStoreUnavailable), http.StatusServiceUnavailable},
        {"unknown", errors.New("boom"), http.StatusInternalServerError},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            c, rec := newTestContext(t)
            require.NoError(t, writeQueueError(c, tc.err))
            assert.Equal(t, tc.status, rec.Code)
        })
    }
}
