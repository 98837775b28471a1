// Package queue implements the karaoke request queue engine: admission,
// turn and position allocation, the request lifecycle state machine,
// conflict-checked reordering and the real-time fanout contract. All
// mutations of one event's queue are serialized behind a per-event lock
// so that subscribers never observe a torn or duplicated queue state.
package queue

import (
    "errors"
    "fmt"
    "time"
)

// Admission rejection reasons. They are returned verbatim to clients so
// the guest UI can render a plain-language explanation.
const (
    ReasonCooldownActive = "COOLDOWN_ACTIVE"
    ReasonLimitReached   = "LIMIT_REACHED"
)

// ErrNotFound is returned when a request ID does not exist.
var ErrNotFound = errors.New("request not found")

// ErrForbidden is returned when a guest tries to mutate a request they
// do not own. Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrReorderConflict is returned when an operator-submitted ordering no
// longer matches the live active set. It is expected under concurrency;
// callers must refetch the queue and may retry.
var ErrReorderConflict = errors.New("reorder conflict")

// ErrInvalidSongRef is returned when a submission carries no resolvable
// song title.
var ErrInvalidSongRef = errors.New("song reference must resolve to a title")

// ErrStoreUnavailable wraps transient persistence failures after the
// bounded retries at the store boundary have been exhausted.
var ErrStoreUnavailable = errors.New("store unavailable")

// AdmissionError reports why a submission was rejected before any state
// was written. RetryAfter is only set for cooldown rejections.
type AdmissionError struct {
    Reason     string        // COOLDOWN_ACTIVE or LIMIT_REACHED
    RetryAfter time.Duration // remaining cooldown, zero otherwise
}

func (e *AdmissionError) Error() string {
    if e.Reason == ReasonCooldownActive {
        return fmt.Sprintf("admission rejected: %s (retry in %s)", e.Reason, e.RetryAfter)
    }
    return fmt.Sprintf("admission rejected: %s", e.Reason)
}

// TransitionError reports an attempt to move a request along an edge
// that is not in the lifecycle table. The request is left unchanged.
type TransitionError struct {
    From string
    To   string
}

func (e *TransitionError) Error() string {
    return fmt.Sprintf("ILLEGAL_TRANSITION: %s -> %s", e.From, e.To)
}
