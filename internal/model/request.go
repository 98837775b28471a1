package model

import "time"

// Request status values. A request is "active" while it is QUEUED or
// CALLED; only active requests carry a meaningful queue position.
const (
    StatusQueued    = "QUEUED"
    StatusCalled    = "CALLED"
    StatusOnStage   = "ON_STAGE"
    StatusCompleted = "COMPLETED"
    StatusNoShow    = "NO_SHOW"
    StatusCancelled = "CANCELLED"
)

// ActiveStatuses lists the statuses that make up the active set of an
// event's queue, in no particular order.
var ActiveStatuses = []string{StatusQueued, StatusCalled}

// IsActiveStatus reports whether a status belongs to the active set.
func IsActiveStatus(s string) bool {
    return s == StatusQueued || s == StatusCalled
}

// Request is one song submission by a guest at an event. Rows are never
// hard-deleted; cancellation is a status change so history stays
// queryable.
//
// Fields:
//  ID            – primary key identifier.
//  EventID       – owning event; all queue invariants are scoped to it.
//  GuestID       – guest who submitted the request.
//  CatalogSongID – optional reference into the song catalog.
//  VideoID       – optional external karaoke video identifier.
//  Title         – resolved song title (always non-empty).
//  Artist        – resolved artist name, when known.
//  Status        – lifecycle status (see constants above).
//  TurnNumber    – per-event monotonic turn number, assigned once at
//                  creation and never reused.
//  QueuePosition – dense 1..N rank within the event's active set;
//                  stale for rows outside the active set.
//  CreatedAt     – creation timestamp.
//  CalledAt      – set the first time the request enters CALLED.
type Request struct {
    ID            uint64     // requests.id
    EventID       uint64     // requests.event_id
    GuestID       uint64     // requests.guest_id
    CatalogSongID *uint64    // requests.catalog_song_id (nullable)
    VideoID       *string    // requests.video_id (nullable)
    Title         string     // requests.title
    Artist        *string    // requests.artist (nullable)
    Status        string     // requests.status
    TurnNumber    int        // requests.turn_number
    QueuePosition int        // requests.queue_position
    CreatedAt     time.Time  // requests.created_at
    CalledAt      *time.Time // requests.called_at (nullable)
}

// IsActive reports whether the request currently belongs to the active set.
func (r *Request) IsActive() bool { return IsActiveStatus(r.Status) }
