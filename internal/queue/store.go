package queue

import (
    "context"
    "time"

    "github.com/encorehq/encore/internal/model"
)

// SongRef is the validated song reference handed over by the submission
// boundary. At least the title must be non-empty; catalog and video IDs
// are optional and pass through untouched.
type SongRef struct {
    CatalogSongID *uint64
    VideoID       *string
    Title         string
    Artist        *string
}

// Policy carries the per-event admission limits. Handlers load it from
// the event record and pass it into Admit so the engine stays free of
// event CRUD concerns.
type Policy struct {
    CooldownSeconds   int // minimum seconds between admitted requests per guest
    MaxActivePerGuest int // cap on a guest's requests in QUEUED/CALLED/ON_STAGE
}

// GuestStats summarizes what the admission controller needs to know
// about one guest at one event.
type GuestStats struct {
    ActiveCount    int        // requests currently in QUEUED, CALLED or ON_STAGE
    LastAdmittedAt *time.Time // creation time of the guest's newest request
}

// Snapshot is the state a freshly connected client loads before applying
// live fanout messages. Upcoming is the active set in position order
// minus the surfaced called request; history never appears here.
type Snapshot struct {
    OnStage  *model.Request
    Called   *model.Request
    Upcoming []model.Request
    Total    int // size of the active set
}

// Store is the persistence boundary of the queue engine. Each method is
// a single atomic unit; multi-row mutations (insert with allocation,
// transition with recompaction, reorder) must commit or fail as a whole
// so no partially applied queue state is ever readable. Cross-call
// consistency is provided by the engine's per-event serialization.
type Store interface {
    // CreateRequest persists a new request and allocates its identity:
    // the next monotonic turn number for the event and the position at
    // the end of the active set. The passed request is filled in place.
    CreateRequest(ctx context.Context, r *model.Request) error

    // RequestByID loads one request or returns ErrNotFound.
    RequestByID(ctx context.Context, id uint64) (*model.Request, error)

    // ActiveSet returns the event's QUEUED and CALLED requests ordered
    // by ascending queue position.
    ActiveSet(ctx context.Context, eventID uint64) ([]model.Request, error)

    // OnStage returns the event's ON_STAGE request, or nil when nobody
    // is performing.
    OnStage(ctx context.Context, eventID uint64) (*model.Request, error)

    // GuestStats returns the admission inputs for one guest.
    GuestStats(ctx context.Context, eventID, guestID uint64) (GuestStats, error)

    // RequestsByGuest returns every request a guest submitted at an
    // event, newest first, including history.
    RequestsByGuest(ctx context.Context, eventID, guestID uint64) ([]model.Request, error)

    // SaveTransition atomically writes the post-transition request row
    // together with the recompacted positions of the remaining active
    // set.
    SaveTransition(ctx context.Context, r *model.Request, positions map[uint64]int) error

    // SavePositions atomically applies a full reordering of the active
    // set.
    SavePositions(ctx context.Context, eventID uint64, positions map[uint64]int) error
}
